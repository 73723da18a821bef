package port

import "context"

// FileLister produces the candidate file list for a run, as paths relative
// to the repository root, in discovery order.
type FileLister interface {
	ListFiles(ctx context.Context) ([]string, error)
}

// ChangeDetector reports the set of paths changed since a reference.
type ChangeDetector interface {
	FilesChangedSince(ctx context.Context, ref string) (map[string]struct{}, error)
}
