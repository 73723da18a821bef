// Package git lists and diffs repository files through the git CLI.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoFiles is returned when git ls-files lists nothing.
var ErrNoFiles = errors.New("git ls-files returned no files")

// Repo runs git commands in a working directory.
type Repo struct {
	dir string
}

func NewRepo(dir string) *Repo {
	return &Repo{dir: dir}
}

// IsWorkTree reports whether dir is inside a git work tree.
func IsWorkTree(ctx context.Context, dir string) bool {
	out, err := run(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// ListFiles returns the tracked files in index order. An empty listing is an
// error.
func (r *Repo) ListFiles(ctx context.Context) ([]string, error) {
	out, err := run(ctx, r.dir, "ls-files", "-z")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, part := range bytes.Split(out, []byte{0}) {
		if len(part) == 0 {
			continue
		}
		files = append(files, string(part))
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	return files, nil
}

// FilesChangedSince returns the paths reported by git diff --name-only ref,
// relative to the working directory and unquoted like ListFiles.
func (r *Repo) FilesChangedSince(ctx context.Context, ref string) (map[string]struct{}, error) {
	out, err := run(ctx, r.dir, "diff", "--name-only", "-z", "--relative", ref)
	if err != nil {
		return nil, err
	}

	changed := make(map[string]struct{})
	for _, part := range bytes.Split(out, []byte{0}) {
		if len(part) != 0 {
			changed[string(part)] = struct{}{}
		}
	}
	return changed, nil
}

func run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	// Paths must come back raw so listings and diffs compare equal.
	cmd := exec.CommandContext(ctx, "git", append([]string{"-c", "core.quotePath=false"}, args...)...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("git %s: %w: %s", args[0], err, msg)
		}
		return nil, fmt.Errorf("git %s: %w", args[0], err)
	}
	return out, nil
}
