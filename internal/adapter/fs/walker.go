package fs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// Walker lists files under root when the root is not a git work tree.
// Directories and files matching an exclude glob or the root .gitignore are
// skipped. Symlinks are never followed.
type Walker struct {
	root     string
	excludes []string
	ignore   *ignore.GitIgnore
}

func NewWalker(root string, excludes []string) *Walker {
	w := &Walker{root: root, excludes: excludes}
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		w.ignore = gi
	}
	return w
}

// ListFiles returns slash-separated paths relative to root in lexical walk
// order.
func (w *Walker) ListFiles(ctx context.Context) ([]string, error) {
	var files []string

	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == w.root {
			return nil
		}

		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if w.shouldExclude(rel+"/") || w.ignored(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if w.shouldExclude(rel) || w.ignored(rel) {
			return nil
		}

		files = append(files, rel)
		return nil
	})

	return files, err
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) ignored(path string) bool {
	return w.ignore != nil && w.ignore.MatchesPath(path)
}
