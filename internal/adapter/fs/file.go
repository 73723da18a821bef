package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"repoindex/internal/domain"
)

// ErrNotRegular is returned by ReadFile for directories, devices and other
// non-regular entries.
var ErrNotRegular = errors.New("not a regular file")

// ReadFile stats and reads rel under root. ModTime is whole seconds since
// the Unix epoch, 0 when unavailable.
func ReadFile(root, rel string) (domain.RepositoryFile, error) {
	full := filepath.Join(root, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	if err != nil {
		return domain.RepositoryFile{}, err
	}
	if !info.Mode().IsRegular() {
		return domain.RepositoryFile{}, fmt.Errorf("%s: %w", rel, ErrNotRegular)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return domain.RepositoryFile{}, err
	}

	var mtime uint64
	if sec := info.ModTime().Unix(); sec > 0 {
		mtime = uint64(sec)
	}

	return domain.RepositoryFile{
		Path:    rel,
		Data:    data,
		Size:    info.Size(),
		ModTime: mtime,
	}, nil
}
