package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"repoindex/config"
	"repoindex/internal/domain"
)

// Version is the manifest format version written by Save.
const Version uint8 = 1

// Store holds the manifest for one run. It is loaded at run start and saved
// wholesale once the run completes.
type Store struct {
	path     string
	manifest domain.Manifest
}

// Load reads the manifest at path. A missing or unparseable file yields an
// empty manifest, so the next run re-indexes everything.
func Load(path string) *Store {
	s := &Store{path: path, manifest: empty()}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}

	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return s
	}
	if m.Files == nil {
		m.Files = make(map[string]domain.ManifestEntry)
	}
	if m.Version == 0 {
		m.Version = Version
	}
	s.manifest = m
	return s
}

func empty() domain.Manifest {
	return domain.Manifest{Version: Version, Files: make(map[string]domain.ManifestEntry)}
}

// Path returns the file the manifest is saved to.
func (s *Store) Path() string {
	return s.path
}

// IsUnchanged reports whether path has an entry with the same hash and mtime.
func (s *Store) IsUnchanged(path, hash string, mtime uint64) bool {
	e, ok := s.manifest.Files[path]
	return ok && e.Hash == hash && e.MTime == mtime
}

// Get returns the entry recorded for path.
func (s *Store) Get(path string) (domain.ManifestEntry, bool) {
	e, ok := s.manifest.Files[path]
	return e, ok
}

// Put replaces the entry for path.
func (s *Store) Put(path string, entry domain.ManifestEntry) {
	if entry.ChunkIDs == nil {
		entry.ChunkIDs = []string{}
	}
	s.manifest.Files[path] = entry
}

// Len returns the number of tracked files.
func (s *Store) Len() int {
	return len(s.manifest.Files)
}

// Paths returns the tracked paths in sorted order.
func (s *Store) Paths() []string {
	paths := make([]string, 0, len(s.manifest.Files))
	for p := range s.manifest.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Manifest returns the in-memory manifest.
func (s *Store) Manifest() domain.Manifest {
	return s.manifest
}

// Save writes the manifest as indented JSON, replacing the previous file.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := config.EnsureDir(s.path); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
