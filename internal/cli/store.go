package cli

import (
	"fmt"

	"repoindex/config"
	"repoindex/internal/adapter/labeler"
	"repoindex/internal/adapter/memstore"
	"repoindex/internal/adapter/store"
	"repoindex/internal/port"
)

// openStore opens the configured memory store under root. dryRun forces
// the in-memory backend.
func openStore(cfg *config.Config, root string, dryRun bool) (port.MemoryStore, string, error) {
	backend := cfg.Store.Backend
	if dryRun {
		backend = "memory"
	}

	switch backend {
	case "memory":
		return memstore.NewMemoryStore(), "memory", nil
	case "bolt", "":
		path := config.Resolve(root, cfg.Store.Path)
		st, err := store.NewBoltStore(path)
		if err != nil {
			return nil, "", err
		}
		return st, path, nil
	default:
		return nil, "", fmt.Errorf("unsupported store backend: %s", backend)
	}
}

// newLabeler returns the model-backed labeler when model labels are in use,
// and the heuristic one otherwise.
func newLabeler(cfg *config.Config, useLLM bool) (port.Labeler, error) {
	if !useLLM {
		return labeler.NewHeuristic(cfg.Labeler.Project), nil
	}
	return labeler.NewLLM(cfg.Labeler)
}
