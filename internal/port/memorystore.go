package port

import (
	"context"

	"repoindex/internal/domain"
)

// MemoryStore accepts finished chunks and returns an opaque memory id.
type MemoryStore interface {
	Write(ctx context.Context, record domain.MemoryRecord) (string, error)

	Close() error
}
