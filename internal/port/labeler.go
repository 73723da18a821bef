package port

import (
	"context"

	"repoindex/internal/domain"
)

// Labeler attaches topic/project/summary/open-question labels to a chunk.
// Implementations always return usable labels when err is nil, even if the
// underlying model produced garbage.
type Labeler interface {
	Label(ctx context.Context, path, text string, useLLM bool) (domain.Labels, error)
}
