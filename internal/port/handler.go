package port

import "repoindex/internal/domain"

// Handler is a content-type specific strategy: it decides whether it applies
// to a file and how to split that file into chunks. Handlers are pure
// functions of (path, data, context).
type Handler interface {
	Name() string

	Supports(path string, data []byte, hctx *domain.HandlerContext) bool

	Process(path string, data []byte, hctx *domain.HandlerContext) ([]domain.PreparedChunk, error)
}

// HandlerResolver picks the single handler for a file, or none.
type HandlerResolver interface {
	Resolve(path string, data []byte) (Handler, bool)

	Context() *domain.HandlerContext
}
