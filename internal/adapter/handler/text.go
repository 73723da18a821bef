package handler

import (
	"repoindex/config"
	"repoindex/internal/adapter/chunker"
	"repoindex/internal/domain"
)

// Text is the catch-all for UTF-8 content.
type Text struct {
	opts config.HandlerOptions
}

func NewText(opts config.HandlerOptions) *Text {
	return &Text{opts: opts}
}

func (h *Text) Name() string { return NameText }

// Supports rejects the markdown and row-oriented extensions outright so the
// specialised handlers win regardless of registry order.
func (h *Text) Supports(path string, data []byte, hctx *domain.HandlerContext) bool {
	if tooLarge(data, h.opts) || hasExtension(path, "md", "markdown", "csv", "jsonl") {
		return false
	}
	return textual(data, hctx)
}

func (h *Text) Process(_ string, data []byte, _ *domain.HandlerContext) ([]domain.PreparedChunk, error) {
	windows := chunker.ChunkWithOverlap(chunker.DecodeLossy(data), h.opts.ChunkBytes, h.opts.OverlapBytes)
	prepared := make([]domain.PreparedChunk, 0, len(windows))
	for idx, text := range windows {
		prepared = append(prepared, domain.PreparedChunk{
			Text:       text,
			ChunkIndex: idx,
			Metadata:   map[string]any{"ingest_mode": "text"},
		})
	}
	return prepared, nil
}
