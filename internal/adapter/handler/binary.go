package handler

import (
	"fmt"

	"repoindex/config"
	"repoindex/internal/adapter/analyzer"
	"repoindex/internal/domain"
)

// Binary records a placeholder for content classified as binary.
type Binary struct {
	opts config.HandlerOptions
}

func NewBinary(opts config.HandlerOptions) *Binary {
	return &Binary{opts: opts}
}

func (h *Binary) Name() string { return NameBinary }

func (h *Binary) Supports(_ string, data []byte, hctx *domain.HandlerContext) bool {
	if tooLarge(data, h.opts) {
		return false
	}
	return analyzer.IsBinary(data, hctx.BinaryThreshold)
}

func (h *Binary) Process(path string, data []byte, _ *domain.HandlerContext) ([]domain.PreparedChunk, error) {
	return []domain.PreparedChunk{{
		Text: fmt.Sprintf("<binary file: %s>", path),
		Metadata: map[string]any{
			"ingest_mode": "binary",
			"binary_size": len(data),
			"binary_path": path,
		},
	}}, nil
}
