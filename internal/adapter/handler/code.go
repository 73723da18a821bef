package handler

import (
	"context"
	"fmt"

	"repoindex/config"
	"repoindex/internal/adapter/chunker"
	"repoindex/internal/domain"
)

// Code splits source files along syntax-tree symbols.
type Code struct {
	opts config.HandlerOptions
}

func NewCode(opts config.HandlerOptions) *Code {
	return &Code{opts: opts}
}

func (h *Code) Name() string { return NameCode }

func (h *Code) Supports(path string, data []byte, hctx *domain.HandlerContext) bool {
	if tooLarge(data, h.opts) {
		return false
	}
	if _, ok := chunker.ParserForPath(path); !ok {
		return false
	}
	return textual(data, hctx)
}

// Process emits one chunk per symbol part. When no symbol can be extracted
// the whole file is windowed instead; that path never fails.
func (h *Code) Process(path string, data []byte, _ *domain.HandlerContext) ([]domain.PreparedChunk, error) {
	parser, ok := chunker.ParserForPath(path)
	if !ok {
		return nil, nil
	}
	language := parser.Language()

	symbolChunks, err := chunker.ChunkSymbols(context.Background(), parser, data, h.opts.ChunkBytes, h.opts.OverlapBytes)
	if err != nil || len(symbolChunks) == 0 {
		return h.fallback(language, data), nil
	}

	prepared := make([]domain.PreparedChunk, 0, len(symbolChunks))
	for idx, sc := range symbolChunks {
		prepared = append(prepared, domain.PreparedChunk{
			Text:        sc.Text,
			ChunkIndex:  idx,
			ChunkIDHint: symbolHint(path, sc),
			Metadata: map[string]any{
				"ingest_mode": "code",
				"language":    language,
				"symbols": []map[string]any{{
					"name":       sc.Symbol.Name,
					"kind":       sc.Symbol.Kind,
					"start_byte": sc.Symbol.StartByte,
					"end_byte":   sc.Symbol.EndByte,
					"part_index": sc.PartIndex,
					"part_count": sc.PartCount,
				}},
			},
		})
	}
	return prepared, nil
}

func (h *Code) fallback(language string, data []byte) []domain.PreparedChunk {
	windows := chunker.ChunkWithOverlap(chunker.DecodeLossy(data), h.opts.ChunkBytes, h.opts.OverlapBytes)
	prepared := make([]domain.PreparedChunk, 0, len(windows))
	for idx, text := range windows {
		prepared = append(prepared, domain.PreparedChunk{
			Text:       text,
			ChunkIndex: idx,
			Metadata: map[string]any{
				"ingest_mode": "code",
				"language":    language,
			},
		})
	}
	return prepared
}

// symbolHint is stable across runs as long as the symbol keeps its name,
// start offset and size.
func symbolHint(path string, sc domain.SymbolChunk) string {
	return fmt.Sprintf("%s#sym-%s-%d-p%dof%d",
		path, chunker.SanitizeSymbolName(sc.Symbol.Name), sc.Symbol.StartByte, sc.PartIndex, sc.PartCount)
}
