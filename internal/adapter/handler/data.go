package handler

import (
	"strings"

	"repoindex/config"
	"repoindex/internal/adapter/chunker"
	"repoindex/internal/domain"
)

// Data windows line-oriented tabular files by row count.
type Data struct {
	opts config.HandlerOptions
}

func NewData(opts config.HandlerOptions) *Data {
	if opts.MaxRowsPerChunk <= 0 {
		opts.MaxRowsPerChunk = DefaultMaxRowsPerChunk
	}
	return &Data{opts: opts}
}

func (h *Data) Name() string { return NameData }

func (h *Data) Supports(path string, data []byte, hctx *domain.HandlerContext) bool {
	if tooLarge(data, h.opts) || !hasExtension(path, "csv", "json", "jsonl") {
		return false
	}
	return textual(data, hctx)
}

// Process always returns at least one chunk: a file without rows becomes a
// single chunk holding the whole content and no row_range.
func (h *Data) Process(path string, data []byte, _ *domain.HandlerContext) ([]domain.PreparedChunk, error) {
	content := chunker.DecodeLossy(data)
	format := dataFormat(path)
	lines := splitLines(content)

	var prepared []domain.PreparedChunk
	for start := 0; start < len(lines); {
		end := min(start+h.opts.MaxRowsPerChunk, len(lines))
		prepared = append(prepared, domain.PreparedChunk{
			Text:       strings.Join(lines[start:end], "\n"),
			ChunkIndex: len(prepared),
			Metadata: map[string]any{
				"ingest_mode": "data",
				"data_format": format,
				"row_range":   []int{start, end},
			},
		})
		start = end
	}

	if len(prepared) == 0 {
		prepared = append(prepared, domain.PreparedChunk{
			Text:     content,
			Metadata: map[string]any{"ingest_mode": "data"},
		})
	}
	return prepared, nil
}

func dataFormat(path string) string {
	switch config.Extension(path) {
	case "csv":
		return "csv"
	case "jsonl":
		return "jsonl"
	default:
		return "json"
	}
}
