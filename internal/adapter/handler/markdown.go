package handler

import (
	"strings"

	"repoindex/config"
	"repoindex/internal/adapter/chunker"
	"repoindex/internal/domain"
)

// Markdown splits documents into heading sections.
type Markdown struct {
	opts config.HandlerOptions
}

func NewMarkdown(opts config.HandlerOptions) *Markdown {
	if opts.HeadingDepth <= 0 {
		opts.HeadingDepth = DefaultHeadingDepth
	}
	return &Markdown{opts: opts}
}

func (h *Markdown) Name() string { return NameMarkdown }

func (h *Markdown) Supports(path string, data []byte, hctx *domain.HandlerContext) bool {
	if tooLarge(data, h.opts) || !hasExtension(path, "md", "markdown") {
		return false
	}
	return textual(data, hctx)
}

type section struct {
	heading string
	body    strings.Builder
}

func (h *Markdown) Process(_ string, data []byte, _ *domain.HandlerContext) ([]domain.PreparedChunk, error) {
	var sections []*section
	current := &section{}

	for _, line := range splitLines(chunker.DecodeLossy(data)) {
		if heading, ok := h.heading(line); ok {
			if current.body.Len() > 0 {
				sections = append(sections, current)
			}
			current = &section{heading: heading}
		}
		current.body.WriteString(line)
		current.body.WriteByte('\n')
	}
	if current.body.Len() > 0 {
		sections = append(sections, current)
	}

	var prepared []domain.PreparedChunk
	for _, s := range sections {
		for _, text := range chunker.ChunkWithOverlap(s.body.String(), h.opts.ChunkBytes, h.opts.OverlapBytes) {
			meta := map[string]any{"ingest_mode": "text"}
			if s.heading != "" {
				meta["markdown_heading"] = s.heading
			}
			prepared = append(prepared, domain.PreparedChunk{
				Text:       text,
				ChunkIndex: len(prepared),
				Metadata:   meta,
			})
		}
	}
	return prepared, nil
}

// heading reports whether line opens a section: after leading whitespace it
// starts with 1..HeadingDepth '#' characters. Deeper headings stay in the
// enclosing section.
func (h *Markdown) heading(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	rest := strings.TrimLeft(trimmed, "#")
	if depth := len(trimmed) - len(rest); depth > h.opts.HeadingDepth {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
