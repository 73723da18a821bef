package handler

import (
	"strings"
	"unicode/utf8"

	"repoindex/config"
	"repoindex/internal/adapter/analyzer"
	"repoindex/internal/domain"
)

const (
	NameCode     = "code"
	NameMarkdown = "markdown"
	NameData     = "data"
	NameText     = "text"
	NameBinary   = "binary"
)

const (
	DefaultHeadingDepth    = 6
	DefaultMaxRowsPerChunk = 200
)

// DefaultOptions returns the handler options used before any policy
// override is applied.
func DefaultOptions(chunkBytes, overlapBytes int) config.HandlerOptions {
	return config.HandlerOptions{
		ChunkBytes:      chunkBytes,
		OverlapBytes:    overlapBytes,
		HeadingDepth:    DefaultHeadingDepth,
		MaxRowsPerChunk: DefaultMaxRowsPerChunk,
	}
}

// textual is the gate shared by every text-oriented handler: binary content
// is rejected unless binaries are allowed, and the data must be valid UTF-8.
func textual(data []byte, hctx *domain.HandlerContext) bool {
	if !hctx.AllowBinary && analyzer.IsBinary(data, hctx.BinaryThreshold) {
		return false
	}
	return utf8.Valid(data)
}

func tooLarge(data []byte, opts config.HandlerOptions) bool {
	return opts.MaxFileBytes > 0 && int64(len(data)) > opts.MaxFileBytes
}

// splitLines splits on '\n', strips one trailing '\r' per line and drops
// the empty remainder after a final newline.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func hasExtension(path string, exts ...string) bool {
	ext := config.Extension(path)
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
