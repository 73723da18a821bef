package chunker

import (
	"context"
	"strings"
	"unicode"

	"repoindex/internal/domain"
)

// ChunkSymbols extracts symbols with parser and turns each into one or more
// SymbolChunks. A symbol whose source is longer than chunkBytes is split with
// overlap; its parts share PartCount. Symbols with an invalid range or only
// whitespace are dropped.
func ChunkSymbols(ctx context.Context, parser LanguageParser, content []byte, chunkBytes, overlapBytes int) ([]domain.SymbolChunk, error) {
	symbols, err := parser.Parse(ctx, content)
	if err != nil {
		return nil, err
	}

	var chunks []domain.SymbolChunk
	for _, sym := range symbols {
		if sym.EndByte > len(content) || sym.StartByte >= sym.EndByte {
			continue
		}
		text := DecodeLossy(content[sym.StartByte:sym.EndByte])
		if strings.TrimSpace(text) == "" {
			continue
		}

		if chunkBytes > 0 && len(text) > chunkBytes {
			parts := ChunkWithOverlap(text, chunkBytes, overlapBytes)
			for i, part := range parts {
				chunks = append(chunks, domain.SymbolChunk{
					Text:      part,
					Symbol:    sym,
					PartIndex: i,
					PartCount: len(parts),
				})
			}
			continue
		}

		chunks = append(chunks, domain.SymbolChunk{
			Text:      text,
			Symbol:    sym,
			PartIndex: 0,
			PartCount: 1,
		})
	}

	return chunks, nil
}

// SanitizeSymbolName replaces every non-alphanumeric rune with '_'.
func SanitizeSymbolName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, name)
}
