package chunker

import (
	"context"
	"path/filepath"
	"strings"

	"repoindex/internal/domain"
)

// LanguageParser extracts located symbols from source code.
type LanguageParser interface {
	Parse(ctx context.Context, content []byte) ([]domain.SymbolInfo, error)

	Language() string
}

var parsers = map[string]LanguageParser{}

var extensionParsers = map[string]string{}

func register(p LanguageParser, extensions ...string) {
	parsers[p.Language()] = p
	for _, ext := range extensions {
		extensionParsers[ext] = p.Language()
	}
}

// ParserForPath returns the parser registered for the file's extension.
func ParserForPath(path string) (LanguageParser, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	name, ok := extensionParsers[ext]
	if !ok {
		return nil, false
	}
	p, ok := parsers[name]
	return p, ok
}

// LanguageForPath returns the language name for path, or "" if unsupported.
func LanguageForPath(path string) string {
	p, ok := ParserForPath(path)
	if !ok {
		return ""
	}
	return p.Language()
}
