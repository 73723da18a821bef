package chunker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"repoindex/internal/domain"
)

// nameFields are tried, in order, after the "name" field when resolving a
// symbol's display name.
var nameFields = []string{"identifier", "declarator", "property_identifier"}

// TreeSitterParser collects symbol nodes from a tree-sitter grammar.
type TreeSitterParser struct {
	name  string
	lang  *sitter.Language
	kinds map[string]struct{}
}

func newTreeSitterParser(name string, lang *sitter.Language, kinds ...string) *TreeSitterParser {
	set := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return &TreeSitterParser{name: name, lang: lang, kinds: set}
}

func init() {
	jsKinds := []string{"function_declaration", "method_definition", "class_declaration", "arrow_function"}

	register(newTreeSitterParser("rust", rust.GetLanguage(),
		"function_item", "impl_item", "struct_item", "enum_item", "trait_item", "mod_item"), "rs")
	register(newTreeSitterParser("typescript", typescript.GetLanguage(), jsKinds...), "ts")
	register(newTreeSitterParser("tsx", tsx.GetLanguage(), jsKinds...), "tsx")
	register(newTreeSitterParser("javascript", javascript.GetLanguage(), jsKinds...), "js", "jsx")
	register(newTreeSitterParser("python", python.GetLanguage(),
		"function_definition", "class_definition"), "py")
	register(newTreeSitterParser("go", golang.GetLanguage(),
		"function_declaration", "method_declaration", "type_spec"), "go")
}

// Language returns the language name.
func (p *TreeSitterParser) Language() string {
	return p.name
}

// Parse walks the syntax tree depth-first and returns every symbol node,
// ordered by start offset (outer symbols before inner ones on ties).
func (p *TreeSitterParser) Parse(ctx context.Context, content []byte) ([]domain.SymbolInfo, error) {
	if len(content) == 0 {
		return nil, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.name, err)
	}
	if tree == nil {
		return nil, nil
	}
	defer tree.Close()

	var symbols []domain.SymbolInfo
	stack := []*sitter.Node{tree.RootNode()}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := p.kinds[node.Type()]; ok {
			symbols = append(symbols, domain.SymbolInfo{
				Name:      symbolName(node, content),
				Kind:      node.Type(),
				StartByte: int(node.StartByte()),
				EndByte:   int(node.EndByte()),
			})
		}

		for i := 0; i < int(node.NamedChildCount()); i++ {
			if child := node.NamedChild(i); child != nil {
				stack = append(stack, child)
			}
		}
	}

	sort.SliceStable(symbols, func(i, j int) bool {
		if symbols[i].StartByte != symbols[j].StartByte {
			return symbols[i].StartByte < symbols[j].StartByte
		}
		return symbols[i].EndByte > symbols[j].EndByte
	})
	return symbols, nil
}

// symbolName resolves a display name: the name field, then the alternate
// identifier fields, then the first named child, then the node kind.
func symbolName(node *sitter.Node, content []byte) string {
	if text := fieldText(node, "name", content); text != "" {
		return text
	}
	for _, field := range nameFields {
		if text := fieldText(node, field, content); text != "" {
			return text
		}
	}
	if node.NamedChildCount() > 0 {
		if text := nodeText(node.NamedChild(0), content); text != "" {
			return text
		}
	}
	return node.Type()
}

func fieldText(node *sitter.Node, field string, content []byte) string {
	return nodeText(node.ChildByFieldName(field), content)
}

func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	start, end := int(node.StartByte()), int(node.EndByte())
	if start >= len(content) || end > len(content) || start >= end {
		return ""
	}
	return strings.TrimSpace(DecodeLossy(content[start:end]))
}
