package handler

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoindex/config"
	"repoindex/internal/domain"
)

func textCtx() *domain.HandlerContext {
	return &domain.HandlerContext{AllowBinary: false, BinaryThreshold: 0.33}
}

func TestCodeHandlerRustSymbols(t *testing.T) {
	h := NewCode(DefaultOptions(200, 50))
	src := []byte("fn foo() {}\nstruct Bar {}\n")

	require.True(t, h.Supports("src/lib.rs", src, textCtx()))
	chunks, err := h.Process("src/lib.rs", src, textCtx())
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	kinds := []string{"function_item", "struct_item"}
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, "code", c.Metadata["ingest_mode"])
		assert.Equal(t, "rust", c.Metadata["language"])

		symbols, ok := c.Metadata["symbols"].([]map[string]any)
		require.True(t, ok)
		require.Len(t, symbols, 1)
		assert.Equal(t, kinds[i], symbols[0]["kind"])
		assert.Equal(t, 1, symbols[0]["part_count"])
		assert.Equal(t, 0, symbols[0]["part_index"])
	}
	assert.Equal(t, "fn foo() {}", chunks[0].Text)
	assert.Equal(t, "src/lib.rs#sym-foo-0-p0of1", chunks[0].ChunkIDHint)
	assert.Equal(t, "src/lib.rs#sym-Bar-12-p0of1", chunks[1].ChunkIDHint)
}

func TestCodeHandlerHintsAreStable(t *testing.T) {
	h := NewCode(DefaultOptions(200, 50))
	src := []byte("fn demo() {}\n")

	first, err := h.Process("a.rs", src, textCtx())
	require.NoError(t, err)
	second, err := h.Process("a.rs", src, textCtx())
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.Equal(t, first[0].ChunkIDHint, second[0].ChunkIDHint)
}

func TestCodeHandlerSplitsLargeSymbol(t *testing.T) {
	h := NewCode(DefaultOptions(64, 16))
	src := []byte("fn big() {\n" + strings.Repeat("    let x = 1;\n", 20) + "}\n")

	chunks, err := h.Process("big.rs", src, textCtx())
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		symbols := c.Metadata["symbols"].([]map[string]any)
		assert.Equal(t, i, symbols[0]["part_index"])
		assert.Equal(t, len(chunks), symbols[0]["part_count"])
		assert.LessOrEqual(t, len(c.Text), 64)
	}
	assert.Equal(t, "big.rs#sym-big-0-p1of"+strconv.Itoa(len(chunks)), chunks[1].ChunkIDHint)
}

func TestCodeHandlerFallsBackWithoutSymbols(t *testing.T) {
	h := NewCode(DefaultOptions(200, 50))
	src := []byte("// only a comment\n")

	chunks, err := h.Process("empty.rs", src, textCtx())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "// only a comment\n", chunks[0].Text)
	assert.Empty(t, chunks[0].ChunkIDHint)
	assert.Equal(t, map[string]any{"ingest_mode": "code", "language": "rust"}, chunks[0].Metadata)
}

func TestCodeHandlerRejects(t *testing.T) {
	h := NewCode(DefaultOptions(200, 50))
	assert.False(t, h.Supports("notes.txt", []byte("fn a() {}"), textCtx()))
	assert.False(t, h.Supports("a.rs", []byte{0xff, 0xfe, 'a'}, &domain.HandlerContext{AllowBinary: true, BinaryThreshold: 1}))
	assert.False(t, h.Supports("a.rs", []byte("fn\x00"), textCtx()))
}

func TestMarkdownHandlerSections(t *testing.T) {
	h := NewMarkdown(DefaultOptions(1200, 200))
	src := []byte("# Title\nBody line\n## Sub\nMore text")

	require.True(t, h.Supports("README.md", src, textCtx()))
	chunks, err := h.Process("README.md", src, textCtx())
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "Title", chunks[0].Metadata["markdown_heading"])
	assert.Equal(t, "Sub", chunks[1].Metadata["markdown_heading"])
	assert.Equal(t, "# Title\nBody line\n", chunks[0].Text)
	assert.Equal(t, "## Sub\nMore text\n", chunks[1].Text)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
	assert.Equal(t, "text", chunks[1].Metadata["ingest_mode"])
}

func TestMarkdownHandlerPreambleAndDepth(t *testing.T) {
	opts := DefaultOptions(1200, 200)
	opts.HeadingDepth = 1
	h := NewMarkdown(opts)

	src := []byte("intro\n# A\n## nested\ntext\n")
	chunks, err := h.Process("doc.markdown", src, textCtx())
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	_, hasHeading := chunks[0].Metadata["markdown_heading"]
	assert.False(t, hasHeading)
	assert.Equal(t, "intro\n", chunks[0].Text)
	assert.Equal(t, "A", chunks[1].Metadata["markdown_heading"])
	assert.Equal(t, "# A\n## nested\ntext\n", chunks[1].Text)
}

func TestMarkdownHandlerGlobalChunkIndex(t *testing.T) {
	h := NewMarkdown(DefaultOptions(10, 0))
	src := []byte("# One\n" + strings.Repeat("a", 20) + "\n# Two\nshort\n")

	chunks, err := h.Process("x.md", src, textCtx())
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
	}
}

func TestDataHandlerRowRanges(t *testing.T) {
	opts := DefaultOptions(1200, 200)
	opts.MaxRowsPerChunk = 2
	h := NewData(opts)
	src := []byte("a,b\n1,2\n3,4")

	require.True(t, h.Supports("data.csv", src, textCtx()))
	chunks, err := h.Process("data.csv", src, textCtx())
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, []int{0, 2}, chunks[0].Metadata["row_range"])
	assert.Equal(t, []int{2, 3}, chunks[1].Metadata["row_range"])
	assert.Equal(t, "a,b\n1,2", chunks[0].Text)
	assert.Equal(t, "3,4", chunks[1].Text)
	assert.Equal(t, "csv", chunks[0].Metadata["data_format"])
	assert.Equal(t, 1, chunks[1].ChunkIndex)
}

func TestDataHandlerFormatsAndFallback(t *testing.T) {
	h := NewData(DefaultOptions(1200, 200))

	chunks, err := h.Process("events.jsonl", []byte("{\"a\":1}\r\n{\"a\":2}\r\n"), textCtx())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "jsonl", chunks[0].Metadata["data_format"])
	assert.Equal(t, "{\"a\":1}\n{\"a\":2}", chunks[0].Text)

	chunks, err = h.Process("empty.json", nil, textCtx())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, map[string]any{"ingest_mode": "data"}, chunks[0].Metadata)

	assert.False(t, h.Supports("a.txt", []byte("x"), textCtx()))
}

func TestTextHandler(t *testing.T) {
	h := NewText(DefaultOptions(4, 1))

	assert.True(t, h.Supports("notes.txt", []byte("hello"), textCtx()))
	assert.True(t, h.Supports("Makefile", []byte("all:"), textCtx()))
	for _, p := range []string{"a.md", "a.markdown", "a.csv", "a.jsonl"} {
		assert.False(t, h.Supports(p, []byte("hello"), textCtx()), p)
	}

	chunks, err := h.Process("notes.txt", []byte("abcdefg"), textCtx())
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "abcd", chunks[0].Text)
	assert.Equal(t, "defg", chunks[1].Text)
	assert.Equal(t, "text", chunks[1].Metadata["ingest_mode"])
}

func TestBinaryHandler(t *testing.T) {
	h := NewBinary(DefaultOptions(1200, 200))
	data := []byte{0x00, 0x01, 0x02, 0x03}

	require.True(t, h.Supports("blob.dat", data, textCtx()))
	assert.False(t, h.Supports("plain.txt", []byte("plain"), textCtx()))

	chunks, err := h.Process("blob.dat", data, textCtx())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "<binary file: blob.dat>", chunks[0].Text)
	assert.Equal(t, "binary", chunks[0].Metadata["ingest_mode"])
	assert.Equal(t, 4, chunks[0].Metadata["binary_size"])
	assert.Equal(t, "blob.dat", chunks[0].Metadata["binary_path"])
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Equal(t, []string{""}, splitLines("\n"))
	assert.Equal(t, []string{"a", "", "b"}, splitLines("a\n\nb"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\r\nb\r\n"))
}

func TestHandlerMaxFileBytesOverride(t *testing.T) {
	opts := DefaultOptions(1200, 200)
	opts.MaxFileBytes = 4
	assert.False(t, NewCode(opts).Supports("a.rs", []byte("fn a() {}"), textCtx()))
	assert.True(t, NewCode(config.HandlerOptions{ChunkBytes: 10}).Supports("a.rs", []byte("fn a() {}"), textCtx()))
}
