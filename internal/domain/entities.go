package domain

import "time"

// RepositoryFile is a candidate file read once per run.
type RepositoryFile struct {
	Path    string
	Data    []byte
	Size    int64
	ModTime uint64
}

// HandlerContext is derived once per run and shared read-only by every handler.
type HandlerContext struct {
	AllowBinary     bool
	BinaryThreshold float64
}

type SymbolInfo struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	StartByte int    `json:"start_byte"`
	EndByte   int    `json:"end_byte"`
}

// SymbolChunk is one slice of a symbol's source range. PartCount is 1 unless
// the symbol was larger than the configured chunk size.
type SymbolChunk struct {
	Text      string
	Symbol    SymbolInfo
	PartIndex int
	PartCount int
}

// PreparedChunk is the handler-agnostic unit emitted by a handler.
type PreparedChunk struct {
	Text        string
	ChunkIndex  int
	ChunkIDHint string // empty when the handler has no stable identity to offer
	Metadata    map[string]any
}

type Labels struct {
	Topic         string   `json:"topic"`
	Project       string   `json:"project"`
	Summary       string   `json:"summary"`
	OpenQuestions []string `json:"open_questions"`
}

// MemoryRecord is what the pipeline hands to the memory store for each chunk.
type MemoryRecord struct {
	ID            string         `json:"id,omitempty"`
	AgentName     string         `json:"agent_name"`
	Topic         string         `json:"topic"`
	Project       string         `json:"project,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Summary       string         `json:"summary"`
	FullContent   string         `json:"full_content"`
	Confidence    float32        `json:"confidence"`
	OpenQuestions []string       `json:"open_questions"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type ManifestEntry struct {
	Hash     string   `json:"hash"`
	MTime    uint64   `json:"mtime"`
	ChunkIDs []string `json:"chunk_ids"`
}

// Manifest is the only state that outlives a pipeline run.
type Manifest struct {
	Version uint8                    `json:"version"`
	Files   map[string]ManifestEntry `json:"files"`
}
