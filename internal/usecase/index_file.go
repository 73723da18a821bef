package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"repoindex/internal/adapter/chunker"
	"repoindex/internal/domain"
	"repoindex/internal/port"
)

// ErrEmptyFile is returned by IndexFile for files with no visible content.
var ErrEmptyFile = errors.New("file is empty")

// IndexFileOptions configure a single-file index.
type IndexFileOptions struct {
	ChunkBytes   int
	OverlapBytes int
	UseLLMLabels bool
}

// IndexFileResult lists the memory ids written, in chunk order.
type IndexFileResult struct {
	Chunks    int
	MemoryIDs []string
}

// FileIndexUseCase windows one file and stores every window. It bypasses
// handlers, the manifest and deduplication.
type FileIndexUseCase struct {
	labeler port.Labeler
	store   port.MemoryStore
	logger  *slog.Logger
	now     func() time.Time
}

func NewFileIndexUseCase(labeler port.Labeler, store port.MemoryStore) *FileIndexUseCase {
	return &FileIndexUseCase{
		labeler: labeler,
		store:   store,
		logger:  slog.Default().With("component", "file-indexer"),
		now:     time.Now,
	}
}

// IndexFile reads path as UTF-8 text and stores it as overlapping chunks.
func (u *FileIndexUseCase) IndexFile(ctx context.Context, path string, opts IndexFileOptions) (*IndexFileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("failed to read file %s: not valid UTF-8", path)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}

	chunks := chunker.ChunkWithOverlap(content, opts.ChunkBytes, opts.OverlapBytes)
	u.logger.Info("indexing file",
		"path", path,
		"chunks", len(chunks),
		"chunk_bytes", opts.ChunkBytes,
		"overlap_bytes", opts.OverlapBytes)

	result := &IndexFileResult{Chunks: len(chunks), MemoryIDs: make([]string, 0, len(chunks))}
	for idx, chunk := range chunks {
		labels, err := u.labeler.Label(ctx, path, chunk, opts.UseLLMLabels)
		if err != nil {
			return result, fmt.Errorf("failed to label chunk %d: %w", idx, err)
		}

		record := domain.MemoryRecord{
			AgentName:     indexerAgent,
			Topic:         labels.Topic,
			Project:       labels.Project,
			Timestamp:     u.now().UTC(),
			Summary:       labels.Summary,
			FullContent:   chunk,
			Confidence:    indexerConfidence,
			OpenQuestions: labels.OpenQuestions,
			Metadata: map[string]any{
				"path":         path,
				"hash":         HashPrefix + ContentHash([]byte(chunk)),
				"chunk_bytes":  len(chunk),
				"label_source": labelSource(opts.UseLLMLabels),
				"body":         chunk,
				"chunk_index":  idx,
				"chunk_id":     fmt.Sprintf("%s#chunk-%d", path, idx),
			},
		}

		id, err := u.store.Write(ctx, record)
		if err != nil {
			return result, fmt.Errorf("failed to store chunk %d: %w", idx, err)
		}
		result.MemoryIDs = append(result.MemoryIDs, id)
		u.logger.Info("chunk stored", "path", path, "chunk_index", idx, "memory_id", id)
	}

	return result, nil
}
