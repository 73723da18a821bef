package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"repoindex/config"
	"repoindex/internal/adapter/analyzer"
	"repoindex/internal/adapter/fs"
	"repoindex/internal/adapter/manifest"
	"repoindex/internal/domain"
	"repoindex/internal/port"
)

const (
	indexerAgent      = "Indexer"
	indexerConfidence = 0.99
)

// IndexOptions are the per-run settings of a repository index.
type IndexOptions struct {
	Root         string
	MaxFileBytes int64
	ChangedSince string
	UseLLMLabels bool

	// Progress, when set, is called before each candidate file.
	Progress func(current, total int, path string)
}

// IndexResult summarises one run.
type IndexResult struct {
	FilesListed    int
	FilesProcessed int
	FilesSkipped   int
	FilesUnchanged int
	ChunksStored   int
	ChunksDeduped  int
}

// IndexUseCase drives the incremental indexing pipeline. Files are handled
// one at a time in listing order and chunks in the order their handler
// produced them.
type IndexUseCase struct {
	lister   port.FileLister
	changes  port.ChangeDetector
	resolver port.HandlerResolver
	policy   *config.Policy
	manifest *manifest.Store
	labeler  port.Labeler
	store    port.MemoryStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewIndexUseCase wires the pipeline. changes may be nil when change
// filtering is never requested.
func NewIndexUseCase(
	lister port.FileLister,
	changes port.ChangeDetector,
	resolver port.HandlerResolver,
	policy *config.Policy,
	manifest *manifest.Store,
	labeler port.Labeler,
	store port.MemoryStore,
) *IndexUseCase {
	return &IndexUseCase{
		lister:   lister,
		changes:  changes,
		resolver: resolver,
		policy:   policy,
		manifest: manifest,
		labeler:  labeler,
		store:    store,
		logger:   slog.Default().With("component", "indexer"),
		now:      time.Now,
	}
}

// Index runs the pipeline. Listing, diff, process, label and write failures
// abort the run before the manifest is saved, so every file touched by the
// aborted run is reprocessed next time.
func (u *IndexUseCase) Index(ctx context.Context, opts IndexOptions) (*IndexResult, error) {
	files, err := u.lister.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var changed map[string]struct{}
	if opts.ChangedSince != "" {
		if u.changes == nil {
			return nil, errors.New("changed-since requires a git repository")
		}
		changed, err = u.changes.FilesChangedSince(ctx, opts.ChangedSince)
		if err != nil {
			return nil, fmt.Errorf("failed to diff against %s: %w", opts.ChangedSince, err)
		}
	}

	maxBytes := u.policy.EffectiveMaxFileBytes(opts.MaxFileBytes)
	u.logger.Info("indexing repository",
		"files", len(files),
		"max_file_bytes", maxBytes,
		"changed_since", opts.ChangedSince)

	result := &IndexResult{FilesListed: len(files)}
	dedup := NewDeduplicator()

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(files), path)
		}

		if changed != nil {
			if _, ok := changed[path]; !ok {
				result.FilesSkipped++
				continue
			}
		}

		file, err := fs.ReadFile(opts.Root, path)
		if err != nil {
			u.logger.Debug("skipping unreadable file", "path", path, "err", err)
			result.FilesSkipped++
			continue
		}
		if reason := u.filter(file, maxBytes); reason != "" {
			u.logger.Debug("skipping file", "path", path, "reason", reason)
			result.FilesSkipped++
			continue
		}

		fileHash := ContentHash(file.Data)
		if u.manifest.IsUnchanged(path, fileHash, file.ModTime) {
			result.FilesUnchanged++
			continue
		}

		h, ok := u.resolver.Resolve(path, file.Data)
		if !ok {
			u.logger.Debug("no handler", "path", path)
			result.FilesSkipped++
			continue
		}

		chunks, err := h.Process(path, file.Data, u.resolver.Context())
		if err != nil {
			return result, fmt.Errorf("handler %s failed on %s: %w", h.Name(), path, err)
		}
		if len(chunks) == 0 {
			result.FilesSkipped++
			continue
		}

		ids, err := u.storeChunks(ctx, file, fileHash, h.Name(), chunks, dedup, opts.UseLLMLabels, result)
		if err != nil {
			return result, err
		}

		u.manifest.Put(path, domain.ManifestEntry{
			Hash:     fileHash,
			MTime:    file.ModTime,
			ChunkIDs: ids,
		})
		result.FilesProcessed++
	}

	if err := u.manifest.Save(); err != nil {
		return result, fmt.Errorf("failed to save manifest: %w", err)
	}

	u.logger.Info("indexing complete",
		"files_processed", result.FilesProcessed,
		"chunks_stored", result.ChunksStored,
		"chunks_deduped", result.ChunksDeduped,
		"files_unchanged", result.FilesUnchanged)
	return result, nil
}

// filter returns a non-empty reason when the file must not be indexed.
func (u *IndexUseCase) filter(file domain.RepositoryFile, maxBytes int64) string {
	hctx := u.resolver.Context()
	switch {
	case file.Size == 0 || len(file.Data) == 0:
		return "empty"
	case maxBytes > 0 && file.Size > maxBytes:
		return "too large"
	case u.policy.SkipExtension(file.Path):
		return "extension"
	case !hctx.AllowBinary && analyzer.IsBinary(file.Data, hctx.BinaryThreshold):
		return "binary"
	}
	return ""
}

func (u *IndexUseCase) storeChunks(
	ctx context.Context,
	file domain.RepositoryFile,
	fileHash string,
	handlerName string,
	chunks []domain.PreparedChunk,
	dedup *Deduplicator,
	useLLM bool,
	result *IndexResult,
) ([]string, error) {
	ids := []string{}

	for _, chunk := range chunks {
		if chunk.Text == "" {
			continue
		}

		hash := ContentHash([]byte(chunk.Text))
		if dedup.Seen(hash) {
			result.ChunksDeduped++
			continue
		}

		labels, err := u.labeler.Label(ctx, file.Path, chunk.Text, useLLM)
		if err != nil {
			return nil, fmt.Errorf("failed to label %s chunk %d: %w", file.Path, chunk.ChunkIndex, err)
		}

		chunkID := chunk.ChunkIDHint
		if chunkID == "" {
			chunkID = fmt.Sprintf("%s#chunk-%d-%s", file.Path, chunk.ChunkIndex, fileHash[:8])
		}

		record := domain.MemoryRecord{
			AgentName:     indexerAgent,
			Topic:         labels.Topic,
			Project:       labels.Project,
			Timestamp:     u.now().UTC(),
			Summary:       labels.Summary,
			FullContent:   chunk.Text,
			Confidence:    indexerConfidence,
			OpenQuestions: labels.OpenQuestions,
			Metadata: recordMetadata(chunk.Metadata, map[string]any{
				"path":         file.Path,
				"file_hash":    HashPrefix + fileHash,
				"hash":         HashPrefix + hash,
				"chunk_bytes":  len(chunk.Text),
				"label_source": labelSource(useLLM),
				"body":         chunk.Text,
				"chunk_index":  chunk.ChunkIndex,
				"chunk_id":     chunkID,
				"file_len":     file.Size,
			}),
		}

		memoryID, err := u.store.Write(ctx, record)
		if err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", chunkID, err)
		}

		result.ChunksStored++
		ids = append(ids, chunkID)
		u.logger.Info("chunk stored",
			"path", file.Path,
			"handler", handlerName,
			"chunk_index", chunk.ChunkIndex,
			"memory_id", memoryID)
	}

	return ids, nil
}

// recordMetadata copies the handler metadata and adds each pipeline key the
// handler did not already set.
func recordMetadata(handlerMeta, pipeline map[string]any) map[string]any {
	meta := make(map[string]any, len(handlerMeta)+len(pipeline))
	for k, v := range handlerMeta {
		meta[k] = v
	}
	for k, v := range pipeline {
		if _, ok := meta[k]; !ok {
			meta[k] = v
		}
	}
	return meta
}

func labelSource(useLLM bool) string {
	if useLLM {
		return "llm_indexer"
	}
	return "heuristic"
}
