package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoindex/config"
	"repoindex/internal/adapter/handler"
	"repoindex/internal/adapter/labeler"
	"repoindex/internal/adapter/manifest"
	"repoindex/internal/adapter/memstore"
	"repoindex/internal/domain"
	"repoindex/internal/port"
)

var fixedTime = time.Unix(1_700_000_000, 0)

type staticLister []string

func (l staticLister) ListFiles(context.Context) ([]string, error) {
	return l, nil
}

type staticChanges map[string]struct{}

func (c staticChanges) FilesChangedSince(context.Context, string) (map[string]struct{}, error) {
	return c, nil
}

type countingLabeler struct {
	inner port.Labeler
	calls int
}

func (l *countingLabeler) Label(ctx context.Context, path, text string, useLLM bool) (domain.Labels, error) {
	l.calls++
	return l.inner.Label(ctx, path, text, useLLM)
}

type stubHandler struct {
	chunks []domain.PreparedChunk
	err    error
}

func (h *stubHandler) Name() string { return "stub" }

func (h *stubHandler) Supports(string, []byte, *domain.HandlerContext) bool { return true }

func (h *stubHandler) Process(string, []byte, *domain.HandlerContext) ([]domain.PreparedChunk, error) {
	return h.chunks, h.err
}

type stubResolver struct {
	h    port.Handler
	hctx domain.HandlerContext
}

func (r *stubResolver) Resolve(string, []byte) (port.Handler, bool) { return r.h, true }

func (r *stubResolver) Context() *domain.HandlerContext { return &r.hctx }

type fixture struct {
	root         string
	manifestPath string
	files        []string
}

func writeRepoFile(t *testing.T, root, rel, content string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	writeRepoFile(t, root, "src/main.rs", "fn foo() {}\nstruct Bar {}\n", fixedTime)
	writeRepoFile(t, root, "README.md", "# Title\nBody line\n## Sub\nMore text", fixedTime)
	writeRepoFile(t, root, "data.csv", "a,b\n1,2\n3,4", fixedTime)
	writeRepoFile(t, root, "notes.txt", "hello world\n", fixedTime)
	writeRepoFile(t, root, "empty.txt", "", fixedTime)
	writeRepoFile(t, root, "Cargo.lock", "locked", fixedTime)
	writeRepoFile(t, root, "blob.txt", "\x00\x01\x02", fixedTime)

	return &fixture{
		root:         root,
		manifestPath: filepath.Join(root, ".repoindex", "manifest.json"),
		files: []string{
			"src/main.rs", "README.md", "data.csv", "notes.txt",
			"empty.txt", "Cargo.lock", "blob.txt", "missing.txt",
		},
	}
}

func (f *fixture) useCase(changes port.ChangeDetector, lbl port.Labeler, store port.MemoryStore) *IndexUseCase {
	policy := config.DefaultPolicy()
	hctx := policy.HandlerContext(false, 0.33)
	registry := handler.NewRegistry(policy, handler.DefaultOptions(200, 50), hctx)
	return NewIndexUseCase(staticLister(f.files), changes, registry, policy, manifest.Load(f.manifestPath), lbl, store)
}

func (f *fixture) options() IndexOptions {
	return IndexOptions{Root: f.root, MaxFileBytes: 200_000}
}

func TestIndexRepository(t *testing.T) {
	f := newFixture(t)
	store := memstore.NewMemoryStore()
	lbl := &countingLabeler{inner: labeler.NewHeuristic("demo")}

	var progressed []string
	opts := f.options()
	opts.Progress = func(_, _ int, path string) { progressed = append(progressed, path) }

	result, err := f.useCase(nil, lbl, store).Index(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 8, result.FilesListed)
	assert.Equal(t, 4, result.FilesProcessed)
	assert.Equal(t, 4, result.FilesSkipped)
	assert.Equal(t, 6, result.ChunksStored)
	assert.Equal(t, 0, result.ChunksDeduped)
	assert.Equal(t, 6, lbl.calls)
	assert.Equal(t, f.files, progressed)

	records := store.Records()
	require.Len(t, records, 6)

	first := records[0]
	assert.Equal(t, "Indexer", first.AgentName)
	assert.Equal(t, float32(0.99), first.Confidence)
	assert.Equal(t, "src", first.Topic)
	assert.Equal(t, "demo", first.Project)
	assert.Equal(t, "src/main.rs#sym-foo-0-p0of1", first.Metadata["chunk_id"])
	assert.Equal(t, "code", first.Metadata["ingest_mode"])
	assert.Equal(t, "src/main.rs", first.Metadata["path"])
	assert.Equal(t, "heuristic", first.Metadata["label_source"])
	assert.Equal(t, "fn foo() {}", first.Metadata["body"])
	assert.Equal(t, len("fn foo() {}"), first.Metadata["chunk_bytes"])
	assert.Equal(t, int64(len("fn foo() {}\nstruct Bar {}\n")), first.Metadata["file_len"])
	assert.Equal(t, HashPrefix+ContentHash([]byte("fn foo() {}")), first.Metadata["hash"])

	notes := records[5]
	fileHash := ContentHash([]byte("hello world\n"))
	assert.Equal(t, "notes.txt#chunk-0-"+fileHash[:8], notes.Metadata["chunk_id"])
	assert.Equal(t, HashPrefix+fileHash, notes.Metadata["file_hash"])

	saved := manifest.Load(f.manifestPath)
	assert.Equal(t, []string{"README.md", "data.csv", "notes.txt", "src/main.rs"}, saved.Paths())
	entry, ok := saved.Get("src/main.rs")
	require.True(t, ok)
	assert.Equal(t, uint64(fixedTime.Unix()), entry.MTime)
	assert.Equal(t, []string{"src/main.rs#sym-foo-0-p0of1", "src/main.rs#sym-Bar-12-p0of1"}, entry.ChunkIDs)
}

func TestUnchangedFilesAreNotRelabeled(t *testing.T) {
	f := newFixture(t)
	_, err := f.useCase(nil, labeler.NewHeuristic("demo"), memstore.NewMemoryStore()).Index(context.Background(), f.options())
	require.NoError(t, err)

	store := memstore.NewMemoryStore()
	lbl := &countingLabeler{inner: labeler.NewHeuristic("demo")}
	result, err := f.useCase(nil, lbl, store).Index(context.Background(), f.options())
	require.NoError(t, err)

	assert.Equal(t, 4, result.FilesUnchanged)
	assert.Equal(t, 0, result.FilesProcessed)
	assert.Equal(t, 0, lbl.calls)
	n, _ := store.Count()
	assert.Equal(t, 0, n)
}

func TestModifiedFileIsReindexed(t *testing.T) {
	f := newFixture(t)
	_, err := f.useCase(nil, labeler.NewHeuristic("demo"), memstore.NewMemoryStore()).Index(context.Background(), f.options())
	require.NoError(t, err)

	writeRepoFile(t, f.root, "notes.txt", "hello again\n", fixedTime.Add(time.Hour))

	lbl := &countingLabeler{inner: labeler.NewHeuristic("demo")}
	result, err := f.useCase(nil, lbl, memstore.NewMemoryStore()).Index(context.Background(), f.options())
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesProcessed)
	assert.Equal(t, 3, result.FilesUnchanged)
	assert.Equal(t, 1, lbl.calls)

	entry, _ := manifest.Load(f.manifestPath).Get("notes.txt")
	assert.Equal(t, ContentHash([]byte("hello again\n")), entry.Hash)
}

func TestSameMTimeDifferentContentIsReindexed(t *testing.T) {
	f := newFixture(t)
	_, err := f.useCase(nil, labeler.NewHeuristic("demo"), memstore.NewMemoryStore()).Index(context.Background(), f.options())
	require.NoError(t, err)

	writeRepoFile(t, f.root, "notes.txt", "hello WORLD\n", fixedTime)

	result, err := f.useCase(nil, labeler.NewHeuristic("demo"), memstore.NewMemoryStore()).Index(context.Background(), f.options())
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesProcessed)
}

func TestDuplicateChunksAreWrittenOnce(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "a.txt", "same content\n", fixedTime)
	writeRepoFile(t, root, "b.txt", "same content\n", fixedTime)
	f := &fixture{root: root, manifestPath: filepath.Join(root, "manifest.json"), files: []string{"a.txt", "b.txt"}}

	store := memstore.NewMemoryStore()
	lbl := &countingLabeler{inner: labeler.NewHeuristic("demo")}
	result, err := f.useCase(nil, lbl, store).Index(context.Background(), f.options())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ChunksStored)
	assert.Equal(t, 1, result.ChunksDeduped)
	assert.Equal(t, 1, lbl.calls)
	assert.Equal(t, 2, result.FilesProcessed)

	entry, ok := manifest.Load(f.manifestPath).Get("b.txt")
	require.True(t, ok)
	assert.Empty(t, entry.ChunkIDs)
}

func TestChangedSinceRestrictsCandidates(t *testing.T) {
	f := newFixture(t)
	store := memstore.NewMemoryStore()

	opts := f.options()
	opts.ChangedSince = "HEAD~1"
	result, err := f.useCase(staticChanges{"notes.txt": {}}, labeler.NewHeuristic("demo"), store).Index(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesProcessed)
	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "notes.txt", records[0].Metadata["path"])
}

func TestChangedSinceWithoutDetector(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.ChangedSince = "main"

	_, err := f.useCase(nil, labeler.NewHeuristic("demo"), memstore.NewMemoryStore()).Index(context.Background(), opts)
	assert.Error(t, err)
}

func TestWriteFailureAbortsWithoutManifest(t *testing.T) {
	f := newFixture(t)
	store := memstore.NewMemoryStore()
	boom := errors.New("store offline")
	store.FailWhen(func(r domain.MemoryRecord) error {
		if r.Metadata["path"] == "README.md" {
			return boom
		}
		return nil
	})

	result, err := f.useCase(nil, labeler.NewHeuristic("demo"), store).Index(context.Background(), f.options())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, result.ChunksStored)

	_, statErr := os.Stat(f.manifestPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMaxFileBytesFilter(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.MaxFileBytes = 12

	result, err := f.useCase(nil, labeler.NewHeuristic("demo"), memstore.NewMemoryStore()).Index(context.Background(), opts)
	require.NoError(t, err)
	// data.csv (11 bytes) and notes.txt (12 bytes) fit
	assert.Equal(t, 2, result.FilesProcessed)
}

func TestHandlerMetadataIsNotOverwritten(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "x.txt", "hello", fixedTime)

	h := &stubHandler{chunks: []domain.PreparedChunk{
		{Text: "", ChunkIndex: 0},
		{Text: "hello", ChunkIndex: 1, Metadata: map[string]any{"path": "custom", "ingest_mode": "text"}},
	}}
	store := memstore.NewMemoryStore()
	policy := &config.Policy{}
	u := NewIndexUseCase(staticLister{"x.txt"}, nil, &stubResolver{h: h, hctx: domain.HandlerContext{BinaryThreshold: 0.33}},
		policy, manifest.Load(filepath.Join(root, "m.json")), labeler.NewHeuristic("demo"), store)

	result, err := u.Index(context.Background(), IndexOptions{Root: root})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksStored)

	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "custom", records[0].Metadata["path"])
	assert.Equal(t, "text", records[0].Metadata["ingest_mode"])
	assert.Equal(t, 1, records[0].Metadata["chunk_index"])
	assert.Equal(t, int64(5), records[0].Metadata["file_len"])
	assert.Contains(t, records[0].Metadata["chunk_id"], "x.txt#chunk-1-")
}

func TestProcessFailureAborts(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "x.txt", "hello", fixedTime)
	manifestPath := filepath.Join(root, "m.json")

	h := &stubHandler{err: errors.New("parse exploded")}
	u := NewIndexUseCase(staticLister{"x.txt"}, nil, &stubResolver{h: h, hctx: domain.HandlerContext{BinaryThreshold: 0.33}}, &config.Policy{},
		manifest.Load(manifestPath), labeler.NewHeuristic("demo"), memstore.NewMemoryStore())

	_, err := u.Index(context.Background(), IndexOptions{Root: root})
	assert.ErrorContains(t, err, "parse exploded")
	_, statErr := os.Stat(manifestPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEmptyHandlerOutputLeavesManifestUntouched(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "x.txt", "hello", fixedTime)
	manifestPath := filepath.Join(root, "m.json")

	u := NewIndexUseCase(staticLister{"x.txt"}, nil, &stubResolver{h: &stubHandler{}, hctx: domain.HandlerContext{BinaryThreshold: 0.33}}, &config.Policy{},
		manifest.Load(manifestPath), labeler.NewHeuristic("demo"), memstore.NewMemoryStore())

	result, err := u.Index(context.Background(), IndexOptions{Root: root})
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesProcessed)
	assert.Equal(t, 0, manifest.Load(manifestPath).Len())
}

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator()
	assert.False(t, d.Seen("a"))
	assert.True(t, d.Seen("a"))
	assert.False(t, d.Seen("b"))
	assert.Equal(t, 2, d.Len())
}
