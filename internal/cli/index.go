package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"repoindex/config"
	"repoindex/internal/adapter/fs"
	"repoindex/internal/adapter/git"
	"repoindex/internal/adapter/handler"
	"repoindex/internal/adapter/manifest"
	"repoindex/internal/port"
	"repoindex/internal/usecase"
)

var indexFlags struct {
	chunkBytes      int
	overlapBytes    int
	maxFileBytes    int64
	noLLMLabels     bool
	changedSince    string
	binaryThreshold float64
	allowBinary     bool
	policyPath      string
	dryRun          bool
	noProgress      bool
}

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a repository into the memory store",
	Long: `Index every candidate file of a repository. Inside a git work tree the
candidates are the files reported by git ls-files; elsewhere the directory is
walked, honoring .gitignore and the configured excludes.

Files whose content hash and mtime match the manifest are skipped. The
manifest is written once, after the whole run succeeds.

Examples:
  repoindex index .                       # Index current directory
  repoindex index --changed-since HEAD~5  # Restrict to recently changed files
  repoindex index --no-llm-labels         # Label chunks heuristically`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	defaults := config.DefaultConfig().Index
	f := indexCmd.Flags()
	f.IntVar(&indexFlags.chunkBytes, "chunk-bytes", defaults.ChunkBytes, "maximum bytes per chunk")
	f.IntVar(&indexFlags.overlapBytes, "overlap-bytes", defaults.OverlapBytes, "bytes shared by consecutive chunks")
	f.Int64Var(&indexFlags.maxFileBytes, "max-file-bytes", defaults.MaxFileBytes, "skip files larger than this")
	f.BoolVar(&indexFlags.noLLMLabels, "no-llm-labels", false, "label chunks heuristically instead of with the model")
	f.StringVar(&indexFlags.changedSince, "changed-since", "", "only index files changed since this git ref")
	f.Float64Var(&indexFlags.binaryThreshold, "binary-threshold", defaults.BinaryThreshold, "non-printable byte ratio treated as binary (0..1)")
	f.BoolVar(&indexFlags.allowBinary, "allow-binary", defaults.AllowBinary, "index binary files as placeholders")
	f.StringVar(&indexFlags.policyPath, "policy", "", "ingest policy JSON (default from config)")
	f.BoolVar(&indexFlags.dryRun, "dry-run", false, "write chunks to an in-memory store")
	f.BoolVar(&indexFlags.noProgress, "no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	cfg := GetConfig()
	flags := cmd.Flags()

	policyPath := cfg.Index.PolicyPath
	if indexFlags.policyPath != "" {
		policyPath = indexFlags.policyPath
	}
	policy, err := config.LoadPolicy(config.Resolve(path, policyPath))
	if err != nil {
		if !errors.Is(err, config.ErrMalformedPolicy) {
			return err
		}
		slog.Warn("using default ingest policy", "err", err)
	}

	// explicit flags beat the policy file, which beats the YAML config
	chunkBytes := cfg.Index.ChunkBytes
	if flags.Changed("chunk-bytes") {
		chunkBytes = indexFlags.chunkBytes
	}
	overlapBytes := cfg.Index.OverlapBytes
	if flags.Changed("overlap-bytes") {
		overlapBytes = indexFlags.overlapBytes
	}
	maxFileBytes := cfg.Index.MaxFileBytes
	if flags.Changed("max-file-bytes") {
		maxFileBytes = indexFlags.maxFileBytes
		policy.MaxFileBytes = &maxFileBytes
	}
	if flags.Changed("binary-threshold") {
		policy.BinaryThreshold = &indexFlags.binaryThreshold
	}
	if flags.Changed("allow-binary") {
		policy.AllowBinary = &indexFlags.allowBinary
	}
	useLLM := cfg.Labeler.UseLLM && !indexFlags.noLLMLabels

	hctx := policy.HandlerContext(cfg.Index.AllowBinary, cfg.Index.BinaryThreshold)
	registry := handler.NewRegistry(policy, handler.DefaultOptions(chunkBytes, overlapBytes), hctx)

	manifestPath := cfg.Index.ManifestPath
	if policy.ManifestPath != "" {
		manifestPath = policy.ManifestPath
	}
	mf := manifest.Load(config.Resolve(path, manifestPath))

	var lister port.FileLister
	var changes port.ChangeDetector
	if git.IsWorkTree(ctx, path) {
		repo := git.NewRepo(path)
		lister, changes = repo, repo
	} else {
		if indexFlags.changedSince != "" {
			return fmt.Errorf("--changed-since requires a git work tree: %s", path)
		}
		lister = fs.NewWalker(path, cfg.Index.Excludes)
	}

	lbl, err := newLabeler(cfg, useLLM)
	if err != nil {
		return err
	}

	st, storePath, err := openStore(cfg, path, indexFlags.dryRun)
	if err != nil {
		return fmt.Errorf("failed to open memory store: %w", err)
	}
	defer st.Close()

	indexUC := usecase.NewIndexUseCase(lister, changes, registry, policy, mf, lbl, st)

	fmt.Printf("Indexing %s (chunk=%d overlap=%d max_file_bytes=%d)...\n",
		path, chunkBytes, overlapBytes, policy.EffectiveMaxFileBytes(maxFileBytes))

	opts := usecase.IndexOptions{
		Root:         path,
		MaxFileBytes: maxFileBytes,
		ChangedSince: indexFlags.changedSince,
		UseLLMLabels: useLLM,
	}
	if !indexFlags.noProgress {
		opts.Progress = newProgress("Indexing")
	}

	result, err := indexUC.Index(ctx, opts)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files listed:      %d\n", result.FilesListed)
	fmt.Printf("  Files processed:   %d\n", result.FilesProcessed)
	fmt.Printf("  Files unchanged:   %d\n", result.FilesUnchanged)
	fmt.Printf("  Files skipped:     %d\n", result.FilesSkipped)
	fmt.Printf("  Chunks stored:     %d (unique by hash)\n", result.ChunksStored)
	fmt.Printf("  Chunks duplicated: %d\n", result.ChunksDeduped)
	fmt.Printf("\nMemories stored at: %s\n", storePath)
	fmt.Printf("Manifest: %s\n", mf.Path())
	return nil
}

// newProgress returns a callback that lazily creates a progress bar once
// the total is known and keeps an ETA in its description.
func newProgress(label string) func(current, total int, path string) {
	var bar *progressbar.ProgressBar
	var startTime time.Time

	return func(current, total int, _ string) {
		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+label+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(current)

		if current > 0 {
			elapsed := time.Since(startTime)
			rate := float64(current) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-current)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", label, formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
