package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"repoindex/config"
	"repoindex/internal/usecase"
)

var indexFileFlags struct {
	chunkBytes   int
	overlapBytes int
	noLLMLabels  bool
	dryRun       bool
}

var indexFileCmd = &cobra.Command{
	Use:   "index-file <file>",
	Short: "Index a single file as overlapping chunks",
	Long: `Split one UTF-8 file into overlapping byte windows and store every window.
No handler, manifest or deduplication is involved.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexFile,
}

func init() {
	defaults := config.DefaultConfig().Index
	f := indexFileCmd.Flags()
	f.IntVar(&indexFileFlags.chunkBytes, "chunk-bytes", defaults.ChunkBytes, "maximum bytes per chunk")
	f.IntVar(&indexFileFlags.overlapBytes, "overlap-bytes", defaults.OverlapBytes, "bytes shared by consecutive chunks")
	f.BoolVar(&indexFileFlags.noLLMLabels, "no-llm-labels", false, "label chunks heuristically instead of with the model")
	f.BoolVar(&indexFileFlags.dryRun, "dry-run", false, "write chunks to an in-memory store")
	rootCmd.AddCommand(indexFileCmd)
}

func runIndexFile(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	flags := cmd.Flags()

	path := args[0]
	if !filepath.IsAbs(path) {
		path = filepath.Join(GetRootDir(), path)
	}

	chunkBytes := cfg.Index.ChunkBytes
	if flags.Changed("chunk-bytes") {
		chunkBytes = indexFileFlags.chunkBytes
	}
	overlapBytes := cfg.Index.OverlapBytes
	if flags.Changed("overlap-bytes") {
		overlapBytes = indexFileFlags.overlapBytes
	}
	useLLM := cfg.Labeler.UseLLM && !indexFileFlags.noLLMLabels

	lbl, err := newLabeler(cfg, useLLM)
	if err != nil {
		return err
	}
	st, storePath, err := openStore(cfg, GetRootDir(), indexFileFlags.dryRun)
	if err != nil {
		return fmt.Errorf("failed to open memory store: %w", err)
	}
	defer st.Close()

	result, err := usecase.NewFileIndexUseCase(lbl, st).IndexFile(cmd.Context(), path, usecase.IndexFileOptions{
		ChunkBytes:   chunkBytes,
		OverlapBytes: overlapBytes,
		UseLLMLabels: useLLM,
	})
	if err != nil {
		return err
	}

	for i, id := range result.MemoryIDs {
		fmt.Printf("chunk %d stored (%s)\n", i, id)
	}
	fmt.Printf("Completed indexing %s: %d chunks (size=%d overlap=%d) into %s\n",
		path, result.Chunks, chunkBytes, overlapBytes, storePath)
	return nil
}
