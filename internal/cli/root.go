package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"repoindex/config"
	"repoindex/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "repoindex",
	Short: "Incremental repository indexer - chunk, label and store repository content",
	Long: `repoindex walks a repository, splits every file with a content-aware
handler (code symbols, markdown sections, data rows, plain text), labels each
chunk and writes it to a memory store. A manifest records what was indexed so
re-runs only touch files whose content or mtime changed.

Example usage:
  repoindex index .                      # Index the current repository
  repoindex index --changed-since main   # Only files changed since main
  repoindex index-file docs/design.md    # Index one file as overlapping chunks
  repoindex manifest                     # Show what the manifest tracks
  repoindex init                         # Write repoindex.yaml with defaults`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./repoindex.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
