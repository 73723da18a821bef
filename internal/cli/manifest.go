package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"repoindex/config"
	"repoindex/internal/adapter/manifest"
)

var manifestJSON bool

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Show the files tracked by the index manifest",
	Args:  cobra.NoArgs,
	RunE:  runManifest,
}

func init() {
	manifestCmd.Flags().BoolVar(&manifestJSON, "json", false, "print the raw manifest")
	rootCmd.AddCommand(manifestCmd)
}

func runManifest(cmd *cobra.Command, args []string) error {
	root := GetRootDir()
	cfg := GetConfig()

	manifestPath := cfg.Index.ManifestPath
	if policy, err := config.LoadPolicy(config.Resolve(root, cfg.Index.PolicyPath)); err == nil && policy.ManifestPath != "" {
		manifestPath = policy.ManifestPath
	}
	mf := manifest.Load(config.Resolve(root, manifestPath))

	if manifestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(mf.Manifest())
	}

	fmt.Printf("Manifest: %s (%d files)\n\n", mf.Path(), mf.Len())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tHASH\tMTIME\tCHUNKS")
	for _, p := range mf.Paths() {
		e, _ := mf.Get(p)
		hash := e.Hash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", p, hash, e.MTime, len(e.ChunkIDs))
	}
	return w.Flush()
}
