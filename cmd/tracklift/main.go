// cmd/tracklift/main.go
// Command tracklift scrapes DJ-set tracklists and enriches tracks with
// catalog metadata, as a one-shot CLI or as an HTTP service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tracklift",
	Short: "Tracklist scraping and metadata enrichment engine",
	Long: `tracklift extracts structured tracklists from DJ-set pages and
enriches individual tracks with BPM, key, genre and label data scraped
from catalog sites.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tracklift %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.AddCommand(versionCmd, scrapeCmd, metadataCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
