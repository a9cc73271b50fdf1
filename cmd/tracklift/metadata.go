// cmd/tracklift/metadata.go
package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"tracklift/internal/metadata"
)

var metadataFlags struct {
	artist string
	enrich bool
}

var metadataCmd = &cobra.Command{
	Use:   "metadata <title>",
	Short: "Search track metadata and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(false)
		if err != nil {
			return err
		}
		defer app.close()

		meta := app.aggregator.SearchMetadata(cmd.Context(), args[0], metadataFlags.artist, metadata.SearchOptions{
			Enrich: metadataFlags.enrich,
		})

		encoded, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		return nil
	},
}

func init() {
	metadataCmd.Flags().StringVarP(&metadataFlags.artist, "artist", "a", "", "artist name to disambiguate the search")
	metadataCmd.Flags().BoolVar(&metadataFlags.enrich, "enrich", false, "use the catalog-scrape provider")
}
