// cmd/tracklift/scrape.go
package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tracklift/pkg/types"
)

var scrapeFlags struct {
	method        string
	timeout       time.Duration
	retries       int
	noCache       bool
	validateLinks bool
	enrich        bool
	userAgent     string
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Scrape a tracklist page and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(false)
		if err != nil {
			return err
		}
		defer app.close()

		opts := types.DefaultScrapingOptions()
		opts.Method = types.ScrapingMethod(scrapeFlags.method)
		opts.UseCache = !scrapeFlags.noCache
		opts.ValidateLinks = scrapeFlags.validateLinks
		opts.Enrich = scrapeFlags.enrich
		opts.UserAgent = scrapeFlags.userAgent
		if scrapeFlags.timeout > 0 {
			opts.Timeout = scrapeFlags.timeout
		}
		if scrapeFlags.retries > 0 {
			opts.Retries = scrapeFlags.retries
		}

		result := app.scraper.Scrape(cmd.Context(), args[0], opts)

		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

		if !result.Success {
			return fmt.Errorf("scrape failed: %d errors", len(result.Errors))
		}
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeFlags.method, "method", "auto", "scraping method (auto|static|headless-robust|headless-advanced)")
	scrapeCmd.Flags().DurationVar(&scrapeFlags.timeout, "timeout", 0, "per-attempt timeout")
	scrapeCmd.Flags().IntVar(&scrapeFlags.retries, "retries", 0, "retry attempts")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.noCache, "no-cache", false, "bypass the result cache")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.validateLinks, "validate-links", false, "HEAD-probe extracted platform links")
	scrapeCmd.Flags().BoolVar(&scrapeFlags.enrich, "enrich", false, "enrich tracks through the catalog provider")
	scrapeCmd.Flags().StringVar(&scrapeFlags.userAgent, "user-agent", "", "override the user agent")
}
