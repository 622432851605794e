package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "playtime",
	Short: "Game completion-time resolution service",
	Long: `playtime resolves game titles to HowLongToBeat completion times
through a tiered pipeline: cache, remote API, HTML scraper, and a
bundled fallback dataset.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
}
