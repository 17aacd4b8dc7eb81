// Command imagedup manages a scraped-image database: it computes perceptual
// fingerprints, finds near-duplicate clusters, and keeps the best image of
// each cluster while rejecting the rest.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	flagDB     string
	flagConfig string
)

var rootCmd = &cobra.Command{
	Use:           "imagedup",
	Short:         "Perceptual-hash deduplication for scraped image collections",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the imagedup version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "imagedup %s\n", version)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", defaultDBPath(), "path to the image database")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(dedupCmd, statsCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "imagedup.db"
	}
	return home + "/.imagedup/images.db"
}
