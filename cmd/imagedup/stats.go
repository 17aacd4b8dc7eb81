package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/anatolykoptev/go-imagedup/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show image database statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := store.New(flagDB)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total images: %d\n", stats.Total)
		printBreakdown(out, "By source", stats.BySource)
		printBreakdown(out, "By room type", stats.ByRoom)
		printBreakdown(out, "By status", stats.ByStatus)
		return nil
	},
}

func printBreakdown(out io.Writer, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(out, "\n%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-16s %d\n", k, counts[k])
	}
}
