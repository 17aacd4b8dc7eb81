package main

import (
	"fmt"

	"github.com/spf13/cobra"

	imagedup "github.com/anatolykoptev/go-imagedup"
	"github.com/anatolykoptev/go-imagedup/store"
)

var (
	flagThreshold int
	flagAlgorithm string
	flagHashSize  int
	flagBatchSize int
	flagWorkers   int
	flagKeepBest  bool
	flagDryRun    bool
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Find duplicate images and keep the best of each cluster",
	Long: `Computes perceptual fingerprints for images that lack one, groups
near-duplicate fingerprints, and marks every cluster member except the
canonical one as rejected. With --dry-run the clusters are printed but
nothing is written.`,
	RunE: runDedup,
}

func init() {
	f := dedupCmd.Flags()
	f.IntVarP(&flagThreshold, "threshold", "t", imagedup.DefaultThreshold,
		"max Hamming distance for duplicates (0 = exact matches only)")
	f.StringVarP(&flagAlgorithm, "algorithm", "a", "phash", "hash algorithm: phash, dhash, or ahash")
	f.IntVar(&flagHashSize, "hash-size", imagedup.DefaultHashSize, "hash grid size (bits = size squared)")
	f.IntVarP(&flagBatchSize, "batch-size", "b", imagedup.DefaultBatchSize, "items per fingerprinting batch")
	f.IntVar(&flagWorkers, "workers", imagedup.DefaultWorkers, "concurrent hash workers")
	f.BoolVar(&flagKeepBest, "keep-best", true, "keep the highest-quality image of each cluster")
	f.BoolVar(&flagDryRun, "dry-run", false, "print duplicate groups without marking anything")
}

func runDedup(cmd *cobra.Command, _ []string) error {
	cfg, dbPath, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	st, err := store.New(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	cfg.Store = st

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Step 1: Computing perceptual fingerprints...")
	processed, err := cfg.ComputeMissingFingerprints(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  Computed fingerprints for %d images\n", processed)

	threshold := cfg.Threshold
	switch {
	case threshold == 0:
		threshold = imagedup.DefaultThreshold
	case threshold < 0:
		threshold = imagedup.ThresholdExact
	}
	fmt.Fprintf(out, "\nStep 2: Finding duplicates (threshold=%d)...\n", threshold)
	groups, err := cfg.FindDuplicates(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  Found %d duplicate groups\n", len(groups))

	if len(groups) == 0 {
		fmt.Fprintln(out, "\nNo duplicates found!")
		return nil
	}

	fmt.Fprintln(out, "\nDuplicate groups:")
	const showGroups = 10
	for i, group := range groups {
		if i == showGroups {
			fmt.Fprintf(out, "  ... and %d more groups\n", len(groups)-showGroups)
			break
		}
		fmt.Fprintf(out, "  Group %d: %d images - IDs: %v\n", i+1, len(group), group)
	}

	if flagDryRun {
		fmt.Fprintln(out, "\n[DRY RUN] Would mark duplicates but --dry-run specified")
		return nil
	}

	fmt.Fprintln(out, "\nStep 3: Marking duplicates as rejected...")
	report, err := cfg.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  Marked %d images as duplicates\n", report.ItemsDemoted)
	return nil
}

// buildConfig merges defaults, config file, and flags (flags win) into an
// engine config plus the database path.
func buildConfig(cmd *cobra.Command) (*imagedup.Config, string, error) {
	cfg := &imagedup.Config{}
	dbPath := flagDB

	if flagConfig != "" {
		fc, err := loadFileConfig(flagConfig)
		if err != nil {
			return nil, "", err
		}
		fileDB, err := fc.applyTo(cfg)
		if err != nil {
			return nil, "", err
		}
		if fileDB != "" && !cmd.Flags().Changed("db") {
			dbPath = fileDB
		}
	}

	f := cmd.Flags()
	if f.Changed("algorithm") {
		algo, err := imagedup.ParseAlgorithm(flagAlgorithm)
		if err != nil {
			return nil, "", err
		}
		cfg.Algorithm = algo
	}
	if f.Changed("threshold") {
		cfg.Threshold = flagThreshold
		if flagThreshold == 0 {
			cfg.Threshold = -1 // explicit zero means exact matching
		}
	}
	if f.Changed("hash-size") {
		cfg.HashSize = flagHashSize
	}
	if f.Changed("batch-size") {
		cfg.BatchSize = flagBatchSize
	}
	if f.Changed("workers") {
		cfg.Workers = flagWorkers
	}
	if f.Changed("keep-best") {
		cfg.KeepFirst = !flagKeepBest
	}
	return cfg, dbPath, nil
}
