package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show corpus statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), cmd)
		},
	}
}

func runStats(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Corpus:      %s\n", cfg.Corpus.DBPath)
	fmt.Fprintf(out, "Documents:   %d\n", count)
	fmt.Fprintf(out, "Weights:     vector=%.2f keyword=%.2f citation=%.2f\n",
		cfg.Search.VectorWeight, cfg.Search.KeywordWeight, cfg.Search.CitationWeight)
	fmt.Fprintf(out, "Top-k:       %d\n", cfg.Search.TopK)
	fmt.Fprintf(out, "MMR lambda:  %.2f\n", cfg.Search.Lambda)
	return nil
}
