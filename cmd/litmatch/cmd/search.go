package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/litmatch/litmatch/internal/search"
)

type searchOptions struct {
	limit   int
	yearMin int
	yearMax int
	format  string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <sentence>",
		Short: "Find references for a sentence or phrase",
		Long: `Search the imported corpus for references matching a draft
sentence or phrase.

Examples:
  litmatch search "warming accelerates soil carbon loss"
  litmatch search "microbial diversity" --year-min 2018 --limit 5
  litmatch search "crop yield under drought" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().IntVar(&opts.yearMin, "year-min", 0, "Exclude documents published before this year")
	cmd.Flags().IntVar(&opts.yearMax, "year-max", 0, "Exclude documents published after this year")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("no corpus imported. Run 'litmatch build <corpus.json>' first")
	}

	engine, err := newEngine(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	docs, err := store.AllDocuments(ctx)
	if err != nil {
		return err
	}
	if err := engine.BuildIndex(ctx, docs); err != nil {
		return err
	}

	results, err := engine.Search(ctx, query, search.Constraints{
		YearMin: opts.yearMin,
		YearMax: opts.yearMax,
		TopK:    opts.limit,
	})
	if err != nil {
		return err
	}

	switch opts.format {
	case "json":
		return printJSON(cmd, results)
	default:
		printText(cmd, results)
		return nil
	}
}

func printJSON(cmd *cobra.Command, results []*search.Result) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func printText(cmd *cobra.Command, results []*search.Result) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No matching references found.")
		return
	}

	for i, r := range results {
		doc := r.Document
		fmt.Fprintf(out, "%2d. %s (%d)  [%s]\n", i+1, doc.Title, doc.Year, r.DocID)
		fmt.Fprintf(out, "    score=%.3f source=%s", r.FinalScore, r.Source)
		if r.Reranked {
			fmt.Fprintf(out, " reranked")
		}
		fmt.Fprintln(out)
		if snippet := doc.SnippetText(160); snippet != "" {
			fmt.Fprintf(out, "    %s\n", snippet)
		}
	}
}
