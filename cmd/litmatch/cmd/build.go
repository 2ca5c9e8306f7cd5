package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/litmatch/litmatch/internal/corpus"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <corpus.json>",
		Short: "Import a corpus file and build the search index",
		Long: `Import literature records from a JSON file into the local store
and verify the index builds cleanly.

The corpus file is a JSON array of records:

  [{"id": "smith2021", "title": "...", "abstract": "...",
    "keywords": ["soil", "carbon"], "year": 2021,
    "cited_by_count": 42, "cites": ["jones2019"], "cited_by": []}]

Re-importing replaces records with matching IDs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), cmd, args[0])
		},
	}
	return cmd
}

func runBuild(ctx context.Context, cmd *cobra.Command, corpusPath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := readCorpusFile(corpusPath)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("corpus file %s contains no documents", corpusPath)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	start := time.Now()
	if err := store.SaveDocuments(ctx, docs); err != nil {
		return fmt.Errorf("save corpus: %w", err)
	}

	engine, err := newEngine(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	all, err := store.AllDocuments(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	if err := engine.BuildIndex(ctx, all); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d documents (%d total) in %s\n",
		len(docs), len(all), time.Since(start).Round(time.Millisecond))
	return nil
}

func readCorpusFile(path string) ([]*corpus.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}

	var docs []*corpus.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse corpus file %s: %w", path, err)
	}

	for i, doc := range docs {
		if doc.ID == "" {
			return nil, fmt.Errorf("document at index %d has no id", i)
		}
	}
	return docs, nil
}
