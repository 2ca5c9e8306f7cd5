package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litmatch/litmatch/internal/corpus"
)

func newTestLexicalIndex(t *testing.T, docs []*corpus.Document) *LexicalIndex {
	t.Helper()
	idx, err := NewLexicalIndex()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	require.NoError(t, idx.Index(context.Background(), docs))
	return idx
}

func TestLexicalIndexSearch(t *testing.T) {
	idx := newTestLexicalIndex(t, []*corpus.Document{
		{ID: "transformer", Title: "Attention is all you need", Abstract: "We propose the transformer architecture based on attention mechanisms.", Year: 2017},
		{ID: "resnet", Title: "Deep residual learning", Abstract: "Residual networks ease the training of deep convolutional models.", Year: 2016},
		{ID: "bert", Title: "Pre-training of deep bidirectional transformers", Abstract: "Language model pre-training with masked tokens.", Year: 2019},
	})

	assert.Equal(t, 3, idx.Count())

	results, err := idx.Search(context.Background(), "attention transformer", 0, 0, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "transformer", results[0].ID)
	for _, r := range results {
		assert.Greater(t, r.Score, 0.0)
	}
}

func TestLexicalIndexTitleWeighting(t *testing.T) {
	// The term appears once in each document, but only in the title of one.
	idx := newTestLexicalIndex(t, []*corpus.Document{
		{ID: "in-title", Title: "Graphene synthesis methods", Abstract: "A survey of fabrication approaches for two dimensional materials.", Year: 2020},
		{ID: "in-abstract", Title: "Two dimensional materials", Abstract: "We discuss graphene among other monolayer systems in this survey.", Year: 2020},
	})

	results, err := idx.Search(context.Background(), "graphene", 0, 0, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "in-title", results[0].ID)
}

func TestLexicalIndexYearFilter(t *testing.T) {
	docs := []*corpus.Document{
		{ID: "old", Title: "Neural networks", Abstract: "Early neural network results.", Year: 1998},
		{ID: "mid", Title: "Neural networks revisited", Abstract: "Neural network training at scale.", Year: 2012},
		{ID: "new", Title: "Modern neural networks", Abstract: "Recent neural network advances.", Year: 2022},
	}
	idx := newTestLexicalIndex(t, docs)

	tests := []struct {
		name    string
		yearMin int
		yearMax int
		wantIDs []string
	}{
		{name: "unbounded", yearMin: 0, yearMax: 0, wantIDs: []string{"old", "mid", "new"}},
		{name: "min only", yearMin: 2010, yearMax: 0, wantIDs: []string{"mid", "new"}},
		{name: "max only", yearMin: 0, yearMax: 2012, wantIDs: []string{"old", "mid"}},
		{name: "inclusive bounds", yearMin: 2012, yearMax: 2012, wantIDs: []string{"mid"}},
		{name: "empty window", yearMin: 2015, yearMax: 2016, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := idx.Search(context.Background(), "neural networks", tt.yearMin, tt.yearMax, 10)
			require.NoError(t, err)

			got := make([]string, 0, len(results))
			for _, r := range results {
				got = append(got, r.ID)
			}
			assert.ElementsMatch(t, tt.wantIDs, got)
		})
	}
}

func TestLexicalIndexEmptyCases(t *testing.T) {
	idx, err := NewLexicalIndex()
	require.NoError(t, err)
	defer idx.Close()

	// Cold index returns empty, not an error.
	results, err := idx.Search(context.Background(), "anything", 0, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, idx.Index(context.Background(), nil))
	assert.Equal(t, 0, idx.Count())

	require.NoError(t, idx.Index(context.Background(), []*corpus.Document{
		{ID: "a", Title: "Some title", Abstract: "Some abstract.", Year: 2020},
	}))

	// Blank query returns empty.
	results, err = idx.Search(context.Background(), "   ", 0, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	// Zero limit returns empty.
	results, err = idx.Search(context.Background(), "title", 0, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLexicalIndexClosed(t *testing.T) {
	idx, err := NewLexicalIndex()
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	_, err = idx.Search(context.Background(), "query", 0, 0, 10)
	assert.Error(t, err)

	err = idx.Index(context.Background(), []*corpus.Document{{ID: "a", Title: "t", Year: 2020}})
	assert.Error(t, err)
}
