package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/litmatch/litmatch/internal/corpus"
)

// lexicalBatchSize bounds memory during batch indexing.
const lexicalBatchSize = 500

// lexicalDocument is the document shape stored in Bleve.
type lexicalDocument struct {
	Text string  `json:"text"`
	Year float64 `json:"year"`
}

// LexicalIndex wraps an in-memory Bleve index for keyword retrieval.
// Rebuilt from scratch for every corpus version; read-only once built.
type LexicalIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	count  int
	closed bool
}

// NewLexicalIndex creates an empty in-memory lexical index with an English
// analyzer over the combined document text and a numeric year field for
// range filtering.
func NewLexicalIndex() (*LexicalIndex, error) {
	indexMapping := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = en.AnalyzerName
	textField.Store = false
	textField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("text", textField)

	yearField := bleve.NewNumericFieldMapping()
	yearField.Store = false
	yearField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("year", yearField)

	indexMapping.DefaultMapping = docMapping

	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("create lexical index: %w", err)
	}

	return &LexicalIndex{index: idx}, nil
}

// Index adds documents to the lexical index in batches.
func (l *LexicalIndex) Index(ctx context.Context, docs []*corpus.Document) error {
	if len(docs) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("lexical index is closed")
	}

	batch := l.index.NewBatch()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(doc.ID, lexicalDocument{
			Text: doc.IndexText(),
			Year: float64(doc.Year),
		}); err != nil {
			return fmt.Errorf("batch document %s: %w", doc.ID, err)
		}

		if batch.Size() >= lexicalBatchSize {
			if err := l.index.Batch(batch); err != nil {
				return fmt.Errorf("apply lexical batch: %w", err)
			}
			batch = l.index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := l.index.Batch(batch); err != nil {
			return fmt.Errorf("apply lexical batch: %w", err)
		}
	}

	l.count += len(docs)
	return nil
}

// Search scores documents by lexical overlap with the query text, restricted
// to the inclusive year range when bounds are set (0 means unbounded).
// A cold or empty index returns an empty slice.
func (l *LexicalIndex) Search(ctx context.Context, queryText string, yearMin, yearMax, limit int) ([]*LexicalResult, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, fmt.Errorf("lexical index is closed")
	}
	if l.count == 0 || limit <= 0 || strings.TrimSpace(queryText) == "" {
		return []*LexicalResult{}, nil
	}

	match := bleve.NewMatchQuery(queryText)
	match.SetField("text")

	var q query.Query = match
	if yearMin > 0 || yearMax > 0 {
		q = bleve.NewConjunctionQuery(match, yearRangeQuery(yearMin, yearMax))
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	res, err := l.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	results := make([]*LexicalResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, &LexicalResult{
			ID:    hit.ID,
			Score: hit.Score,
		})
	}
	return results, nil
}

// yearRangeQuery builds an inclusive numeric range query over the year field.
func yearRangeQuery(yearMin, yearMax int) query.Query {
	inclusive := true
	var minPtr, maxPtr *float64
	if yearMin > 0 {
		min := float64(yearMin)
		minPtr = &min
	}
	if yearMax > 0 {
		max := float64(yearMax)
		maxPtr = &max
	}
	nr := bleve.NewNumericRangeInclusiveQuery(minPtr, maxPtr, &inclusive, &inclusive)
	nr.SetField("year")
	return nr
}

// Count returns the number of indexed documents.
func (l *LexicalIndex) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Close releases the underlying Bleve index.
func (l *LexicalIndex) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.index.Close()
}
