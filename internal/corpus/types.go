// Package corpus provides the literature record model, the SQLite-backed
// document store, and the citation adjacency graph.
package corpus

import (
	"context"
	"strings"
)

// Document is an immutable literature record. Created at corpus ingestion,
// never mutated, removed only by corpus rebuild. The embedding vector for a
// document is owned by the index, not the document.
type Document struct {
	// ID uniquely identifies the document (e.g., DOI or database key).
	ID string `json:"id"`

	// Title is the paper title.
	Title string `json:"title"`

	// Abstract is the abstract or snippet text.
	Abstract string `json:"abstract"`

	// Keywords are author or indexer supplied keywords.
	Keywords []string `json:"keywords,omitempty"`

	// Year is the publication year.
	Year int `json:"year"`

	// CitedByCount is the raw citation count, used for ranking tie-breaks.
	CitedByCount int `json:"cited_by_count"`

	// Cites lists document IDs this document references.
	Cites []string `json:"cites,omitempty"`

	// CitedBy lists document IDs that reference this document.
	CitedBy []string `json:"cited_by,omitempty"`
}

// IndexText composes the text used for embedding and lexical indexing.
// The title is repeated to weight it above the abstract and keywords.
func (d *Document) IndexText() string {
	var b strings.Builder
	b.WriteString(d.Title)
	b.WriteString(". ")
	b.WriteString(d.Title)
	b.WriteString(". ")
	b.WriteString(d.Abstract)
	if len(d.Keywords) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(d.Keywords, " "))
	}
	return b.String()
}

// SnippetText composes the short text used for cross-encoder scoring and
// MMR similarity. Title plus a bounded abstract prefix.
func (d *Document) SnippetText(maxAbstract int) string {
	abstract := d.Abstract
	if maxAbstract > 0 && len(abstract) > maxAbstract {
		abstract = abstract[:maxAbstract]
	}
	return d.Title + ". " + abstract
}

// InYearRange reports whether the document's year falls inside the inclusive
// range. A zero bound means unbounded on that side.
func (d *Document) InYearRange(yearMin, yearMax int) bool {
	if yearMin > 0 && d.Year < yearMin {
		return false
	}
	if yearMax > 0 && d.Year > yearMax {
		return false
	}
	return true
}

// DocumentStore persists and retrieves literature records.
// The retrieval engine uses it only for final result assembly and for
// loading the corpus at build time.
type DocumentStore interface {
	// SaveDocuments upserts documents in a single transaction.
	SaveDocuments(ctx context.Context, docs []*Document) error

	// GetDocument fetches one document by ID. Returns nil, nil when absent.
	GetDocument(ctx context.Context, id string) (*Document, error)

	// GetDocuments batch-fetches documents by ID, preserving input order.
	// Missing IDs are silently skipped.
	GetDocuments(ctx context.Context, ids []string) ([]*Document, error)

	// AllDocuments returns the full corpus ordered by ID.
	AllDocuments(ctx context.Context) ([]*Document, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
