// Package store provides the retrieval indices: the vector index
// (coder/hnsw with an exact-scan fallback for small corpora) and the
// lexical index (Bleve). Both are built once per corpus version and are
// read-only during concurrent searches.
package store

import "fmt"

// VectorResult is a scored hit from the vector index.
type VectorResult struct {
	// ID is the document identifier.
	ID string
	// Score is the similarity score in [0,1] ((1+cosine)/2).
	Score float64
}

// LexicalResult is a scored hit from the lexical index.
type LexicalResult struct {
	// ID is the document identifier.
	ID string
	// Score is the raw relevance score (source-local, not cross-comparable).
	Score float64
}

// ErrDimensionMismatch is returned when a vector's dimension does not match
// the index dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
