package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// DefaultExactScanThreshold is the corpus size below which the vector index
// uses an exact linear scan instead of the HNSW graph. Ranking semantics are
// identical (both orderings are monotonic in cosine similarity); the exact
// scan simply avoids approximation error on corpora where a scan is cheap.
const DefaultExactScanThreshold = 2000

// VectorIndex stores normalized document embeddings and answers top-k
// nearest-neighbor queries by cosine similarity.
type VectorIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	dims    int
	exactAt int

	// ID mapping (string <-> uint64) plus raw vectors kept for exact scan
	// and for diversity similarity lookups.
	idMap   map[string]uint64
	keyMap  map[uint64]string
	vectors map[string][]float32
	nextKey uint64

	closed bool
}

// VectorIndexConfig configures a vector index.
type VectorIndexConfig struct {
	// Dimensions is the embedding dimension (required).
	Dimensions int
	// ExactScanThreshold is the corpus size at or below which searches use
	// an exact linear scan. 0 means DefaultExactScanThreshold.
	ExactScanThreshold int
	// M is the HNSW max neighbor count (0 means 16).
	M int
	// EfSearch is the HNSW search expansion factor (0 means 20).
	EfSearch int
}

// NewVectorIndex creates an empty vector index.
func NewVectorIndex(cfg VectorIndexConfig) (*VectorIndex, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("vector index requires positive dimensions, got %d", cfg.Dimensions)
	}
	if cfg.ExactScanThreshold == 0 {
		cfg.ExactScanThreshold = DefaultExactScanThreshold
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &VectorIndex{
		graph:   graph,
		dims:    cfg.Dimensions,
		exactAt: cfg.ExactScanThreshold,
		idMap:   make(map[string]uint64),
		keyMap:  make(map[uint64]string),
		vectors: make(map[string][]float32),
	}, nil
}

// Add inserts vectors with their IDs. Vectors are normalized in place for
// cosine similarity. Re-adding an existing ID replaces its vector.
func (x *VectorIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return fmt.Errorf("vector index is closed")
	}

	for _, v := range vectors {
		if len(v) != x.dims {
			return ErrDimensionMismatch{Expected: x.dims, Got: len(v)}
		}
	}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Lazy replacement: orphan the old graph node rather than deleting,
		// deletion of the last node breaks coder/hnsw graphs.
		if existingKey, exists := x.idMap[id]; exists {
			delete(x.keyMap, existingKey)
			delete(x.idMap, id)
		}

		key := x.nextKey
		x.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalizeInPlace(vec)

		x.graph.Add(hnsw.MakeNode(key, vec))
		x.idMap[id] = key
		x.keyMap[key] = id
		x.vectors[id] = vec
	}

	return nil
}

// Search finds the k nearest neighbors of the query vector, ordered by
// descending similarity. An empty index returns an empty slice.
func (x *VectorIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, fmt.Errorf("vector index is closed")
	}
	if len(query) != x.dims {
		return nil, ErrDimensionMismatch{Expected: x.dims, Got: len(query)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(x.idMap) == 0 || k <= 0 {
		return []*VectorResult{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	if len(x.idMap) <= x.exactAt {
		return x.exactSearch(normalized, k), nil
	}
	return x.graphSearch(normalized, k), nil
}

// exactSearch performs a full linear scan, deterministic with ID tie-break.
func (x *VectorIndex) exactSearch(query []float32, k int) []*VectorResult {
	results := make([]*VectorResult, 0, len(x.vectors))
	for id, vec := range x.vectors {
		results = append(results, &VectorResult{
			ID:    id,
			Score: similarityScore(dot(query, vec)),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// graphSearch queries the HNSW graph.
func (x *VectorIndex) graphSearch(query []float32, k int) []*VectorResult {
	nodes := x.graph.Search(query, k)

	results := make([]*VectorResult, 0, len(nodes))
	for _, node := range nodes {
		id, exists := x.keyMap[node.Key]
		if !exists {
			continue // orphaned by lazy replacement
		}
		// Cosine distance d = 1 - cos; score (1+cos)/2 = 1 - d/2.
		distance := x.graph.Distance(query, node.Value)
		results = append(results, &VectorResult{
			ID:    id,
			Score: 1.0 - float64(distance)/2.0,
		})
	}
	return results
}

// Vector returns the stored normalized embedding for a document, or nil.
// Used by the diversity selector for candidate-candidate similarity.
func (x *VectorIndex) Vector(id string) []float32 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.vectors[id]
}

// Count returns the number of indexed vectors.
func (x *VectorIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.idMap)
}

// Dimensions returns the index's embedding dimension.
func (x *VectorIndex) Dimensions() int {
	return x.dims
}

// Close releases resources.
func (x *VectorIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true
	x.graph = nil
	x.vectors = nil
	return nil
}

// normalizeInPlace normalizes a vector to unit length in place.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// similarityScore maps cosine similarity [-1,1] to [0,1], matching the
// score produced from HNSW cosine distance.
func similarityScore(cos float64) float64 {
	return (1.0 + cos) / 2.0
}
