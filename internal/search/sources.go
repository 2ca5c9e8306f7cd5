package search

import (
	"context"
	"math"
	"sort"
	"sync/atomic"

	"github.com/litmatch/litmatch/internal/corpus"
	"github.com/litmatch/litmatch/internal/embed"
	"github.com/litmatch/litmatch/internal/store"
)

// searchIndex is one immutable corpus generation: vector index, lexical
// index, citation adjacency, and the document records for filtering and
// tie-breaks. Built by BuildIndex and swapped in atomically; searches
// only ever see a fully built generation.
//
// Generations are reference counted. The engine holds one reference for
// the live generation and each in-flight search holds one more, so a
// rebuild swapping in a new generation never closes the previous one
// under a search still reading it. The last release closes.
type searchIndex struct {
	vector     *store.VectorIndex
	lexical    *store.LexicalIndex
	graph      *corpus.Graph
	docs       map[string]*corpus.Document
	generation uint64

	refs atomic.Int64
}

// acquire takes a reference for the duration of one search. Every
// acquire must be paired with a release.
func (ix *searchIndex) acquire() {
	ix.refs.Add(1)
}

// release drops one reference and closes the underlying indices when
// the last holder lets go.
func (ix *searchIndex) release() error {
	if ix.refs.Add(-1) == 0 {
		return ix.close()
	}
	return nil
}

func (ix *searchIndex) meta(id string) DocMeta {
	if doc, ok := ix.docs[id]; ok {
		return DocMeta{CitedByCount: doc.CitedByCount, Year: doc.Year}
	}
	return DocMeta{}
}

func (ix *searchIndex) vectorOf(id string) []float32 {
	return ix.vector.Vector(id)
}

func (ix *searchIndex) inYearRange(id string, cons Constraints) bool {
	doc, ok := ix.docs[id]
	if !ok {
		return false
	}
	return doc.InYearRange(cons.YearMin, cons.YearMax)
}

func (ix *searchIndex) close() error {
	err := ix.lexical.Close()
	if verr := ix.vector.Close(); err == nil {
		err = verr
	}
	return err
}

// retrieveVector embeds each query variant and collects the nearest
// documents by cosine similarity, excluding documents outside the year
// range. An empty index yields no candidates.
func retrieveVector(ctx context.Context, ix *searchIndex, embedder embed.Embedder, variants []string, cons Constraints, limit int) ([]*Candidate, error) {
	// The index cannot filter by year itself, so over-fetch when a
	// range is set and trim after filtering.
	fetch := limit
	if cons.YearMin > 0 || cons.YearMax > 0 {
		fetch = limit * 4
	}

	var candidates []*Candidate
	for _, variant := range variants {
		vec, err := embedder.Embed(ctx, variant)
		if err != nil {
			return nil, err
		}

		hits, err := ix.vector.Search(ctx, vec, fetch)
		if err != nil {
			return nil, err
		}

		kept := 0
		for _, hit := range hits {
			if !ix.inYearRange(hit.ID, cons) {
				continue
			}
			candidates = append(candidates, &Candidate{
				DocID:    hit.ID,
				Source:   SourceVector,
				RawScore: hit.Score,
				Variant:  variant,
			})
			kept++
			if kept >= limit {
				break
			}
		}
	}
	return candidates, nil
}

// retrieveKeyword scores documents by lexical overlap with each variant.
// The year filter runs inside the lexical index.
func retrieveKeyword(ctx context.Context, ix *searchIndex, variants []string, cons Constraints, limit int) ([]*Candidate, error) {
	var candidates []*Candidate
	for _, variant := range variants {
		hits, err := ix.lexical.Search(ctx, variant, cons.YearMin, cons.YearMax, limit)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			candidates = append(candidates, &Candidate{
				DocID:    hit.ID,
				Source:   SourceKeyword,
				RawScore: hit.Score,
				Variant:  variant,
			})
		}
	}
	return candidates, nil
}

// seedIDs picks citation walk seeds from the vector and keyword
// candidates, interleaving the two lists by rank so both signals
// contribute seeds.
func seedIDs(vector, keyword []*Candidate, max int) []string {
	seen := make(map[string]bool, max)
	seeds := make([]string, 0, max)

	add := func(id string) {
		if len(seeds) < max && !seen[id] {
			seen[id] = true
			seeds = append(seeds, id)
		}
	}

	for i := 0; i < len(vector) || i < len(keyword); i++ {
		if i < len(vector) {
			add(vector[i].DocID)
		}
		if i < len(keyword) {
			add(keyword[i].DocID)
		}
		if len(seeds) >= max {
			break
		}
	}
	return seeds
}

// retrieveCitation expands the seed set along citation edges. Seeds score
// 1.0; a document reached in h hops scores decay^h. Documents outside
// the year range are excluded, not down-weighted.
func retrieveCitation(ix *searchIndex, seeds []string, cons Constraints, maxHops int, decay float64, limit int) []*Candidate {
	if len(seeds) == 0 || ix.graph.Size() == 0 {
		return []*Candidate{}
	}

	var candidates []*Candidate
	for _, seed := range seeds {
		if !ix.inYearRange(seed, cons) {
			continue
		}
		candidates = append(candidates, &Candidate{
			DocID:    seed,
			Source:   SourceCitation,
			RawScore: 1.0,
		})
	}

	for id, hops := range ix.graph.Walk(seeds, maxHops) {
		if !ix.inYearRange(id, cons) {
			continue
		}
		candidates = append(candidates, &Candidate{
			DocID:    id,
			Source:   SourceCitation,
			RawScore: math.Pow(decay, float64(hops)),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].RawScore != candidates[j].RawScore {
			return candidates[i].RawScore > candidates[j].RawScore
		}
		return candidates[i].DocID < candidates[j].DocID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}
