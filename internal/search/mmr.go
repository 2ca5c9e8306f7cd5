package search

import (
	"sort"

	"github.com/litmatch/litmatch/internal/embed"
)

// VectorLookup resolves a document's embedding for candidate-candidate
// similarity. Unknown IDs return nil.
type VectorLookup func(id string) []float32

// selectDiverse performs greedy Maximal Marginal Relevance selection over
// the candidate pool, returning the top k with bounded redundancy.
//
// Each round scores every remaining candidate as
//
//	mmr = lambda*relevance - (1-lambda)*maxSimilarityToSelected
//
// with relevance the candidate's final score min-max normalized into
// [0,1] over the pool, and similarity the cosine between document
// embeddings. The subtracted term is recorded as the candidate's
// diversity penalty at selection time. lambda=1 reduces to pure
// relevance order; ties resolve exactly as in fusion.
func selectDiverse(pool []*ScoredResult, k int, lambda float64, vectors VectorLookup, meta MetaLookup) []*ScoredResult {
	if k <= 0 || len(pool) == 0 {
		return []*ScoredResult{}
	}

	// Fewer candidates than requested: nothing to trade off, return all
	// in relevance order.
	if len(pool) <= k {
		ordered := make([]*ScoredResult, len(pool))
		copy(ordered, pool)
		sort.Slice(ordered, func(i, j int) bool {
			return compareScored(ordered[i], ordered[j], ordered[i].FinalScore, ordered[j].FinalScore, meta)
		})
		return ordered
	}

	relevance := normalizeRelevance(pool)

	remaining := make([]*ScoredResult, len(pool))
	copy(remaining, pool)
	selected := make([]*ScoredResult, 0, k)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestScore := 0.0
		bestPenalty := 0.0

		for i, c := range remaining {
			penalty := 0.0
			if lambda < 1 && len(selected) > 0 {
				penalty = (1 - lambda) * maxSimilarity(c, selected, vectors)
			}
			score := lambda*relevance[c.DocID] - penalty

			if bestIdx < 0 || score > bestScore ||
				(score == bestScore && compareScored(c, remaining[bestIdx], 0, 0, meta)) {
				bestIdx = i
				bestScore = score
				bestPenalty = penalty
			}
		}

		pick := remaining[bestIdx]
		pick.DiversityPenalty = bestPenalty
		selected = append(selected, pick)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// normalizeRelevance min-max normalizes final scores over the pool into
// [0,1]. When every score is equal, all candidates are equally relevant
// and ordering falls entirely to the tie-break rule.
func normalizeRelevance(pool []*ScoredResult) map[string]float64 {
	min, max := pool[0].FinalScore, pool[0].FinalScore
	for _, r := range pool[1:] {
		if r.FinalScore < min {
			min = r.FinalScore
		}
		if r.FinalScore > max {
			max = r.FinalScore
		}
	}

	relevance := make(map[string]float64, len(pool))
	if max == min {
		for _, r := range pool {
			relevance[r.DocID] = 1.0
		}
		return relevance
	}

	span := max - min
	for _, r := range pool {
		relevance[r.DocID] = (r.FinalScore - min) / span
	}
	return relevance
}

// maxSimilarity returns the highest cosine similarity between c and any
// already-selected candidate. Candidates without an embedding contribute
// zero similarity.
func maxSimilarity(c *ScoredResult, selected []*ScoredResult, vectors VectorLookup) float64 {
	cv := vectors(c.DocID)
	if cv == nil {
		return 0
	}

	maxSim := 0.0
	for _, s := range selected {
		sv := vectors(s.DocID)
		if sv == nil {
			continue
		}
		if sim := embed.CosineSimilarity(cv, sv); sim > maxSim {
			maxSim = sim
		}
	}
	return maxSim
}
