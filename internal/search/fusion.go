package search

import (
	"sort"
)

// DocMeta carries the document attributes used for deterministic
// tie-breaking during fusion and diversity selection.
type DocMeta struct {
	CitedByCount int
	Year         int
}

// MetaLookup resolves tie-break attributes for a document. Unknown IDs
// return the zero value.
type MetaLookup func(id string) DocMeta

// Fusion merges per-source candidate lists into one ranked list.
//
// Raw scores are not comparable across sources (cosine similarity,
// lexical relevance, and graph decay live on different scales), so each
// source's scores are min-max normalized within its own list before the
// weighted combination. A document absent from a source contributes zero
// from it; presence in several sources accumulates.
type Fusion struct {
	VectorWeight   float64
	KeywordWeight  float64
	CitationWeight float64
}

// NewFusion creates a fusion stage with the given per-source weights.
func NewFusion(vector, keyword, citation float64) *Fusion {
	return &Fusion{
		VectorWeight:   vector,
		KeywordWeight:  keyword,
		CitationWeight: citation,
	}
}

// Fuse combines candidates from all sources and query variants into a
// single list sorted descending by fused score.
//
// Ties resolve by higher citation count, then more recent year, then
// document ID, so output order is fully deterministic.
func (f *Fusion) Fuse(candidates []*Candidate, meta MetaLookup) []*ScoredResult {
	if len(candidates) == 0 {
		return []*ScoredResult{}
	}

	// A document retrieved by several variants of the same source keeps
	// its best raw score for that source.
	perSource := map[Source]map[string]float64{}
	for _, c := range candidates {
		docs, ok := perSource[c.Source]
		if !ok {
			docs = map[string]float64{}
			perSource[c.Source] = docs
		}
		if raw, seen := docs[c.DocID]; !seen || c.RawScore > raw {
			docs[c.DocID] = c.RawScore
		}
	}

	results := map[string]*ScoredResult{}
	contribution := map[string]float64{}

	// Fixed source order keeps the provenance tag deterministic when two
	// sources contribute equally.
	for _, source := range []Source{SourceVector, SourceKeyword, SourceCitation} {
		docs, ok := perSource[source]
		if !ok {
			continue
		}
		weight := f.weightOf(source)
		if weight == 0 {
			continue
		}

		normalized := minMaxNormalize(docs)
		for id, score := range normalized {
			r := getOrCreate(results, id)
			weighted := weight * score
			r.FusedScore += weighted

			if r.Source == "" || weighted > contribution[id] {
				contribution[id] = weighted
				r.Source = source
			}
		}
	}

	out := make([]*ScoredResult, 0, len(results))
	for _, r := range results {
		r.FinalScore = r.FusedScore
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		return compareScored(out[i], out[j], out[i].FusedScore, out[j].FusedScore, meta)
	})

	return out
}

func (f *Fusion) weightOf(source Source) float64 {
	switch source {
	case SourceVector:
		return f.VectorWeight
	case SourceKeyword:
		return f.KeywordWeight
	case SourceCitation:
		return f.CitationWeight
	default:
		return 0
	}
}

func getOrCreate(m map[string]*ScoredResult, id string) *ScoredResult {
	if r, ok := m[id]; ok {
		return r
	}
	r := &ScoredResult{DocID: id}
	m[id] = r
	return r
}

// minMaxNormalize rescales one source's raw scores into [0,1]. A
// degenerate list where every score is equal maps to 1.0 (the document
// was this source's best answer) unless the score is non-positive.
func minMaxNormalize(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return scores
	}

	first := true
	var min, max float64
	for _, s := range scores {
		if first {
			min, max = s, s
			first = false
			continue
		}
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	normalized := make(map[string]float64, len(scores))
	if max == min {
		value := 0.0
		if max > 0 {
			value = 1.0
		}
		for id := range scores {
			normalized[id] = value
		}
		return normalized
	}

	span := max - min
	for id, s := range scores {
		normalized[id] = (s - min) / span
	}
	return normalized
}

// compareScored reports whether a ranks before b given their primary
// scores. Tie-break order: higher citation count, more recent year,
// lexicographically smaller document ID.
func compareScored(a, b *ScoredResult, scoreA, scoreB float64, meta MetaLookup) bool {
	if scoreA != scoreB {
		return scoreA > scoreB
	}

	ma, mb := meta(a.DocID), meta(b.DocID)
	if ma.CitedByCount != mb.CitedByCount {
		return ma.CitedByCount > mb.CitedByCount
	}
	if ma.Year != mb.Year {
		return ma.Year > mb.Year
	}
	return a.DocID < b.DocID
}
