// Package search implements the hybrid retrieval and re-ranking engine:
// query expansion, parallel multi-source retrieval (vector, keyword,
// citation graph), weighted score fusion, optional cross-encoder
// re-ranking, and diversity selection over the final candidates.
package search

import (
	"time"

	"github.com/litmatch/litmatch/internal/corpus"
)

// Source tags the retrieval source that produced a candidate.
type Source string

const (
	SourceVector   Source = "vector"
	SourceKeyword  Source = "keyword"
	SourceCitation Source = "citation"
)

// Constraints narrows a search. Zero values mean unconstrained; TopK 0
// selects the configured default.
type Constraints struct {
	YearMin int `json:"year_min,omitempty"`
	YearMax int `json:"year_max,omitempty"`
	TopK    int `json:"top_k,omitempty"`
}

// Candidate is a transient association between a query and a document,
// produced by one retrieval source. Raw scores are source-local and not
// comparable across sources.
type Candidate struct {
	DocID    string
	Source   Source
	RawScore float64
	// Variant is the query variant that produced this candidate.
	Variant string
}

// ScoredResult is the fused and ranked representation of a candidate.
type ScoredResult struct {
	DocID string `json:"doc_id"`

	// FusedScore is the cross-source weighted score, in [0,1].
	FusedScore float64 `json:"fused_score"`

	// RerankScore is the raw cross-encoder score. Set only when Reranked.
	RerankScore float64 `json:"rerank_score,omitempty"`
	// Reranked reports whether the cross-encoder examined this candidate.
	Reranked bool `json:"reranked,omitempty"`

	// DiversityPenalty is the similarity penalty subtracted at selection
	// time. Set only on selected results.
	DiversityPenalty float64 `json:"diversity_penalty,omitempty"`

	// FinalScore determines the output ordering.
	FinalScore float64 `json:"final_score"`

	// Source is the retrieval source that contributed the strongest
	// weighted signal.
	Source Source `json:"source"`
}

// Result joins a ScoredResult with its full document record.
type Result struct {
	ScoredResult
	Document *corpus.Document `json:"document"`
}

// Config holds the engine's tunable parameters. All weights and the MMR
// lambda are heuristics with sensible defaults, not correctness
// requirements.
type Config struct {
	// Fusion weights, non-negative, conventionally summing to 1.
	VectorWeight   float64
	KeywordWeight  float64
	CitationWeight float64

	// TopK is the default result count when constraints leave it unset.
	TopK int
	// PerSourceLimit is the candidate count requested from each source
	// per query variant.
	PerSourceLimit int

	// DiversityEnabled toggles MMR selection; when off, the final top-k
	// is the head of the relevance-ordered pool.
	DiversityEnabled bool
	// Lambda trades relevance against diversity: 1 is pure relevance.
	Lambda float64

	// ExpansionEnabled toggles query expansion; MaxVariants caps the
	// variant count including the original.
	ExpansionEnabled bool
	MaxVariants      int

	// RerankEnabled toggles cross-encoder re-ranking of the top
	// RerankTopM fused candidates. The effective pool is never smaller
	// than the requested top-k.
	RerankEnabled bool
	RerankTopM    int

	// Citation-graph source parameters.
	CitationEnabled bool
	CitationSeeds   int
	CitationMaxHops int
	CitationDecay   float64

	// SourceTimeout bounds each retrieval source call. A source that
	// times out contributes an empty candidate list.
	SourceTimeout time.Duration

	// ExactScanThreshold is forwarded to the vector index.
	ExactScanThreshold int

	// EmbedBatchSize is the document embedding batch size at build time.
	EmbedBatchSize int

	// ResultCacheSize and ResultCacheTTL bound the result cache.
	// Size 0 disables caching.
	ResultCacheSize int
	ResultCacheTTL  time.Duration

	// WaitForBuild makes searches issued before the first successful
	// build block until it completes instead of failing fast.
	WaitForBuild bool
}

// DefaultConfig returns the default engine parameters.
func DefaultConfig() Config {
	return Config{
		VectorWeight:       0.4,
		KeywordWeight:      0.3,
		CitationWeight:     0.3,
		TopK:               10,
		PerSourceLimit:     50,
		DiversityEnabled:   true,
		Lambda:             0.7,
		ExpansionEnabled:   true,
		MaxVariants:        4,
		RerankEnabled:      true,
		RerankTopM:         30,
		CitationEnabled:    true,
		CitationSeeds:      10,
		CitationMaxHops:    2,
		CitationDecay:      0.5,
		SourceTimeout:      5 * time.Second,
		ExactScanThreshold: 2000,
		EmbedBatchSize:     32,
		ResultCacheSize:    128,
		ResultCacheTTL:     15 * time.Minute,
	}
}

// normalized fills in defaults for zero-valued fields.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.PerSourceLimit <= 0 {
		c.PerSourceLimit = def.PerSourceLimit
	}
	if c.MaxVariants <= 0 {
		c.MaxVariants = def.MaxVariants
	}
	if c.RerankTopM <= 0 {
		c.RerankTopM = def.RerankTopM
	}
	if c.CitationSeeds <= 0 {
		c.CitationSeeds = def.CitationSeeds
	}
	if c.CitationMaxHops <= 0 {
		c.CitationMaxHops = def.CitationMaxHops
	}
	if c.CitationDecay <= 0 {
		c.CitationDecay = def.CitationDecay
	}
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = def.SourceTimeout
	}
	if c.EmbedBatchSize <= 0 {
		c.EmbedBatchSize = def.EmbedBatchSize
	}
	return c
}
