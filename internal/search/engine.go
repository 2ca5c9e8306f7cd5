package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/litmatch/litmatch/internal/corpus"
	"github.com/litmatch/litmatch/internal/embed"
	litmatcherrors "github.com/litmatch/litmatch/internal/errors"
	"github.com/litmatch/litmatch/internal/store"
)

// snippetLength bounds the abstract text sent to the cross-encoder.
const snippetLength = 600

// State is the engine lifecycle state.
type State int32

const (
	// StateUnbuilt means no index generation exists yet.
	StateUnbuilt State = iota
	// StateBuilding means an index build is in flight.
	StateBuilding
	// StateReady means at least one generation is searchable.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	State           string `json:"state"`
	DocumentCount   int    `json:"document_count"`
	Builds          uint64 `json:"builds"`
	Searches        uint64 `json:"searches"`
	CacheHits       uint64 `json:"cache_hits"`
	DegradedSources uint64 `json:"degraded_sources"`
}

// Engine is the hybrid retrieval and re-ranking engine. It owns the per
// generation indices and orchestrates the search pipeline: expansion,
// parallel retrieval, fusion, re-ranking, diversity selection, assembly.
//
// Searches run fully in parallel against a read-only generation. A
// rebuild assembles a shadow generation off to the side and swaps it in
// atomically; searches issued during a rebuild keep using the previous
// generation. Before the first successful build searches fail with a
// not-ready error, or block until ready when WaitForBuild is set.
type Engine struct {
	cfg      Config
	docs     corpus.DocumentStore
	embedder embed.Embedder
	expander *Expander
	reranker CrossEncoder
	fusion   *Fusion
	cache    *resultCache
	logger   *slog.Logger

	mu         sync.RWMutex
	state      State
	index      *searchIndex
	generation uint64
	ready      chan struct{}
	readyOnce  sync.Once

	builds          atomic.Uint64
	searches        atomic.Uint64
	cacheHits       atomic.Uint64
	degradedSources atomic.Uint64
}

// EngineOption configures optional engine capabilities.
type EngineOption func(*Engine)

// WithParaphraser wires a paraphrase capability into query expansion.
func WithParaphraser(p Paraphraser) EngineOption {
	return func(e *Engine) {
		e.expander = NewExpander(p, e.cfg.MaxVariants, DefaultExpansionCacheSize, e.cfg.SourceTimeout, e.logger)
	}
}

// WithCrossEncoder wires a cross-encoder capability into re-ranking.
func WithCrossEncoder(c CrossEncoder) EngineOption {
	return func(e *Engine) {
		e.reranker = c
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over a document store and an embedder.
// Both are required; paraphraser and cross-encoder are optional and
// attach via options.
func NewEngine(docs corpus.DocumentStore, embedder embed.Embedder, cfg Config, opts ...EngineOption) (*Engine, error) {
	if docs == nil {
		return nil, litmatcherrors.New(litmatcherrors.ErrCodeInternal, "document store is required", nil)
	}
	if embedder == nil {
		return nil, litmatcherrors.New(litmatcherrors.ErrCodeInternal, "embedder is required", nil)
	}

	cfg = cfg.normalized()
	e := &Engine{
		cfg:      cfg,
		docs:     docs,
		embedder: embedder,
		fusion:   NewFusion(cfg.VectorWeight, cfg.KeywordWeight, cfg.CitationWeight),
		cache:    newResultCache(cfg.ResultCacheSize, cfg.ResultCacheTTL),
		logger:   slog.Default(),
		state:    StateUnbuilt,
		ready:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.expander == nil {
		e.expander = NewExpander(nil, cfg.MaxVariants, DefaultExpansionCacheSize, cfg.SourceTimeout, e.logger)
	}

	return e, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	docCount := 0
	if e.index != nil {
		docCount = len(e.index.docs)
	}
	state := e.state
	e.mu.RUnlock()

	return Stats{
		State:           state.String(),
		DocumentCount:   docCount,
		Builds:          e.builds.Load(),
		Searches:        e.searches.Load(),
		CacheHits:       e.cacheHits.Load(),
		DegradedSources: e.degradedSources.Load(),
	}
}

// BuildIndex builds a complete index generation from the given corpus and
// swaps it in atomically. The previous generation, if any, keeps serving
// searches until the swap. Builds are exclusive; a second concurrent call
// fails.
func (e *Engine) BuildIndex(ctx context.Context, documents []*corpus.Document) error {
	if len(documents) == 0 {
		return litmatcherrors.New(litmatcherrors.ErrCodeEmptyCorpus, "cannot build index from empty corpus", nil)
	}

	e.mu.Lock()
	if e.state == StateBuilding {
		e.mu.Unlock()
		return litmatcherrors.New(litmatcherrors.ErrCodeBuildFailed, "index build already in progress", nil)
	}
	prevState := e.state
	e.state = StateBuilding
	nextGen := e.generation + 1
	e.mu.Unlock()

	start := time.Now()
	shadow, err := e.buildShadow(ctx, documents, nextGen)

	e.mu.Lock()
	if err != nil {
		e.state = prevState
		e.mu.Unlock()
		return err
	}

	old := e.index
	e.index = shadow
	e.generation = nextGen
	e.state = StateReady
	e.mu.Unlock()

	e.cache.Purge()
	e.readyOnce.Do(func() { close(e.ready) })
	e.builds.Add(1)

	if old != nil {
		// Drop the engine's reference. Searches still reading the old
		// generation keep it open; the last one out closes it.
		if cerr := old.release(); cerr != nil {
			e.logger.Warn("previous_index_close_failed", slog.String("error", cerr.Error()))
		}
	}

	e.logger.Info("index_built",
		slog.Uint64("generation", nextGen),
		slog.Int("documents", len(documents)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// buildShadow assembles a full generation without touching the live one.
func (e *Engine) buildShadow(ctx context.Context, documents []*corpus.Document, generation uint64) (*searchIndex, error) {
	// Sorted copy so embedding batches and index insertion order are
	// reproducible regardless of caller ordering.
	docs := make([]*corpus.Document, len(documents))
	copy(docs, documents)
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	lexical, err := store.NewLexicalIndex()
	if err != nil {
		return nil, litmatcherrors.BuildError("create lexical index", err)
	}
	if err := lexical.Index(ctx, docs); err != nil {
		lexical.Close()
		return nil, litmatcherrors.BuildError("index documents lexically", err)
	}

	vector, err := store.NewVectorIndex(store.VectorIndexConfig{
		Dimensions:         e.embedder.Dimensions(),
		ExactScanThreshold: e.cfg.ExactScanThreshold,
	})
	if err != nil {
		lexical.Close()
		return nil, litmatcherrors.BuildError("create vector index", err)
	}

	if err := e.embedCorpus(ctx, docs, vector); err != nil {
		lexical.Close()
		vector.Close()
		return nil, err
	}

	docMap := make(map[string]*corpus.Document, len(docs))
	for _, doc := range docs {
		docMap[doc.ID] = doc
	}

	ix := &searchIndex{
		vector:     vector,
		lexical:    lexical,
		graph:      corpus.NewGraph(docs),
		docs:       docMap,
		generation: generation,
	}
	// The engine's own reference, dropped when the generation is swapped
	// out or the engine closes.
	ix.refs.Store(1)
	return ix, nil
}

// embedCorpus embeds all documents in batches and loads the vector index.
// A failing batch is skipped with a warning; the build only fails when no
// document could be embedded at all.
func (e *Engine) embedCorpus(ctx context.Context, docs []*corpus.Document, vector *store.VectorIndex) error {
	embedded := 0
	for begin := 0; begin < len(docs); begin += e.cfg.EmbedBatchSize {
		end := begin + e.cfg.EmbedBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[begin:end]

		ids := make([]string, len(batch))
		texts := make([]string, len(batch))
		for i, doc := range batch {
			ids[i] = doc.ID
			texts[i] = doc.IndexText()
		}

		vectors, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if ctx.Err() != nil {
				return litmatcherrors.BuildError("embedding canceled", ctx.Err())
			}
			e.logger.Warn("embed_batch_failed",
				slog.Int("batch_start", begin),
				slog.Int("batch_size", len(batch)),
				slog.String("error", err.Error()))
			continue
		}

		if err := vector.Add(ctx, ids, vectors); err != nil {
			return litmatcherrors.BuildError("load vector index", err)
		}
		embedded += len(batch)
	}

	if embedded == 0 {
		return litmatcherrors.New(litmatcherrors.ErrCodeEmbedderUnavailable,
			"embedding failed for every document", nil)
	}
	return nil
}

// Search runs the full pipeline for one query and returns the final
// ordered results joined with their documents.
func (e *Engine) Search(ctx context.Context, queryText string, cons Constraints) ([]*Result, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, litmatcherrors.InvalidQuery("query text is empty")
	}
	if cons.YearMin > 0 && cons.YearMax > 0 && cons.YearMin > cons.YearMax {
		return nil, litmatcherrors.New(litmatcherrors.ErrCodeInvalidConstraints,
			"year_min is greater than year_max", nil)
	}
	if cons.TopK <= 0 {
		cons.TopK = e.cfg.TopK
	}

	ix, err := e.currentIndex(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := ix.release(); rerr != nil {
			e.logger.Warn("index_release_failed", slog.String("error", rerr.Error()))
		}
	}()

	key := cacheKey(queryText, cons)
	if cached, ok := e.cache.Get(key); ok {
		e.cacheHits.Add(1)
		return cached, nil
	}

	start := time.Now()

	variants := []string{queryText}
	if e.cfg.ExpansionEnabled {
		variants = e.expander.Expand(ctx, queryText)
	}

	candidates, err := e.retrieve(ctx, ix, variants, cons)
	if err != nil {
		return nil, err
	}

	fused := e.fusion.Fuse(candidates, ix.meta)
	if len(fused) == 0 {
		return []*Result{}, nil
	}

	pool := e.rerank(ctx, ix, queryText, fused, cons.TopK)

	var selected []*ScoredResult
	if e.cfg.DiversityEnabled {
		selected = selectDiverse(pool, cons.TopK, e.cfg.Lambda, ix.vectorOf, ix.meta)
	} else if len(pool) > cons.TopK {
		selected = pool[:cons.TopK]
	} else {
		selected = pool
	}

	results, err := e.assemble(ctx, selected)
	if err != nil {
		return nil, err
	}

	e.cache.Add(key, results)
	e.searches.Add(1)

	e.logger.Debug("search_completed",
		slog.String("query", queryText),
		slog.Int("variants", len(variants)),
		slog.Int("candidates", len(candidates)),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(start)))
	return results, nil
}

// SearchForSentence matches one draft sentence against the corpus using
// default constraints. Trailing sentence punctuation is stripped so a
// pasted sentence and the same phrase match identically.
func (e *Engine) SearchForSentence(ctx context.Context, sentence string) ([]*Result, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(sentence), ".!?;:")
	return e.Search(ctx, trimmed, Constraints{})
}

// currentIndex returns the live generation, honoring the not-ready
// policy when none exists yet.
func (e *Engine) currentIndex(ctx context.Context) (*searchIndex, error) {
	// Acquire under the lock so the reference is taken before any
	// concurrent swap can release the engine's own.
	e.mu.RLock()
	ix := e.index
	if ix != nil {
		ix.acquire()
	}
	e.mu.RUnlock()
	if ix != nil {
		return ix, nil
	}

	if !e.cfg.WaitForBuild {
		return nil, litmatcherrors.NotReady("no index built yet")
	}

	select {
	case <-e.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	e.mu.RLock()
	ix = e.index
	if ix != nil {
		ix.acquire()
	}
	e.mu.RUnlock()
	if ix == nil {
		return nil, litmatcherrors.NotReady("no index built yet")
	}
	return ix, nil
}

// retrieve fans out to the vector and keyword sources in parallel, then
// expands the citation graph from their strongest matches. A source that
// fails or times out degrades to an empty list; the search only fails
// when the caller's context is canceled.
func (e *Engine) retrieve(ctx context.Context, ix *searchIndex, variants []string, cons Constraints) ([]*Candidate, error) {
	var vectorCands, keywordCands []*Candidate

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sctx, cancel := context.WithTimeout(gctx, e.cfg.SourceTimeout)
		defer cancel()

		cands, err := retrieveVector(sctx, ix, e.embedder, variants, cons, e.cfg.PerSourceLimit)
		if err != nil {
			e.recordDegradation(SourceVector, err)
			return nil
		}
		vectorCands = cands
		return nil
	})

	g.Go(func() error {
		sctx, cancel := context.WithTimeout(gctx, e.cfg.SourceTimeout)
		defer cancel()

		cands, err := retrieveKeyword(sctx, ix, variants, cons, e.cfg.PerSourceLimit)
		if err != nil {
			e.recordDegradation(SourceKeyword, err)
			return nil
		}
		keywordCands = cands
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make([]*Candidate, 0, len(vectorCands)+len(keywordCands))
	candidates = append(candidates, vectorCands...)
	candidates = append(candidates, keywordCands...)

	if e.cfg.CitationEnabled && e.cfg.CitationWeight > 0 {
		seeds := seedIDs(vectorCands, keywordCands, e.cfg.CitationSeeds)
		citationCands := retrieveCitation(ix, seeds, cons,
			e.cfg.CitationMaxHops, e.cfg.CitationDecay, e.cfg.PerSourceLimit)
		candidates = append(candidates, citationCands...)
	}

	return candidates, nil
}

func (e *Engine) recordDegradation(source Source, err error) {
	e.degradedSources.Add(1)
	e.logger.Warn("source_degraded",
		slog.String("source", string(source)),
		slog.String("error", err.Error()))
}

// rerank refines the top-M fused candidates with the cross-encoder. The
// examined block keeps its cross-encoder ordering and slots above the
// unexamined tail; within the tail the fused order stands. Any failure
// leaves the fused ordering untouched.
func (e *Engine) rerank(ctx context.Context, ix *searchIndex, query string, fused []*ScoredResult, topK int) []*ScoredResult {
	if !e.cfg.RerankEnabled || e.reranker == nil {
		return fused
	}

	m := e.cfg.RerankTopM
	if m < topK {
		m = topK
	}
	if m > len(fused) {
		m = len(fused)
	}
	if m == 0 {
		return fused
	}

	block := fused[:m]
	texts := make([]string, len(block))
	for i, r := range block {
		if doc, ok := ix.docs[r.DocID]; ok {
			texts[i] = doc.SnippetText(snippetLength)
		}
	}

	scores, err := e.reranker.Score(ctx, query, texts)
	if err != nil {
		e.degradedSources.Add(1)
		e.logger.Warn("rerank_degraded", slog.String("error", err.Error()))
		return fused
	}
	if len(scores) == 0 {
		return fused
	}

	for _, s := range scores {
		if s.Index < 0 || s.Index >= len(block) {
			continue
		}
		block[s.Index].RerankScore = s.Score
		block[s.Index].Reranked = true
	}

	applyRerankScores(block, fused[m:], ix.meta)
	return fused
}

// applyRerankScores maps the cross-encoder scores onto final scores.
//
// The cross-encoder's scale and the fused scale are not comparable, so
// block scores are min-max normalized and mapped onto the interval above
// the tail's best fused score. That realizes the full-override contract:
// within the block the cross-encoder ordering wins outright, and the
// whole block ranks ahead of every unexamined candidate.
func applyRerankScores(block, tail []*ScoredResult, meta MetaLookup) {
	tailMax := 0.0
	for _, r := range tail {
		if r.FusedScore > tailMax {
			tailMax = r.FusedScore
		}
	}

	min, max := 0.0, 0.0
	first := true
	for _, r := range block {
		if !r.Reranked {
			continue
		}
		if first {
			min, max = r.RerankScore, r.RerankScore
			first = false
			continue
		}
		if r.RerankScore < min {
			min = r.RerankScore
		}
		if r.RerankScore > max {
			max = r.RerankScore
		}
	}

	for _, r := range block {
		if !r.Reranked {
			// Unscored block members keep their fused score and sink
			// below the rescored ones naturally.
			continue
		}
		norm := 1.0
		if max > min {
			norm = (r.RerankScore - min) / (max - min)
		}
		r.FinalScore = tailMax + (1.0-tailMax)*norm
	}

	sort.Slice(block, func(i, j int) bool {
		return compareScored(block[i], block[j], block[i].FinalScore, block[j].FinalScore, meta)
	})
}

// assemble joins the selected results with their document records.
func (e *Engine) assemble(ctx context.Context, selected []*ScoredResult) ([]*Result, error) {
	ids := make([]string, len(selected))
	for i, r := range selected {
		ids[i] = r.DocID
	}

	docs, err := e.docs.GetDocuments(ctx, ids)
	if err != nil {
		return nil, litmatcherrors.Wrap(litmatcherrors.ErrCodeInternal, err)
	}

	byID := make(map[string]*corpus.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	results := make([]*Result, 0, len(selected))
	for _, r := range selected {
		doc, ok := byID[r.DocID]
		if !ok {
			e.logger.Warn("document_missing_at_assembly", slog.String("doc_id", r.DocID))
			continue
		}
		results = append(results, &Result{ScoredResult: *r, Document: doc})
	}
	return results, nil
}

// Close drops the engine's reference to the live index generation. A
// search still reading it finishes first; the last holder closes.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index != nil {
		err := e.index.release()
		e.index = nil
		return err
	}
	return nil
}
