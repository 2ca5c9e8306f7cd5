package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litmatch/litmatch/internal/corpus"
	"github.com/litmatch/litmatch/internal/embed"
	litmatcherrors "github.com/litmatch/litmatch/internal/errors"
)

// fiveDocCorpus is the small end-to-end corpus: A matches the query in
// every source (text overlap plus a citation edge to B), D and E match
// partially, C is unrelated.
func fiveDocCorpus() []*corpus.Document {
	return []*corpus.Document{
		{
			ID:           "A",
			Title:        "Climate impact on soil carbon dynamics",
			Abstract:     "We quantify the impact of climate on soil carbon storage and show that climate driven warming reduces soil carbon stocks.",
			Keywords:     []string{"climate", "soil", "carbon"},
			Year:         2021,
			CitedByCount: 40,
			Cites:        []string{"B"},
		},
		{
			ID:           "B",
			Title:        "Soil organic matter formation pathways",
			Abstract:     "Mechanisms of organic matter stabilization in temperate soils.",
			Keywords:     []string{"soil", "organic matter"},
			Year:         2019,
			CitedByCount: 120,
			CitedBy:      []string{"A"},
		},
		{
			ID:           "C",
			Title:        "Urban air quality monitoring networks",
			Abstract:     "Low-cost sensor deployments for particulate matter in cities.",
			Keywords:     []string{"air quality", "sensors"},
			Year:         2023,
			CitedByCount: 8,
		},
		{
			ID:           "D",
			Title:        "Climate effects on soil moisture regimes",
			Abstract:     "The impact of climate variability on soil moisture across biomes.",
			Keywords:     []string{"climate", "soil moisture"},
			Year:         2020,
			CitedByCount: 25,
		},
		{
			ID:           "E",
			Title:        "Soil responses to experimental warming",
			Abstract:     "Warming experiments reveal soil microbial community shifts.",
			Keywords:     []string{"soil", "warming"},
			Year:         2022,
			CitedByCount: 15,
		},
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ExpansionEnabled = false
	cfg.RerankEnabled = false
	cfg.ResultCacheSize = 0
	cfg.SourceTimeout = 5 * time.Second
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, opts ...EngineOption) (*Engine, *corpus.SQLiteStore) {
	t.Helper()

	docStore, err := corpus.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { docStore.Close() })

	engine, err := NewEngine(docStore, embed.NewStaticEmbedder(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	return engine, docStore
}

func buildFiveDocEngine(t *testing.T, cfg Config, opts ...EngineOption) *Engine {
	t.Helper()
	engine, docStore := newTestEngine(t, cfg, opts...)

	docs := fiveDocCorpus()
	require.NoError(t, docStore.SaveDocuments(context.Background(), docs))
	require.NoError(t, engine.BuildIndex(context.Background(), docs))
	return engine
}

func TestEngineSearchBeforeBuild(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())

	_, err := engine.Search(context.Background(), "soil carbon", Constraints{})
	require.Error(t, err)
	assert.True(t, litmatcherrors.HasCode(err, litmatcherrors.ErrCodeNotReady))
	assert.Equal(t, StateUnbuilt, engine.State())
}

func TestEngineInvalidQueries(t *testing.T) {
	engine := buildFiveDocEngine(t, testConfig())

	_, err := engine.Search(context.Background(), "   ", Constraints{})
	require.Error(t, err)
	assert.True(t, litmatcherrors.HasCode(err, litmatcherrors.ErrCodeInvalidQuery))

	_, err = engine.Search(context.Background(), "soil", Constraints{YearMin: 2022, YearMax: 2020})
	require.Error(t, err)
	assert.True(t, litmatcherrors.HasCode(err, litmatcherrors.ErrCodeInvalidConstraints))
}

func TestEngineBuildEmptyCorpus(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())

	err := engine.BuildIndex(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, litmatcherrors.HasCode(err, litmatcherrors.ErrCodeEmptyCorpus))
}

func TestEngineEndToEnd(t *testing.T) {
	engine := buildFiveDocEngine(t, testConfig())
	assert.Equal(t, StateReady, engine.State())

	results, err := engine.Search(context.Background(), "climate impact on soil", Constraints{TopK: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// A overlaps the query in every source and must rank first.
	assert.Equal(t, "A", results[0].DocID)
	for _, r := range results {
		require.NotNil(t, r.Document)
		assert.Equal(t, r.DocID, r.Document.ID)
		assert.GreaterOrEqual(t, r.FusedScore, 0.0)
	}
}

func TestEngineDeterminism(t *testing.T) {
	engine := buildFiveDocEngine(t, testConfig())

	first, err := engine.Search(context.Background(), "climate impact on soil", Constraints{TopK: 3})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := engine.Search(context.Background(), "climate impact on soil", Constraints{TopK: 3})
		require.NoError(t, err)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].DocID, again[j].DocID)
			assert.Equal(t, first[j].FinalScore, again[j].FinalScore)
		}
	}
}

func TestEngineYearFilter(t *testing.T) {
	engine := buildFiveDocEngine(t, testConfig())

	results, err := engine.Search(context.Background(), "climate impact on soil",
		Constraints{YearMin: 2020, YearMax: 2022, TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for _, r := range results {
		assert.GreaterOrEqual(t, r.Document.Year, 2020)
		assert.LessOrEqual(t, r.Document.Year, 2022)
	}
}

func TestEngineNoRerankerFinalEqualsFused(t *testing.T) {
	engine := buildFiveDocEngine(t, testConfig())

	results, err := engine.Search(context.Background(), "soil warming", Constraints{TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for _, r := range results {
		assert.False(t, r.Reranked)
		assert.Equal(t, r.FusedScore, r.FinalScore)
	}
}

// fakeCrossEncoder scores documents by a fixed per-text score map.
type fakeCrossEncoder struct {
	mu     sync.Mutex
	scores map[string]float64
	err    error
	calls  int
}

func (f *fakeCrossEncoder) Score(_ context.Context, _ string, documents []string) ([]RerankScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]RerankScore, len(documents))
	for i, doc := range documents {
		out[i] = RerankScore{Index: i, Score: f.scores[doc]}
	}
	return out, nil
}

func (f *fakeCrossEncoder) Available(_ context.Context) bool { return true }
func (f *fakeCrossEncoder) Close() error                     { return nil }

func TestEngineRerankOverridesFusedOrder(t *testing.T) {
	docs := fiveDocCorpus()
	scores := map[string]float64{}
	for _, d := range docs {
		// The cross-encoder strongly prefers E over everything else.
		if d.ID == "E" {
			scores[d.SnippetText(snippetLength)] = 10.0
		} else {
			scores[d.SnippetText(snippetLength)] = 1.0
		}
	}

	cfg := testConfig()
	cfg.RerankEnabled = true
	cfg.DiversityEnabled = false

	encoder := &fakeCrossEncoder{scores: scores}
	engine := buildFiveDocEngine(t, cfg, WithCrossEncoder(encoder))

	results, err := engine.Search(context.Background(), "climate impact on soil", Constraints{TopK: 3})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "E", results[0].DocID)
	assert.True(t, results[0].Reranked)
	assert.Positive(t, encoder.calls)
}

func TestEngineRerankFailureDegrades(t *testing.T) {
	cfg := testConfig()
	cfg.RerankEnabled = true

	encoder := &fakeCrossEncoder{err: errors.New("encoder offline")}
	engine := buildFiveDocEngine(t, cfg, WithCrossEncoder(encoder))

	results, err := engine.Search(context.Background(), "climate impact on soil", Constraints{TopK: 3})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "A", results[0].DocID)
	for _, r := range results {
		assert.False(t, r.Reranked)
		assert.Equal(t, r.FusedScore, r.FinalScore)
	}
	assert.Positive(t, engine.Stats().DegradedSources)
}

func TestEngineResultCache(t *testing.T) {
	cfg := testConfig()
	cfg.ResultCacheSize = 16
	cfg.ResultCacheTTL = time.Minute
	engine := buildFiveDocEngine(t, cfg)

	first, err := engine.Search(context.Background(), "climate impact on soil", Constraints{TopK: 3})
	require.NoError(t, err)

	second, err := engine.Search(context.Background(), "Climate  Impact on Soil", Constraints{TopK: 3})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, uint64(1), engine.Stats().CacheHits)
}

func TestEngineRebuildInvalidatesCache(t *testing.T) {
	cfg := testConfig()
	cfg.ResultCacheSize = 16
	cfg.ResultCacheTTL = time.Minute
	engine := buildFiveDocEngine(t, cfg)

	first, err := engine.Search(context.Background(), "climate impact on soil", Constraints{TopK: 3})
	require.NoError(t, err)

	require.NoError(t, engine.BuildIndex(context.Background(), fiveDocCorpus()))

	// Identical corpus rebuild: the cache was dropped, yet the recomputed
	// results are identical.
	second, err := engine.Search(context.Background(), "climate impact on soil", Constraints{TopK: 3})
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].DocID, second[i].DocID)
		assert.Equal(t, first[i].FinalScore, second[i].FinalScore)
	}
	assert.Zero(t, engine.Stats().CacheHits)
	assert.Equal(t, uint64(2), engine.Stats().Builds)
}

func TestEngineWaitForBuild(t *testing.T) {
	cfg := testConfig()
	cfg.WaitForBuild = true
	engine, docStore := newTestEngine(t, cfg)

	docs := fiveDocCorpus()
	require.NoError(t, docStore.SaveDocuments(context.Background(), docs))

	type outcome struct {
		results []*Result
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		results, err := engine.Search(context.Background(), "climate impact on soil", Constraints{TopK: 3})
		done <- outcome{results, err}
	}()

	select {
	case <-done:
		t.Fatal("search returned before any index was built")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, engine.BuildIndex(context.Background(), docs))

	select {
	case got := <-done:
		require.NoError(t, got.err)
		assert.NotEmpty(t, got.results)
	case <-time.After(5 * time.Second):
		t.Fatal("search did not unblock after build")
	}
}

func TestEngineWaitForBuildCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.WaitForBuild = true
	engine, _ := newTestEngine(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := engine.Search(ctx, "soil", Constraints{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngineConcurrentSearches(t *testing.T) {
	engine := buildFiveDocEngine(t, testConfig())

	baseline, err := engine.Search(context.Background(), "climate impact on soil", Constraints{TopK: 3})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	all := make([][]*Result, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			all[i], errs[i] = engine.Search(context.Background(), "climate impact on soil", Constraints{TopK: 3})
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, len(baseline), len(all[i]))
		for j := range baseline {
			assert.Equal(t, baseline[j].DocID, all[i][j].DocID)
		}
	}
}

func TestEngineRebuildKeepsPriorGenerationAlive(t *testing.T) {
	engine := buildFiveDocEngine(t, testConfig())
	ctx := context.Background()

	held, err := engine.currentIndex(ctx)
	require.NoError(t, err)

	require.NoError(t, engine.BuildIndex(ctx, fiveDocCorpus()))

	// The swapped-out generation stays fully searchable while a holder
	// remains.
	kw, err := retrieveKeyword(ctx, held, []string{"soil"}, Constraints{}, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, kw)

	vec, err := retrieveVector(ctx, held, engine.embedder, []string{"climate impact on soil"}, Constraints{}, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, vec)

	assert.Zero(t, engine.Stats().DegradedSources)

	// The last holder out closes the underlying indices.
	require.NoError(t, held.release())
	_, err = held.lexical.Search(ctx, "soil", 0, 0, 10)
	assert.Error(t, err)

	// The live generation is unaffected.
	results, err := engine.Search(ctx, "climate impact on soil", Constraints{TopK: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

// faultyQueryEmbedder embeds the corpus normally but fails every
// per-query embedding, so the vector source fails at search time.
type faultyQueryEmbedder struct {
	*embed.StaticEmbedder
}

func (f *faultyQueryEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("embedder offline")
}

// stallingEmbedder blocks per-query embedding until the context fires.
type stallingEmbedder struct {
	*embed.StaticEmbedder
}

func (s *stallingEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEngineVectorSourceFailureDegrades(t *testing.T) {
	docStore, err := corpus.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { docStore.Close() })

	engine, err := NewEngine(docStore, &faultyQueryEmbedder{embed.NewStaticEmbedder()}, testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	docs := fiveDocCorpus()
	require.NoError(t, docStore.SaveDocuments(context.Background(), docs))
	require.NoError(t, engine.BuildIndex(context.Background(), docs))

	results, err := engine.Search(context.Background(), "climate impact on soil", Constraints{TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// The keyword and citation sources still contribute; the vector
	// source is absent, not fatal.
	for _, r := range results {
		assert.NotEqual(t, SourceVector, r.Source)
	}
	assert.Positive(t, engine.Stats().DegradedSources)
}

func TestEngineSlowSourceTimesOut(t *testing.T) {
	docStore, err := corpus.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { docStore.Close() })

	cfg := testConfig()
	cfg.SourceTimeout = 50 * time.Millisecond

	engine, err := NewEngine(docStore, &stallingEmbedder{embed.NewStaticEmbedder()}, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	docs := fiveDocCorpus()
	require.NoError(t, docStore.SaveDocuments(context.Background(), docs))
	require.NoError(t, engine.BuildIndex(context.Background(), docs))

	start := time.Now()
	results, err := engine.Search(context.Background(), "climate impact on soil", Constraints{TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Positive(t, engine.Stats().DegradedSources)
}

func TestEngineSearchForSentence(t *testing.T) {
	cfg := testConfig()
	cfg.ResultCacheSize = 16
	cfg.ResultCacheTTL = time.Minute
	engine := buildFiveDocEngine(t, cfg)

	withPeriod, err := engine.SearchForSentence(context.Background(), "Climate impact on soil.")
	require.NoError(t, err)

	bare, err := engine.Search(context.Background(), "Climate impact on soil", Constraints{})
	require.NoError(t, err)

	assert.Equal(t, bare, withPeriod)
	assert.NotEmpty(t, withPeriod)
}

func TestEngineExpansionStillFindsResults(t *testing.T) {
	cfg := testConfig()
	cfg.ExpansionEnabled = true
	engine := buildFiveDocEngine(t, cfg)

	results, err := engine.Search(context.Background(), "the impact of climate on soil", Constraints{TopK: 3})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "A", results[0].DocID)
}
