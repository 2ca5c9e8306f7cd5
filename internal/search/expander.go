package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultExpansionCacheSize bounds the expansion cache.
const DefaultExpansionCacheSize = 256

// Paraphraser produces alternate phrasings of a query. It is an optional
// external capability; the expander falls back to synonym substitution
// when it is absent or failing.
type Paraphraser interface {
	// Paraphrase returns up to count alternate phrasings of text.
	Paraphrase(ctx context.Context, text string, count int) ([]string, error)

	// Available checks if the paraphrase service is reachable.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// Expander turns one query into an ordered list of variants, the original
// verbatim always first. Expansion never fails a search: any paraphraser
// error degrades to the deterministic synonym fallback.
type Expander struct {
	paraphraser Paraphraser
	cache       *lru.Cache[string, []string]
	maxVariants int
	timeout     time.Duration
	logger      *slog.Logger
}

// NewExpander creates a query expander. paraphraser may be nil.
func NewExpander(paraphraser Paraphraser, maxVariants, cacheSize int, timeout time.Duration, logger *slog.Logger) *Expander {
	if maxVariants < 1 {
		maxVariants = 1
	}
	if cacheSize <= 0 {
		cacheSize = DefaultExpansionCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	// lru.New only errors on non-positive size, which is guarded above.
	cache, _ := lru.New[string, []string](cacheSize)

	return &Expander{
		paraphraser: paraphraser,
		cache:       cache,
		maxVariants: maxVariants,
		timeout:     timeout,
		logger:      logger,
	}
}

// Expand returns 1..maxVariants query variants. Identical query text hits
// the cache, keyed by the exact input.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	if cached, ok := e.cache.Get(query); ok {
		return cached
	}

	variants := e.expand(ctx, query)
	e.cache.Add(query, variants)
	return variants
}

func (e *Expander) expand(ctx context.Context, query string) []string {
	variants := []string{query}
	if e.maxVariants == 1 {
		return variants
	}

	if e.paraphraser != nil && e.paraphraser.Available(ctx) {
		pctx := ctx
		if e.timeout > 0 {
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}

		phrasings, err := e.paraphraser.Paraphrase(pctx, query, e.maxVariants-1)
		if err == nil {
			return appendUnique(variants, phrasings, e.maxVariants)
		}
		e.logger.Warn("paraphrase_failed",
			slog.String("error", err.Error()))
	}

	return appendUnique(variants, e.fallbackVariants(query), e.maxVariants)
}

// fallbackVariants derives variants without any external capability:
// a stop-word-stripped form and up to two synonym substitutions.
func (e *Expander) fallbackVariants(query string) []string {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}

	var variants []string

	kept := make([]string, 0, len(terms))
	for _, t := range terms {
		if !queryStopWords[t] {
			kept = append(kept, t)
		}
	}
	if len(kept) > 0 && len(kept) < len(terms) {
		variants = append(variants, strings.Join(kept, " "))
	}

	// Substitute one known term per variant, left to right, so each
	// variant stays close to the original phrasing.
	substituted := 0
	for i, t := range terms {
		syns, ok := AcademicSynonyms[t]
		if !ok || len(syns) == 0 {
			continue
		}
		replaced := make([]string, len(terms))
		copy(replaced, terms)
		replaced[i] = syns[0]
		variants = append(variants, strings.Join(replaced, " "))

		substituted++
		if substituted >= 2 {
			break
		}
	}

	return variants
}

// appendUnique appends extras to variants, skipping duplicates and empty
// strings, capping the total at max.
func appendUnique(variants, extras []string, max int) []string {
	seen := make(map[string]bool, len(variants)+len(extras))
	for _, v := range variants {
		seen[strings.TrimSpace(strings.ToLower(v))] = true
	}

	for _, extra := range extras {
		if len(variants) >= max {
			break
		}
		key := strings.TrimSpace(strings.ToLower(extra))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		variants = append(variants, strings.TrimSpace(extra))
	}
	return variants
}
