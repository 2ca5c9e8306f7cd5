package cmd

import (
	"context"
	"log/slog"

	"github.com/litmatch/litmatch/internal/config"
	"github.com/litmatch/litmatch/internal/corpus"
	"github.com/litmatch/litmatch/internal/embed"
	"github.com/litmatch/litmatch/internal/logging"
	"github.com/litmatch/litmatch/internal/search"
)

// loadConfig resolves the effective configuration for a command run.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// setupLogging initializes structured logging from config. Logs go to
// the rotating file only; stdout stays clean for command output.
func setupLogging(cfg *config.Config) (*slog.Logger, func(), error) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.WriteToStderr = cfg.Logging.Stderr
	if cfg.Logging.FilePath != "" {
		logCfg.FilePath = cfg.Logging.FilePath
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

// openStore opens the configured SQLite document store.
func openStore(cfg *config.Config) (*corpus.SQLiteStore, error) {
	if cfg.Corpus.DBPath == "" {
		return corpus.NewMemoryStore()
	}
	return corpus.NewSQLiteStore(cfg.Corpus.DBPath)
}

// newEmbedder constructs the configured embedder with an LRU cache on top.
func newEmbedder(cfg *config.Config) embed.Embedder {
	var inner embed.Embedder = embed.NewStaticEmbedder()
	if cfg.Embed.CacheSize > 0 {
		return embed.NewCachedEmbedder(inner, cfg.Embed.CacheSize)
	}
	return inner
}

// newEngine wires the engine from config: store, embedder, and the
// optional paraphrase and cross-encoder capabilities when endpoints are
// configured and reachable.
func newEngine(ctx context.Context, cfg *config.Config, store *corpus.SQLiteStore, logger *slog.Logger) (*search.Engine, error) {
	engineCfg := search.Config{
		VectorWeight:       cfg.Search.VectorWeight,
		KeywordWeight:      cfg.Search.KeywordWeight,
		CitationWeight:     cfg.Search.CitationWeight,
		TopK:               cfg.Search.TopK,
		PerSourceLimit:     cfg.Search.PerSourceLimit,
		DiversityEnabled:   cfg.Search.DiversityEnabled,
		Lambda:             cfg.Search.Lambda,
		ExpansionEnabled:   cfg.Expansion.Enabled,
		MaxVariants:        cfg.Expansion.MaxVariants,
		RerankEnabled:      cfg.Rerank.Enabled,
		RerankTopM:         cfg.Rerank.TopM,
		CitationEnabled:    cfg.Search.CitationEnabled,
		CitationSeeds:      cfg.Search.CitationSeeds,
		CitationMaxHops:    cfg.Search.CitationMaxHops,
		CitationDecay:      cfg.Search.CitationDecay,
		SourceTimeout:      cfg.Search.SourceTimeout,
		ExactScanThreshold: cfg.Search.ExactScanThreshold,
		EmbedBatchSize:     cfg.Embed.BatchSize,
		ResultCacheSize:    cfg.Search.ResultCacheSize,
		ResultCacheTTL:     cfg.Search.ResultCacheTTL,
		WaitForBuild:       cfg.Search.OnBuilding == config.OnBuildingWait,
	}

	opts := []search.EngineOption{search.WithLogger(logger)}

	if cfg.Expansion.Enabled && cfg.Expansion.Endpoint != "" {
		paraphraser, err := search.NewHTTPParaphraser(ctx, search.HTTPParaphraserConfig{
			Endpoint: cfg.Expansion.Endpoint,
			Timeout:  cfg.Expansion.Timeout,
		})
		if err != nil {
			logger.Warn("paraphraser_unavailable", slog.String("error", err.Error()))
		} else {
			opts = append(opts, search.WithParaphraser(paraphraser))
		}
	}

	if cfg.Rerank.Enabled && cfg.Rerank.Endpoint != "" {
		encoder, err := search.NewHTTPCrossEncoder(ctx, search.HTTPCrossEncoderConfig{
			Endpoint: cfg.Rerank.Endpoint,
			Timeout:  cfg.Rerank.Timeout,
		})
		if err != nil {
			logger.Warn("cross_encoder_unavailable", slog.String("error", err.Error()))
		} else {
			opts = append(opts, search.WithCrossEncoder(encoder))
		}
	}

	return search.NewEngine(store, newEmbedder(cfg), engineCfg, opts...)
}
