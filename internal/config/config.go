// Package config loads and validates engine configuration.
//
// Configuration is resolved in three layers, later layers winning:
//  1. Built-in defaults (NewConfig)
//  2. YAML file (litmatch.yaml in the working directory, or an explicit path)
//  3. Environment variables (LITMATCH_*)
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the per-project config file name.
const DefaultConfigFile = "litmatch.yaml"

// OnBuildingPolicy controls how searches behave while an index rebuild is
// in flight.
type OnBuildingPolicy string

const (
	// OnBuildingFail rejects searches during a rebuild when no previous
	// index generation exists.
	OnBuildingFail OnBuildingPolicy = "fail"
	// OnBuildingWait blocks searches until the rebuild completes.
	OnBuildingWait OnBuildingPolicy = "wait"
)

// Config is the complete litmatch configuration.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus" json:"corpus"`
	Embed     EmbedConfig     `yaml:"embeddings" json:"embeddings"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Expansion ExpansionConfig `yaml:"expansion" json:"expansion"`
	Rerank    RerankConfig    `yaml:"rerank" json:"rerank"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// CorpusConfig configures corpus storage.
type CorpusConfig struct {
	// DBPath is the SQLite document store path. Empty means in-memory.
	DBPath string `yaml:"db_path" json:"db_path"`
}

// EmbedConfig configures the embedding provider.
type EmbedConfig struct {
	// Provider selects the embedder: "static" (built-in hash embedder).
	Provider string `yaml:"provider" json:"provider"`
	// BatchSize is the embedding batch size during index builds.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// CacheSize is the LRU embedding cache capacity (0 disables caching).
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// SearchConfig configures retrieval, fusion, and diversity selection.
type SearchConfig struct {
	// VectorWeight, KeywordWeight, and CitationWeight are the fusion
	// weights. They must be non-negative and sum to 1.0. A disabled
	// citation source redistributes its weight proportionally.
	VectorWeight   float64 `yaml:"vector_weight" json:"vector_weight"`
	KeywordWeight  float64 `yaml:"keyword_weight" json:"keyword_weight"`
	CitationWeight float64 `yaml:"citation_weight" json:"citation_weight"`

	// TopK is the default result count when a query does not specify one.
	TopK int `yaml:"top_k" json:"top_k"`

	// PerSourceLimit is the candidate count requested from each source
	// per query variant.
	PerSourceLimit int `yaml:"per_source_limit" json:"per_source_limit"`

	// DiversityEnabled toggles MMR diversity selection.
	DiversityEnabled bool `yaml:"diversity_enabled" json:"diversity_enabled"`
	// Lambda is the diversity trade-off: 1.0 is pure relevance, 0.0 is
	// pure diversity.
	Lambda float64 `yaml:"lambda" json:"lambda"`

	// CitationEnabled toggles the citation-graph source.
	CitationEnabled bool `yaml:"citation_enabled" json:"citation_enabled"`
	// CitationSeeds is the number of top fused candidates used as
	// citation walk seeds.
	CitationSeeds int `yaml:"citation_seeds" json:"citation_seeds"`
	// CitationMaxHops bounds the citation walk depth.
	CitationMaxHops int `yaml:"citation_max_hops" json:"citation_max_hops"`
	// CitationDecay is the per-hop score decay factor in (0,1].
	CitationDecay float64 `yaml:"citation_decay" json:"citation_decay"`

	// SourceTimeout bounds each retrieval source call.
	SourceTimeout time.Duration `yaml:"source_timeout" json:"source_timeout"`

	// ExactScanThreshold is the corpus size at or below which vector
	// search uses an exact scan instead of the ANN graph.
	ExactScanThreshold int `yaml:"exact_scan_threshold" json:"exact_scan_threshold"`

	// ResultCacheSize is the LRU result cache capacity (0 disables).
	ResultCacheSize int `yaml:"result_cache_size" json:"result_cache_size"`
	// ResultCacheTTL expires cached results.
	ResultCacheTTL time.Duration `yaml:"result_cache_ttl" json:"result_cache_ttl"`

	// OnBuilding selects search behavior during a rebuild with no
	// previous generation: "fail" or "wait".
	OnBuilding OnBuildingPolicy `yaml:"on_building" json:"on_building"`
}

// ExpansionConfig configures query expansion.
type ExpansionConfig struct {
	// Enabled toggles query expansion.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// MaxVariants caps the total number of query variants, the original
	// included.
	MaxVariants int `yaml:"max_variants" json:"max_variants"`
	// Endpoint is the paraphrase service URL. Empty selects the built-in
	// synonym fallback.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// Timeout bounds a paraphrase service call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// CacheSize is the expansion LRU cache capacity.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// RerankConfig configures cross-encoder re-ranking.
type RerankConfig struct {
	// Enabled toggles re-ranking.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// TopM is the number of fused candidates sent to the cross-encoder.
	TopM int `yaml:"top_m" json:"top_m"`
	// Endpoint is the cross-encoder service URL. Empty disables
	// re-ranking regardless of Enabled.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// Timeout bounds a re-rank call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
	// FilePath is the log file location. Empty uses the default under
	// ~/.litmatch/logs.
	FilePath string `yaml:"file_path" json:"file_path"`
	// Stderr additionally mirrors logs to stderr.
	Stderr bool `yaml:"stderr" json:"stderr"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			DBPath: defaultDBPath(),
		},
		Embed: EmbedConfig{
			Provider:  "static",
			BatchSize: 32,
			CacheSize: 512,
		},
		Search: SearchConfig{
			VectorWeight:       0.4,
			KeywordWeight:      0.3,
			CitationWeight:     0.3,
			TopK:               10,
			PerSourceLimit:     50,
			DiversityEnabled:   true,
			Lambda:             0.7,
			CitationEnabled:    true,
			CitationSeeds:      10,
			CitationMaxHops:    2,
			CitationDecay:      0.5,
			SourceTimeout:      5 * time.Second,
			ExactScanThreshold: 2000,
			ResultCacheSize:    128,
			ResultCacheTTL:     15 * time.Minute,
			OnBuilding:         OnBuildingFail,
		},
		Expansion: ExpansionConfig{
			Enabled:     true,
			MaxVariants: 4,
			Timeout:     3 * time.Second,
			CacheSize:   256,
		},
		Rerank: RerankConfig{
			Enabled: true,
			TopM:    30,
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "litmatch.db"
	}
	return filepath.Join(home, ".litmatch", "litmatch.db")
}

// Load resolves configuration from defaults, an optional YAML file, and
// environment overrides. path may be empty, in which case litmatch.yaml in
// the working directory is used when present.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies LITMATCH_* environment variables on top of the
// loaded configuration. Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LITMATCH_DB_PATH"); v != "" {
		c.Corpus.DBPath = v
	}
	if v := os.Getenv("LITMATCH_VECTOR_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.VectorWeight = f
		}
	}
	if v := os.Getenv("LITMATCH_KEYWORD_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.KeywordWeight = f
		}
	}
	if v := os.Getenv("LITMATCH_CITATION_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.CitationWeight = f
		}
	}
	if v := os.Getenv("LITMATCH_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.TopK = n
		}
	}
	if v := os.Getenv("LITMATCH_LAMBDA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.Lambda = f
		}
	}
	if v := os.Getenv("LITMATCH_ON_BUILDING"); v != "" {
		c.Search.OnBuilding = OnBuildingPolicy(strings.ToLower(v))
	}
	if v := os.Getenv("LITMATCH_EXPANSION_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Expansion.Enabled = b
		}
	}
	if v := os.Getenv("LITMATCH_EXPANSION_ENDPOINT"); v != "" {
		c.Expansion.Endpoint = v
	}
	if v := os.Getenv("LITMATCH_RERANK_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Rerank.Enabled = b
		}
	}
	if v := os.Getenv("LITMATCH_RERANK_ENDPOINT"); v != "" {
		c.Rerank.Endpoint = v
	}
	if v := os.Getenv("LITMATCH_RERANK_TOP_M"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Rerank.TopM = n
		}
	}
	if v := os.Getenv("LITMATCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	s := &c.Search

	if s.VectorWeight < 0 || s.KeywordWeight < 0 || s.CitationWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative (vector=%.2f keyword=%.2f citation=%.2f)",
			s.VectorWeight, s.KeywordWeight, s.CitationWeight)
	}
	sum := s.VectorWeight + s.KeywordWeight + s.CitationWeight
	if math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("fusion weights must sum to 1.0, got %.3f", sum)
	}

	if s.Lambda < 0 || s.Lambda > 1 {
		return fmt.Errorf("lambda must be in [0,1], got %.3f", s.Lambda)
	}
	if s.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", s.TopK)
	}
	if s.PerSourceLimit <= 0 {
		return fmt.Errorf("per_source_limit must be positive, got %d", s.PerSourceLimit)
	}
	if s.CitationEnabled {
		if s.CitationMaxHops < 1 {
			return fmt.Errorf("citation_max_hops must be at least 1, got %d", s.CitationMaxHops)
		}
		if s.CitationDecay <= 0 || s.CitationDecay > 1 {
			return fmt.Errorf("citation_decay must be in (0,1], got %.3f", s.CitationDecay)
		}
		if s.CitationSeeds <= 0 {
			return fmt.Errorf("citation_seeds must be positive, got %d", s.CitationSeeds)
		}
	}

	switch s.OnBuilding {
	case OnBuildingFail, OnBuildingWait:
	default:
		return fmt.Errorf("on_building must be %q or %q, got %q", OnBuildingFail, OnBuildingWait, s.OnBuilding)
	}

	if c.Rerank.Enabled && c.Rerank.TopM <= 0 {
		return fmt.Errorf("rerank top_m must be positive, got %d", c.Rerank.TopM)
	}
	if c.Expansion.Enabled && c.Expansion.MaxVariants < 1 {
		return fmt.Errorf("expansion max_variants must be at least 1, got %d", c.Expansion.MaxVariants)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}

	if c.Embed.Provider != "static" {
		return fmt.Errorf("unknown embeddings provider %q", c.Embed.Provider)
	}

	return nil
}

// WriteYAML writes the configuration to path, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
