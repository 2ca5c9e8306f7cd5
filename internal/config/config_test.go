package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.InDelta(t, 0.4, cfg.Search.VectorWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Search.KeywordWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Search.CitationWeight, 1e-9)
	assert.Equal(t, 10, cfg.Search.TopK)
	assert.InDelta(t, 0.7, cfg.Search.Lambda, 1e-9)
	assert.Equal(t, OnBuildingFail, cfg.Search.OnBuilding)
	assert.Equal(t, 30, cfg.Rerank.TopM)
	assert.Equal(t, 4, cfg.Expansion.MaxVariants)
	assert.Equal(t, 2000, cfg.Search.ExactScanThreshold)

	require.NoError(t, cfg.Validate())
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "litmatch.yaml")
	yaml := `
search:
  vector_weight: 0.5
  keyword_weight: 0.5
  citation_weight: 0.0
  citation_enabled: false
  top_k: 5
  lambda: 1.0
  on_building: wait
rerank:
  enabled: false
  top_m: 20
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, cfg.Search.VectorWeight, 1e-9)
	assert.InDelta(t, 0.0, cfg.Search.CitationWeight, 1e-9)
	assert.False(t, cfg.Search.CitationEnabled)
	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Equal(t, OnBuildingWait, cfg.Search.OnBuilding)
	assert.False(t, cfg.Rerank.Enabled)
	assert.Equal(t, 20, cfg.Rerank.TopM)

	// Untouched sections keep their defaults.
	assert.Equal(t, "static", cfg.Embed.Provider)
	assert.Equal(t, 15*time.Minute, cfg.Search.ResultCacheTTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LITMATCH_VECTOR_WEIGHT", "0.6")
	t.Setenv("LITMATCH_KEYWORD_WEIGHT", "0.4")
	t.Setenv("LITMATCH_CITATION_WEIGHT", "0.0")
	t.Setenv("LITMATCH_TOP_K", "3")
	t.Setenv("LITMATCH_ON_BUILDING", "WAIT")
	t.Setenv("LITMATCH_RERANK_ENABLED", "false")
	t.Setenv("LITMATCH_LOG_LEVEL", "debug")

	cfg := NewConfig()
	cfg.applyEnvOverrides()

	assert.InDelta(t, 0.6, cfg.Search.VectorWeight, 1e-9)
	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, OnBuildingWait, cfg.Search.OnBuilding)
	assert.False(t, cfg.Rerank.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestEnvOverridesIgnoreGarbage(t *testing.T) {
	t.Setenv("LITMATCH_TOP_K", "not-a-number")
	t.Setenv("LITMATCH_LAMBDA", "banana")

	cfg := NewConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, 10, cfg.Search.TopK)
	assert.InDelta(t, 0.7, cfg.Search.Lambda, 1e-9)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Search.VectorWeight = -0.1; c.Search.KeywordWeight = 0.8 },
			wantErr: "non-negative",
		},
		{
			name:    "weights do not sum to one",
			mutate:  func(c *Config) { c.Search.VectorWeight = 0.9 },
			wantErr: "sum to 1.0",
		},
		{
			name:    "lambda out of range",
			mutate:  func(c *Config) { c.Search.Lambda = 1.5 },
			wantErr: "lambda",
		},
		{
			name:    "zero top_k",
			mutate:  func(c *Config) { c.Search.TopK = 0 },
			wantErr: "top_k",
		},
		{
			name:    "bad on_building",
			mutate:  func(c *Config) { c.Search.OnBuilding = "retry" },
			wantErr: "on_building",
		},
		{
			name:    "bad citation decay",
			mutate:  func(c *Config) { c.Search.CitationDecay = 1.5 },
			wantErr: "citation_decay",
		},
		{
			name:    "zero rerank top_m",
			mutate:  func(c *Config) { c.Rerank.TopM = 0 },
			wantErr: "top_m",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "log level",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Embed.Provider = "quantum" },
			wantErr: "provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "litmatch.yaml")

	cfg := NewConfig()
	cfg.Search.TopK = 7
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Search.TopK)
}
