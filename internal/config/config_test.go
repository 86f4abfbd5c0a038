package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/reposearch/internal/db"
)

func validConfig() Config {
	cfg := Config{Database: DatabaseConfig{Addrs: []string{"localhost:6379"}}}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("http.port = %d, want 8080", cfg.HTTP.Port)
	}
	if cfg.Storage.KeyPrefix != "reposearch:" || cfg.Storage.IndexName != "repos" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Cache.TTLSec != 900 || cfg.Cache.SimilarityThreshold == nil || *cfg.Cache.SimilarityThreshold != 0.8 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Ranking.RelevanceWeight != 0.8 || cfg.Ranking.BoostWeight != 0.2 || cfg.Ranking.FallbackDate != "2024-01-01" {
		t.Errorf("ranking = %+v", cfg.Ranking)
	}
	if cfg.Search.VectorFallbackMinScore != 0.5 || cfg.Search.TextDefaultLimit != 50 || cfg.Search.DefaultLimit != 5 {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Recommend.CacheSize != 64 || cfg.Recommend.TopicCount != 3 || cfg.Recommend.SuggestedFilterCount != 10 {
		t.Errorf("recommend = %+v", cfg.Recommend)
	}
	if cfg.LLM.Temperature != 0.5 {
		t.Errorf("llm.temperature = %v", cfg.LLM.Temperature)
	}
	if cfg.VectorAlgorithm() != db.VectorHNSW {
		t.Errorf("vector algorithm = %q", cfg.VectorAlgorithm())
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Ranking: RankingConfig{RelevanceWeight: 1, BoostWeight: 0},
		Cache:   CacheConfig{TTLSec: 60, SimilarityThreshold: floatPtr(0.95)},
		Storage: StorageConfig{KeyPrefix: "x:"},
	}
	cfg.ApplyDefaults()

	if cfg.Ranking.RelevanceWeight != 1 || cfg.Ranking.BoostWeight != 0 {
		t.Errorf("ranking overridden: %+v", cfg.Ranking)
	}
	if cfg.Cache.TTLSec != 60 || *cfg.Cache.SimilarityThreshold != 0.95 {
		t.Errorf("cache overridden: %+v", cfg.Cache)
	}
	if cfg.Storage.KeyPrefix != "x:" {
		t.Errorf("key prefix overridden: %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_ZeroThresholdKept(t *testing.T) {
	cfg := Config{Cache: CacheConfig{SimilarityThreshold: floatPtr(0)}}
	cfg.ApplyDefaults()

	if *cfg.Cache.SimilarityThreshold != 0 {
		t.Errorf("similarity_threshold = %v, want explicit 0 kept", *cfg.Cache.SimilarityThreshold)
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"threshold", func(c *Config) { c.Cache.SimilarityThreshold = floatPtr(1.5) }, "similarity_threshold"},
		{"weights", func(c *Config) { c.Ranking.BoostWeight = -1 }, "non-negative"},
		{"fallback date", func(c *Config) { c.Ranking.FallbackDate = "01/01/2024" }, "fallback_date"},
		{"limits", func(c *Config) { c.Search.MaxLimit = 10 }, "max_limit"},
		{"empty key", func(c *Config) { c.Auth.APIKeys = []string{"k", " "} }, "api_keys[1]"},
		{"algorithm", func(c *Config) { c.Index.Algorithm = "ivf" }, "index.algorithm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RS_SET", "value")
	got := string(expandEnvVars([]byte("a: ${RS_SET}\nb: ${RS_UNSET:-fallback}\nc: ${RS_UNSET}")))
	want := "a: value\nb: fallback\nc: "
	if got != want {
		t.Errorf("expandEnvVars =\n%q\nwant\n%q", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("RS_REDIS", "redis:6380")
	path := filepath.Join(t.TempDir(), "test.yaml")
	body := "database:\n  addrs: [\"${RS_REDIS}\"]\ncache:\n  ttl_sec: 120\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Addrs[0] != "redis:6380" {
		t.Errorf("addrs = %v", cfg.Database.Addrs)
	}
	if cfg.CacheTTL().Seconds() != 120 {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL())
	}
	if cfg.FallbackDate().Year() != 2024 {
		t.Errorf("FallbackDate = %v", cfg.FallbackDate())
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 8080\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected validation error for missing addrs")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.Storage.IndexName != "repos" {
		t.Errorf("index name = %q", cfg.Storage.IndexName)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if GetEnv() != "local" {
		t.Errorf("GetEnv() = %q, want local", GetEnv())
	}
	t.Setenv("ENV", "prod")
	if GetEnv() != "prod" {
		t.Errorf("GetEnv() = %q, want prod", GetEnv())
	}
}
