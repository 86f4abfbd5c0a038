package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/reposearch/internal/db"
)

// Config holds the reposearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Cache     CacheConfig     `yaml:"cache"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Search    SearchConfig    `yaml:"search"`
	Recommend RecommendConfig `yaml:"recommend"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"` // covers LLM + embedding round-trips
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	DialTimeoutSec   int      `yaml:"dial_timeout_sec"`
}

// StorageConfig names the keyspace and the FT index.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
	IndexName string `yaml:"index_name"`
}

// IndexConfig selects the vector algorithm and its build parameters.
type IndexConfig struct {
	Algorithm       string `yaml:"algorithm"` // hnsw or flat
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// EmbeddingConfig configures the OpenAI-compatible embedding endpoint.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // label for metrics
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
	CacheTTLSec         int    `yaml:"cache_ttl_sec"` // exact-text embedding cache in Redis; 0 disables
	BatchSize           int    `yaml:"batch_size"`
}

// LLMConfig configures the chat model used for intent extraction and related queries.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	JSONMode    bool    `yaml:"json_mode"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// CacheConfig configures the in-process semantic cache.
type CacheConfig struct {
	TTLSec              int      `yaml:"ttl_sec"`
	SimilarityThreshold *float64 `yaml:"similarity_threshold"` // nil means 0.8; 0 is a valid threshold
}

// RankingConfig holds the blend of backend relevance and star velocity.
type RankingConfig struct {
	RelevanceWeight float64 `yaml:"relevance_weight"`
	BoostWeight     float64 `yaml:"boost_weight"`
	FallbackDate    string  `yaml:"fallback_date"` // YYYY-MM-DD, used when a document has no date
}

// SearchConfig holds orchestrator limits.
type SearchConfig struct {
	DefaultLimit           int     `yaml:"default_limit"`
	TextDefaultLimit       int     `yaml:"text_default_limit"`
	MaxLimit               int     `yaml:"max_limit"`
	VectorFallbackMinScore float64 `yaml:"vector_fallback_min_score"`
	RRFK                   int     `yaml:"rrf_k"`
}

// RecommendConfig configures the recommendations page.
type RecommendConfig struct {
	DefaultLimit         int `yaml:"default_limit"`
	CacheSize            int `yaml:"cache_size"`
	CacheTTLSec          int `yaml:"cache_ttl_sec"`
	TrendingWindowDays   int `yaml:"trending_window_days"`
	TopicCount           int `yaml:"topic_count"`
	SuggestedFilterCount int `yaml:"suggested_filter_count"`
}

// AuthConfig holds API authentication settings. No keys means auth is off.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads config/<env>.yaml, expands ${VAR} references, applies defaults and validates.
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile is Load for an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	setInt(&c.HTTP.Port, 8080)
	setInt(&c.HTTP.ReadTimeoutSec, 10)
	setInt(&c.HTTP.WriteTimeoutSec, 60)
	setInt(&c.HTTP.ShutdownSec, 10)
	setInt(&c.Database.ReadinessTimeout, 10)
	setInt(&c.Database.DialTimeoutSec, 5)

	setStr(&c.Storage.KeyPrefix, "reposearch:")
	setStr(&c.Storage.IndexName, "repos")
	setStr(&c.Index.Algorithm, "hnsw")
	setInt(&c.Index.HNSWM, 16)
	setInt(&c.Index.HNSWEFConstruct, 200)

	setStr(&c.Embedding.Provider, "openai")
	setStr(&c.Embedding.Model, "text-embedding-3-small")
	setInt(&c.Embedding.Dimensions, 1536)
	setInt(&c.Embedding.BatchSize, 64)

	setStr(&c.LLM.Model, "gpt-4o-mini")
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = 0.5
	}
	setInt(&c.LLM.TimeoutSec, 30)

	setInt(&c.Cache.TTLSec, 900)
	if c.Cache.SimilarityThreshold == nil {
		def := 0.8
		c.Cache.SimilarityThreshold = &def
	}

	if c.Ranking.RelevanceWeight == 0 && c.Ranking.BoostWeight == 0 {
		c.Ranking.RelevanceWeight = 0.8
		c.Ranking.BoostWeight = 0.2
	}
	setStr(&c.Ranking.FallbackDate, "2024-01-01")

	setInt(&c.Search.DefaultLimit, 5)
	setInt(&c.Search.TextDefaultLimit, 50)
	setInt(&c.Search.MaxLimit, 100)
	if c.Search.VectorFallbackMinScore == 0 {
		c.Search.VectorFallbackMinScore = 0.5
	}
	setInt(&c.Search.RRFK, 60)

	setInt(&c.Recommend.DefaultLimit, 25)
	setInt(&c.Recommend.CacheSize, 64)
	setInt(&c.Recommend.CacheTTLSec, 900)
	setInt(&c.Recommend.TrendingWindowDays, 365)
	setInt(&c.Recommend.TopicCount, 3)
	setInt(&c.Recommend.SuggestedFilterCount, 10)
}

func setInt(p *int, def int) {
	if *p <= 0 {
		*p = def
	}
}

func setStr(p *string, def string) {
	if *p == "" {
		*p = def
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if len(c.Database.Addrs) == 0 {
		errs = append(errs, errors.New("database.addrs is required"))
	}
	if _, err := db.ParseVectorAlgorithm(c.Index.Algorithm); err != nil {
		errs = append(errs, fmt.Errorf("index.algorithm: %w", err))
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, errors.New("embedding.dimensions must be positive"))
	}
	if t := c.Cache.SimilarityThreshold; t != nil && (*t < -1 || *t > 1) {
		errs = append(errs, fmt.Errorf("cache.similarity_threshold must be within [-1, 1], got %v", *t))
	}
	if c.Ranking.RelevanceWeight < 0 || c.Ranking.BoostWeight < 0 {
		errs = append(errs, errors.New("ranking weights must be non-negative"))
	}
	if _, err := time.Parse(time.DateOnly, c.Ranking.FallbackDate); err != nil {
		errs = append(errs, fmt.Errorf("ranking.fallback_date must be YYYY-MM-DD, got %q", c.Ranking.FallbackDate))
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit || c.Search.TextDefaultLimit > c.Search.MaxLimit {
		errs = append(errs, fmt.Errorf("search default limits must not exceed search.max_limit (%d)", c.Search.MaxLimit))
	}
	for i, k := range c.Auth.APIKeys {
		if strings.TrimSpace(k) == "" {
			errs = append(errs, fmt.Errorf("auth.api_keys[%d] is empty", i))
		}
	}

	return errors.Join(errs...)
}

// CacheTTL is the semantic cache default TTL.
func (c *Config) CacheTTL() time.Duration { return time.Duration(c.Cache.TTLSec) * time.Second }

// VectorAlgorithm parses index.algorithm. Validate guarantees it parses.
func (c *Config) VectorAlgorithm() db.VectorAlgorithm {
	algo, _ := db.ParseVectorAlgorithm(c.Index.Algorithm)
	return algo
}

// FallbackDate parses ranking.fallback_date. Validate guarantees it parses.
func (c *Config) FallbackDate() time.Time {
	t, _ := time.Parse(time.DateOnly, c.Ranking.FallbackDate)
	return t
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := env + ".yaml"

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to this source file, for tests run from package dirs
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
