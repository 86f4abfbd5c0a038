package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/reposearch/internal/config"
	dbRedis "github.com/kailas-cloud/reposearch/internal/db/redis"
	"github.com/kailas-cloud/reposearch/internal/domain"
	logpkg "github.com/kailas-cloud/reposearch/internal/logger"
	"github.com/kailas-cloud/reposearch/internal/metrics"
	"github.com/kailas-cloud/reposearch/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/reposearch/internal/repository/search"
	"github.com/kailas-cloud/reposearch/internal/repository/semcache"
	openaiTransport "github.com/kailas-cloud/reposearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/reposearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/reposearch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/reposearch/internal/usecase/ingest"
	"github.com/kailas-cloud/reposearch/internal/usecase/ranking"
	recommenduc "github.com/kailas-cloud/reposearch/internal/usecase/recommend"
	searchuc "github.com/kailas-cloud/reposearch/internal/usecase/search"
	"github.com/kailas-cloud/reposearch/internal/version"
)

// embedder is what the decorator chain exposes.
type embedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// app is the composition root shared by every subcommand.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  *dbRedis.Store

	repo      *searchrepo.Repo
	search    *searchuc.Service
	recommend *recommenduc.Service
	health    *healthuc.Service
	ingest    *ingestuc.Service
}

func newApp(ctx context.Context, flags *rootFlags) (*app, error) {
	cfg, err := flags.load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(flags.env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Starting reposearch",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", flags.env),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,

		DialTimeout: time.Duration(cfg.Database.DialTimeoutSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterLLMMetrics()
	metrics.RegisterSearchMetrics()

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	docEmbedder := buildEmbedder(cfg, base, store, cfg.Embedding.DocumentInstruction, logger)
	queryEmbedder := buildEmbedder(cfg, base, store, cfg.Embedding.QueryInstruction, logger)

	chat := openaiTransport.NewChat(&openaiTransport.ChatConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		JSONMode:    cfg.LLM.JSONMode,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Logger:      logger,
	})

	repo := searchrepo.New(store, searchrepo.Config{
		KeyPrefix:       cfg.Storage.KeyPrefix,
		IndexName:       cfg.Storage.IndexName,
		Dimensions:      cfg.Embedding.Dimensions,
		VectorAlgorithm: cfg.VectorAlgorithm(),
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
		RRFK:            cfg.Search.RRFK,
	})

	cache := semcache.New[*searchuc.Response](semcache.Config{
		TTL:     cfg.CacheTTL(),
		Logger:  logger,
		Lookups: metrics.SemanticCacheLookupsTotal,
		Entries: metrics.SemanticCacheEntries,
	})

	ranker := ranking.New(ranking.Policy{
		RelevanceWeight: cfg.Ranking.RelevanceWeight,
		BoostWeight:     cfg.Ranking.BoostWeight,
		FallbackDate:    cfg.FallbackDate(),
	}, nil)

	searchSvc := searchuc.New(
		repo,
		queryEmbedder,
		openaiTransport.NewIntentExtractor(chat, nil),
		openaiTransport.NewSuggester(chat),
		ranker,
		cache,
		searchuc.Options{
			DefaultLimit:           cfg.Search.DefaultLimit,
			TextDefaultLimit:       cfg.Search.TextDefaultLimit,
			MaxLimit:               cfg.Search.MaxLimit,
			VectorFallbackMinScore: cfg.Search.VectorFallbackMinScore,
			SimilarityThreshold:    cfg.Cache.SimilarityThreshold,
			CacheTTL:               cfg.CacheTTL(),
		},
	)

	recommendSvc := recommenduc.New(repo, recommenduc.Options{
		CacheSize:            cfg.Recommend.CacheSize,
		CacheTTL:             time.Duration(cfg.Recommend.CacheTTLSec) * time.Second,
		TrendingWindow:       time.Duration(cfg.Recommend.TrendingWindowDays) * 24 * time.Hour,
		TopicCount:           cfg.Recommend.TopicCount,
		SuggestedFilterCount: cfg.Recommend.SuggestedFilterCount,
	})

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		repo:      repo,
		search:    searchSvc,
		recommend: recommendSvc,
		health:    healthuc.New(store, base, chat),
		ingest:    ingestuc.New(docEmbedder, repo, cfg.Embedding.BatchSize, logger),
	}, nil
}

func (a *app) Close() {
	a.store.Close()
	_ = a.logger.Sync()
}

// buildEmbedder assembles OpenAI -> Cached -> Instrumented -> Instruction.
// The instruction is outermost so the cache key includes it.
func buildEmbedder(
	cfg config.Config,
	base *openaiTransport.Embedder,
	store *dbRedis.Store,
	instruction string,
	logger *zap.Logger,
) embedder {
	var inner domain.Embedder = base
	if cfg.Embedding.CacheTTLSec > 0 {
		inner = embcache.New(base, store, embcache.Options{
			KeyPrefix:  cfg.Storage.KeyPrefix,
			Model:      cfg.Embedding.Model,
			TTL:        time.Duration(cfg.Embedding.CacheTTLSec) * time.Second,
			CacheTotal: metrics.EmbeddingCacheTotal,
			Logger:     logger,
		})
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(inner, embeddinguc.Config{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
		Logger:     logger,
	})

	if instruction != "" {
		return domain.NewInstructionEmbedder(instrumented, instruction)
	}
	return instrumented
}
