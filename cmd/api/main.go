package main

import (
	"context"
	"log"
	"net/http"
	"sort"
	"time"

	"affection-tracker/internal/classifier"
	"affection-tracker/internal/config"
	"affection-tracker/internal/db"
	apihttp "affection-tracker/internal/http"
	"affection-tracker/internal/repository"
	"affection-tracker/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	scoring, err := config.LoadScoring(cfg.ScoringConfigPath)
	if err != nil {
		logger.Fatal("load scoring config", zap.Error(err))
	}
	pipeline, err := service.NewScoringPipeline(scoring)
	if err != nil {
		logger.Fatal("scoring pipeline", zap.Error(err))
	}
	directives, err := service.NewDirectiveMapper(scoring.Bands)
	if err != nil {
		logger.Fatal("directive bands", zap.Error(err))
	}

	cls, err := classifier.New(cfg.ClassifierOptions("", weightLabels(scoring.Weights)), logger)
	if err != nil {
		logger.Fatal("classifier", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		}
		cancel()
	}

	var (
		store   service.SessionStore
		history repository.TurnReportRepository
	)
	switch cfg.StateBackend {
	case config.BackendRedis:
		store = service.NewRedisSessionStore(redisClient, cfg.SessionTTL)
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.Ping(ctx, pool); err != nil {
			logger.Fatal("db ping", zap.Error(err))
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
		store = repository.NewPgStateRepository(pool)
		history = repository.NewPgTurnReportRepository(pool)
	case config.BackendSQLite:
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			logger.Fatal("sqlite open", zap.Error(err))
		}
		defer conn.Close()
		store = repository.NewSQLiteStateRepository(conn)
		history = repository.NewSQLiteTurnReportRepository(conn)
	default:
		store = service.NewMemorySessionStore()
	}
	if history == nil {
		history = repository.NewMemoryTurnReportRepository()
	}

	var (
		sequencer service.TurnSequencer
		limiter   service.ClassifyRateLimiter
		revoked   service.TokenRevocationStore
	)
	if redisClient != nil {
		sequencer = service.NewRedisTurnSequencer(redisClient)
		revoked = service.NewRedisTokenRevocationStore(redisClient)
		if cfg.ClassifyRateMax > 0 {
			limiter = service.NewRedisClassifyRateLimiter(redisClient, cfg.ClassifyRateWindow, cfg.ClassifyRateMax)
		}
	} else if cfg.ClassifyRateMax > 0 {
		limiter = service.NewMemoryClassifyRateLimiter(cfg.ClassifyRateWindow, cfg.ClassifyRateMax)
	}

	turnSvc := service.NewTurnService(cls, pipeline, directives, store, sequencer, logger).
		WithRateLimiter(limiter).
		WithHistory(service.NewTurnHistoryService(history))

	var tokens *service.HostTokenService
	if cfg.JWTSecret != "" {
		tokens = service.NewHostTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL, revoked)
	} else {
		logger.Warn("jwt secret not configured, session routes are unauthenticated")
	}

	turnHandler := apihttp.NewTurnHandler(logger, turnSvc)
	router := apihttp.NewRouter(logger, turnHandler, tokens)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("state_backend", cfg.StateBackend),
		zap.String("classifier", cfg.ClassifierMode),
		zap.Int("combinations", len(scoring.Combinations)),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

func weightLabels(weights map[string]int) []string {
	labels := make([]string, 0, len(weights))
	for label := range weights {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
