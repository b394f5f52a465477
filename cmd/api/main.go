package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jeevansetu/telehealth-platform/internal/api/router"
	"github.com/jeevansetu/telehealth-platform/internal/assistant"
	"github.com/jeevansetu/telehealth-platform/internal/audit"
	"github.com/jeevansetu/telehealth-platform/internal/cases"
	appconfig "github.com/jeevansetu/telehealth-platform/internal/config"
	"github.com/jeevansetu/telehealth-platform/internal/observability/metrics"
	"github.com/jeevansetu/telehealth-platform/internal/profiles"
	"github.com/jeevansetu/telehealth-platform/internal/realtime"
	"github.com/jeevansetu/telehealth-platform/internal/records"
	"github.com/jeevansetu/telehealth-platform/pkg/logging"
)

func main() {
	// Best-effort .env for local development; real deployments set env vars.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telehealth-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	// Separate database/sql handle for the audit trail.
	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open audit db handle", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	registry := prometheus.NewRegistry()
	caseMetrics := metrics.NewCaseMetrics(registry)
	assistantMetrics := metrics.NewAssistantMetrics(registry)

	// Stores and services.
	caseStore := cases.NewPostgresStore(pool)
	profileRepo := profiles.NewRepository(pool)
	recordsRepo := records.NewRepository(pool)
	auditLog := audit.NewService(sqlDB)

	hub := realtime.NewHub(logger)

	coordinator := cases.NewCoordinator(caseStore, profileRepo, hub, auditLog, caseMetrics, logger, cfg.ClaimTTL)
	reviews := cases.NewReviewService(caseStore, hub, caseMetrics, logger)
	reclaimer := cases.NewReclaimer(caseStore, caseMetrics, logger, cfg.ReclaimInterval)

	// Assistant stack: Gemini when a key is present, gateway otherwise.
	var llm assistant.Client
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		// Gateway model ids carry a provider prefix the native API rejects.
		modelID := strings.TrimPrefix(cfg.AIModel, "google/")
		gemini, err := assistant.NewGeminiClient(ctx, cfg.GeminiAPIKey, modelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		llm = gemini
	} else {
		gateway, err := assistant.NewGatewayClient(cfg.AIGatewayBaseURL, cfg.AIGatewayAPIKey, cfg.AIModel, cfg.AITimeout)
		if err != nil {
			logger.Error("failed to create gateway client", "error", err)
			os.Exit(1)
		}
		llm = gateway
	}

	// Chat turns are durable in Postgres; redis fronts them as the
	// low-latency context cache when available.
	var history assistant.History = assistant.NewMessageStore(pool, cfg.ChatHistoryLimit)
	if redisClient := buildRedisClient(ctx, cfg, logger); redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		cache := assistant.NewHistoryStore(redisClient, cfg.ChatHistoryLimit, cfg.ChatHistoryTTL)
		history = assistant.NewTieredHistory(cache, history)
	}

	chatService := assistant.NewChatService(llm, history, caseStore, auditLog, assistantMetrics, logger)
	analysisService := assistant.NewAnalysisService(llm, caseStore, auditLog, assistantMetrics, logger)

	// Handlers.
	casesHandler := cases.NewHandler(coordinator, reviews, auditLog, caseMetrics, logger)
	assistantHandler := assistant.NewHandler(chatService, analysisService, logger)
	recordsHandler := records.NewHandler(recordsRepo, logger)
	realtimeHandler := realtime.NewHandler(hub, originChecker(cfg.CORSAllowedOrigins), logger)

	r := router.New(&router.Config{
		Logger:           logger,
		CasesHandler:     casesHandler,
		AssistantHandler: assistantHandler,
		RecordsHandler:   recordsHandler,
		RealtimeHandler:  realtimeHandler,
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),

		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	// Background reclamation of expired claims.
	go reclaimer.Run(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildRedisClient returns a configured Redis client or nil when chat
// history caching is disabled or the server is unreachable.
func buildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, chat history disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := strings.TrimRight(r.Header.Get("Origin"), "/")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
