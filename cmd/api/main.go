// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"creatorpulse/internal/adapter/storage"
	"creatorpulse/internal/config"
	"creatorpulse/internal/domain/trend"
	"creatorpulse/internal/server"
	"creatorpulse/internal/service/detect"
	"creatorpulse/internal/service/ingest"
)

func main() {
	// Load .env if present, then configuration from environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	rdb, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	natsConn, err := initNATS(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsConn.Close()

	// Initialize storage adapters
	contentStore := storage.NewContentStore(db)
	trendStore := storage.NewTrendStore(db)
	historyStore := storage.NewHistoryStore(rdb, cfg.History.Retention)

	if err := contentStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure content schema: %v", err)
	}
	if err := trendStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure trend schema: %v", err)
	}

	// Initialize the detection pipeline
	tokenizer, err := detect.NewTokenizer()
	if err != nil {
		log.Fatalf("Failed to build tokenizer: %v", err)
	}

	extractor := detect.NewExtractor(tokenizer, detect.ExtractorConfig{
		MinRecords:       cfg.Detection.MinRecords,
		MaxVocabulary:    cfg.Detection.MaxVocabulary,
		MaxNGram:         cfg.Detection.MaxNGram,
		MinDocFrequency:  cfg.Detection.MinDocFrequency,
		MinClusters:      cfg.Detection.MinClusters,
		MaxClusters:      cfg.Detection.MaxClusters,
		MinClusterSize:   cfg.Detection.MinClusterSize,
		KeywordsPerTopic: cfg.Detection.KeywordsPerTopic,
		MaxIterations:    20,
	})

	velocity := detect.NewVelocityCalculator(historyStore, detect.VelocityConfig{
		MaxVelocity: cfg.Detection.MaxVelocity,
	})

	scorer := detect.NewScorer(detect.ScoringConfig{
		MentionWeight:   cfg.Scoring.MentionWeight,
		VelocityWeight:  cfg.Scoring.VelocityWeight,
		SourceWeight:    cfg.Scoring.SourceWeight,
		MentionDivisor:  cfg.Scoring.MentionDivisor,
		VelocityDivisor: cfg.Scoring.VelocityDivisor,
		SourceDivisor:   cfg.Scoring.SourceDivisor,
		HighThreshold:   cfg.Scoring.HighThreshold,
		MediumThreshold: cfg.Scoring.MediumThreshold,
	})

	engine := detect.NewEngine(
		contentStore,
		extractor,
		velocity,
		detect.NewValidator(cfg.Detection.MinSources),
		scorer,
		detect.NewExplainer(cfg.Detection.MaxEvidence),
		trendStore,
		natsConn,
		detect.EngineConfig{
			DefaultWindowDays:   cfg.Detection.DefaultWindowDays,
			MaxWindowDays:       cfg.Detection.MaxWindowDays,
			DefaultMaxTrends:    cfg.Detection.DefaultMaxTrends,
			MaxTrendsLimit:      cfg.Detection.MaxTrendsLimit,
			MaxHistoryDays:      cfg.Detection.MaxHistoryDays,
			StaleAfter:          cfg.Detection.StaleAfter,
			MaintenanceInterval: cfg.Detection.MaintenanceInterval,
			EventsTopic:         cfg.Detection.EventsTopic,
		},
	)

	// Surface high-confidence trends in the service log
	engine.RegisterTrendHandler(func(t trend.Trend) error {
		if t.ConfidenceLevel == trend.ConfidenceHigh {
			log.Printf("High confidence trend for %s: %s (score %.2f)", t.TenantID, t.Topic, t.StrengthScore)
		}
		return nil
	})

	// Start background maintenance
	if err := engine.Start(ctx); err != nil {
		log.Fatalf("Failed to start detection engine: %v", err)
	}

	// Initialize the ingestion path
	ingestor := ingest.NewService(contentStore, historyStore, tokenizer)

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		engine,
		ingestor,
		natsConn,
		cfg.Detection.EventsTopic,
	)

	// Start HTTP server
	go func() {
		log.Printf("Starting HTTP server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Println("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Graceful shutdown
	log.Println("Shutting down services...")

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := engine.Stop(shutdownCtx); err != nil {
		log.Printf("Detection engine shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize Redis connection for the historical store
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}

	return rdb, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
