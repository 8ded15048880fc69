package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"settlement/apps/settlement/internal/api"
	"settlement/apps/settlement/internal/chains"
	"settlement/apps/settlement/internal/config"
	"settlement/apps/settlement/internal/engine"
	"settlement/apps/settlement/internal/event_publisher"
	"settlement/apps/settlement/internal/repository"
	"settlement/apps/settlement/internal/settlement_feed"
	"settlement/apps/settlement/internal/verifier"
)

func main() {
	// Initialize zap logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	// Load configuration from environment variables
	cfg := config.NewConfig()

	logger.Info("Starting application with configuration",
		zap.String("db_url", cfg.DbURL),
		zap.String("kafka_broker", cfg.KafkaBroker),
		zap.String("kafka_topic", cfg.KafkaTopic),
		zap.Uint64("chain_id", cfg.ChainID),
		zap.Int("api_port", cfg.APIPort),
		zap.String("vkey_hash", cfg.VKeyHash),
	)

	registry := chains.NewChainRegistry()
	if !registry.IsSupported(cfg.ChainID) {
		logger.Fatal("Unsupported chain id", zap.Uint64("chain_id", cfg.ChainID))
	}

	// Connect to database
	db, err := sql.Open("postgres", cfg.DbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Initialize database tables
	if err := repository.InitMigration(db); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	orderRepository := repository.NewOrderRecordRepository(db, logger)
	outboxRepository := repository.NewOutboxRepository(db, logger)
	feedRepository := repository.NewFeedRepository(db, logger)

	// Load the Groth16 verifying key the settlement proofs are checked against
	vkBytes, err := os.ReadFile(cfg.VKeyPath)
	if err != nil {
		logger.Fatal("Failed to read verifying key", zap.String("path", cfg.VKeyPath), zap.Error(err))
	}
	vkeyHash := common.HexToHash(cfg.VKeyHash)
	proofVerifier, err := verifier.NewGroth16Verifier(vkBytes, vkeyHash, logger)
	if err != nil {
		logger.Fatal("Failed to create proof verifier", zap.Error(err))
	}

	settlementEngine := engine.NewEngine(cfg.ChainID, vkeyHash, proofVerifier, orderRepository, outboxRepository, logger)

	// Create event publisher
	eventPublisher, err := event_publisher.NewEventPublisher(cfg.KafkaBroker, cfg.KafkaTopic, logger, outboxRepository)
	if err != nil {
		logger.Fatal("Failed to create event publisher", zap.Error(err))
	}
	defer eventPublisher.Close()

	// Start event publisher in background
	go eventPublisher.StartPublishing()

	// Create settlement feed materializer
	materializer, err := settlement_feed.NewFeedMaterializer(cfg.KafkaBroker, cfg.KafkaTopic, logger, feedRepository)
	if err != nil {
		logger.Fatal("Failed to create feed materializer", zap.Error(err))
	}
	defer materializer.Close()

	// Start feed materializer in background
	go func() {
		if err := materializer.Start(); err != nil {
			logger.Fatal("Feed materializer failed", zap.Error(err))
		}
	}()

	// Create and start API server
	apiServer := api.NewServer(cfg.APIPort, settlementEngine, feedRepository, registry, cfg.ChainID, cfg.LightClientVKeyHash, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Received shutdown signal, starting graceful shutdown...")

	// Create a context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown API server gracefully
	if err := apiServer.Stop(ctx); err != nil {
		logger.Error("Error shutting down API server", zap.Error(err))
	}

	logger.Info("Application shutdown complete")
}
