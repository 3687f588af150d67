// main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"toolcart/cmd"
	"toolcart/internal/data/dynamo"
	"toolcart/internal/data/repository"
	"toolcart/internal/gateway"
	"toolcart/internal/wire"
	"toolcart/pkg/database"
	"toolcart/pkg/mailer"
	"toolcart/pkg/metrics"
	"toolcart/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	for _, warning := range config.Warnings() {
		logger.Warn("Configuration warning", zap.String("warning", warning))
	}

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.Bool("production", config.App.Production),
		zap.String("secret_store", config.Secret.Store),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	if config.Secret.Store == utils.SecretStoreDynamo {
		client, err := dynamo.NewClient(ctx, config.Dynamo)
		if err != nil {
			logger.Fatal("Failed to create DynamoDB client", zap.Error(err))
		}
		repos = repos.WithSecretStore(dynamo.NewSecretStore(client, config.Dynamo.SecretsTable, logger))
		logger.Info("Secrets stored in DynamoDB", zap.String("table", config.Dynamo.SecretsTable))
	}

	m := metrics.New(prometheus.NewRegistry())

	gw, err := gateway.New(gateway.ConfigFrom(config.Payment, config.App.Production), logger, m)
	if err != nil {
		logger.Fatal("Failed to create payment gateway client", zap.Error(err))
	}

	// Wire all dependencies
	app := wire.Wiring(ctx, wire.Dependencies{
		Repo:    repos,
		Gateway: gw,
		Mailer:  mailer.NewMailer(config.Email, logger),
		Metrics: m,
		DB:      db,
	}, config, logger)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}
}
