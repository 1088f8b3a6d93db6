package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/config"
	"github.com/xcro-market/backend/internal/db"
	"github.com/xcro-market/backend/internal/events"
	apphttp "github.com/xcro-market/backend/internal/http"
	"github.com/xcro-market/backend/internal/http/handlers"
	"github.com/xcro-market/backend/internal/repositories"
	"github.com/xcro-market/backend/internal/services"
	"github.com/xcro-market/backend/internal/vault"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, db.MigrationsFS(cfg.MigrationsPath), log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	v, err := vault.New(cfg.EncryptionKey)
	if err != nil {
		log.Fatal("failed to init vault", zap.Error(err))
	}

	// Repositories
	auctionRepo := repositories.NewAuctionRepo(pool)
	scheduleRepo := repositories.NewScheduleRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	sellerRepo := repositories.NewSellerRepo(pool)
	buyerRepo := repositories.NewBuyerRepo(pool)
	inviteRepo := repositories.NewInviteRepo(pool)
	txRepo := repositories.NewTransactionRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	botClient := services.NewBotClient(cfg.BotAPIURL, log)
	escrowService := services.NewEscrowService(escrowRepo, auctionRepo, auditRepo, publisher, cfg.EscrowKeyBytes, log)
	auctionService := services.NewAuctionService(auctionRepo, scheduleRepo, escrowService, auditRepo, v, publisher, services.NewRedisLocker(rdb), cfg, log)
	accountService := services.NewAccountService(sellerRepo, buyerRepo, inviteRepo, botClient, auditRepo, v, cfg, log)
	txService := services.NewTransactionService(txRepo, auctionRepo, buyerRepo, escrowService, auditRepo, v, publisher, cfg.LiveFeedLimit, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(accountService, log)
	adminHandler := handlers.NewAdminHandler(accountService, auctionService, txService, escrowService, log)
	auctionHandler := handlers.NewAuctionHandler(auctionService, log)
	sellerHandler := handlers.NewSellerHandler(accountService, auctionService, log)
	buyerHandler := handlers.NewBuyerHandler(accountService, txService, log)
	escrowHandler := handlers.NewEscrowHandler(escrowService, log)
	healthHandler := handlers.NewHealthHandler(botClient, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to start websocket hub", zap.Error(err))
	}

	app := apphttp.NewApp("xcro-api", log)
	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, adminHandler, auctionHandler, sellerHandler, buyerHandler, escrowHandler, healthHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
