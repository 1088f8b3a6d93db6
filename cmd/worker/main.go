package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/config"
	"github.com/xcro-market/backend/internal/db"
	"github.com/xcro-market/backend/internal/events"
	"github.com/xcro-market/backend/internal/repositories"
	"github.com/xcro-market/backend/internal/services"
	"github.com/xcro-market/backend/internal/vault"
)

const inviteSweepInterval = 10 * time.Minute

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	v, err := vault.New(cfg.EncryptionKey)
	if err != nil {
		log.Fatal("failed to init vault", zap.Error(err))
	}

	// Repos
	auctionRepo := repositories.NewAuctionRepo(pool)
	escrowRepo := repositories.NewEscrowRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	escrowService := services.NewEscrowService(escrowRepo, auctionRepo, auditRepo, publisher, cfg.EscrowKeyBytes, log)
	auctionService := services.NewAuctionService(auctionRepo, repositories.NewScheduleRepo(pool), escrowService, auditRepo, v, publisher, services.NewRedisLocker(rdb), cfg, log)
	accountService := services.NewAccountService(
		repositories.NewSellerRepo(pool),
		repositories.NewBuyerRepo(pool),
		repositories.NewInviteRepo(pool),
		nil, auditRepo, v, cfg, log,
	)

	log.Info("worker started", zap.Duration("tick", cfg.AuctionTick))

	tickTicker := time.NewTicker(cfg.AuctionTick)
	sweepTicker := time.NewTicker(inviteSweepInterval)
	defer tickTicker.Stop()
	defer sweepTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-tickTicker.C:
			runTick(ctx, auctionService, log)
		case <-sweepTicker.C:
			runInviteSweep(ctx, accountService, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func runTick(ctx context.Context, auctionService *services.AuctionService, log *zap.Logger) {
	res, err := auctionService.Tick(ctx)
	if err != nil {
		log.Error("auction tick failed", zap.Error(err))
		return
	}
	if res.Skipped {
		return
	}
	for _, id := range res.Completed {
		log.Info("auction completed", zap.String("auction_id", id.String()))
	}
	if res.Activated != nil {
		log.Info("auction activated", zap.String("auction_id", res.Activated.String()))
	}
}

func runInviteSweep(ctx context.Context, accountService *services.AccountService, log *zap.Logger) {
	n, err := accountService.SweepExpiredInvites(ctx)
	if err != nil {
		log.Error("failed to sweep expired invites", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("expired invites removed", zap.Int64("count", n))
	}
}
