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
)

// Codebot issues access codes for sellers and buyers and forwards
// marketplace events to the admin chat.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, db.MigrationsFS(cfg.MigrationsPath), log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	telegram := services.NewTelegramClient(cfg.BotToken, log)
	accessService := services.NewAccessService(
		repositories.NewAccessRequestRepo(pool),
		services.NewRedisCodeCache(rdb),
		telegram,
		cfg.AdminChatID,
		log,
	)

	bridge := services.NewNotifyBridge(events.NewRedisSubscriber(rdb, log), telegram, cfg.AdminChatID, log)
	if err := bridge.Run(ctx); err != nil {
		log.Fatal("failed to start notify bridge", zap.Error(err))
	}

	app := apphttp.NewApp("xcro-codebot", log)
	apphttp.SetupCodebotRouter(app, cfg, log, rdb, handlers.NewAccessHandler(accessService, cfg, log))

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down codebot")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.CodebotPort)
	log.Info("starting codebot", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
