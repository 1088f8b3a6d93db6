package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/auth"
	"github.com/xcro-market/backend/internal/config"
	"github.com/xcro-market/backend/internal/http/handlers"
	"github.com/xcro-market/backend/internal/middleware"
	"github.com/xcro-market/backend/internal/rbac"
)

// NewApp builds a fiber app with the shared JSON error handler.
func NewApp(name string, log *zap.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      name,
		ErrorHandler: handlers.ErrorHandler(log),
		BodyLimit:    8 * 1024 * 1024,
	})
}

func useCommon(app *fiber.App, log *zap.Logger) {
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-Escrow-Secret, X-Telegram-Init-Data",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))
}

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	auctionHandler *handlers.AuctionHandler,
	sellerHandler *handlers.SellerHandler,
	buyerHandler *handlers.BuyerHandler,
	escrowHandler *handlers.EscrowHandler,
	healthHandler *handlers.HealthHandler,
	wsHub *handlers.WSHub,
) {
	useCommon(app, log)

	app.Get("/health", healthHandler.Health)

	api := app.Group("/api/v1")

	api.Get("/health", healthHandler.Health)
	api.Get("/bot/health", healthHandler.BotHealth)

	// Hardware bridge, authenticated by shared secret and exempt from rate limiting
	device := api.Group("/escrow/device", middleware.DeviceSecret(cfg.EscrowDeviceSecret, log))
	device.Get("/pending", escrowHandler.DevicePending)
	device.Get("/item-pending", escrowHandler.DeviceItemPending)
	device.Post("/confirm", escrowHandler.DeviceConfirm)
	device.Post("/item-ack", escrowHandler.DeviceItemAck)
	device.Post("/purchase-ack", escrowHandler.DevicePurchaseAck)

	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute))

	// Auth (public)
	api.Post("/auth/admin", authHandler.AdminLogin)
	api.Post("/auth/seller/register", authHandler.SellerRegister)
	api.Post("/auth/seller/login", authHandler.SellerLogin)
	api.Post("/auth/seller/code", authHandler.SellerCodeLogin)
	api.Get("/auth/seller/invites/:code", authHandler.VerifyInvite)
	api.Post("/auth/buyer/login", authHandler.BuyerLogin)

	// Auctions (public reads)
	api.Get("/auctions/active", auctionHandler.ListActive)
	api.Get("/auctions/schedule", auctionHandler.Schedule)
	api.Get("/auctions/:id", auctionHandler.GetAuction)
	api.Get("/auctions/:id/bids", auctionHandler.ListBids)

	anyRole := middleware.AuthMiddleware(cfg, log)
	sellerOnly := middleware.RequireRole(cfg, log, auth.RoleSeller)
	buyerOnly := middleware.RequireRole(cfg, log, auth.RoleBuyer)

	api.Post("/auctions", sellerOnly, middleware.RequirePermission(rbac.PermCreateAuction), auctionHandler.CreateAuction)
	api.Post("/auctions/:id/bids", buyerOnly, middleware.RequirePermission(rbac.PermPlaceBid), auctionHandler.PlaceBid)

	// Seller
	seller := api.Group("/seller", sellerOnly)
	seller.Get("/me", sellerHandler.GetMe)
	seller.Get("/auctions", sellerHandler.MyAuctions)

	// Buyer
	buyer := api.Group("/buyer", buyerOnly)
	buyer.Get("/me", buyerHandler.GetMe)
	buyer.Post("/profile", buyerHandler.SetupProfile)
	buyer.Get("/transactions", buyerHandler.MyTransactions)
	buyer.Post("/transactions", middleware.RequirePermission(rbac.PermPurchase), buyerHandler.CreateTransaction)

	// Escrow
	api.Post("/escrow/allocate", anyRole, middleware.RequirePermission(rbac.PermAllocateEscrow), escrowHandler.Allocate)
	api.Get("/escrow/:auctionId", anyRole, middleware.RequirePermission(rbac.PermViewEscrow), escrowHandler.Status)

	// Admin
	admin := api.Group("/admin", middleware.RequireRole(cfg, log, auth.RoleAdmin))
	admin.Post("/invites/seller", middleware.RequirePermission(rbac.PermManageInvites), adminHandler.CreateSellerInvite)
	admin.Get("/invites/seller", middleware.RequirePermission(rbac.PermManageInvites), adminHandler.ListSellerInvites)
	admin.Post("/invites/buyer", middleware.RequirePermission(rbac.PermManageInvites), adminHandler.CreateBuyerInvite)
	admin.Get("/invites/buyer", middleware.RequirePermission(rbac.PermManageInvites), adminHandler.ListBuyerInvites)
	admin.Get("/buyers", middleware.RequirePermission(rbac.PermViewBuyers), adminHandler.ListBuyers)
	admin.Get("/auctions", adminHandler.ListAuctions)
	admin.Post("/auctions/activate", middleware.RequirePermission(rbac.PermActivateAuction), adminHandler.ActivateAuction)
	admin.Get("/schedule", middleware.RequirePermission(rbac.PermManageSchedule), adminHandler.GetSchedule)
	admin.Put("/schedule", middleware.RequirePermission(rbac.PermManageSchedule), adminHandler.UpdateSchedule)
	admin.Get("/transactions", middleware.RequirePermission(rbac.PermViewTransactions), adminHandler.ListTransactions)
	admin.Get("/live-transactions", middleware.RequirePermission(rbac.PermViewTransactions), adminHandler.LiveTransactions)
	admin.Post("/escrow/:auctionId/reset", middleware.RequirePermission(rbac.PermResetEscrow), adminHandler.ResetEscrow)

	// WebSocket
	if wsHub != nil {
		app.Use("/ws", handlers.WSUpgradeMiddleware())
		app.Get("/ws", websocket.New(wsHub.HandleWS))
	}
}

// SetupCodebotRouter mounts the access-code service routes. Deciding on
// requests needs an admin token signed with the shared JWT secret.
func SetupCodebotRouter(app *fiber.App, cfg *config.Config, log *zap.Logger, rdb *redis.Client, h *handlers.AccessHandler) {
	useCommon(app, log)

	app.Get("/health", h.Health)
	app.Get("/check-code/:code", h.CheckCode)
	app.Post("/redeem-code/:code", h.RedeemCode)

	app.Post("/request-code", middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute), h.RequestCode)

	admin := middleware.RequireRole(cfg, log, auth.RoleAdmin)
	app.Post("/approve-request", admin, h.Approve)
	app.Post("/reject-request", admin, h.Reject)
	app.Get("/requests", admin, h.List)
}
