package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/auth"
	"github.com/xcro-market/backend/internal/config"
	"github.com/xcro-market/backend/internal/http/handlers"
)

// The routes exercised here are rejected before any service is touched.
func newTestRouter(t *testing.T) (*fiber.App, *config.Config) {
	t.Helper()
	log := zap.NewNop()
	cfg := &config.Config{JWTSecret: "router-secret", EscrowDeviceSecret: "device-secret"}

	app := NewApp("xcro-test", log)
	SetupRouter(app, cfg, log, nil,
		handlers.NewAuthHandler(nil, log),
		handlers.NewAdminHandler(nil, nil, nil, nil, log),
		handlers.NewAuctionHandler(nil, log),
		handlers.NewSellerHandler(nil, nil, log),
		handlers.NewBuyerHandler(nil, nil, log),
		handlers.NewEscrowHandler(nil, log),
		handlers.NewHealthHandler(nil, log),
		nil,
	)
	return app, cfg
}

func TestRouterGuards(t *testing.T) {
	app, cfg := newTestRouter(t)

	sellerToken, err := auth.GenerateJWT(cfg.JWTSecret, uuid.New(), "shade", auth.RoleSeller, time.Hour)
	require.NoError(t, err)
	buyerToken, err := auth.GenerateJWT(cfg.JWTSecret, uuid.New(), "", auth.RoleBuyer, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		header map[string]string
		want   int
	}{
		{"health", "GET", "/health", "", nil, fiber.StatusOK},
		{"bot health unconfigured", "GET", "/api/v1/bot/health", "", nil, fiber.StatusServiceUnavailable},
		{"admin without token", "GET", "/api/v1/admin/buyers", "", nil, fiber.StatusUnauthorized},
		{"admin as seller", "GET", "/api/v1/admin/buyers", sellerToken, nil, fiber.StatusForbidden},
		{"seller route as buyer", "GET", "/api/v1/seller/me", buyerToken, nil, fiber.StatusForbidden},
		{"bid as seller", "POST", "/api/v1/auctions/" + uuid.NewString() + "/bids", sellerToken, nil, fiber.StatusForbidden},
		{"create auction as buyer", "POST", "/api/v1/auctions", buyerToken, nil, fiber.StatusForbidden},
		{"escrow status anonymous", "GET", "/api/v1/escrow/" + uuid.NewString(), "", nil, fiber.StatusUnauthorized},
		{"device without secret", "GET", "/api/v1/escrow/device/pending", "", nil, fiber.StatusUnauthorized},
		{"device wrong secret", "POST", "/api/v1/escrow/device/confirm", "", map[string]string{"X-Escrow-Secret": "nope"}, fiber.StatusUnauthorized},
		{"unknown route", "GET", "/api/v1/nothing-here", "", nil, fiber.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestCodebotRouterRequiresAdminToDecide(t *testing.T) {
	log := zap.NewNop()
	cfg := &config.Config{JWTSecret: "router-secret"}
	app := NewApp("codebot-test", log)
	SetupCodebotRouter(app, cfg, log, nil, handlers.NewAccessHandler(nil, cfg, log))

	sellerToken, err := auth.GenerateJWT(cfg.JWTSecret, uuid.New(), "shade", auth.RoleSeller, time.Hour)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/approve-request", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/requests", nil)
	req.Header.Set("Authorization", "Bearer "+sellerToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
