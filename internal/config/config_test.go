package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUCTION_TICK_MS", "")
	t.Setenv("ESCROW_KEY_BYTES", "")
	t.Setenv("API_PORT", "")

	cfg := Load()
	require.NotNil(t, cfg)
	assert.Equal(t, time.Second, cfg.AuctionTick)
	assert.Equal(t, 32, cfg.EscrowKeyBytes)
	assert.Equal(t, "5000", cfg.APIPort)
	assert.Equal(t, 7*24*time.Hour, cfg.SellerJWTExpiry)
	assert.Equal(t, 30*24*time.Hour, cfg.BuyerJWTExpiry)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUCTION_TICK_MS", "250")
	t.Setenv("ESCROW_KEY_BYTES", "-4")
	t.Setenv("ADMIN_CHAT_ID", "-100123")
	t.Setenv("INVITE_TTL_HOURS", "48")

	cfg := Load()
	assert.Equal(t, 250*time.Millisecond, cfg.AuctionTick)
	assert.Equal(t, 32, cfg.EscrowKeyBytes, "non-positive key size falls back to 32")
	assert.Equal(t, int64(-100123), cfg.AdminChatID)
	assert.Equal(t, 48*time.Hour, cfg.InviteTTL)
}

func TestGetEnvIntInvalid(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	assert.Equal(t, 7, getEnvInt("SOME_INT", 7))
}

func TestAdminLoginEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.AdminLoginEnabled())
	cfg.AdminPasswordHash = "$2a$10$abc"
	assert.True(t, cfg.AdminLoginEnabled())
}
