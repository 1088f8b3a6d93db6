package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/auth"
	"github.com/xcro-market/backend/internal/config"
	"github.com/xcro-market/backend/internal/http/dto"
	"github.com/xcro-market/backend/internal/rbac"
)

const (
	CtxAccountID = "account_id"
	CtxRole      = "role"
	CtxUsername  = "username"
)

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	h := c.Get("Authorization")
	if h == "" {
		return "", false
	}
	token := strings.TrimPrefix(h, "Bearer ")
	if token == h || token == "" {
		return "", false
	}
	return token, true
}

// AuthMiddleware accepts any valid token and stores its claims in locals.
func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return RequireRole(cfg, log)
}

// RequireRole rejects requests whose token is missing, invalid or carries a
// role outside roles. With no roles any authenticated caller passes.
func RequireRole(cfg *config.Config, log *zap.Logger, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, ok := BearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "missing or malformed authorization header"})
		}

		claims, err := auth.ParseJWT(cfg.JWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid or expired token"})
		}

		if len(roles) > 0 && !rbac.OneOf(claims.Role, roles...) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "insufficient role"})
		}

		c.Locals(CtxAccountID, claims.SubjectID)
		c.Locals(CtxRole, claims.Role)
		c.Locals(CtxUsername, claims.Username)
		return c.Next()
	}
}

// RequirePermission gates a route on an rbac permission of the caller's role.
// It must run after RequireRole.
func RequirePermission(perm string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rbac.HasPermission(GetRole(c), perm) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: "permission denied"})
		}
		return c.Next()
	}
}

func GetAccountID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxAccountID).(uuid.UUID)
	return id
}

func GetRole(c *fiber.Ctx) string {
	role, _ := c.Locals(CtxRole).(string)
	return role
}

func GetUsername(c *fiber.Ctx) string {
	name, _ := c.Locals(CtxUsername).(string)
	return name
}

// DeviceSecret guards the hardware bridge endpoints. The secret comes in the
// X-Escrow-Secret header or the "secret" query parameter.
func DeviceSecret(secret string, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		provided := c.Get("X-Escrow-Secret")
		if provided == "" {
			provided = c.Query("secret")
		}
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			log.Warn("escrow device auth failed", zap.String("ip", c.IP()), zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "unauthorized hardware bridge"})
		}
		return c.Next()
	}
}
