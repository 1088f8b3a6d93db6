package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/http/dto"
	"github.com/xcro-market/backend/internal/services"
)

type AuthHandler struct {
	accounts *services.AccountService
	log      *zap.Logger
}

func NewAuthHandler(accounts *services.AccountService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, log: log}
}

func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Password == "" {
		return badRequest(c, "password is required")
	}

	sess, err := h.accounts.AdminLogin(c.UserContext(), req.Password)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, sess)
}

func (h *AuthHandler) SellerRegister(c *fiber.Ctx) error {
	var req dto.SellerRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	sess, err := h.accounts.RegisterSeller(c.UserContext(), req.Username, req.Password, req.InviteCode)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return created(c, sess)
}

func (h *AuthHandler) SellerLogin(c *fiber.Ctx) error {
	var req dto.SellerLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	sess, err := h.accounts.LoginSeller(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, sess)
}

// SellerCodeLogin signs a seller in with a bot-issued access code.
func (h *AuthHandler) SellerCodeLogin(c *fiber.Ctx) error {
	var req dto.CodeLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	sess, err := h.accounts.LoginWithCode(c.UserContext(), req.Code)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, sess)
}

func (h *AuthHandler) VerifyInvite(c *fiber.Ctx) error {
	link, err := h.accounts.VerifyInvite(c.UserContext(), c.Params("code"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.Map{"valid": true, "expires_at": link.ExpiresAt})
}

func (h *AuthHandler) BuyerLogin(c *fiber.Ctx) error {
	var req dto.BuyerLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	sess, err := h.accounts.LoginBuyer(c.UserContext(), req.Password)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, sess)
}
