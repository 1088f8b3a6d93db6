package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/auth"
	"github.com/xcro-market/backend/internal/config"
	"github.com/xcro-market/backend/internal/http/dto"
	"github.com/xcro-market/backend/internal/services"
)

// AccessHandler serves the codebot API: access requests and code checks.
type AccessHandler struct {
	access *services.AccessService
	cfg    *config.Config
	log    *zap.Logger
}

func NewAccessHandler(access *services.AccessService, cfg *config.Config, log *zap.Logger) *AccessHandler {
	return &AccessHandler{access: access, cfg: cfg, log: log}
}

// RequestCode files an access request. When Telegram WebApp initData is
// supplied the requester is taken from it; otherwise from userId.
func (h *AccessHandler) RequestCode(c *fiber.Ctx) error {
	var req dto.AccessCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	initData := req.InitData
	if initData == "" {
		initData = c.Get("X-Telegram-Init-Data")
	}
	if initData != "" {
		user, err := auth.ParseWebAppUser(initData, h.cfg.BotToken, h.cfg.InitDataMaxAge)
		if err != nil {
			h.log.Debug("telegram init data rejected", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		req.UserID = user.ID
		req.Username = user.Username
	}

	ar, err := h.access.RequestCode(c.UserContext(), services.AccessRequestInput{
		TelegramUserID: req.UserID,
		Username:       req.Username,
		Type:           req.Type,
		Description:    req.Description,
		Photos:         req.Photos,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "requestId": ar.ID, "status": ar.Status})
}

func (h *AccessHandler) decide(c *fiber.Ctx, fn func(*fiber.Ctx, uuid.UUID) error) error {
	var req dto.DecideRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	id, err := uuid.Parse(req.RequestID)
	if err != nil {
		return badRequest(c, "requestId is required")
	}
	return fn(c, id)
}

func (h *AccessHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, func(c *fiber.Ctx, id uuid.UUID) error {
		ar, err := h.access.Approve(c.UserContext(), id)
		if err != nil {
			return writeError(c, h.log, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"code":    ar.Code,
			"userId":  ar.TelegramUserID,
			"type":    ar.RequestType,
		})
	})
}

func (h *AccessHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, func(c *fiber.Ctx, id uuid.UUID) error {
		ar, err := h.access.Reject(c.UserContext(), id)
		if err != nil {
			return writeError(c, h.log, err)
		}
		return c.JSON(fiber.Map{"success": true, "userId": ar.TelegramUserID, "type": ar.RequestType})
	})
}

func (h *AccessHandler) List(c *fiber.Ctx) error {
	reqs, err := h.access.List(c.UserContext(), c.Query("status"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, reqs)
}

// CheckCode answers 200 {valid:true,type} for approved codes and 404 otherwise.
func (h *AccessHandler) CheckCode(c *fiber.Ctx) error {
	res, err := h.access.CheckCode(c.UserContext(), c.Params("code"))
	if err != nil {
		h.log.Error("check code failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"valid": false, "message": "server error"})
	}
	if !res.Valid {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"valid": false, "message": "invalid or unapproved code"})
	}
	return c.JSON(res)
}

func (h *AccessHandler) RedeemCode(c *fiber.Ctx) error {
	err := h.access.RedeemCode(c.UserContext(), c.Params("code"))
	if errors.Is(err, services.ErrConflict) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": "code already redeemed"})
	}
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *AccessHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "service": "codebot"})
}
