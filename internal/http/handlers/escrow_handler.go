package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/http/dto"
	"github.com/xcro-market/backend/internal/middleware"
	"github.com/xcro-market/backend/internal/services"
)

type EscrowHandler struct {
	escrow *services.EscrowService
	log    *zap.Logger
}

func NewEscrowHandler(escrow *services.EscrowService, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrow: escrow, log: log}
}

func viewer(c *fiber.Ctx) services.Viewer {
	return services.Viewer{Role: middleware.GetRole(c), ID: middleware.GetAccountID(c)}
}

func (h *EscrowHandler) Allocate(c *fiber.Ctx) error {
	var req dto.AllocateEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	auctionID, err := uuid.Parse(req.AuctionID)
	if err != nil {
		return badRequest(c, "auction_id is required")
	}

	v, err := h.escrow.Allocate(c.UserContext(), auctionID, viewer(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, v)
}

func (h *EscrowHandler) Status(c *fiber.Ctx) error {
	auctionID, valid := parseID(c, "auctionId")
	if !valid {
		return badRequest(c, "invalid auction id")
	}
	v, err := h.escrow.Status(c.UserContext(), auctionID, viewer(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, v)
}

// Device endpoints. They sit behind middleware.DeviceSecret.

func (h *EscrowHandler) DevicePending(c *fiber.Ctx) error {
	pending, err := h.escrow.ListPendingPurchases(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, pending)
}

func (h *EscrowHandler) DeviceItemPending(c *fiber.Ctx) error {
	pending, err := h.escrow.ListPendingItemKeys(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, pending)
}

func (h *EscrowHandler) DeviceConfirm(c *fiber.Ctx) error {
	var req dto.DeviceConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	auctionID, err := uuid.Parse(req.AuctionID)
	if err != nil || req.PurchaseKey == "" {
		return badRequest(c, "auction_id and purchase_key are required")
	}

	rec, err := h.escrow.ConfirmRelease(c.UserContext(), auctionID, req.PurchaseKey)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.ReleaseResponse{AuctionID: rec.AuctionID.String(), Status: rec.Status}
	if rec.ItemKey != nil {
		out.ItemKey = *rec.ItemKey
	}
	return ok(c, out)
}

func (h *EscrowHandler) DeviceItemAck(c *fiber.Ctx) error {
	auctionID, err := h.ackAuction(c)
	if err != nil {
		return err
	}
	v, serr := h.escrow.MarkItemSynced(c.UserContext(), auctionID)
	if serr != nil {
		return writeError(c, h.log, serr)
	}
	return ok(c, v)
}

func (h *EscrowHandler) DevicePurchaseAck(c *fiber.Ctx) error {
	auctionID, err := h.ackAuction(c)
	if err != nil {
		return err
	}
	v, serr := h.escrow.MarkPurchaseSynced(c.UserContext(), auctionID)
	if serr != nil {
		return writeError(c, h.log, serr)
	}
	return ok(c, v)
}

func (h *EscrowHandler) ackAuction(c *fiber.Ctx) (uuid.UUID, error) {
	var req dto.DeviceAckRequest
	if err := c.BodyParser(&req); err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	id, err := uuid.Parse(req.AuctionID)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "auction_id is required")
	}
	return id, nil
}
