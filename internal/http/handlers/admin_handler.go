package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/http/dto"
	"github.com/xcro-market/backend/internal/middleware"
	"github.com/xcro-market/backend/internal/models"
	"github.com/xcro-market/backend/internal/services"
)

type AdminHandler struct {
	accounts     *services.AccountService
	auctions     *services.AuctionService
	transactions *services.TransactionService
	escrow       *services.EscrowService
	log          *zap.Logger
}

func NewAdminHandler(
	accounts *services.AccountService,
	auctions *services.AuctionService,
	transactions *services.TransactionService,
	escrow *services.EscrowService,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		accounts:     accounts,
		auctions:     auctions,
		transactions: transactions,
		escrow:       escrow,
		log:          log,
	}
}

func actorID(c *fiber.Ctx) *uuid.UUID {
	id := middleware.GetAccountID(c)
	return &id
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	limit, offset = 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func (h *AdminHandler) CreateSellerInvite(c *fiber.Ctx) error {
	inv, err := h.accounts.CreateSellerInvite(c.UserContext(), actorID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return created(c, inv)
}

func (h *AdminHandler) ListSellerInvites(c *fiber.Ctx) error {
	links, err := h.accounts.ListInvites(c.UserContext(), models.InviteRoleSeller)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, links)
}

// CreateBuyerInvite returns the readable password once; it is not stored.
func (h *AdminHandler) CreateBuyerInvite(c *fiber.Ctx) error {
	inv, err := h.accounts.CreateBuyerInvite(c.UserContext(), actorID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return created(c, inv)
}

func (h *AdminHandler) ListBuyerInvites(c *fiber.Ctx) error {
	links, err := h.accounts.ListInvites(c.UserContext(), models.InviteRoleBuyer)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, links)
}

func (h *AdminHandler) ListBuyers(c *fiber.Ctx) error {
	buyers, err := h.accounts.ListBuyers(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, buyers)
}

func (h *AdminHandler) ListAuctions(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	auctions, err := h.auctions.ListAll(c.UserContext(), c.Query("status"), limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, auctions)
}

func (h *AdminHandler) ActivateAuction(c *fiber.Ctx) error {
	var req dto.ActivateAuctionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	var id *uuid.UUID
	if req.AuctionID != nil && *req.AuctionID != "" {
		parsed, err := uuid.Parse(*req.AuctionID)
		if err != nil {
			return badRequest(c, "invalid auction_id")
		}
		id = &parsed
	}

	a, err := h.auctions.Activate(c.UserContext(), id, actorID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, a)
}

func (h *AdminHandler) GetSchedule(c *fiber.Ctx) error {
	sch, err := h.auctions.GetSchedule(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, sch)
}

func (h *AdminHandler) UpdateSchedule(c *fiber.Ctx) error {
	var req dto.UpdateScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	sch, err := h.auctions.UpdateSchedule(c.UserContext(), services.ScheduleInput{
		Enabled:         req.Enabled,
		StartAt:         req.StartAt,
		DurationSeconds: req.DurationSeconds,
	}, actorID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, sch)
}

func (h *AdminHandler) ListTransactions(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	txs, err := h.transactions.ListAll(c.UserContext(), limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, txs)
}

func (h *AdminHandler) LiveTransactions(c *fiber.Ctx) error {
	feed, err := h.transactions.LiveFeed(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, feed)
}

func (h *AdminHandler) ResetEscrow(c *fiber.Ctx) error {
	auctionID, valid := parseID(c, "auctionId")
	if !valid {
		return badRequest(c, "invalid auction id")
	}
	v, err := h.escrow.Reset(c.UserContext(), auctionID, actorID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, v)
}
