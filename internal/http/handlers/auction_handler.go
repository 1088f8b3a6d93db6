package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/http/dto"
	"github.com/xcro-market/backend/internal/middleware"
	"github.com/xcro-market/backend/internal/services"
)

type AuctionHandler struct {
	auctions *services.AuctionService
	log      *zap.Logger
}

func NewAuctionHandler(auctions *services.AuctionService, log *zap.Logger) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, log: log}
}

func (h *AuctionHandler) ListActive(c *fiber.Ctx) error {
	auctions, err := h.auctions.ListActive(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, auctions)
}

func (h *AuctionHandler) Schedule(c *fiber.Ctx) error {
	st, err := h.auctions.ScheduleStatus(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, st)
}

func (h *AuctionHandler) GetAuction(c *fiber.Ctx) error {
	id, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid auction id")
	}
	a, err := h.auctions.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, a)
}

func (h *AuctionHandler) ListBids(c *fiber.Ctx) error {
	id, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid auction id")
	}
	bids, err := h.auctions.ListBids(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, bids)
}

// CreateAuction queues a lot for the calling seller and returns its item key.
func (h *AuctionHandler) CreateAuction(c *fiber.Ctx) error {
	var req dto.CreateAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	out, err := h.auctions.CreateAuction(c.UserContext(), middleware.GetAccountID(c), services.CreateAuctionInput{
		Title:              req.Title,
		Description:        req.Description,
		ItemType:           req.ItemType,
		StartingPrice:      req.StartingPrice,
		ReservePrice:       req.ReservePrice,
		DurationSeconds:    req.DurationSeconds,
		NFTTokenID:         req.NFTTokenID,
		NFTContractAddress: req.NFTContractAddress,
		Scan3DURL:          req.Scan3DURL,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return created(c, out)
}

func (h *AuctionHandler) PlaceBid(c *fiber.Ctx) error {
	id, valid := parseID(c, "id")
	if !valid {
		return badRequest(c, "invalid auction id")
	}
	var req dto.PlaceBidRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	bid, err := h.auctions.PlaceBid(c.UserContext(), middleware.GetAccountID(c), id, req.Amount, req.TransactionHash)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return created(c, bid.Public())
}
