package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/middleware"
	"github.com/xcro-market/backend/internal/services"
)

type SellerHandler struct {
	accounts *services.AccountService
	auctions *services.AuctionService
	log      *zap.Logger
}

func NewSellerHandler(accounts *services.AccountService, auctions *services.AuctionService, log *zap.Logger) *SellerHandler {
	return &SellerHandler{accounts: accounts, auctions: auctions, log: log}
}

func (h *SellerHandler) GetMe(c *fiber.Ctx) error {
	seller, err := h.accounts.Seller(c.UserContext(), middleware.GetAccountID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, seller)
}

func (h *SellerHandler) MyAuctions(c *fiber.Ctx) error {
	auctions, err := h.auctions.ListBySeller(c.UserContext(), middleware.GetAccountID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, auctions)
}
