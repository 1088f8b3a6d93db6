package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/http/dto"
	"github.com/xcro-market/backend/internal/middleware"
	"github.com/xcro-market/backend/internal/services"
)

type BuyerHandler struct {
	accounts     *services.AccountService
	transactions *services.TransactionService
	log          *zap.Logger
}

func NewBuyerHandler(accounts *services.AccountService, transactions *services.TransactionService, log *zap.Logger) *BuyerHandler {
	return &BuyerHandler{accounts: accounts, transactions: transactions, log: log}
}

func (h *BuyerHandler) GetMe(c *fiber.Ctx) error {
	buyer, err := h.accounts.Buyer(c.UserContext(), middleware.GetAccountID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, buyer)
}

func (h *BuyerHandler) SetupProfile(c *fiber.Ctx) error {
	var req dto.SetupProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	buyer, err := h.accounts.SetupProfile(c.UserContext(), middleware.GetAccountID(c), req.RealName)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, buyer)
}

func (h *BuyerHandler) MyTransactions(c *fiber.Ctx) error {
	txs, err := h.transactions.ListForBuyer(c.UserContext(), middleware.GetAccountID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, txs)
}

// CreateTransaction records the winner's payment and hands back the
// purchase key for the escrow device.
func (h *BuyerHandler) CreateTransaction(c *fiber.Ctx) error {
	var req dto.CreateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	auctionID, err := uuid.Parse(req.AuctionID)
	if err != nil {
		return badRequest(c, "invalid auction_id")
	}

	p, err := h.transactions.CreateTransaction(c.UserContext(), middleware.GetAccountID(c), services.CreateTransactionInput{
		AuctionID:       auctionID,
		WalletAddress:   req.WalletAddress,
		Currency:        req.Currency,
		TransactionHash: req.TransactionHash,
		Notes:           req.Notes,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return created(c, p)
}
