package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/events"
	"github.com/xcro-market/backend/internal/models"
	"github.com/xcro-market/backend/internal/repositories"
	"github.com/xcro-market/backend/internal/vault"
	"github.com/xcro-market/backend/internal/wallet"
)

const maxNotesLen = 1000

type TransactionService struct {
	txs       TransactionStore
	auctions  AuctionStore
	buyers    BuyerStore
	escrow    *EscrowService
	audit     AuditStore
	vault     *vault.Vault
	publisher events.Publisher
	feedLimit int
	log       *zap.Logger
}

func NewTransactionService(
	txs TransactionStore,
	auctions AuctionStore,
	buyers BuyerStore,
	escrow *EscrowService,
	audit AuditStore,
	v *vault.Vault,
	publisher events.Publisher,
	feedLimit int,
	log *zap.Logger,
) *TransactionService {
	if feedLimit <= 0 {
		feedLimit = 25
	}
	return &TransactionService{
		txs:       txs,
		auctions:  auctions,
		buyers:    buyers,
		escrow:    escrow,
		audit:     audit,
		vault:     v,
		publisher: publisher,
		feedLimit: feedLimit,
		log:       log,
	}
}

type CreateTransactionInput struct {
	AuctionID       uuid.UUID
	WalletAddress   string
	Currency        string
	TransactionHash *string
	Notes           *string
}

// Purchase is a recorded transaction plus the purchase key the buyer must
// present to the escrow device.
type Purchase struct {
	Transaction *models.Transaction `json:"transaction"`
	PurchaseKey string              `json:"purchase_key"`
	Escrow      models.EscrowView   `json:"escrow"`
}

// CreateTransaction records the winner's payment for a completed auction
// and issues the escrow purchase key.
func (s *TransactionService) CreateTransaction(ctx context.Context, buyerID uuid.UUID, in CreateTransactionInput) (*Purchase, error) {
	currency := wallet.NormalizeCurrency(in.Currency)
	addr, err := wallet.ValidateAddress(currency, in.WalletAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.Notes != nil && len(*in.Notes) > maxNotesLen {
		return nil, invalid("notes must be at most %d characters", maxNotesLen)
	}
	if in.TransactionHash != nil {
		h := strings.TrimSpace(*in.TransactionHash)
		in.TransactionHash = &h
		if h == "" {
			in.TransactionHash = nil
		}
	}

	a, err := s.auctions.GetByID(ctx, in.AuctionID)
	if err != nil {
		return nil, notFound(err, "auction")
	}
	if a.Status != models.AuctionStatusCompleted {
		return nil, fmt.Errorf("%w: auction is %s", ErrInvalidTransition, a.Status)
	}
	if a.WinnerBuyerID == nil || *a.WinnerBuyerID != buyerID {
		return nil, ErrNotWinner
	}
	existing, err := s.txs.GetByAuctionID(ctx, a.ID)
	switch {
	case err == nil:
		return s.reissue(ctx, a, existing, buyerID)
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	encAddr, err := s.vault.Encrypt(addr)
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		ID:                     uuid.New(),
		BuyerID:                buyerID,
		AuctionID:              a.ID,
		ItemName:               a.Title,
		Amount:                 a.CurrentPrice,
		Currency:               currency,
		WalletAddressEncrypted: encAddr,
		TransactionHash:        in.TransactionHash,
		Notes:                  in.Notes,
		Status:                 models.TransactionStatusConfirmed,
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			if existing, gerr := s.txs.GetByAuctionID(ctx, a.ID); gerr == nil {
				return s.reissue(ctx, a, existing, buyerID)
			}
			return nil, fmt.Errorf("%w: auction already purchased", ErrConflict)
		}
		return nil, err
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorID:    &buyerID,
		ActorType:  "buyer",
		Action:     "transaction_created",
		EntityType: "transaction",
		EntityID:   &tx.ID,
		Meta:       map[string]any{"auction_id": a.ID.String(), "amount": tx.Amount.String(), "currency": currency},
	})
	_ = s.publisher.Publish(ctx, events.StreamAuction, events.Event{
		Type: events.EventPurchaseCreated,
		Payload: map[string]any{
			"auction_id": a.ID.String(),
			"item_name":  tx.ItemName,
			"amount":     tx.Amount.String(),
			"currency":   currency,
		},
	})
	s.log.Info("transaction recorded",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("auction_id", a.ID.String()),
	)

	return s.issue(ctx, a.ID, tx)
}

// reissue handles a purchase attempt on an auction that already has a
// transaction. The winner gets a new purchase key while the escrow awaits
// purchase: after an admin reset, or when issuing failed after the
// transaction was stored. Any other escrow state makes it a duplicate
// purchase.
func (s *TransactionService) reissue(ctx context.Context, a *models.Auction, tx *models.Transaction, buyerID uuid.UUID) (*Purchase, error) {
	if tx.BuyerID != buyerID {
		return nil, fmt.Errorf("%w: auction already purchased", ErrConflict)
	}
	s.log.Info("reissuing purchase key",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("auction_id", a.ID.String()),
	)
	return s.issue(ctx, a.ID, tx)
}

func (s *TransactionService) issue(ctx context.Context, auctionID uuid.UUID, tx *models.Transaction) (*Purchase, error) {
	rec, err := s.escrow.IssuePurchaseKey(ctx, auctionID, tx.BuyerID, tx.ID)
	if errors.Is(err, ErrInvalidTransition) {
		return nil, fmt.Errorf("%w: auction already purchased", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("issue purchase key: %w", err)
	}

	out := &Purchase{Transaction: tx, Escrow: rec.View(models.EscrowViewOptions{})}
	if rec.PurchaseKey != nil {
		out.PurchaseKey = *rec.PurchaseKey
	}
	return out, nil
}

func (s *TransactionService) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Transaction, error) {
	return s.txs.ListByBuyer(ctx, buyerID)
}

// AdminTransaction exposes the decrypted payout address to admins.
type AdminTransaction struct {
	models.Transaction
	WalletAddress *string `json:"wallet_address"`
}

func (s *TransactionService) ListAll(ctx context.Context, limit, offset int) ([]AdminTransaction, error) {
	txs, err := s.txs.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]AdminTransaction, 0, len(txs))
	for _, t := range txs {
		out = append(out, AdminTransaction{Transaction: t, WalletAddress: s.vault.SafeDecrypt(&t.WalletAddressEncrypted)})
	}
	return out, nil
}

// LiveFeed returns the latest transactions with buyers shown by codename or
// a masked username.
func (s *TransactionService) LiveFeed(ctx context.Context) ([]models.LiveFeedEntry, error) {
	txs, err := s.txs.List(ctx, s.feedLimit, 0)
	if err != nil {
		return nil, err
	}

	names := map[uuid.UUID]string{}
	out := make([]models.LiveFeedEntry, 0, len(txs))
	for _, t := range txs {
		name, ok := names[t.BuyerID]
		if !ok {
			name = s.buyerAlias(ctx, t.BuyerID)
			names[t.BuyerID] = name
		}
		out = append(out, models.LiveFeedEntry{
			ID:        t.ID,
			ItemName:  t.ItemName,
			Amount:    t.Amount,
			Currency:  t.Currency,
			Buyer:     name,
			CreatedAt: t.CreatedAt,
		})
	}
	return out, nil
}

func (s *TransactionService) buyerAlias(ctx context.Context, id uuid.UUID) string {
	b, err := s.buyers.GetByID(ctx, id)
	if err != nil {
		return "anonymous"
	}
	if b.Codename != nil && *b.Codename != "" {
		return *b.Codename
	}
	return maskName(b.Username)
}

func maskName(s string) string {
	if len(s) <= 8 {
		return s[:min(len(s), 2)] + "***"
	}
	return s[:8] + "***"
}
