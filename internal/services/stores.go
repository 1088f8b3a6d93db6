package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xcro-market/backend/internal/models"
	"github.com/xcro-market/backend/internal/repositories"
)

// Storage the services depend on. The pgx repositories satisfy these.

type AuctionStore interface {
	Create(ctx context.Context, a *models.Auction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Auction, error)
	GetActive(ctx context.Context) (*models.Auction, error)
	NextQueued(ctx context.Context) (*models.Auction, error)
	List(ctx context.Context, f repositories.AuctionFilter) ([]models.Auction, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	ListEnded(ctx context.Context, now time.Time) ([]models.Auction, error)
	Activate(ctx context.Context, id uuid.UUID, startedAt, endsAt time.Time) error
	Complete(ctx context.Context, id uuid.UUID, p repositories.CompleteParams) error
	PlaceBid(ctx context.Context, b *models.Bid) error
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error)
}

type ScheduleStore interface {
	Get(ctx context.Context) (*models.Schedule, error)
	Save(ctx context.Context, s *models.Schedule) error
}

type EscrowStore interface {
	GetByAuctionID(ctx context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error)
	EnsureItemKey(ctx context.Context, auctionID uuid.UUID, sellerID *uuid.UUID, itemKey string) (*models.EscrowRecord, error)
	SetPurchaseKey(ctx context.Context, auctionID, buyerID, transactionID uuid.UUID, purchaseKey string) (*models.EscrowRecord, error)
	MarkReleased(ctx context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error)
	Reset(ctx context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error)
	MarkItemSynced(ctx context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error)
	MarkPurchaseSynced(ctx context.Context, auctionID uuid.UUID) (*models.EscrowRecord, error)
	ListPendingPurchases(ctx context.Context) ([]models.EscrowRecord, error)
	ListPendingItemKeys(ctx context.Context) ([]models.EscrowRecord, error)
}

type SellerStore interface {
	Create(ctx context.Context, s *models.Seller) error
	CreateWithInvite(ctx context.Context, s *models.Seller, now time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	GetByUsername(ctx context.Context, username string) (*models.Seller, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Seller, error)
	Touch(ctx context.Context, id uuid.UUID) error
}

type BuyerStore interface {
	CreateWithInvite(ctx context.Context, b *models.Buyer, now time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Buyer, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Buyer, error)
	List(ctx context.Context) ([]models.Buyer, error)
	CodenameTaken(ctx context.Context, codename string) (bool, error)
	SetProfile(ctx context.Context, id uuid.UUID, realNameEncrypted, codename string) error
	Touch(ctx context.Context, id uuid.UUID) error
}

type InviteStore interface {
	Create(ctx context.Context, l *models.InviteLink) error
	GetByCode(ctx context.Context, code string) (*models.InviteLink, error)
	GetByPasswordLookup(ctx context.Context, lookup string) (*models.InviteLink, error)
	ListByRole(ctx context.Context, role string) ([]models.InviteLink, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type TransactionStore interface {
	Create(ctx context.Context, t *models.Transaction) error
	GetByAuctionID(ctx context.Context, auctionID uuid.UUID) (*models.Transaction, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Transaction, error)
	List(ctx context.Context, limit, offset int) ([]models.Transaction, error)
}

type AccessRequestStore interface {
	Create(ctx context.Context, a *models.AccessRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AccessRequest, error)
	GetByCode(ctx context.Context, code string) (*models.AccessRequest, error)
	PendingForUser(ctx context.Context, telegramUserID int64, requestType string) (*models.AccessRequest, error)
	ListByStatus(ctx context.Context, status string) ([]models.AccessRequest, error)
	Decide(ctx context.Context, id uuid.UUID, status string, code *string, now time.Time) (*models.AccessRequest, error)
	Redeem(ctx context.Context, code string, now time.Time) error
}

type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

var (
	_ AuctionStore       = (*repositories.AuctionRepo)(nil)
	_ ScheduleStore      = (*repositories.ScheduleRepo)(nil)
	_ EscrowStore        = (*repositories.EscrowRepo)(nil)
	_ SellerStore        = (*repositories.SellerRepo)(nil)
	_ BuyerStore         = (*repositories.BuyerRepo)(nil)
	_ InviteStore        = (*repositories.InviteRepo)(nil)
	_ TransactionStore   = (*repositories.TransactionRepo)(nil)
	_ AccessRequestStore = (*repositories.AccessRequestRepo)(nil)
	_ AuditStore         = (*repositories.AuditRepo)(nil)
)
