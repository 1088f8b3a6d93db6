package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/auth"
	"github.com/xcro-market/backend/internal/events"
	"github.com/xcro-market/backend/internal/models"
	"github.com/xcro-market/backend/internal/repositories"
)

// Viewer identifies who is asking for an escrow record.
type Viewer struct {
	Role string
	ID   uuid.UUID
}

type EscrowService struct {
	store     EscrowStore
	auctions  AuctionStore
	audit     AuditStore
	publisher events.Publisher
	keyBytes  int
	log       *zap.Logger
}

func NewEscrowService(store EscrowStore, auctions AuctionStore, audit AuditStore, publisher events.Publisher, keyBytes int, log *zap.Logger) *EscrowService {
	if keyBytes <= 0 {
		keyBytes = 32
	}
	return &EscrowService{
		store:     store,
		auctions:  auctions,
		audit:     audit,
		publisher: publisher,
		keyBytes:  keyBytes,
		log:       log,
	}
}

func (s *EscrowService) newKey() (string, error) {
	return auth.RandomHex(s.keyBytes)
}

// EnsureItemKey returns the escrow record for auctionID, creating it and its
// item key on first use. The key never changes once set.
func (s *EscrowService) EnsureItemKey(ctx context.Context, auctionID uuid.UUID, sellerID *uuid.UUID) (*models.EscrowRecord, error) {
	key, err := s.newKey()
	if err != nil {
		return nil, err
	}
	rec, err := s.store.EnsureItemKey(ctx, auctionID, sellerID, key)
	if err != nil {
		return nil, err
	}
	if rec.ItemKey != nil && *rec.ItemKey == key {
		s.log.Info("escrow item key generated", zap.String("auction_id", auctionID.String()))
	}
	return rec, nil
}

// Allocate is the seller/admin entry point for EnsureItemKey. Sellers may
// only allocate keys for their own auctions.
func (s *EscrowService) Allocate(ctx context.Context, auctionID uuid.UUID, viewer Viewer) (*models.EscrowView, error) {
	a, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return nil, notFound(err, "auction")
	}
	if viewer.Role == auth.RoleSeller && a.SellerID != viewer.ID {
		return nil, ErrForbidden
	}
	rec, err := s.EnsureItemKey(ctx, auctionID, &a.SellerID)
	if err != nil {
		return nil, err
	}
	v := rec.View(models.EscrowViewOptions{IncludeKeys: true})
	if viewer.Role != auth.RoleAdmin {
		v.PurchaseKey = ""
	}
	return &v, nil
}

// IssuePurchaseKey provisions the buyer-side key and moves the record to
// awaiting_release.
func (s *EscrowService) IssuePurchaseKey(ctx context.Context, auctionID, buyerID, transactionID uuid.UUID) (*models.EscrowRecord, error) {
	rec, err := s.EnsureItemKey(ctx, auctionID, nil)
	if err != nil {
		return nil, err
	}
	if !models.IsValidEscrowTransition(rec.Status, models.EscrowStatusAwaitingRelease) {
		return nil, fmt.Errorf("%w: escrow is %s", ErrInvalidTransition, rec.Status)
	}

	key, err := s.newKey()
	if err != nil {
		return nil, err
	}
	rec, err = s.store.SetPurchaseKey(ctx, auctionID, buyerID, transactionID, key)
	if errors.Is(err, repositories.ErrStale) {
		return nil, fmt.Errorf("%w: purchase key already issued", ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	s.record(ctx, &buyerID, "buyer", "escrow_purchase_key_issued", rec)
	_ = s.publisher.Publish(ctx, events.StreamEscrow, events.Event{
		Type:    events.EventPurchaseKeyReady,
		Payload: map[string]any{"auction_id": auctionID.String(), "buyer_id": buyerID.String()},
	})
	return rec, nil
}

// ConfirmRelease is called by the escrow device once the buyer presented
// the purchase key. It returns the released record including its item key.
func (s *EscrowService) ConfirmRelease(ctx context.Context, auctionID uuid.UUID, purchaseKey string) (*models.EscrowRecord, error) {
	rec, err := s.store.GetByAuctionID(ctx, auctionID)
	if err != nil {
		return nil, notFound(err, "escrow record")
	}
	if rec.PurchaseKey == nil || *rec.PurchaseKey == "" {
		return nil, ErrKeyNotProvisioned
	}
	if subtle.ConstantTimeCompare([]byte(*rec.PurchaseKey), []byte(purchaseKey)) != 1 {
		s.log.Warn("escrow purchase key mismatch", zap.String("auction_id", auctionID.String()))
		return nil, ErrKeyMismatch
	}
	if rec.Status == models.EscrowStatusReleased {
		return rec, nil
	}
	if !models.IsValidEscrowTransition(rec.Status, models.EscrowStatusReleased) {
		return nil, fmt.Errorf("%w: escrow is %s", ErrInvalidTransition, rec.Status)
	}

	rec, err = s.store.MarkReleased(ctx, auctionID)
	if errors.Is(err, repositories.ErrStale) {
		return nil, fmt.Errorf("%w: escrow changed concurrently", ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}

	s.record(ctx, nil, "device", "escrow_released", rec)
	payload := map[string]any{"auction_id": auctionID.String()}
	if rec.BuyerID != nil {
		payload["buyer_id"] = rec.BuyerID.String()
	}
	_ = s.publisher.Publish(ctx, events.StreamEscrow, events.Event{Type: events.EventEscrowReleased, Payload: payload})
	return rec, nil
}

// Status returns the sanitized record. Admins see both keys; the owning
// buyer sees their purchase key and, once released, the item key.
func (s *EscrowService) Status(ctx context.Context, auctionID uuid.UUID, viewer Viewer) (*models.EscrowView, error) {
	rec, err := s.store.GetByAuctionID(ctx, auctionID)
	if err != nil {
		return nil, notFound(err, "escrow record")
	}

	var v models.EscrowView
	switch {
	case viewer.Role == auth.RoleAdmin:
		v = rec.View(models.EscrowViewOptions{IncludeKeys: true})
	case viewer.Role == auth.RoleBuyer && rec.BuyerID != nil && *rec.BuyerID == viewer.ID:
		v = rec.View(models.EscrowViewOptions{IncludeItemKeyWhenReleased: true})
		if rec.PurchaseKey != nil {
			v.PurchaseKey = *rec.PurchaseKey
		}
	default:
		v = rec.View(models.EscrowViewOptions{})
	}
	return &v, nil
}

func (s *EscrowService) ListPendingPurchases(ctx context.Context) ([]models.EscrowView, error) {
	recs, err := s.store.ListPendingPurchases(ctx)
	if err != nil {
		return nil, err
	}
	return viewsWithKeys(recs), nil
}

func (s *EscrowService) ListPendingItemKeys(ctx context.Context) ([]models.EscrowView, error) {
	recs, err := s.store.ListPendingItemKeys(ctx)
	if err != nil {
		return nil, err
	}
	return viewsWithKeys(recs), nil
}

func (s *EscrowService) MarkItemSynced(ctx context.Context, auctionID uuid.UUID) (*models.EscrowView, error) {
	rec, err := s.store.MarkItemSynced(ctx, auctionID)
	if err != nil {
		return nil, notFound(err, "escrow record")
	}
	v := rec.View(models.EscrowViewOptions{})
	return &v, nil
}

func (s *EscrowService) MarkPurchaseSynced(ctx context.Context, auctionID uuid.UUID) (*models.EscrowView, error) {
	rec, err := s.store.MarkPurchaseSynced(ctx, auctionID)
	if err != nil {
		return nil, notFound(err, "escrow record")
	}
	v := rec.View(models.EscrowViewOptions{})
	return &v, nil
}

// Reset drops the purchase side of an unreleased record so the winner can
// be issued a new purchase key through CreateTransaction. The item key is kept.
func (s *EscrowService) Reset(ctx context.Context, auctionID uuid.UUID, adminID *uuid.UUID) (*models.EscrowView, error) {
	rec, err := s.store.GetByAuctionID(ctx, auctionID)
	if err != nil {
		return nil, notFound(err, "escrow record")
	}
	if rec.Status != models.EscrowStatusAwaitingPurchase {
		if !models.IsValidEscrowTransition(rec.Status, models.EscrowStatusAwaitingPurchase) {
			return nil, fmt.Errorf("%w: cannot reset a %s escrow", ErrInvalidTransition, rec.Status)
		}
		rec, err = s.store.Reset(ctx, auctionID)
		if errors.Is(err, repositories.ErrStale) {
			return nil, fmt.Errorf("%w: escrow changed concurrently", ErrInvalidTransition)
		}
		if err != nil {
			return nil, notFound(err, "escrow record")
		}
		s.record(ctx, adminID, "admin", "escrow_reset", rec)
		_ = s.publisher.Publish(ctx, events.StreamEscrow, events.Event{
			Type:    events.EventEscrowReset,
			Payload: map[string]any{"auction_id": auctionID.String()},
		})
	}
	v := rec.View(models.EscrowViewOptions{IncludeKeys: true})
	return &v, nil
}

func (s *EscrowService) record(ctx context.Context, actorID *uuid.UUID, actorType, action string, rec *models.EscrowRecord) {
	_ = s.audit.Log(ctx, models.AuditLog{
		ActorID:    actorID,
		ActorType:  actorType,
		Action:     action,
		EntityType: "escrow",
		EntityID:   &rec.AuctionID,
		Meta:       map[string]any{"status": rec.Status},
	})
}

func viewsWithKeys(recs []models.EscrowRecord) []models.EscrowView {
	out := make([]models.EscrowView, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].View(models.EscrowViewOptions{IncludeKeys: true}))
	}
	return out
}
