package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/config"
	"github.com/xcro-market/backend/internal/events"
	"github.com/xcro-market/backend/internal/models"
	"github.com/xcro-market/backend/internal/repositories"
	"github.com/xcro-market/backend/internal/vault"
)

const (
	tickLockKey        = "lock:auction_tick"
	maxTitleLen        = 200
	minDurationSeconds = 10
	maxDurationSeconds = 7 * 24 * 3600
)

type AuctionService struct {
	auctions  AuctionStore
	schedule  ScheduleStore
	escrow    *EscrowService
	audit     AuditStore
	vault     *vault.Vault
	publisher events.Publisher
	locker    Locker
	cfg       *config.Config
	log       *zap.Logger
	now       func() time.Time
}

func NewAuctionService(
	auctions AuctionStore,
	schedule ScheduleStore,
	escrow *EscrowService,
	audit AuditStore,
	v *vault.Vault,
	publisher events.Publisher,
	locker Locker,
	cfg *config.Config,
	log *zap.Logger,
) *AuctionService {
	return &AuctionService{
		auctions:  auctions,
		schedule:  schedule,
		escrow:    escrow,
		audit:     audit,
		vault:     v,
		publisher: publisher,
		locker:    locker,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// transition validates a status change and writes the audit entry and event.
// The store update itself is done by the caller.
func (s *AuctionService) transition(ctx context.Context, a *models.Auction, newStatus string, actorID *uuid.UUID, actorType string, apply func() error) error {
	if !models.IsValidAuctionTransition(a.Status, newStatus) {
		return fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, a.Status, newStatus)
	}
	if err := apply(); err != nil {
		return err
	}

	oldStatus := a.Status
	a.Status = newStatus

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorID:    actorID,
		ActorType:  actorType,
		Action:     fmt.Sprintf("auction_status_%s_to_%s", oldStatus, newStatus),
		EntityType: "auction",
		EntityID:   &a.ID,
		Meta:       map[string]any{"old_status": oldStatus, "new_status": newStatus},
	})

	eventType := events.EventAuctionActivated
	if newStatus == models.AuctionStatusCompleted {
		eventType = events.EventAuctionCompleted
	}
	payload := map[string]any{
		"auction_id":    a.ID.String(),
		"title":         a.Title,
		"status":        newStatus,
		"current_price": a.CurrentPrice.String(),
	}
	if a.EndsAt != nil {
		payload["ends_at"] = a.EndsAt.UTC().Format(time.RFC3339)
	}
	if a.WinnerBuyerID != nil {
		payload["winner_buyer_id"] = a.WinnerBuyerID.String()
		payload["reserve_met"] = a.ReserveMet
	}
	_ = s.publisher.Publish(ctx, events.StreamAuction, events.Event{Type: eventType, Payload: payload})

	return nil
}

type CreateAuctionInput struct {
	Title              string
	Description        string
	ItemType           string
	StartingPrice      decimal.Decimal
	ReservePrice       decimal.Decimal
	DurationSeconds    int
	NFTTokenID         *string
	NFTContractAddress *string
	Scan3DURL          *string
}

func (in *CreateAuctionInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return invalid("title is required")
	}
	if len(in.Title) > maxTitleLen {
		return invalid("title must be at most %d characters", maxTitleLen)
	}
	if !in.StartingPrice.IsPositive() {
		return invalid("starting price must be greater than zero")
	}
	if in.ReservePrice.IsNegative() {
		return invalid("reserve price must not be negative")
	}
	if in.DurationSeconds != 0 && (in.DurationSeconds < minDurationSeconds || in.DurationSeconds > maxDurationSeconds) {
		return invalid("duration must be between %d and %d seconds", minDurationSeconds, maxDurationSeconds)
	}
	return nil
}

// CreatedAuction carries the seller-only item key back with the new auction.
type CreatedAuction struct {
	Auction *models.Auction `json:"auction"`
	ItemKey string          `json:"item_key"`
}

// CreateAuction queues a new auction and allocates its escrow item key.
func (s *AuctionService) CreateAuction(ctx context.Context, sellerID uuid.UUID, in CreateAuctionInput) (*CreatedAuction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	a := &models.Auction{
		ID:                 uuid.New(),
		Title:              in.Title,
		Description:        in.Description,
		ItemType:           in.ItemType,
		StartingPrice:      in.StartingPrice,
		CurrentPrice:       in.StartingPrice,
		ReservePrice:       in.ReservePrice,
		SellerID:           sellerID,
		Status:             models.AuctionStatusQueued,
		DurationSeconds:    in.DurationSeconds,
		NFTTokenID:         in.NFTTokenID,
		NFTContractAddress: in.NFTContractAddress,
		Scan3DURL:          in.Scan3DURL,
	}
	if err := s.auctions.Create(ctx, a); err != nil {
		return nil, err
	}

	rec, err := s.escrow.EnsureItemKey(ctx, a.ID, &sellerID)
	if err != nil {
		return nil, fmt.Errorf("allocate item key: %w", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorID:    &sellerID,
		ActorType:  "seller",
		Action:     "auction_created",
		EntityType: "auction",
		EntityID:   &a.ID,
		Meta:       map[string]any{"title": a.Title, "starting_price": a.StartingPrice.String()},
	})
	_ = s.publisher.Publish(ctx, events.StreamAuction, events.Event{
		Type:    events.EventAuctionCreated,
		Payload: map[string]any{"auction_id": a.ID.String(), "title": a.Title},
	})

	s.log.Info("auction queued", zap.String("auction_id", a.ID.String()), zap.String("seller_id", sellerID.String()))

	out := &CreatedAuction{Auction: a}
	if rec.ItemKey != nil {
		out.ItemKey = *rec.ItemKey
	}
	return out, nil
}

func (s *AuctionService) Get(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	a, err := s.auctions.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "auction")
	}
	return a, nil
}

// ListActive returns the running auction as a list, empty when none is live.
func (s *AuctionService) ListActive(ctx context.Context) ([]models.Auction, error) {
	status := models.AuctionStatusActive
	return s.auctions.List(ctx, repositories.AuctionFilter{Status: &status})
}

func (s *AuctionService) ListAll(ctx context.Context, status string, limit, offset int) ([]models.Auction, error) {
	f := repositories.AuctionFilter{Limit: limit, Offset: offset}
	if status != "" {
		if _, ok := models.ValidAuctionTransitions[status]; !ok {
			return nil, invalid("unknown status %q", status)
		}
		f.Status = &status
	}
	return s.auctions.List(ctx, f)
}

func (s *AuctionService) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Auction, error) {
	return s.auctions.List(ctx, repositories.AuctionFilter{SellerID: &sellerID, Limit: 200})
}

// ListBids returns anonymized bids, highest first.
func (s *AuctionService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.PublicBid, error) {
	if _, err := s.Get(ctx, auctionID); err != nil {
		return nil, err
	}
	bids, err := s.auctions.ListBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicBid, 0, len(bids))
	for _, b := range bids {
		out = append(out, b.Public())
	}
	return out, nil
}

// PlaceBid records a bid strictly above the current price of an active,
// unexpired auction and raises the price to it.
func (s *AuctionService) PlaceBid(ctx context.Context, buyerID, auctionID uuid.UUID, amount decimal.Decimal, txHash *string) (*models.Bid, error) {
	if !amount.IsPositive() {
		return nil, invalid("bid amount must be greater than zero")
	}

	a, err := s.Get(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !a.IsOpenForBids(now) {
		return nil, ErrAuctionNotActive
	}
	if a.SellerID == buyerID {
		return nil, ErrForbidden
	}
	if !amount.GreaterThan(a.CurrentPrice) {
		return nil, fmt.Errorf("%w (current %s)", ErrBidTooLow, a.CurrentPrice.String())
	}

	enc, err := s.vault.EncryptPtr(txHash)
	if err != nil {
		return nil, err
	}

	bid := &models.Bid{
		ID:              uuid.New(),
		AuctionID:       auctionID,
		BidderID:        buyerID,
		Amount:          amount,
		TxHashEncrypted: enc,
		CreatedAt:       now,
	}
	if err := s.auctions.PlaceBid(ctx, bid); err != nil {
		if errors.Is(err, repositories.ErrStale) {
			return nil, s.staleBidError(ctx, auctionID)
		}
		return nil, err
	}

	s.log.Info("bid placed",
		zap.String("auction_id", auctionID.String()),
		zap.String("amount", amount.String()),
	)
	_ = s.publisher.Publish(ctx, events.StreamAuction, events.Event{
		Type: events.EventBidPlaced,
		Payload: map[string]any{
			"auction_id":        auctionID.String(),
			"amount":            amount.String(),
			"bidder_id_partial": bid.Public().BidderIDPartial,
		},
	})
	return bid, nil
}

// staleBidError explains why the conditional price update matched nothing.
func (s *AuctionService) staleBidError(ctx context.Context, auctionID uuid.UUID) error {
	a, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil || !a.IsOpenForBids(s.now()) {
		return ErrAuctionNotActive
	}
	return fmt.Errorf("%w (current %s)", ErrBidTooLow, a.CurrentPrice.String())
}

// Activate promotes a queued auction by hand. A nil id picks the oldest
// queued auction. Only one auction may be active at a time.
func (s *AuctionService) Activate(ctx context.Context, id *uuid.UUID, actorID *uuid.UUID) (*models.Auction, error) {
	if _, err := s.auctions.GetActive(ctx); err == nil {
		return nil, ErrAuctionRunning
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	var a *models.Auction
	var err error
	if id != nil {
		a, err = s.Get(ctx, *id)
	} else {
		a, err = s.auctions.NextQueued(ctx)
		err = notFound(err, "queued auction")
	}
	if err != nil {
		return nil, err
	}

	if err := s.activate(ctx, a, s.now(), actorID, "admin"); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AuctionService) activate(ctx context.Context, a *models.Auction, now time.Time, actorID *uuid.UUID, actorType string) error {
	duration := a.Duration(s.defaultDuration(ctx))
	endsAt := now.Add(duration)

	return s.transition(ctx, a, models.AuctionStatusActive, actorID, actorType, func() error {
		if err := s.auctions.Activate(ctx, a.ID, now, endsAt); err != nil {
			if errors.Is(err, repositories.ErrStale) {
				return ErrAuctionRunning
			}
			return err
		}
		a.StartedAt = &now
		a.EndsAt = &endsAt
		s.log.Info("auction activated",
			zap.String("auction_id", a.ID.String()),
			zap.Time("ends_at", endsAt),
		)
		return nil
	})
}

func (s *AuctionService) defaultDuration(ctx context.Context) time.Duration {
	if sch, err := s.schedule.Get(ctx); err == nil && sch.DurationSeconds > 0 {
		return time.Duration(sch.DurationSeconds) * time.Second
	}
	if s.cfg.AuctionDefaultDuration > 0 {
		return s.cfg.AuctionDefaultDuration
	}
	return time.Minute
}

// complete closes an ended auction. The highest bid wins (earliest on a
// tie) provided it meets the reserve; otherwise the lot closes unsold.
func (s *AuctionService) complete(ctx context.Context, a *models.Auction, now time.Time) error {
	bids, err := s.auctions.ListBids(ctx, a.ID)
	if err != nil {
		return err
	}

	params := repositories.CompleteParams{CompletedAt: now}
	if winning, ok := models.WinningBid(bids); ok && winning.Amount.GreaterThanOrEqual(a.ReservePrice) {
		params.WinnerBuyerID = &winning.BidderID
		params.WinningBidID = &winning.ID
		params.ReserveMet = true
	}

	return s.transition(ctx, a, models.AuctionStatusCompleted, nil, "system", func() error {
		if err := s.auctions.Complete(ctx, a.ID, params); err != nil {
			return err
		}
		a.WinnerBuyerID = params.WinnerBuyerID
		a.WinningBidID = params.WinningBidID
		a.ReserveMet = params.ReserveMet
		a.CompletedAt = &now
		s.log.Info("auction completed",
			zap.String("auction_id", a.ID.String()),
			zap.Bool("reserve_met", params.ReserveMet),
			zap.Int("bids", len(bids)),
		)
		return nil
	})
}

type TickResult struct {
	Completed []uuid.UUID `json:"completed"`
	Activated *uuid.UUID  `json:"activated,omitempty"`
	Skipped   bool        `json:"skipped"`
}

// Tick is one scheduler step: close every active auction past its end, then
// promote the oldest queued auction when the schedule has started and
// nothing is running. It is a no-op when another process holds the lock.
func (s *AuctionService) Tick(ctx context.Context) (*TickResult, error) {
	res := &TickResult{}
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, tickLockKey, s.cfg.SchedulerLockTTL)
		if err != nil {
			return nil, fmt.Errorf("tick lock: %w", err)
		}
		if !ok {
			res.Skipped = true
			return res, nil
		}
		defer release()
	}

	now := s.now()

	ended, err := s.auctions.ListEnded(ctx, now)
	if err != nil {
		return nil, err
	}
	for i := range ended {
		a := &ended[i]
		if err := s.complete(ctx, a, now); err != nil {
			if errors.Is(err, repositories.ErrStale) {
				continue
			}
			return res, fmt.Errorf("complete auction %s: %w", a.ID, err)
		}
		res.Completed = append(res.Completed, a.ID)
	}

	sch, err := s.schedule.Get(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return res, nil
		}
		return res, err
	}
	if !sch.Started(now) {
		return res, nil
	}

	if _, err := s.auctions.GetActive(ctx); err == nil {
		return res, nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return res, err
	}

	next, err := s.auctions.NextQueued(ctx)
	if errors.Is(err, repositories.ErrNotFound) {
		return res, nil
	}
	if err != nil {
		return res, err
	}

	if err := s.activate(ctx, next, now, nil, "system"); err != nil {
		if errors.Is(err, ErrAuctionRunning) {
			return res, nil
		}
		return res, fmt.Errorf("activate auction %s: %w", next.ID, err)
	}
	res.Activated = &next.ID
	return res, nil
}

func (s *AuctionService) GetSchedule(ctx context.Context) (*models.Schedule, error) {
	sch, err := s.schedule.Get(ctx)
	if errors.Is(err, repositories.ErrNotFound) {
		return &models.Schedule{DurationSeconds: int(s.cfg.AuctionDefaultDuration / time.Second)}, nil
	}
	return sch, err
}

type ScheduleInput struct {
	Enabled         bool
	StartAt         *time.Time
	DurationSeconds int
}

func (s *AuctionService) UpdateSchedule(ctx context.Context, in ScheduleInput, actorID *uuid.UUID) (*models.Schedule, error) {
	if in.DurationSeconds == 0 {
		in.DurationSeconds = int(s.cfg.AuctionDefaultDuration / time.Second)
	}
	if in.DurationSeconds < minDurationSeconds || in.DurationSeconds > maxDurationSeconds {
		return nil, invalid("duration must be between %d and %d seconds", minDurationSeconds, maxDurationSeconds)
	}

	sch := &models.Schedule{Enabled: in.Enabled, StartAt: in.StartAt, DurationSeconds: in.DurationSeconds}
	if err := s.schedule.Save(ctx, sch); err != nil {
		return nil, err
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorID:    actorID,
		ActorType:  "admin",
		Action:     "schedule_updated",
		EntityType: "schedule",
		Meta:       map[string]any{"enabled": sch.Enabled, "duration_seconds": sch.DurationSeconds},
	})
	s.log.Info("auction schedule updated", zap.Bool("enabled", sch.Enabled), zap.Int("duration_seconds", sch.DurationSeconds))
	return sch, nil
}

// ScheduleStatus is the public view of the schedule and the live auction.
func (s *AuctionService) ScheduleStatus(ctx context.Context) (*models.ScheduleStatus, error) {
	sch, err := s.GetSchedule(ctx)
	if err != nil {
		return nil, err
	}
	st := &models.ScheduleStatus{Schedule: *sch, ServerTime: s.now().UTC()}

	active, err := s.auctions.GetActive(ctx)
	switch {
	case err == nil:
		st.Active = active
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	st.QueuedCount, err = s.auctions.CountByStatus(ctx, models.AuctionStatusQueued)
	if err != nil {
		return nil, err
	}
	return st, nil
}
