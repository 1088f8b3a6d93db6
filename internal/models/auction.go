package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Auction statuses
const (
	AuctionStatusQueued    = "queued"
	AuctionStatusActive    = "active"
	AuctionStatusCompleted = "completed"
)

// Valid auction transitions: from -> []to
var ValidAuctionTransitions = map[string][]string{
	AuctionStatusQueued:    {AuctionStatusActive},
	AuctionStatusActive:    {AuctionStatusCompleted},
	AuctionStatusCompleted: {},
}

func IsValidAuctionTransition(from, to string) bool {
	allowed, ok := ValidAuctionTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

type Auction struct {
	ID                 uuid.UUID       `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	ItemType           string          `json:"item_type"`
	StartingPrice      decimal.Decimal `json:"starting_price"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	ReservePrice       decimal.Decimal `json:"reserve_price"`
	SellerID           uuid.UUID       `json:"seller_id"`
	Status             string          `json:"status"`
	DurationSeconds    int             `json:"duration_seconds"`
	NFTTokenID         *string         `json:"nft_token_id,omitempty"`
	NFTContractAddress *string         `json:"nft_contract_address,omitempty"`
	Scan3DURL          *string         `json:"scan_3d_url,omitempty"`
	WinnerBuyerID      *uuid.UUID      `json:"winner_buyer_id,omitempty"`
	WinningBidID       *uuid.UUID      `json:"winning_bid_id,omitempty"`
	ReserveMet         bool            `json:"reserve_met"`
	BidCount           int             `json:"bid_count"`
	CreatedAt          time.Time       `json:"created_at"`
	StartedAt          *time.Time      `json:"started_at,omitempty"`
	EndsAt             *time.Time      `json:"ends_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
}

// IsOpenForBids reports whether a bid placed at now may be accepted.
func (a *Auction) IsOpenForBids(now time.Time) bool {
	if a.Status != AuctionStatusActive {
		return false
	}
	return a.EndsAt == nil || now.Before(*a.EndsAt)
}

// HasEnded reports whether an active auction is past its end time.
func (a *Auction) HasEnded(now time.Time) bool {
	return a.Status == AuctionStatusActive && a.EndsAt != nil && !now.Before(*a.EndsAt)
}

// Duration returns the run length, falling back to def when unset.
func (a *Auction) Duration(def time.Duration) time.Duration {
	if a.DurationSeconds > 0 {
		return time.Duration(a.DurationSeconds) * time.Second
	}
	return def
}

type Bid struct {
	ID              uuid.UUID       `json:"id"`
	AuctionID       uuid.UUID       `json:"auction_id"`
	BidderID        uuid.UUID       `json:"bidder_id"`
	Amount          decimal.Decimal `json:"amount"`
	TxHashEncrypted *string         `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PublicBid is the anonymized form of a bid shown to other participants.
type PublicBid struct {
	ID              uuid.UUID       `json:"id"`
	BidderIDPartial string          `json:"bidder_id_partial"`
	Amount          decimal.Decimal `json:"amount"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (b Bid) Public() PublicBid {
	id := b.BidderID.String()
	if len(id) > 12 {
		id = id[:12] + "..."
	}
	return PublicBid{ID: b.ID, BidderIDPartial: id, Amount: b.Amount, CreatedAt: b.CreatedAt}
}

// WinningBid picks the highest bid; the earliest bid wins a tie.
func WinningBid(bids []Bid) (Bid, bool) {
	if len(bids) == 0 {
		return Bid{}, false
	}
	winning := bids[0]
	for _, b := range bids[1:] {
		if b.Amount.GreaterThan(winning.Amount) || (b.Amount.Equal(winning.Amount) && b.CreatedAt.Before(winning.CreatedAt)) {
			winning = b
		}
	}
	return winning, true
}

// Schedule drives automatic promotion of queued auctions.
type Schedule struct {
	Enabled         bool       `json:"enabled"`
	StartAt         *time.Time `json:"start_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Started reports whether the schedule allows promotions at now.
func (s *Schedule) Started(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	return s.StartAt == nil || !now.Before(*s.StartAt)
}

type ScheduleStatus struct {
	Schedule    Schedule  `json:"schedule"`
	Active      *Auction  `json:"active,omitempty"`
	QueuedCount int       `json:"queued_count"`
	ServerTime  time.Time `json:"server_time"`
}
