package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EscrowStatusAwaitingPurchase = "awaiting_purchase"
	EscrowStatusAwaitingRelease  = "awaiting_release"
	EscrowStatusReleased         = "released"
)

// Valid escrow transitions: from -> []to. awaiting_release -> awaiting_purchase is the admin reset.
var ValidEscrowTransitions = map[string][]string{
	EscrowStatusAwaitingPurchase: {EscrowStatusAwaitingRelease},
	EscrowStatusAwaitingRelease:  {EscrowStatusReleased, EscrowStatusAwaitingPurchase},
	EscrowStatusReleased:         {},
}

func IsValidEscrowTransition(from, to string) bool {
	for _, s := range ValidEscrowTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type EscrowRecord struct {
	ID                  uuid.UUID  `json:"id"`
	AuctionID           uuid.UUID  `json:"auction_id"`
	SellerID            *uuid.UUID `json:"seller_id,omitempty"`
	BuyerID             *uuid.UUID `json:"buyer_id,omitempty"`
	ItemKey             *string    `json:"-"`
	PurchaseKey         *string    `json:"-"`
	Status              string     `json:"status"`
	TransactionID       *uuid.UUID `json:"transaction_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	PurchaseGeneratedAt *time.Time `json:"purchase_generated_at,omitempty"`
	ReleasedAt          *time.Time `json:"released_at,omitempty"`
	ItemSyncedAt        *time.Time `json:"item_synced_at,omitempty"`
	PurchaseSyncedAt    *time.Time `json:"purchase_synced_at,omitempty"`
}

// EscrowView is the sanitized escrow record returned over the API.
type EscrowView struct {
	ID                  uuid.UUID  `json:"id"`
	AuctionID           uuid.UUID  `json:"auction_id"`
	SellerID            *uuid.UUID `json:"seller_id,omitempty"`
	BuyerID             *uuid.UUID `json:"buyer_id,omitempty"`
	Status              string     `json:"status"`
	HasItemKey          bool       `json:"has_item_key"`
	HasPurchaseKey      bool       `json:"has_purchase_key"`
	ItemKey             string     `json:"item_key,omitempty"`
	PurchaseKey         string     `json:"purchase_key,omitempty"`
	TransactionID       *uuid.UUID `json:"transaction_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	PurchaseGeneratedAt *time.Time `json:"purchase_generated_at,omitempty"`
	ReleasedAt          *time.Time `json:"released_at,omitempty"`
	ItemSyncedAt        *time.Time `json:"item_synced_at,omitempty"`
	PurchaseSyncedAt    *time.Time `json:"purchase_synced_at,omitempty"`
}

type EscrowViewOptions struct {
	IncludeKeys                bool
	IncludeItemKeyWhenReleased bool
}

func (e *EscrowRecord) View(opts EscrowViewOptions) EscrowView {
	v := EscrowView{
		ID:                  e.ID,
		AuctionID:           e.AuctionID,
		SellerID:            e.SellerID,
		BuyerID:             e.BuyerID,
		Status:              e.Status,
		HasItemKey:          e.ItemKey != nil && *e.ItemKey != "",
		HasPurchaseKey:      e.PurchaseKey != nil && *e.PurchaseKey != "",
		TransactionID:       e.TransactionID,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
		PurchaseGeneratedAt: e.PurchaseGeneratedAt,
		ReleasedAt:          e.ReleasedAt,
		ItemSyncedAt:        e.ItemSyncedAt,
		PurchaseSyncedAt:    e.PurchaseSyncedAt,
	}
	switch {
	case opts.IncludeKeys:
		if e.ItemKey != nil {
			v.ItemKey = *e.ItemKey
		}
		if e.PurchaseKey != nil {
			v.PurchaseKey = *e.PurchaseKey
		}
	case opts.IncludeItemKeyWhenReleased && e.Status == EscrowStatusReleased && e.ItemKey != nil:
		v.ItemKey = *e.ItemKey
	}
	return v
}
