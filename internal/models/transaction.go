package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CurrencyETH = "ETH"
	CurrencyTON = "TON"
	CurrencyBTC = "BTC"

	TransactionStatusConfirmed = "confirmed"
)

type Transaction struct {
	ID                     uuid.UUID       `json:"id"`
	BuyerID                uuid.UUID       `json:"buyer_id"`
	AuctionID              uuid.UUID       `json:"auction_id"`
	ItemName               string          `json:"item_name"`
	Amount                 decimal.Decimal `json:"amount"`
	Currency               string          `json:"currency"`
	WalletAddressEncrypted string          `json:"-"`
	TransactionHash        *string         `json:"transaction_hash,omitempty"`
	Notes                  *string         `json:"notes,omitempty"`
	Status                 string          `json:"status"`
	CreatedAt              time.Time       `json:"created_at"`
}

// LiveFeedEntry is a masked transaction line for the public feed.
type LiveFeedEntry struct {
	ID        uuid.UUID       `json:"id"`
	ItemName  string          `json:"item_name"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Buyer     string          `json:"buyer"`
	CreatedAt time.Time       `json:"created_at"`
}
