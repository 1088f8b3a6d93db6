package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Auth

type AdminLoginRequest struct {
	Password string `json:"password"`
}

type SellerRegisterRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	InviteCode string `json:"invite_code"`
}

type SellerLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CodeLoginRequest struct {
	Code string `json:"code"`
}

type BuyerLoginRequest struct {
	Password string `json:"password"`
}

// Auctions

type CreateAuctionRequest struct {
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	ItemType           string          `json:"item_type"`
	StartingPrice      decimal.Decimal `json:"starting_price"`
	ReservePrice       decimal.Decimal `json:"reserve_price"`
	DurationSeconds    int             `json:"duration_seconds,omitempty"`
	NFTTokenID         *string         `json:"nft_token_id,omitempty"`
	NFTContractAddress *string         `json:"nft_contract_address,omitempty"`
	Scan3DURL          *string         `json:"scan_3d_url,omitempty"`
}

type PlaceBidRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	TransactionHash *string         `json:"transaction_hash,omitempty"`
}

type ActivateAuctionRequest struct {
	AuctionID *string `json:"auction_id,omitempty"` // empty activates the oldest queued auction
}

type UpdateScheduleRequest struct {
	Enabled         bool       `json:"enabled"`
	StartAt         *time.Time `json:"start_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
}

// Buyers

type SetupProfileRequest struct {
	RealName string `json:"real_name"`
}

type CreateTransactionRequest struct {
	AuctionID       string  `json:"auction_id"`
	WalletAddress   string  `json:"wallet_address"`
	Currency        string  `json:"currency"`
	TransactionHash *string `json:"transaction_hash,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// Escrow

type AllocateEscrowRequest struct {
	AuctionID string `json:"auction_id"`
}

type DeviceConfirmRequest struct {
	AuctionID   string `json:"auction_id"`
	PurchaseKey string `json:"purchase_key"`
}

type DeviceAckRequest struct {
	AuctionID string `json:"auction_id"`
}

// Codebot

type AccessCodeRequest struct {
	UserID      int64    `json:"userId"`
	Username    string   `json:"username"`
	Type        string   `json:"type"`
	Description *string  `json:"description,omitempty"`
	Photos      []string `json:"photos,omitempty"`
	InitData    string   `json:"init_data,omitempty"`
}

type DecideRequestRequest struct {
	RequestID string `json:"requestId"`
}
