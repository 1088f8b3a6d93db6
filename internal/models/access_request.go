package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AccessRequestPending  = "pending"
	AccessRequestApproved = "approved"
	AccessRequestRejected = "rejected"

	AccessTypeSeller = "seller"
	AccessTypeBuyer  = "buyer"
)

// AccessRequest is a Telegram user's request for a seller or buyer code.
type AccessRequest struct {
	ID             uuid.UUID  `json:"id"`
	TelegramUserID int64      `json:"telegram_user_id"`
	Username       string     `json:"username"`
	RequestType    string     `json:"request_type"`
	Description    *string    `json:"description,omitempty"`
	Photos         []string   `json:"photos,omitempty"`
	Status         string     `json:"status"`
	Code           *string    `json:"-"`
	RedeemedAt     *time.Time `json:"redeemed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
}

func IsValidAccessType(t string) bool {
	return t == AccessTypeSeller || t == AccessTypeBuyer
}
