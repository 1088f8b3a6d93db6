package models

import (
	"time"

	"github.com/google/uuid"
)

// Seller is a "thief" account: registered via invite or bot-issued code.
type Seller struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	InviteCode   string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
}

type Buyer struct {
	ID                uuid.UUID  `json:"id"`
	Username          string     `json:"username"`
	PasswordHash      string     `json:"-"`
	InviteCode        string     `json:"-"`
	Codename          *string    `json:"codename,omitempty"`
	RealNameEncrypted *string    `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	LastSeenAt        *time.Time `json:"last_seen_at,omitempty"`
}

// BuyerAdminView is what the admin portal sees, with the real name decrypted.
type BuyerAdminView struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Codename  *string   `json:"codename"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
