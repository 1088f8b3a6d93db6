package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InviteRoleSeller = "seller"
	InviteRoleBuyer  = "buyer"
)

// InviteLink is a one-time code gating registration. Buyer invites also
// carry a readable password; the password itself is never stored.
type InviteLink struct {
	ID             uuid.UUID  `json:"id"`
	Code           string     `json:"code"`
	Role           string     `json:"role"`
	PasswordLookup *string    `json:"-"`
	Used           bool       `json:"used"`
	UsedBy         *uuid.UUID `json:"used_by,omitempty"`
	UsedAt         *time.Time `json:"used_at,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (l *InviteLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}
