package services

import (
	"errors"
	"fmt"

	"github.com/xcro-market/backend/internal/repositories"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrAuctionNotActive   = errors.New("auction is not accepting bids")
	ErrAuctionRunning     = errors.New("another auction is already active")
	ErrBidTooLow          = errors.New("bid must be higher than the current price")
	ErrInviteUsed         = errors.New("invite code already used")
	ErrInviteExpired      = errors.New("invite code expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminDisabled      = errors.New("admin login is not configured")
	ErrKeyNotProvisioned  = errors.New("purchase key not provisioned")
	ErrKeyMismatch        = errors.New("purchase key mismatch")
	ErrNotWinner          = errors.New("only the winning buyer can purchase this item")
	ErrInvalidCode        = errors.New("the code is not valid")
	ErrWrongCodeType      = errors.New("code is not for seller access")
	ErrBotUnavailable     = errors.New("bot service unavailable")
)

// notFound converts a repository miss into ErrNotFound, leaving other errors intact.
func notFound(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
