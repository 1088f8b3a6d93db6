package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Streams
const (
	StreamAuction = "events:auction"
	StreamEscrow  = "events:escrow"
)

// Event types
const (
	EventAuctionCreated   = "auction_created"
	EventAuctionActivated = "auction_activated"
	EventAuctionCompleted = "auction_completed"
	EventBidPlaced        = "bid_placed"
	EventPurchaseCreated  = "purchase_created"
	EventPurchaseKeyReady = "purchase_key_issued"
	EventEscrowReleased   = "escrow_released"
	EventEscrowReset      = "escrow_reset"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
	At      time.Time      `json:"at"`
}

// Encode stamps the event time when unset and marshals it for the wire.
func (e Event) Encode(now time.Time) ([]byte, error) {
	if e.At.IsZero() {
		e.At = now.UTC()
	}
	return json.Marshal(e)
}

// Decode parses a wire event. Events without a type are rejected.
func Decode(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	if e.Type == "" {
		return Event{}, errors.New("event has no type")
	}
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	return e, nil
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
