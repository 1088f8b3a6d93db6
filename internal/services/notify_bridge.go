package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/events"
)

// NotifyBridge forwards auction and escrow events to the admin Telegram chat.
type NotifyBridge struct {
	subscriber  events.Subscriber
	notifier    Notifier
	adminChatID int64
	log         *zap.Logger
}

func NewNotifyBridge(subscriber events.Subscriber, notifier Notifier, adminChatID int64, log *zap.Logger) *NotifyBridge {
	return &NotifyBridge{subscriber: subscriber, notifier: notifier, adminChatID: adminChatID, log: log}
}

func (b *NotifyBridge) Run(ctx context.Context) error {
	if b.adminChatID == 0 {
		b.log.Warn("ADMIN_CHAT_ID not set, notify bridge disabled")
		return nil
	}
	for _, stream := range []string{events.StreamAuction, events.StreamEscrow} {
		if err := b.subscriber.Subscribe(ctx, stream, func(e events.Event) { b.Forward(ctx, e) }); err != nil {
			return fmt.Errorf("subscribe %s: %w", stream, err)
		}
	}
	b.log.Info("notify bridge started")
	return nil
}

// Forward sends the admin notice for e, if it has one.
func (b *NotifyBridge) Forward(ctx context.Context, e events.Event) {
	text := FormatEvent(e)
	if text == "" {
		return
	}
	b.log.Info("forwarding event", zap.String("type", e.Type))
	if err := b.notifier.SendMessage(ctx, b.adminChatID, text); err != nil {
		b.log.Warn("failed to forward notification", zap.String("type", e.Type), zap.Error(err))
	}
}

// FormatEvent renders the admin notice for an event, or "" for events that
// are not worth a message.
func FormatEvent(e events.Event) string {
	str := func(k string) string {
		v, _ := e.Payload[k].(string)
		return v
	}

	switch e.Type {
	case events.EventAuctionActivated:
		return fmt.Sprintf("Auction live: %s (ends %s)", str("title"), str("ends_at"))
	case events.EventAuctionCompleted:
		if w := str("winner_buyer_id"); w != "" {
			return fmt.Sprintf("Auction closed: %s sold for %s to %s", str("title"), str("current_price"), w)
		}
		return fmt.Sprintf("Auction closed: %s, reserve not met", str("title"))
	case events.EventPurchaseCreated:
		return fmt.Sprintf("Payment recorded: %s for %s %s", str("item_name"), str("amount"), str("currency"))
	case events.EventEscrowReleased:
		return fmt.Sprintf("Escrow released for auction %s", str("auction_id"))
	case events.EventEscrowReset:
		return fmt.Sprintf("Escrow reset for auction %s", str("auction_id"))
	}
	return ""
}
