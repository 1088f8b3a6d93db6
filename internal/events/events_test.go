package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEncodeStampsTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	data, err := Event{Type: EventBidPlaced, Payload: map[string]any{"amount": "12.5"}}.Encode(now)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, EventBidPlaced, got.Type)
	assert.True(t, got.At.Equal(now))
	assert.Equal(t, "12.5", got.Payload["amount"])

	fixed := now.Add(-time.Hour)
	data, err = Event{Type: EventEscrowReset, At: fixed}.Encode(now)
	require.NoError(t, err)
	got, err = Decode(data)
	require.NoError(t, err)
	assert.True(t, got.At.Equal(fixed), "an explicit time is kept")
	assert.NotNil(t, got.Payload)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	raw, _ := json.Marshal(map[string]any{"payload": map[string]any{}})
	_, err = Decode(raw)
	assert.Error(t, err)
}

func TestDeliverRecoversFromPanics(t *testing.T) {
	s := NewRedisSubscriber(nil, zap.NewNop())
	assert.NotPanics(t, func() {
		s.deliver(StreamAuction, Event{Type: EventAuctionCreated}, func(Event) { panic("boom") })
	})

	var seen string
	s.deliver(StreamAuction, Event{Type: EventAuctionCreated}, func(e Event) { seen = e.Type })
	assert.Equal(t, EventAuctionCreated, seen)
}
