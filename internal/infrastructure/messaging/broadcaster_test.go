package messaging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch chan []byte) LabelMessage {
	t.Helper()
	select {
	case payload := <-ch:
		var msg LabelMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return LabelMessage{}
	}
}

func TestBroadcasterScopesByVisitor(t *testing.T) {
	b := NewLabelBroadcaster(logging.NewDiscardLogger())
	all := b.AddClient(AllVisitors)
	alice := b.AddClient("alice-anon-id")
	bob := b.AddClient("bob-anon-id")
	assert.Equal(t, 3, b.ClientCount())

	b.Listener("alice-anon-id")("SearchSubmitted")

	assert.Equal(t, "SearchSubmitted", receive(t, all).Label)
	msg := receive(t, alice)
	assert.Equal(t, "alice-anon-id", msg.AnonymousID)
	assert.False(t, msg.At.IsZero())
	assert.Empty(t, bob)
}

func TestBroadcasterRemoveIsIdempotent(t *testing.T) {
	b := NewLabelBroadcaster(logging.NewDiscardLogger())
	ch := b.AddClient("alice-anon-id")
	b.RemoveClient(ch, "alice-anon-id")
	b.RemoveClient(ch, "alice-anon-id")
	assert.Equal(t, 0, b.ClientCount())

	b.Publish(LabelMessage{Label: "HomeViewed", AnonymousID: "alice-anon-id"})
	assert.Empty(t, ch)
}

func TestBroadcasterDropsWhenFull(t *testing.T) {
	b := NewLabelBroadcaster(logging.NewDiscardLogger())
	ch := b.AddClient(AllVisitors)
	for i := 0; i < cap(ch)+5; i++ {
		b.Publish(LabelMessage{Label: "Tick", AnonymousID: "x"})
	}
	assert.Len(t, ch, cap(ch))
}
