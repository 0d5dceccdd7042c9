package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionStop(t *testing.T) {
	cancels := 0
	sub := NewSubscription("events", func(*InboundMessage) {}, func() { cancels++ })

	assert.True(t, sub.Running())

	sub.Stop()
	assert.False(t, sub.Running())
	assert.Equal(t, 1, cancels)

	// Stop is idempotent; cancel runs exactly once
	sub.Stop()
	assert.Equal(t, 1, cancels)
}

func TestSubscriptionNilCancel(t *testing.T) {
	sub := NewSubscription("events", func(*InboundMessage) {}, nil)
	sub.Stop()
	assert.False(t, sub.Running())
}

func TestSubscriptionSetAdd(t *testing.T) {
	set := NewSubscriptionSet()
	first := NewSubscription("events", func(*InboundMessage) {}, nil)
	second := NewSubscription("events", func(*InboundMessage) {}, nil)

	assert.True(t, set.Add(first))
	assert.False(t, set.Add(second), "duplicate destination must be rejected")
	assert.Equal(t, 1, set.Len())
	assert.Same(t, first, set.Get("events"))
}

func TestSubscriptionSetRemove(t *testing.T) {
	set := NewSubscriptionSet()
	sub := NewSubscription("events", func(*InboundMessage) {}, nil)
	set.Add(sub)

	assert.Same(t, sub, set.Remove("events"))
	assert.Nil(t, set.Remove("events"))
	assert.Nil(t, set.Remove("unknown"))
	assert.Equal(t, 0, set.Len())
}

func TestSubscriptionSetDrain(t *testing.T) {
	set := NewSubscriptionSet()
	set.Add(NewSubscription("a", func(*InboundMessage) {}, nil))
	set.Add(NewSubscription("b", func(*InboundMessage) {}, nil))

	drained := set.Drain()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.Drain())
}
