package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventChannel_CoalescesSuccessiveUpdated(t *testing.T) {
	c := NewEventChannel()
	for i := 0; i < eventQueueCapacity-1; i++ {
		c.Send(Event{Kind: EventWarn, Message: "filler"})
	}
	c.Send(Event{Kind: EventUpdated, Message: "first"})
	c.Send(Event{Kind: EventUpdated, Message: "second"})

	assert.Equal(t, eventQueueCapacity, c.Len())
	events := drainEvents(c)
	ev := events[len(events)-1]
	assert.Equal(t, EventUpdated, ev.Kind)
	assert.Equal(t, "second", ev.Message)
}

func TestEventChannel_CoalescesSuccessiveErrorsButKeepsWarnSeparate(t *testing.T) {
	c := NewEventChannel()
	for i := 0; i < eventQueueCapacity-2; i++ {
		c.Send(Event{Kind: EventWarn, Message: "filler"})
	}
	c.Send(Event{Kind: EventError, Message: "e1"})
	c.Send(Event{Kind: EventWarn, Message: "w1"})
	c.Send(Event{Kind: EventError, Message: "e2"})

	assert.Equal(t, eventQueueCapacity, c.Len())

	events := drainEvents(c)
	first, second := events[len(events)-2], events[len(events)-1]
	assert.Equal(t, EventError, first.Kind)
	assert.Equal(t, "e2", first.Message)
	assert.Equal(t, EventWarn, second.Kind)
}

func TestEventChannel_NeverDropsDisconnected(t *testing.T) {
	c := NewEventChannel()
	c.Send(Event{Kind: EventDisconnected, Message: "gone"})
	for i := 0; i < eventQueueCapacity*2; i++ {
		c.Send(Event{Kind: EventWarn, Message: "noise"})
	}

	found := false
	for {
		ev, ok := c.Recv()
		if !ok {
			break
		}
		if ev.Kind == EventDisconnected {
			found = true
		}
	}
	assert.True(t, found, "Disconnected must survive overflow eviction")
}

func TestEventChannel_RecvEmpty(t *testing.T) {
	c := NewEventChannel()
	_, ok := c.Recv()
	assert.False(t, ok)
}

func TestEventChannel_WaitUnblocksOnSend(t *testing.T) {
	c := NewEventChannel()
	done := make(chan struct{})
	waited := make(chan struct{})

	go func() {
		c.Wait(done)
		close(waited)
	}()

	c.Send(Event{Kind: EventUpdated})
	<-waited
}
