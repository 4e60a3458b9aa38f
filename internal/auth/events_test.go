package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *eventSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event{}, s.events...)
}

func TestPublishDispatchesLocallySynchronously(t *testing.T) {
	events := NewEvents(nil, nil)
	sink := &eventSink{}
	unsubscribe := events.Subscribe(sink.record)
	defer unsubscribe()

	events.Publish(context.Background(), Event{Type: EventSignOut, SessionID: "sess-1"})

	got := sink.snapshot()
	require.Len(t, got, 1, "local dispatch happens before Publish returns")
	assert.Equal(t, EventSignOut, got[0].Type)
	assert.Equal(t, "sess-1", got[0].SessionID)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	events := NewEvents(nil, nil)
	sink := &eventSink{}
	unsubscribe := events.Subscribe(sink.record)

	events.Publish(context.Background(), Event{Type: EventSignIn, SessionID: "sess-1"})
	unsubscribe()
	events.Publish(context.Background(), Event{Type: EventSignOut, SessionID: "sess-1"})

	assert.Len(t, sink.snapshot(), 1)
}

func TestCrossProcessDelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = clientA.Close()
		_ = clientB.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	procA := NewEvents(clientA, nil)
	procB := NewEvents(clientB, nil)
	procB.Listen(ctx)
	defer procB.Close()

	sink := &eventSink{}
	unsubscribe := procB.Subscribe(sink.record)
	defer unsubscribe()

	// Give the subscription a moment to establish.
	time.Sleep(50 * time.Millisecond)
	procA.Publish(ctx, Event{Type: EventSignOut, SessionID: "sess-9"})

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond, "event should cross processes via redis")
	assert.Equal(t, "sess-9", sink.snapshot()[0].SessionID)
}

func TestOwnEventsNotDeliveredTwice(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := NewEvents(client, nil)
	events.Listen(ctx)
	defer events.Close()

	sink := &eventSink{}
	unsubscribe := events.Subscribe(sink.record)
	defer unsubscribe()

	time.Sleep(50 * time.Millisecond)
	events.Publish(ctx, Event{Type: EventSignIn, SessionID: "sess-1"})

	// The local dispatch delivers once; the redis echo is skipped by the
	// origin check.
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, sink.snapshot(), 1)
}
