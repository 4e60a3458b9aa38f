package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Session-change event types.
const (
	EventSignIn  = "signin"
	EventSignOut = "signout"
)

const eventsChannel = "auth.events"

// Event is a session-change notification carried over Redis pub/sub so
// that every process (and every tab behind it) observes sign-ins and
// sign-outs, not just the one that handled the request.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	Origin    string `json:"origin,omitempty"`
}

// Events fans session-change notifications out to local subscribers and
// across processes via Redis pub/sub.
type Events struct {
	client *redis.Client
	logger *slog.Logger
	origin string

	mu     sync.Mutex
	subs   map[int]func(Event)
	nextID int
	cancel context.CancelFunc
}

// NewEvents constructs the broadcaster. Call Listen to receive events
// published by other processes.
func NewEvents(client *redis.Client, logger *slog.Logger) *Events {
	if logger == nil {
		logger = slog.Default()
	}
	return &Events{
		client: client,
		logger: logger,
		origin: uuid.NewString(),
		subs:   make(map[int]func(Event)),
	}
}

// Publish delivers the event to local subscribers synchronously and then
// broadcasts it for other processes. Publish failures are logged, not
// returned: a missed notification degrades freshness, never safety,
// because the guard re-verifies authoritatively on every navigation.
func (e *Events) Publish(ctx context.Context, ev Event) {
	ev.Origin = e.origin
	e.dispatch(ev)
	if e.client == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		e.logger.Error("auth events: marshal", slog.Any("error", err))
		return
	}
	if err := e.client.Publish(ctx, eventsChannel, data).Err(); err != nil {
		e.logger.Warn("auth events: publish", slog.Any("error", err))
	}
}

// Subscribe registers a callback for session-change events. The returned
// function detaches it.
func (e *Events) Subscribe(fn func(Event)) (unsubscribe func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// Listen consumes cross-process events until the context is cancelled.
// Events originated by this process are skipped; they were already
// dispatched synchronously by Publish.
func (e *Events) Listen(ctx context.Context) {
	if e.client == nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	sub := e.client.Subscribe(ctx, eventsChannel)
	go func() {
		defer func() {
			if err := sub.Close(); err != nil {
				e.logger.Warn("auth events: close subscription", slog.Any("error", err))
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					e.logger.Warn("auth events: decode", slog.Any("error", err))
					continue
				}
				if ev.Origin == e.origin {
					continue
				}
				e.dispatch(ev)
			}
		}
	}()
}

// Close stops the cross-process listener.
func (e *Events) Close() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Events) dispatch(ev Event) {
	e.mu.Lock()
	subs := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func formatUserID(id int64) string {
	return strconv.FormatInt(id, 10)
}
