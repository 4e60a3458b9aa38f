package guard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const mirrorKeyPrefix = "admin_mirror:"

// RedisMirror implements MirrorStore on a single Redis slot. Each admin
// session gets its own slot; writes are last-writer-wins with no locking
// because the mirror is advisory only.
type RedisMirror struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisMirror binds a mirror slot for the given session ID.
func NewRedisMirror(client *redis.Client, sessionID string, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, key: mirrorKeyPrefix + sessionID, ttl: ttl}
}

// Write stores the entry as JSON.
func (m *RedisMirror) Write(ctx context.Context, entry MirrorEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return m.client.Set(ctx, m.key, data, m.ttl).Err()
}

// Read returns the stored entry, or nil when the slot is empty.
func (m *RedisMirror) Read(ctx context.Context) (*MirrorEntry, error) {
	data, err := m.client.Get(ctx, m.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var entry MirrorEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Clear empties the slot. Clearing an already-empty slot is not an error.
func (m *RedisMirror) Clear(ctx context.Context) error {
	if err := m.client.Del(ctx, m.key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

var _ MirrorStore = (*RedisMirror)(nil)

// SweepMirrors deletes the mirror slots for the given sessions. The
// maintenance sweep calls this after expired session rows are removed,
// so a slot cannot outlive the session it describes even when its TTL
// has not elapsed yet.
func SweepMirrors(ctx context.Context, client *redis.Client, sessionIDs []string) error {
	if client == nil || len(sessionIDs) == 0 {
		return nil
	}
	keys := make([]string, len(sessionIDs))
	for i, id := range sessionIDs {
		keys[i] = mirrorKeyPrefix + id
	}
	return client.Del(ctx, keys...).Err()
}
