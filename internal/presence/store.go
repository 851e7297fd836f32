// Package presence mirrors live participant state into Redis for operational
// visibility (dashboards, debugging a stuck participant by identifier). The
// core never reads it back: matchmaking and relay decisions run entirely on
// in-process state, so a Redis outage degrades observability, not calls.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix is the Redis key prefix for all presence hashes.
	KeyPrefix = "presence:"

	// TTL is the time-to-live for presence keys. Refreshed on every status
	// change; a crashed server's entries age out on their own.
	TTL = 1 * time.Hour

	// Status values for a tracked participant.
	StatusQueued = "queued"
	StatusInCall = "in_call"
)

// Entry is a participant's presence record stored in Redis.
type Entry struct {
	Identifier string `redis:"identifier"`
	Status     string `redis:"status"`  // queued | in_call
	ConnID     string `redis:"conn_id"` // current transport connection ID
	Server     string `redis:"server"`  // which server instance owns the connection
	UpdatedAt  int64  `redis:"updated_at"`
}

// Store manages presence records in Redis.
type Store struct {
	client     *redis.Client
	serverName string // identifier for this server instance
}

// NewStore creates a presence store connected to Redis.
func NewStore(redisAddr string, serverName string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	// Verify connection.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("presence: redis connection failed: %w", err)
	}

	return &Store{client: client, serverName: serverName}, nil
}

// Client exposes the underlying Redis client so sibling subsystems (e.g. the
// rate limiter) can share the connection pool.
func (s *Store) Client() *redis.Client {
	return s.client
}

// Track upserts a participant's presence record with the given status and
// connection ID, refreshing the TTL.
func (s *Store) Track(ctx context.Context, identifier, status, connID string) error {
	key := KeyPrefix + identifier

	entry := map[string]interface{}{
		"identifier": identifier,
		"status":     status,
		"conn_id":    connID,
		"server":     s.serverName,
		"updated_at": time.Now().Unix(),
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, entry)
	pipe.Expire(ctx, key, TTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Get retrieves a presence record. Returns nil if not found.
func (s *Store) Get(ctx context.Context, identifier string) (*Entry, error) {
	key := KeyPrefix + identifier
	var entry Entry
	err := s.client.HGetAll(ctx, key).Scan(&entry)
	if err != nil {
		return nil, err
	}
	if entry.Identifier == "" {
		return nil, nil // not found
	}
	return &entry, nil
}

// Clear removes a participant's presence record, but only if it is still
// owned by the given connection ID. A record rewritten by a reconnect on
// another connection is left alone, mirroring the registry's
// unbind-if-current rule.
func (s *Store) Clear(ctx context.Context, identifier, connID string) error {
	key := KeyPrefix + identifier

	owner, err := s.client.HGet(ctx, key, "conn_id").Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if owner != connID {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}

// Close closes the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
