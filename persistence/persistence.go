// Package persistence stores session snapshots, captured leads,
// booked appointments, and an append-only turn audit log, backed by
// Redis: plain keys with TTL for snapshots/cache, and a stream per
// session for the audit trail.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lead is a captured customer lead awaiting follow-up.
type Lead struct {
	SessionID    string    `json:"session_id"`
	CustomerName string    `json:"customer_name"`
	PhoneNumber  string    `json:"phone_number"`
	GoalID       string    `json:"goal_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Appointment is a booked branch visit.
type Appointment struct {
	SessionID string    `json:"session_id"`
	Branch    string    `json:"branch"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEntry is one recorded turn event in a session's audit stream.
type AuditEntry struct {
	SessionID string
	Type      string
	Fields    map[string]string
}

// Store is the persistence port the orchestrator and planner use for
// session state, lead/appointment capture, and auditing.
type Store interface {
	SaveSnapshot(ctx context.Context, sessionID string, snapshot any, ttl time.Duration) error
	LoadSnapshot(ctx context.Context, sessionID string, out any) (bool, error)
	SaveLead(ctx context.Context, lead Lead) error
	SaveAppointment(ctx context.Context, appt Appointment) error
	AppendAudit(ctx context.Context, entry AuditEntry) error
	Close() error
}

// RedisStore is the concrete Store, grounded on intelligencedev-manifold's
// redis/go-redis/v9 cache wrappers (options, Get/Set with TTL, redis.Nil
// handling) plus XADD for the append-only audit trail.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// Config dials one Redis instance.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection with Ping.
func NewRedisStore(ctx context.Context, cfg Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("persistence: redis ping: %w", err)
	}
	return &RedisStore{client: client, ttl: 24 * time.Hour}, nil
}

func snapshotKey(sessionID string) string {
	return "session:" + sessionID + ":snapshot"
}

func auditStreamKey(sessionID string) string {
	return "session:" + sessionID + ":audit"
}

// SaveSnapshot marshals snapshot to JSON and stores it with a TTL so
// abandoned sessions don't linger forever.
func (s *RedisStore) SaveSnapshot(ctx context.Context, sessionID string, snapshot any, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("persistence: marshal snapshot: %w", err)
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.client.Set(ctx, snapshotKey(sessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("persistence: save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot unmarshals a previously saved snapshot into out.
// Returns (false, nil) if nothing was stored for sessionID.
func (s *RedisStore) LoadSnapshot(ctx context.Context, sessionID string, out any) (bool, error) {
	val, err := s.client.Get(ctx, snapshotKey(sessionID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("persistence: load snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false, fmt.Errorf("persistence: unmarshal snapshot: %w", err)
	}
	return true, nil
}

// SaveLead stores the lead under a per-session key (overwriting any
// earlier lead for that session) and appends it to a global list for
// downstream CRM export.
func (s *RedisStore) SaveLead(ctx context.Context, lead Lead) error {
	data, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("persistence: marshal lead: %w", err)
	}
	key := "lead:" + lead.SessionID
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("persistence: save lead: %w", err)
	}
	if err := s.client.RPush(ctx, "leads:all", data).Err(); err != nil {
		return fmt.Errorf("persistence: append lead list: %w", err)
	}
	return nil
}

// SaveAppointment persists a booked appointment.
func (s *RedisStore) SaveAppointment(ctx context.Context, appt Appointment) error {
	data, err := json.Marshal(appt)
	if err != nil {
		return fmt.Errorf("persistence: marshal appointment: %w", err)
	}
	key := "appointment:" + appt.SessionID
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("persistence: save appointment: %w", err)
	}
	return nil
}

// AppendAudit records one turn event to the session's audit stream via
// XADD, giving an ordered, replayable history for QA and dispute
// resolution.
func (s *RedisStore) AppendAudit(ctx context.Context, entry AuditEntry) error {
	values := map[string]any{"type": entry.Type}
	for k, v := range entry.Fields {
		values[k] = v
	}
	args := &redis.XAddArgs{
		Stream: auditStreamKey(entry.SessionID),
		Values: values,
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("persistence: append audit: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
