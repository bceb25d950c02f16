// Package redisstore persists the facility cache and the offline submission
// queue to Redis so both survive a restart. Persistence is best-effort: the
// service runs memory-only when Redis is down, and every method here returns
// a plain error for the caller to log rather than escalate.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/facility-discovery/internal/domain"
)

const (
	facilitiesKey = "facility-discovery:facilities"
	queueKey      = "facility-discovery:queue"
)

// Store is a thin persistence layer over one Redis instance.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

// New creates a Store for the given address. No connection is made until the
// first operation; use Ping to probe.
func New(addr, password string, logger *slog.Logger) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &Store{client: client, logger: logger}
}

// Ping probes connectivity, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveFacilities replaces the persisted facility set with the given snapshot.
func (s *Store) SaveFacilities(ctx context.Context, facilities []domain.Facility) error {
	fields := make(map[string]any, len(facilities))
	for _, f := range facilities {
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("marshal facility %s: %w", f.ID, err)
		}
		fields[f.ID] = data
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, facilitiesKey)
	if len(fields) > 0 {
		pipe.HSet(ctx, facilitiesKey, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist facilities: %w", err)
	}
	return nil
}

// LoadFacilities returns the persisted facility set. An entry that no longer
// unmarshals (schema drift across versions) is logged and skipped.
func (s *Store) LoadFacilities(ctx context.Context) ([]domain.Facility, error) {
	raw, err := s.client.HGetAll(ctx, facilitiesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load facilities: %w", err)
	}

	out := make([]domain.Facility, 0, len(raw))
	for id, data := range raw {
		var f domain.Facility
		if err := json.Unmarshal([]byte(data), &f); err != nil {
			s.logger.Warn("dropping unreadable persisted facility", "id", id, "error", err)
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// SaveQueue replaces the persisted offline queue with the given snapshot,
// preserving order.
func (s *Store) SaveQueue(ctx context.Context, items []domain.SubmissionRequest) error {
	values := make([]any, len(items))
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal submission %s: %w", item.IdempotencyKey, err)
		}
		values[i] = data
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, queueKey)
	if len(values) > 0 {
		pipe.RPush(ctx, queueKey, values...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist queue: %w", err)
	}
	return nil
}

// LoadQueue returns the persisted offline queue in FIFO order.
func (s *Store) LoadQueue(ctx context.Context) ([]domain.SubmissionRequest, error) {
	raw, err := s.client.LRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}

	out := make([]domain.SubmissionRequest, 0, len(raw))
	for i, data := range raw {
		var item domain.SubmissionRequest
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			s.logger.Warn("dropping unreadable persisted submission", "position", i, "error", err)
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
