package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bryanwahyu/nutrisift/internal/domain/analysis"
	domain "github.com/bryanwahyu/nutrisift/internal/domain/scans"
)

const keyPrefix = "nutrisift:record:"

// RecordCache simpan record final per scan ID, dipakai chat sebagai context
type RecordCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRecordCache connect + ping redis
func NewRecordCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RecordCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RecordCache{client: client, ttl: ttl}, nil
}

// Key is nutrisift:record:<tenant>:<scan id>
func Key(tenant string, id domain.ScanID) string { return keyPrefix + tenant + ":" + string(id) }

func (c *RecordCache) Put(ctx context.Context, tenant string, id domain.ScanID, rec *analysis.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return c.client.Set(ctx, Key(tenant, id), b, c.ttl).Err()
}

// Get returns (nil, nil) on a miss.
func (c *RecordCache) Get(ctx context.Context, tenant string, id domain.ScanID) (*analysis.Record, error) {
	b, err := c.client.Get(ctx, Key(tenant, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec analysis.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode cached record: %w", err)
	}
	return &rec, nil
}

// Ping dipakai health check
func (c *RecordCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RecordCache) Close() error { return c.client.Close() }
