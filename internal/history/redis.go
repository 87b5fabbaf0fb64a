package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore provides Redis-backed persistence for evaluation runs.
// Runs are kept in a sorted set scored by completion time, so range
// queries by recency stay cheap.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration // Retention for runs
}

// NewRedisStore creates a new Redis storage backend.
// Returns error if connection fails.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: "rankeval:history:",
		ttl:    30 * 24 * time.Hour, // Keep a month of runs by default
	}, nil
}

// SaveRun records one run, trimming runs older than the retention window.
func (rs *RedisStore) SaveRun(ctx context.Context, run Run) error {
	key := rs.prefix + run.Dataset

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}

	// Use pipeline for atomic operation
	pipe := rs.client.Pipeline()

	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(run.Timestamp.Unix()),
		Member: string(data),
	})

	// Remove runs older than the retention window
	minScore := time.Now().Add(-rs.ttl).Unix()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", minScore))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	return nil
}

// LoadRuns returns runs for every dataset completed after 'since'.
func (rs *RedisStore) LoadRuns(ctx context.Context, since time.Time) ([]Run, error) {
	keys, err := rs.client.Keys(ctx, rs.prefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("listing history keys: %w", err)
	}

	var runs []Run
	for _, key := range keys {
		results, err := rs.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
			Min: fmt.Sprintf("%d", since.Unix()),
			Max: "+inf",
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("loading runs from %s: %w", key, err)
		}

		for _, member := range results {
			var run Run
			if err := json.Unmarshal([]byte(member), &run); err != nil {
				// Skip malformed entries
				continue
			}
			runs = append(runs, run)
		}
	}

	// Per-key ranges are ordered, merging across datasets is not.
	sort.Slice(runs, func(a, b int) bool {
		return runs[a].Timestamp.Before(runs[b].Timestamp)
	})

	return runs, nil
}

// LoadDatasetRuns returns runs for one dataset completed after 'since'.
func (rs *RedisStore) LoadDatasetRuns(ctx context.Context, dataset string, since time.Time) ([]Run, error) {
	key := rs.prefix + dataset

	results, err := rs.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", since.Unix()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("loading runs: %w", err)
	}

	runs := make([]Run, 0, len(results))
	for _, member := range results {
		var run Run
		if err := json.Unmarshal([]byte(member), &run); err != nil {
			continue
		}
		runs = append(runs, run)
	}

	return runs, nil
}

// DeleteDataset removes all runs for a dataset.
func (rs *RedisStore) DeleteDataset(ctx context.Context, dataset string) error {
	if err := rs.client.Del(ctx, rs.prefix+dataset).Err(); err != nil {
		return fmt.Errorf("deleting dataset history: %w", err)
	}
	return nil
}

// SetTTL sets the retention window for runs.
func (rs *RedisStore) SetTTL(ttl time.Duration) {
	rs.ttl = ttl
}

// Close closes the Redis connection.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
