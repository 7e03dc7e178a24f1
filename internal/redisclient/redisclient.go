// Package redisclient caches pipeline status snapshots and verification
// reports so dashboards poll Redis instead of the coordinator.
package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"dw-pipeline/internal/models"
)

const (
	statusKey     = "pipeline:status"
	reportKey     = "pipeline:verification:latest"
	lastRunPrefix = "pipeline:lastrun:"

	statusTTL = 24 * time.Hour
	reportTTL = 7 * 24 * time.Hour
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a Redis client and verifies connectivity.
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// CacheStatus stores the full stage snapshot.
func (c *Client) CacheStatus(ctx context.Context, snapshot map[models.StageID]models.StageState) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal status snapshot: %w", err)
	}
	return c.rdb.Set(ctx, statusKey, payload, statusTTL).Err()
}

// RecordLastRun stores the terminal state of a stage run.
func (c *Client) RecordLastRun(ctx context.Context, state models.StageState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal stage state: %w", err)
	}
	return c.rdb.Set(ctx, lastRunPrefix+string(state.Stage), payload, statusTTL).Err()
}

// LastRun returns the recorded terminal state for a stage, or nil.
func (c *Client) LastRun(ctx context.Context, stage models.StageID) (*models.StageState, error) {
	payload, err := c.rdb.Get(ctx, lastRunPrefix+string(stage)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state models.StageState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stage state: %w", err)
	}
	return &state, nil
}

// CacheVerificationReport stores the latest consistency report.
func (c *Client) CacheVerificationReport(ctx context.Context, report interface{}) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal verification report: %w", err)
	}
	return c.rdb.Set(ctx, reportKey, payload, reportTTL).Err()
}

// CachedVerificationReport fills out from the latest stored report.
// Returns false when no report is cached.
func (c *Client) CachedVerificationReport(ctx context.Context, out interface{}) (bool, error) {
	payload, err := c.rdb.Get(ctx, reportKey).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal verification report: %w", err)
	}
	return true, nil
}
