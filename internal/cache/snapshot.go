// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// snapshot.go caches the full flat category list in Valkey. Category reads
// (the flat list and the built tree) are served from the snapshot, and every
// category mutation drops it, so the next read reloads the complete list from
// PostgreSQL. The snapshot is never patched in place.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"ruletracker/internal/models"
)

const (
	// snapshotKey is the Valkey key holding the encoded category list.
	snapshotKey = "categories:snapshot"

	// generationKey counts invalidations. A snapshot is only stored if the
	// generation it was loaded under is still current.
	generationKey = "categories:generation"

	// DefaultSnapshotTTL bounds how long a snapshot may outlive a write
	// made outside this process.
	DefaultSnapshotTTL = 10 * time.Minute
)

// errStaleSnapshot aborts a Set whose generation was overtaken.
var errStaleSnapshot = errors.New("snapshot generation changed")

// SnapshotCache stores the category snapshot in Valkey. A nil
// *SnapshotCache is valid and always misses.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache creates a snapshot cache backed by the given Valkey client.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl == 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

// Get returns the cached category list, or false on a miss. It also
// returns the current generation; on a miss, pass it to Set after loading
// the list from the store. A negative generation means the cache is
// unavailable and Set will not write.
func (sc *SnapshotCache) Get(ctx context.Context) ([]models.Category, int64, bool) {
	if sc == nil {
		return nil, -1, false
	}

	var genCmd, valCmd *redis.StringCmd
	// Errors are reported per command below.
	_, _ = sc.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		genCmd = p.Get(ctx, generationKey)
		valCmd = p.Get(ctx, snapshotKey)
		return nil
	})

	gen, err := genCmd.Int64()
	if errors.Is(err, redis.Nil) {
		gen = 0
	} else if err != nil {
		slog.Warn("snapshot cache generation error", "error", err)
		return nil, -1, false
	}

	val, err := valCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false
	}
	if err != nil {
		slog.Warn("snapshot cache get error", "error", err)
		return nil, -1, false
	}

	var cats []models.Category
	if err := json.Unmarshal(val, &cats); err != nil {
		slog.Warn("snapshot cache decode error", "error", err)
		return nil, gen, false
	}
	slog.Debug("snapshot cache hit", "categories", len(cats))
	return cats, gen, true
}

// Set stores the category list with the configured TTL, but only while
// gen is still the current generation. A list loaded before a concurrent
// Invalidate is dropped instead of overwriting the newer state.
func (sc *SnapshotCache) Set(ctx context.Context, gen int64, cats []models.Category) {
	if sc == nil || gen < 0 {
		return
	}
	payload, err := json.Marshal(cats)
	if err != nil {
		slog.Warn("snapshot cache encode error", "error", err)
		return
	}

	err = sc.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, generationKey).Int64()
		if errors.Is(err, redis.Nil) {
			cur = 0
		} else if err != nil {
			return err
		}
		if cur != gen {
			return errStaleSnapshot
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, snapshotKey, payload, sc.ttl)
			return nil
		})
		return err
	}, generationKey)

	switch {
	case errors.Is(err, errStaleSnapshot), errors.Is(err, redis.TxFailedErr):
		slog.Debug("snapshot cache set skipped, categories changed during load", "generation", gen)
	case err != nil:
		slog.Warn("snapshot cache set error", "error", err)
	}
}

// Invalidate drops the snapshot and advances the generation, so loads
// already in flight cannot store their older list.
func (sc *SnapshotCache) Invalidate(ctx context.Context) {
	if sc == nil {
		return
	}
	_, err := sc.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, generationKey)
		p.Del(ctx, snapshotKey)
		return nil
	})
	if err != nil {
		slog.Warn("snapshot cache invalidate error", "error", err)
		return
	}
	slog.Debug("snapshot cache invalidated")
}
