// Package redis implements the Redis caching layer for Growth Hub.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/cerulean-labs/growth-hub/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// Read-through decorator over the real ranker. Each board lives in a sorted
// set keyed by category and period, with the full entries as JSON in a
// sibling hash. A miss falls through to the source and repopulates both keys,
// so the cache rebuilds itself after every TTL expiry and every invalidation.
//
// The source's tie-break (creation order) does not survive a sorted set, so
// reads restore ordering from the ranks stored in the hash entries.
//
// Keys:
//   - Sorted set "lb:rank:{category}:{period}" identity -> score
//   - Hash       "lb:info:{category}:{period}" identity -> Entry JSON
// ══════════════════════════════════════════════════════════════════════════════

const (
	keyRankPrefix = "lb:rank:"
	keyInfoPrefix = "lb:info:"

	// emptyBoardMember marks a cached empty board so it does not hit the
	// source on every read until the TTL expires.
	emptyBoardMember = "-"
)

// LeaderboardCache implements leaderboard.Ranker with Redis Sorted Sets in
// front of another Ranker.
type LeaderboardCache struct {
	cache  *Cache
	source leaderboard.Ranker
}

// NewLeaderboardCache creates a cache in front of the given ranker.
func NewLeaderboardCache(cache *Cache, source leaderboard.Ranker) *LeaderboardCache {
	return &LeaderboardCache{cache: cache, source: source}
}

func boardKeys(category leaderboard.Category, periodKey string) (rank, info string) {
	suffix := string(category) + ":" + periodKey
	return keyRankPrefix + suffix, keyInfoPrefix + suffix
}

// TopN serves the board from the cache, falling back to the source on miss
// or on any Redis error. A degraded cache never takes the boards down.
func (l *LeaderboardCache) TopN(ctx context.Context, category leaderboard.Category, periodKey string, n int) ([]leaderboard.Entry, error) {
	if !category.Valid() {
		return nil, leaderboard.ErrUnknownCategory
	}

	entries, err := l.readBoard(ctx, category, periodKey, n)
	if err == nil {
		return entries, nil
	}

	fresh, srcErr := l.source.TopN(ctx, category, periodKey, n)
	if srcErr != nil {
		return nil, srcErr
	}

	// Best effort repopulation; a write failure only costs the next read.
	_ = l.writeBoard(ctx, category, periodKey, fresh)

	return fresh, nil
}

// Invalidate drops the cached board for one category and period.
func (l *LeaderboardCache) Invalidate(ctx context.Context, category leaderboard.Category, periodKey string) error {
	rankKey, infoKey := boardKeys(category, periodKey)
	return l.cache.Client().Del(ctx, rankKey, infoKey).Err()
}

// Refresh re-reads the board from the source and rewrites the cache. The
// worker calls this on a schedule for the current-period boards.
func (l *LeaderboardCache) Refresh(ctx context.Context, category leaderboard.Category, periodKey string, n int) error {
	fresh, err := l.source.TopN(ctx, category, periodKey, n)
	if err != nil {
		return err
	}
	return l.writeBoard(ctx, category, periodKey, fresh)
}

func (l *LeaderboardCache) readBoard(ctx context.Context, category leaderboard.Category, periodKey string, n int) ([]leaderboard.Entry, error) {
	rankKey, infoKey := boardKeys(category, periodKey)
	client := l.cache.Client()

	exists, err := client.Exists(ctx, rankKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}
	if exists == 0 {
		return nil, ErrCacheMiss
	}

	members, err := client.ZRevRange(ctx, rankKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	entries := make([]leaderboard.Entry, 0, len(members))
	for _, member := range members {
		if member == emptyBoardMember {
			continue
		}

		data, err := client.HGet(ctx, infoKey, member).Result()
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
		}

		var e leaderboard.Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, ErrCacheMiss
		}
		entries = append(entries, e)
	}

	// Equal scores come back from the sorted set in member order; the
	// stored ranks carry the source's tie-break.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Rank < entries[j].Rank })

	return entries, nil
}

func (l *LeaderboardCache) writeBoard(ctx context.Context, category leaderboard.Category, periodKey string, entries []leaderboard.Entry) error {
	rankKey, infoKey := boardKeys(category, periodKey)
	pipe := l.cache.Client().Pipeline()

	pipe.Del(ctx, rankKey, infoKey)

	if len(entries) > 0 {
		zs := make([]redis.Z, 0, len(entries))
		info := make(map[string]interface{}, len(entries))
		for _, e := range entries {
			member := strconv.FormatInt(int64(e.Identity), 10)
			zs = append(zs, redis.Z{Score: float64(e.Score), Member: member})

			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal entry: %w", err)
			}
			info[member] = data
		}
		pipe.ZAdd(ctx, rankKey, zs...)
		pipe.HSet(ctx, infoKey, info)
	} else {
		pipe.ZAdd(ctx, rankKey, redis.Z{Score: -1, Member: emptyBoardMember})
	}

	pipe.Expire(ctx, rankKey, TTLLeaderboardCache)
	pipe.Expire(ctx, infoKey, TTLLeaderboardCache)

	_, err := pipe.Exec(ctx)
	return err
}
