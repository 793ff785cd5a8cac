// Package cache keeps the solved-entry count in Redis so /get-rank does not
// hit the entry collection on every page load.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"quest-entry-service/store"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	solvedCountKey = "quest:solved_count"
	generationKey  = "quest:solved_gen"
)

var errStaleCount = errors.New("solved count changed while counting")

// RankedStore decorates a store.Store, serving SolvedRank from Redis and
// invalidating the count whenever MarkSolved flips a flag. Redis errors are
// logged and fall through to the store.
type RankedStore struct {
	store.Store
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Entry
}

// NewRankedStore wraps next. ttl bounds how stale a rank may be when another
// instance solves without invalidating this cache.
func NewRankedStore(next store.Store, client *redis.Client, ttl time.Duration, log *logrus.Entry) *RankedStore {
	return &RankedStore{Store: next, client: client, ttl: ttl, log: log}
}

// Dial parses a redis:// URL and pings the server.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (s *RankedStore) SolvedRank(ctx context.Context, walletAddress string) (store.Rank, error) {
	val, err := s.client.Get(ctx, solvedCountKey).Result()
	switch {
	case err == nil:
		if n, perr := strconv.ParseInt(val, 10, 64); perr == nil {
			return store.RankFor(n), nil
		}
		s.log.WithField("value", val).Warn("discarding malformed cached solved count")
	case !errors.Is(err, redis.Nil):
		s.log.WithError(err).Warn("rank cache read failed")
	}

	gen, genErr := s.generation(ctx)
	rank, err := s.Store.SolvedRank(ctx, walletAddress)
	if err != nil {
		return store.Rank{}, err
	}
	if genErr == nil {
		s.remember(ctx, rank.TotalSolved, gen)
	}
	return rank, nil
}

// MarkSolved bumps the generation before dropping the count, so a reader
// that counted before this write cannot store its stale result.
func (s *RankedStore) MarkSolved(ctx context.Context, walletAddress string) (store.SolveResult, error) {
	res, err := s.Store.MarkSolved(ctx, walletAddress)
	if err == nil && res == store.SolveUpdated {
		s.Invalidate(ctx)
	}
	return res, err
}

// Warm recounts from the store and caches the result; the stats job calls it.
func (s *RankedStore) Warm(ctx context.Context) (int64, error) {
	gen, genErr := s.generation(ctx)
	rank, err := s.Store.SolvedRank(ctx, "")
	if err != nil {
		return 0, err
	}
	if genErr == nil {
		s.remember(ctx, rank.TotalSolved, gen)
	}
	return rank.TotalSolved, nil
}

// Invalidate advances the generation and drops the cached count.
func (s *RankedStore) Invalidate(ctx context.Context) {
	if err := s.client.Incr(ctx, generationKey).Err(); err != nil {
		s.log.WithError(err).Warn("rank cache generation bump failed")
	}
	if err := s.client.Del(ctx, solvedCountKey).Err(); err != nil {
		s.log.WithError(err).Warn("rank cache invalidation failed")
	}
}

func (s *RankedStore) generation(ctx context.Context) (int64, error) {
	gen, err := s.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// remember writes n only if no solve was recorded since gen was read.
func (s *RankedStore) remember(ctx context.Context, n, gen int64) {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleCount
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, solvedCountKey, n, s.ttl)
			return nil
		})
		return err
	}, generationKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleCount), errors.Is(err, redis.TxFailedErr):
		s.log.Debug("skipping stale solved count")
	default:
		s.log.WithError(err).Warn("rank cache write failed")
	}
}

func (s *RankedStore) Close() error {
	err := s.Store.Close()
	if cerr := s.client.Close(); err == nil {
		err = cerr
	}
	return err
}
