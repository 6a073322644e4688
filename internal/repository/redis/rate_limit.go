package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fanarena/voting-service/internal/core/port"
)

const defaultAttemptKeyPrefix = "fanvote:attempts"

var errNonPositiveWindow = errors.New("window must be positive")

// VoteAttemptStore keeps per-identifier submission timestamps in a Redis
// sorted set scored by unix nanoseconds, giving the middleware a sliding
// window over recent vote traffic.
type VoteAttemptStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewVoteAttemptStore constructs a store over the provided client. Keys live
// twice the window so an idle identifier expires on its own instead of
// accumulating dead sets.
func NewVoteAttemptStore(client *redis.Client, window time.Duration) *VoteAttemptStore {
	return &VoteAttemptStore{
		client: client,
		prefix: defaultAttemptKeyPrefix,
		ttl:    2 * window,
	}
}

// RecordAttempt appends one attempt at the given instant. The set insert and
// the TTL refresh ship in one pipeline round trip.
func (s *VoteAttemptStore) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	key := s.key(identifier)
	nanos := at.UnixNano()

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(nanos), Member: nanos})
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record vote attempt: %w", err)
	}

	return nil
}

// CountAttempts returns how many attempts fall inside the window ending at
// the reference instant.
func (s *VoteAttemptStore) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errNonPositiveWindow
	}

	min, max := windowBounds(window, reference)
	count, err := s.client.ZCount(ctx, s.key(identifier), min, max).Result()
	if err != nil {
		return 0, fmt.Errorf("count vote attempts: %w", err)
	}

	return int(count), nil
}

// TrimWindow drops attempts that slid out of the window.
func (s *VoteAttemptStore) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errNonPositiveWindow
	}

	min, _ := windowBounds(window, reference)
	if err := s.client.ZRemRangeByScore(ctx, s.key(identifier), "-inf", min).Err(); err != nil {
		return fmt.Errorf("trim vote attempts: %w", err)
	}

	return nil
}

// OldestAttempt reports the earliest attempt still inside the window, which
// the middleware turns into the Retry-After horizon.
func (s *VoteAttemptStore) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errNonPositiveWindow
	}

	min, max := windowBounds(window, reference)
	entries, err := s.client.ZRangeByScoreWithScores(ctx, s.key(identifier), &redis.ZRangeBy{
		Min:   min,
		Max:   max,
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read oldest vote attempt: %w", err)
	}
	if len(entries) == 0 {
		return time.Time{}, false, nil
	}

	return time.Unix(0, int64(entries[0].Score)), true, nil
}

func (s *VoteAttemptStore) key(identifier string) string {
	return s.prefix + ":" + identifier
}

func windowBounds(window time.Duration, reference time.Time) (string, string) {
	min := strconv.FormatInt(reference.Add(-window).UnixNano(), 10)
	max := strconv.FormatInt(reference.UnixNano(), 10)
	return min, max
}

var _ port.RateLimitStore = (*VoteAttemptStore)(nil)
