package redisstream

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/logger"
)

// DelayedKey is the sorted set of pending retries, scored by due unix ms.
const DelayedKey = "drive_delayed:0"

// Ensure DelayedStore implements the interface.
var _ driven.DelayedJobStore = (*DelayedStore)(nil)

// DelayedStore keeps delayed jobs in a sorted set. Members are
// DelayedJob keys; the last Schedule of a key sets its score.
type DelayedStore struct {
	client redis.UniversalClient
	log    logger.Logger
}

// NewDelayedStore creates a delayed job store on client.
func NewDelayedStore(client redis.UniversalClient) *DelayedStore {
	return &DelayedStore{client: client, log: logger.With("delayed")}
}

// Schedule adds or moves a job.
func (s *DelayedStore) Schedule(ctx context.Context, job domain.DelayedJob) error {
	err := s.client.ZAdd(ctx, DelayedKey, redis.Z{
		Score:  float64(job.DueAt.UnixMilli()),
		Member: job.Key(),
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: zadd: %v", domain.ErrQueueUnavailable, err)
	}
	return nil
}

// Due returns up to limit jobs due at or before now. Unparseable members
// are removed.
func (s *DelayedStore) Due(ctx context.Context, now time.Time, limit int) ([]domain.DelayedJob, error) {
	by := &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}
	if limit > 0 {
		by.Count = int64(limit)
	}
	entries, err := s.client.ZRangeByScoreWithScores(ctx, DelayedKey, by).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: zrangebyscore: %v", domain.ErrQueueUnavailable, err)
	}

	jobs := make([]domain.DelayedJob, 0, len(entries))
	for _, e := range entries {
		member, _ := e.Member.(string)
		job, err := domain.ParseDelayedKey(member)
		if err != nil {
			s.log.Warn("dropping malformed delayed job %q: %v", member, err)
			_ = s.client.ZRem(ctx, DelayedKey, e.Member).Err()
			continue
		}
		job.DueAt = time.UnixMilli(int64(math.Round(e.Score))).UTC()
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// removeIfScore drops a member only while its score is still ARGV[2].
var removeIfScore = redis.NewScript(`
local score = redis.call('ZSCORE', KEYS[1], ARGV[1])
if score and tonumber(score) == tonumber(ARGV[2]) then
	return redis.call('ZREM', KEYS[1], ARGV[1])
end
return 0
`)

// Remove deletes a job unless it was rescheduled to another deadline.
func (s *DelayedStore) Remove(ctx context.Context, job domain.DelayedJob) error {
	err := removeIfScore.Run(ctx, s.client, []string{DelayedKey},
		job.Key(), strconv.FormatInt(job.DueAt.UnixMilli(), 10)).Err()
	if err != nil {
		return fmt.Errorf("%w: zrem: %v", domain.ErrQueueUnavailable, err)
	}
	return nil
}
