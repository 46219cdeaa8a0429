package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"upload-gateway/internal/domain/job"

	goredis "github.com/redis/go-redis/v9"
)

// JobStore is the durable registry of upload job records, keyed by the
// job's full dataaction key.
type JobStore struct {
	client *goredis.Client
}

func NewJobStore(client *goredis.Client) *JobStore {
	return &JobStore{client: client}
}

// Put upserts one record under its exact key. Overwrite is not an error.
func (s *JobStore) Put(ctx context.Context, rec *job.UploadJob) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, rec.Key(), data, 0).Err()
}

// PipelinedPut stages every record and commits them in one atomic round
// trip. Used when admitting a multi-file batch so a crash between writes
// cannot leave some jobs persisted and others not.
func (s *JobStore) PipelinedPut(ctx context.Context, recs []*job.UploadJob) error {
	if len(recs) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		pipe.Set(ctx, rec.Key(), data, 0)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// GetByPrefix returns every record whose key extends the given prefix.
// The prefix may carry "*" glob segments (e.g. any job id).
func (s *JobStore) GetByPrefix(ctx context.Context, prefix string) ([]*job.UploadJob, error) {
	keys, err := s.scanKeys(ctx, prefix+":*")
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	records := make([]*job.UploadJob, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec job.UploadJob
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("corrupt job record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, nil
}

// DeleteByPrefix removes all matching records. Best effort: keys are
// enumerated first and deleted one by one, not atomically.
func (s *JobStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	keys, err := s.scanKeys(ctx, prefix+":*")
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return err
		}
	}
	return nil
}

// scanKeys enumerates matching keys with SCAN so reads never block the
// store the way KEYS would. SCAN may yield a key more than once, so
// results are deduplicated.
func (s *JobStore) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	seen := map[string]bool{}
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Ping reports store availability, used by the health endpoint.
func (s *JobStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
