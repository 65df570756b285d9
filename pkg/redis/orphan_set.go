package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// DefaultOrphanSetKey is the set holding references of blobs that could not be deleted.
const DefaultOrphanSetKey = "blogapi:orphaned_blobs"

// SetClient is the subset of redis.UniversalClient used by OrphanSet.
type SetClient interface {
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	SCard(ctx context.Context, key string) *redis.IntCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
}

// OrphanSet records references of blobs left behind by failed deletes so an
// operator or a sweeper can remove them later. References live in a Redis
// set; the last failure cause of each is kept in a companion hash "<key>:causes".
type OrphanSet struct {
	db  SetClient
	key string
}

// NewOrphanSet creates an OrphanSet stored under key (DefaultOrphanSetKey if empty).
func NewOrphanSet(client SetClient, key string) *OrphanSet {
	if key == "" {
		key = DefaultOrphanSetKey
	}
	return &OrphanSet{db: client, key: key}
}

func (s *OrphanSet) causesKey() string {
	return s.key + ":causes"
}

// RecordOrphan adds reference to the set and stores cause as its last failure.
// Recording the same reference twice is harmless.
func (s *OrphanSet) RecordOrphan(ctx context.Context, reference string, cause error) error {
	if reference == "" {
		return ErrEmptyReference
	}
	if err := s.db.SAdd(ctx, s.key, reference).Err(); err != nil {
		return errors.Join(ErrFailedToRecordOrphan, err)
	}
	var err error
	if cause != nil {
		err = s.db.HSet(ctx, s.causesKey(), reference, cause.Error()).Err()
	} else {
		// Drop a cause left by an earlier failure.
		err = s.db.HDel(ctx, s.causesKey(), reference).Err()
	}
	if err != nil {
		return errors.Join(ErrFailedToRecordOrphan, err)
	}
	return nil
}

// Members returns every recorded reference in no particular order.
func (s *OrphanSet) Members(ctx context.Context) ([]string, error) {
	refs, err := s.db.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, errors.Join(ErrFailedToReadOrphans, err)
	}
	return refs, nil
}

// Cause returns the recorded failure for reference, or "" if none was kept.
func (s *OrphanSet) Cause(ctx context.Context, reference string) (string, error) {
	cause, err := s.db.HGet(ctx, s.causesKey(), reference).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errors.Join(ErrFailedToReadOrphans, err)
	}
	return cause, nil
}

// Count returns the number of recorded references.
func (s *OrphanSet) Count(ctx context.Context) (int64, error) {
	n, err := s.db.SCard(ctx, s.key).Result()
	if err != nil {
		return 0, errors.Join(ErrFailedToReadOrphans, err)
	}
	return n, nil
}

// Remove forgets references, typically after they were swept from storage.
func (s *OrphanSet) Remove(ctx context.Context, references ...string) error {
	if len(references) == 0 {
		return nil
	}
	members := make([]any, len(references))
	for i, ref := range references {
		members[i] = ref
	}
	if err := s.db.SRem(ctx, s.key, members...).Err(); err != nil {
		return errors.Join(ErrFailedToRemoveOrphans, err)
	}
	if err := s.db.HDel(ctx, s.causesKey(), references...).Err(); err != nil {
		return errors.Join(ErrFailedToRemoveOrphans, err)
	}
	return nil
}
