package redis

import "errors"

var (
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrEmptyConnectionURL           = errors.New("empty redis connection URL")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")

	// Orphan set errors
	ErrEmptyReference        = errors.New("empty blob reference")
	ErrFailedToRecordOrphan  = errors.New("failed to record orphaned blob")
	ErrFailedToReadOrphans   = errors.New("failed to read orphaned blobs")
	ErrFailedToRemoveOrphans = errors.New("failed to remove orphaned blobs")
)
