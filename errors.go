package blogapi

import "errors"

var (
	ErrUnknownStorageDriver = errors.New("unknown storage driver")
	ErrUnknownOrphanLedger  = errors.New("unknown orphan ledger")
	ErrFailedToInitStorage  = errors.New("failed to initialize blob storage")
	ErrFailedToInitDatabase = errors.New("failed to initialize database")
	ErrFailedToInitLedger   = errors.New("failed to initialize orphan ledger")
	ErrUnhealthy            = errors.New("application is unhealthy")
)
