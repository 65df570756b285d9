package post

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/blogapi/pkg/logger"
)

// OrphanRecorder is notified about blobs that could not be deleted and may
// now exist without a referencing post.
type OrphanRecorder interface {
	RecordOrphan(ctx context.Context, reference string, cause error) error
}

// OrphanRecorderFunc adapts a function to OrphanRecorder.
type OrphanRecorderFunc func(ctx context.Context, reference string, cause error) error

func (f OrphanRecorderFunc) RecordOrphan(ctx context.Context, reference string, cause error) error {
	return f(ctx, reference, cause)
}

// LogOrphanRecorder only logs orphaned references.
type LogOrphanRecorder struct {
	log *slog.Logger
}

// NewLogOrphanRecorder returns a recorder writing WARN entries to log (slog.Default if nil).
func NewLogOrphanRecorder(log *slog.Logger) *LogOrphanRecorder {
	if log == nil {
		log = slog.Default()
	}
	return &LogOrphanRecorder{log: log}
}

func (r *LogOrphanRecorder) RecordOrphan(ctx context.Context, reference string, cause error) error {
	r.log.WarnContext(ctx, "orphaned image blob",
		logger.Reference(reference),
		logger.Error(cause),
	)
	return nil
}
