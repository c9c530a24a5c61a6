package store

import (
	"context"

	"github.com/agritrace/agritrace/internal/domain"
	"github.com/agritrace/agritrace/internal/store/schema"
)

// Store is the persistence interface for the trace and activity ledger.
// The steady-state path issues single-row or small-batch inserts and point
// lookups by trace_id only; there are no updates and no deletes.
type Store interface {
	// CreateBatchWithMedia persists the batch root record and its media rows
	// atomically: either all rows are committed or none are. A duplicate
	// trace or batch ID surfaces as domain.ErrCollision.
	CreateBatchWithMedia(ctx context.Context, batch *schema.Batch, media []schema.Media) error

	// GetBatchByTraceID retrieves a batch by its trace ID; returns nil, nil
	// when no batch exists
	GetBatchByTraceID(ctx context.Context, traceID string) (*schema.Batch, error)

	// TraceExists reports whether a batch with the given trace ID exists
	TraceExists(ctx context.Context, traceID string) (bool, error)

	// CreateActivities appends the given activities in one transaction. The
	// trace-existence check runs inside the same transaction as the insert;
	// an absent trace surfaces as domain.ErrUnknownTrace and nothing is
	// written. Returns the inserted rows with server-assigned IDs.
	CreateActivities(ctx context.Context, traceID string, activities []schema.Activity) ([]schema.Activity, error)

	// ListActivitiesByTraceID retrieves all activities for a trace ordered by
	// timestamp ascending
	ListActivitiesByTraceID(ctx context.Context, traceID string) ([]schema.Activity, error)

	// LatestActivityByType retrieves the most recent activity of the given
	// type for a trace; returns nil, nil when none exists
	LatestActivityByType(ctx context.Context, traceID string, activityType domain.ActivityType) (*schema.Activity, error)

	// ListMediaByTraceID retrieves all media rows for a trace
	ListMediaByTraceID(ctx context.Context, traceID string) ([]schema.Media, error)

	// MediaExistsForURL reports whether any media row references the given
	// URL. Used by the orphan reconciliation sweep.
	MediaExistsForURL(ctx context.Context, url string) (bool, error)
}
