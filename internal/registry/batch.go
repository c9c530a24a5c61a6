package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/agritrace/agritrace/internal/domain"
	"github.com/agritrace/agritrace/internal/identifier"
	"github.com/agritrace/agritrace/internal/logger"
	"github.com/agritrace/agritrace/internal/mediastore"
	"github.com/agritrace/agritrace/internal/store"
	"github.com/agritrace/agritrace/internal/store/schema"
)

// maxAllocationAttempts bounds identifier regeneration on collision.
const maxAllocationAttempts = 3

// PhotoUpload is one evidentiary photo submitted with a new batch.
type PhotoUpload struct {
	Type    domain.MediaType
	Content []byte
}

// CreateBatchInput carries the producer-supplied fields for a new batch.
type CreateBatchInput struct {
	ProductName      string
	Quantity         float64
	QuantityUnit     domain.QuantityUnit
	ProductionAt     time.Time
	LocationState    string
	LocationDistrict string
	Photos           []PhotoUpload
}

// CreatedBatch is the result of a successful registration.
type CreatedBatch struct {
	Batch *schema.Batch
	Media []schema.Media
}

// TraceView is the full read model for one trace: the immutable batch root,
// its attached media and the activity ledger in chronological order.
type TraceView struct {
	Batch      *schema.Batch
	Media      []schema.Media
	Activities []schema.Activity
}

// Attacher is the slice of the media store the registry needs.
type Attacher interface {
	Attach(ctx context.Context, traceID string, mediaType domain.MediaType, content []byte) (*mediastore.Attachment, error)
}

// BatchRegistry creates batch root records and serves trace lookups.
type BatchRegistry struct {
	store    store.Store
	ids      identifier.Generator
	attacher Attacher
}

// NewBatchRegistry creates a batch registry
func NewBatchRegistry(s store.Store, ids identifier.Generator, attacher Attacher) *BatchRegistry {
	return &BatchRegistry{
		store:    s,
		ids:      ids,
		attacher: attacher,
	}
}

// CreateBatch registers a new batch for the given producer. Only farmers may
// register batches. Photos are uploaded before the database write so that a
// media row is never persisted without its blob; on a write failure the
// uploaded blobs become orphans for the reconciliation sweep to collect.
func (r *BatchRegistry) CreateBatch(ctx context.Context, actor domain.Actor, input CreateBatchInput) (*CreatedBatch, error) {
	if !actor.Valid() {
		return nil, fmt.Errorf("%w: malformed actor identity", domain.ErrValidation)
	}
	if actor.Role != domain.RoleFarmer {
		return nil, fmt.Errorf("%w: role %s cannot register batches", domain.ErrRoleNotPermitted, actor.Role)
	}
	if err := validateCreateBatchInput(input); err != nil {
		return nil, err
	}

	traceID, batchID, err := r.allocateIdentifiers(ctx)
	if err != nil {
		return nil, err
	}

	media := make([]schema.Media, 0, len(input.Photos))
	for _, photo := range input.Photos {
		attachment, err := r.attacher.Attach(ctx, traceID, photo.Type, photo.Content)
		if err != nil {
			return nil, err
		}
		media = append(media, schema.Media{
			TraceID:    traceID,
			Type:       attachment.Type,
			URL:        attachment.URL,
			CapturedAt: attachment.CapturedAt,
		})
	}

	batch := &schema.Batch{
		TraceID:          traceID,
		BatchID:          batchID,
		ProductName:      strings.TrimSpace(input.ProductName),
		Quantity:         input.Quantity,
		QuantityUnit:     input.QuantityUnit,
		ProducerID:       actor.ID,
		ProductionAt:     input.ProductionAt.UTC(),
		LocationState:    strings.TrimSpace(input.LocationState),
		LocationDistrict: strings.TrimSpace(input.LocationDistrict),
	}

	if err := r.store.CreateBatchWithMedia(ctx, batch, media); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Registered batch",
		zap.String("trace_id", traceID),
		zap.String("batch_id", batchID),
		zap.String("producer_id", actor.ID),
		zap.Int("photos", len(media)))

	return &CreatedBatch{Batch: batch, Media: media}, nil
}

// GetTrace retrieves the complete view of one trace. Unknown traces surface
// as domain.ErrUnknownTrace. Reads are open to every role.
func (r *BatchRegistry) GetTrace(ctx context.Context, traceID string) (*TraceView, error) {
	batch, err := r.store.GetBatchByTraceID(ctx, traceID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTrace, traceID)
	}

	media, err := r.store.ListMediaByTraceID(ctx, traceID)
	if err != nil {
		return nil, err
	}

	activities, err := r.store.ListActivitiesByTraceID(ctx, traceID)
	if err != nil {
		return nil, err
	}

	return &TraceView{
		Batch:      batch,
		Media:      media,
		Activities: activities,
	}, nil
}

// allocateIdentifiers generates a trace/batch ID pair and verifies the trace
// ID is unused. Generation is retried a bounded number of times; the unique
// indexes remain the authority, this check only avoids burning an upload on
// an ID that is already visibly taken.
func (r *BatchRegistry) allocateIdentifiers(ctx context.Context) (string, string, error) {
	var traceID, batchID string

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond

	operation := func() error {
		traceID = r.ids.NewTraceID()
		batchID = r.ids.NewBatchID()

		exists, err := r.store.TraceExists(ctx, traceID)
		if err != nil {
			return backoff.Permanent(err)
		}
		if exists {
			logger.WarnCtx(ctx, "Trace ID collision, regenerating", zap.String("trace_id", traceID))
			return fmt.Errorf("trace id %s already in use", traceID)
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, maxAllocationAttempts-1), ctx))
	if err != nil {
		if permanent, ok := err.(*backoff.PermanentError); ok {
			return "", "", permanent.Err
		}
		return "", "", fmt.Errorf("%w: could not allocate a unique trace id: %v", domain.ErrCollision, err)
	}

	return traceID, batchID, nil
}

func validateCreateBatchInput(input CreateBatchInput) error {
	if strings.TrimSpace(input.ProductName) == "" {
		return fmt.Errorf("%w: product name is required", domain.ErrValidation)
	}
	if input.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}
	if !domain.IsValidQuantityUnit(input.QuantityUnit) {
		return fmt.Errorf("%w: unknown quantity unit %q", domain.ErrValidation, input.QuantityUnit)
	}
	if input.ProductionAt.IsZero() {
		return fmt.Errorf("%w: production date is required", domain.ErrValidation)
	}
	if strings.TrimSpace(input.LocationState) == "" {
		return fmt.Errorf("%w: location state is required", domain.ErrValidation)
	}
	if strings.TrimSpace(input.LocationDistrict) == "" {
		return fmt.Errorf("%w: location district is required", domain.ErrValidation)
	}

	// Exactly one product photo and one weighing photo per registration
	seen := make(map[domain.MediaType]bool, len(input.Photos))
	for _, photo := range input.Photos {
		if !domain.IsValidMediaType(photo.Type) {
			return fmt.Errorf("%w: unknown photo type %q", domain.ErrValidation, photo.Type)
		}
		if seen[photo.Type] {
			return fmt.Errorf("%w: duplicate photo type %q", domain.ErrValidation, photo.Type)
		}
		seen[photo.Type] = true
	}
	if !seen[domain.MediaProductPhoto] || !seen[domain.MediaWeighingPhoto] {
		return fmt.Errorf("%w: a product photo and a weighing photo are both required", domain.ErrValidation)
	}

	return nil
}
