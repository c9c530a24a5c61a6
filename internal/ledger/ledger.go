package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/agritrace/agritrace/internal/domain"
	"github.com/agritrace/agritrace/internal/logger"
	"github.com/agritrace/agritrace/internal/store"
	"github.com/agritrace/agritrace/internal/store/schema"
)

// expiryDateLayout is the wire format for expiry dates.
const expiryDateLayout = "2006-01-02"

// Entry is one activity the actor wants to append. Composite submissions
// carry several entries that commit or fail as a unit.
type Entry struct {
	Type      domain.ActivityType
	Timestamp time.Time
	Extra     domain.ExtraData
}

// Ledger appends role-stamped activities to a trace. The ledger is strictly
// append-only: there is no update or delete path.
type Ledger struct {
	store store.Store
}

// NewLedger creates an activity ledger backed by the given store
func NewLedger(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// Append validates and persists the submitted entries for a trace in one
// transaction. The whole submission is rejected when any entry fails the
// role gate or payload validation; nothing is partially written.
func (l *Ledger) Append(ctx context.Context, actor domain.Actor, traceID string, entries []Entry) ([]schema.Activity, error) {
	if !actor.Valid() {
		return nil, fmt.Errorf("%w: malformed actor identity", domain.ErrValidation)
	}
	if traceID == "" {
		return nil, fmt.Errorf("%w: trace id is required", domain.ErrValidation)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: at least one activity is required", domain.ErrValidation)
	}

	for i, e := range entries {
		if err := validateEntry(actor, e); err != nil {
			return nil, fmt.Errorf("activity %d: %w", i, err)
		}
	}

	entries, err := l.deriveSaleMetrics(ctx, traceID, entries)
	if err != nil {
		return nil, err
	}

	rows := make([]schema.Activity, 0, len(entries))
	for _, e := range entries {
		raw, err := domain.MarshalExtra(e.Extra)
		if err != nil {
			return nil, fmt.Errorf("%w: encode extra data: %v", domain.ErrValidation, err)
		}
		rows = append(rows, schema.Activity{
			TraceID:      traceID,
			ActorRole:    actor.Role,
			ActorID:      actor.ID,
			ActivityType: e.Type,
			Timestamp:    e.Timestamp.UTC(),
			ExtraData:    datatypes.JSON(raw),
		})
	}

	created, err := l.store.CreateActivities(ctx, traceID, rows)
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Appended activities",
		zap.String("trace_id", traceID),
		zap.String("actor_role", string(actor.Role)),
		zap.Int("count", len(created)))

	return created, nil
}

// validateEntry checks the role gate, timestamp and payload shape for one
// entry.
func validateEntry(actor domain.Actor, e Entry) error {
	if !domain.RoleAllows(actor.Role, e.Type) {
		return fmt.Errorf("%w: role %s cannot append %s", domain.ErrRoleNotPermitted, actor.Role, e.Type)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", domain.ErrValidation)
	}
	if !domain.ExtraMatchesType(e.Type, e.Extra) {
		return fmt.Errorf("%w: payload does not match activity type %s", domain.ErrValidation, e.Type)
	}

	switch extra := e.Extra.(type) {
	case domain.QAExtra:
		if strings.TrimSpace(extra.QAStatus) == "" {
			return fmt.Errorf("%w: qa_status is required for %s", domain.ErrValidation, e.Type)
		}
	case domain.ExpiryExtra:
		if _, err := time.Parse(expiryDateLayout, extra.ExpiryDate); err != nil {
			return fmt.Errorf("%w: expiry_date must be %s", domain.ErrValidation, expiryDateLayout)
		}
	}

	return nil
}

// deriveSaleMetrics fills in the shelf duration for product_sold entries.
// The shelf placement timestamp is taken from the same submission when
// present, otherwise from the latest persisted placed_on_shelf activity. The
// metric is computed once at write time; a sale with no known shelf placement
// is stored without it.
func (l *Ledger) deriveSaleMetrics(ctx context.Context, traceID string, entries []Entry) ([]Entry, error) {
	var shelvedAt *time.Time
	for _, e := range entries {
		if e.Type == domain.ActivityPlacedOnShelf {
			ts := e.Timestamp
			if shelvedAt == nil || ts.After(*shelvedAt) {
				shelvedAt = &ts
			}
		}
	}

	for i, e := range entries {
		if e.Type != domain.ActivityProductSold {
			continue
		}

		if shelvedAt == nil {
			prior, err := l.store.LatestActivityByType(ctx, traceID, domain.ActivityPlacedOnShelf)
			if err != nil {
				return nil, err
			}
			if prior != nil {
				ts := prior.Timestamp
				shelvedAt = &ts
			}
		}

		if shelvedAt == nil {
			logger.WarnCtx(ctx, "Sale recorded without shelf placement, skipping duration metric",
				zap.String("trace_id", traceID))
			entries[i].Extra = domain.SaleExtra{}
			continue
		}

		if e.Timestamp.Before(*shelvedAt) {
			return nil, fmt.Errorf("%w: sale timestamp precedes shelf placement", domain.ErrValidation)
		}

		hours := domain.ShelfDurationHours(*shelvedAt, e.Timestamp)
		entries[i].Extra = domain.SaleExtra{ShelfDurationHours: &hours}
	}

	return entries, nil
}
