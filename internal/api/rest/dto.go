package rest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/agritrace/agritrace/internal/domain"
	"github.com/agritrace/agritrace/internal/ledger"
	"github.com/agritrace/agritrace/internal/registry"
	"github.com/agritrace/agritrace/internal/store/schema"
)

// productionDateLayout is the wire format for the production date form field.
const productionDateLayout = "2006-01-02"

// MediaDTO is one attached photo in a response
type MediaDTO struct {
	Type       domain.MediaType `json:"type"`
	URL        string           `json:"url"`
	CapturedAt time.Time        `json:"captured_at"`
}

// ActivityDTO is one ledger entry in a response
type ActivityDTO struct {
	ID           uint64              `json:"id"`
	ActivityType domain.ActivityType `json:"activity_type"`
	ActorRole    domain.Role         `json:"actor_role"`
	ActorID      string              `json:"actor_id"`
	Timestamp    time.Time           `json:"timestamp"`
	ExtraData    json.RawMessage     `json:"extra_data,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// LocationDTO is the production location of a batch
type LocationDTO struct {
	State    string `json:"state"`
	District string `json:"district"`
}

// BatchDTO is the batch root record in a response
type BatchDTO struct {
	TraceID        string              `json:"trace_id"`
	BatchID        string              `json:"batch_id"`
	ProductName    string              `json:"product_name"`
	Quantity       float64             `json:"quantity"`
	QuantityUnit   domain.QuantityUnit `json:"quantity_unit"`
	ProducerID     string              `json:"producer_id"`
	ProductionDate string              `json:"production_date"`
	Location       LocationDTO         `json:"location"`
	CreatedAt      time.Time           `json:"created_at"`
}

// CreateBatchResponse is the response body for batch registration
type CreateBatchResponse struct {
	Batch BatchDTO   `json:"batch"`
	Media []MediaDTO `json:"media"`
}

// TraceResponse is the full trace view: batch root, media and the activity
// ledger in chronological order
type TraceResponse struct {
	Batch      BatchDTO      `json:"batch"`
	Media      []MediaDTO    `json:"media"`
	Activities []ActivityDTO `json:"activities"`
}

// AppendActivitiesRequest is the request body for appending activities.
// Several entries may be submitted together; they commit or fail as a unit.
type AppendActivitiesRequest struct {
	Activities []ActivityEntryRequest `json:"activities" binding:"required"`
}

// ActivityEntryRequest is one submitted activity. The payload fields are
// union-style: each activity type reads the one it carries and the rest must
// be absent.
type ActivityEntryRequest struct {
	ActivityType string    `json:"activity_type" binding:"required"`
	Timestamp    time.Time `json:"timestamp" binding:"required"`
	Remarks      *string   `json:"remarks,omitempty"`
	QAStatus     *string   `json:"qa_status,omitempty"`
	ExpiryDate   *string   `json:"expiry_date,omitempty"`
}

// AppendActivitiesResponse is the response body for an activity append
type AppendActivitiesResponse struct {
	TraceID    string        `json:"trace_id"`
	Activities []ActivityDTO `json:"activities"`
}

// toLedgerEntries maps submitted entries onto typed ledger entries. Payload
// fields that do not belong to the activity type are rejected here so the
// error names the offending field instead of a generic shape mismatch.
func toLedgerEntries(req AppendActivitiesRequest) ([]ledger.Entry, error) {
	entries := make([]ledger.Entry, 0, len(req.Activities))
	for i, e := range req.Activities {
		entry := ledger.Entry{
			Type:      domain.ActivityType(e.ActivityType),
			Timestamp: e.Timestamp,
		}

		switch entry.Type {
		case domain.ActivityProductReceived, domain.ActivityStorageStart, domain.ActivityStorageEnd:
			if e.QAStatus != nil || e.ExpiryDate != nil {
				return nil, fmt.Errorf("activity %d: %s carries only remarks", i, entry.Type)
			}
			if e.Remarks != nil {
				entry.Extra = domain.RemarksExtra{Remarks: *e.Remarks}
			}
		case domain.ActivityQAInspection, domain.ActivityProcessing:
			if e.Remarks != nil || e.ExpiryDate != nil {
				return nil, fmt.Errorf("activity %d: %s carries only qa_status", i, entry.Type)
			}
			if e.QAStatus == nil {
				return nil, fmt.Errorf("activity %d: qa_status is required for %s", i, entry.Type)
			}
			entry.Extra = domain.QAExtra{QAStatus: *e.QAStatus}
		case domain.ActivityPackaging, domain.ActivityShipmentToRetailer:
			if e.Remarks != nil || e.QAStatus != nil {
				return nil, fmt.Errorf("activity %d: %s carries only expiry_date", i, entry.Type)
			}
			if e.ExpiryDate == nil {
				return nil, fmt.Errorf("activity %d: expiry_date is required for %s", i, entry.Type)
			}
			entry.Extra = domain.ExpiryExtra{ExpiryDate: *e.ExpiryDate}
		case domain.ActivityPlacedOnShelf, domain.ActivityProductSold:
			if e.Remarks != nil || e.QAStatus != nil || e.ExpiryDate != nil {
				return nil, fmt.Errorf("activity %d: %s carries no payload", i, entry.Type)
			}
		default:
			return nil, fmt.Errorf("activity %d: unknown activity type %q", i, e.ActivityType)
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

func toBatchDTO(b *schema.Batch) BatchDTO {
	return BatchDTO{
		TraceID:        b.TraceID,
		BatchID:        b.BatchID,
		ProductName:    b.ProductName,
		Quantity:       b.Quantity,
		QuantityUnit:   b.QuantityUnit,
		ProducerID:     b.ProducerID,
		ProductionDate: b.ProductionAt.UTC().Format(productionDateLayout),
		Location: LocationDTO{
			State:    b.LocationState,
			District: b.LocationDistrict,
		},
		CreatedAt: b.CreatedAt,
	}
}

func toMediaDTOs(media []schema.Media) []MediaDTO {
	dtos := make([]MediaDTO, 0, len(media))
	for _, m := range media {
		dtos = append(dtos, MediaDTO{
			Type:       m.Type,
			URL:        m.URL,
			CapturedAt: m.CapturedAt,
		})
	}
	return dtos
}

func toActivityDTOs(activities []schema.Activity) []ActivityDTO {
	dtos := make([]ActivityDTO, 0, len(activities))
	for _, a := range activities {
		dtos = append(dtos, ActivityDTO{
			ID:           a.ID,
			ActivityType: a.ActivityType,
			ActorRole:    a.ActorRole,
			ActorID:      a.ActorID,
			Timestamp:    a.Timestamp,
			ExtraData:    json.RawMessage(a.ExtraData),
			CreatedAt:    a.CreatedAt,
		})
	}
	return dtos
}

func toTraceResponse(view *registry.TraceView) TraceResponse {
	return TraceResponse{
		Batch:      toBatchDTO(view.Batch),
		Media:      toMediaDTOs(view.Media),
		Activities: toActivityDTOs(view.Activities),
	}
}
