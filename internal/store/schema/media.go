package schema

import (
	"time"

	"github.com/agritrace/agritrace/internal/domain"
)

// Media represents the media table - evidentiary photos attached to a trace.
// Rows are append-only; a photo is never replaced or deleted in normal
// operation.
type Media struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TraceID references the batch this photo belongs to
	TraceID string `gorm:"column:trace_id;not null;type:text;index:idx_media_trace_id"`
	// Type identifies the photo kind (product_photo, weighing_photo)
	Type domain.MediaType `gorm:"column:type;not null;type:text"`
	// URL is the durable public URL resolved after upload
	URL string `gorm:"column:url;not null;type:text"`
	// CapturedAt is when the photo was taken/uploaded
	CapturedAt time.Time `gorm:"column:captured_at;not null;type:timestamptz"`
	// CreatedAt is when this record was persisted
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Media model
func (Media) TableName() string {
	return "media"
}
