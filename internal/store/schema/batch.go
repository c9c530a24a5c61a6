package schema

import (
	"time"

	"github.com/agritrace/agritrace/internal/domain"
)

// Batch represents the batches table - the immutable root record created once
// per product batch by a producer. TraceID is the primary correlation key for
// all downstream media and activity records; neither identifier is ever
// reused or mutated after creation.
type Batch struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TraceID is the globally unique human-readable trace identifier (e.g. "TR01JD...")
	TraceID string `gorm:"column:trace_id;not null;uniqueIndex;type:text"`
	// BatchID is the secondary unique identifier for internal lot tracking (e.g. "BT01JD...")
	BatchID string `gorm:"column:batch_id;not null;uniqueIndex;type:text"`
	// ProductName is the human-readable product description
	ProductName string `gorm:"column:product_name;not null;type:text"`
	// Quantity is the batch quantity in QuantityUnit units; always positive
	Quantity float64 `gorm:"column:quantity;not null;type:numeric(14,2)"`
	// QuantityUnit is the unit the quantity is measured in (kg, tonnes, quintals, bags)
	QuantityUnit domain.QuantityUnit `gorm:"column:quantity_unit;not null;type:text"`
	// ProducerID is the creating farmer's actor ID
	ProducerID string `gorm:"column:producer_id;not null;type:text;index:idx_batches_producer_id"`
	// ProductionAt is when the batch was produced
	ProductionAt time.Time `gorm:"column:production_at;not null;type:timestamptz"`
	// LocationState is the state where the batch was produced
	LocationState string `gorm:"column:location_state;not null;type:text"`
	// LocationDistrict is the district where the batch was produced
	LocationDistrict string `gorm:"column:location_district;not null;type:text"`
	// CreatedAt is when this record was persisted
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`

	// Associations
	Media      []Media    `gorm:"foreignKey:TraceID;references:TraceID;constraint:OnDelete:CASCADE"`
	Activities []Activity `gorm:"foreignKey:TraceID;references:TraceID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Batch model
func (Batch) TableName() string {
	return "batches"
}
