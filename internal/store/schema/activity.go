package schema

import (
	"time"

	"gorm.io/datatypes"

	"github.com/agritrace/agritrace/internal/domain"
)

// Activity represents the activities table - the append-only ledger of
// role-stamped supply-chain events per trace. Rows are never updated or
// deleted; corrections are made by appending a new activity.
type Activity struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TraceID references the batch this event relates to
	TraceID string `gorm:"column:trace_id;not null;type:text;index:idx_activities_trace_id"`
	// ActorRole is the role of the actor that appended this event
	ActorRole domain.Role `gorm:"column:actor_role;not null;type:text"`
	// ActorID is the appending actor's ID
	ActorID string `gorm:"column:actor_id;not null;type:text"`
	// ActivityType identifies the discrete action recorded
	ActivityType domain.ActivityType `gorm:"column:activity_type;not null;type:text"`
	// Timestamp is when the action occurred (actor-supplied, not insert time)
	Timestamp time.Time `gorm:"column:timestamp;not null;type:timestamptz;index:idx_activities_timestamp"`
	// ExtraData is the per-type payload (remarks, QA status, expiry date,
	// derived shelf duration)
	ExtraData datatypes.JSON `gorm:"column:extra_data;type:jsonb"`
	// CreatedAt is when this record was persisted
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Activity model
func (Activity) TableName() string {
	return "activities"
}
