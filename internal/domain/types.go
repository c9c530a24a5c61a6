package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Role represents an actor role in the supply chain
type Role string

const (
	// RoleFarmer creates batches and attaches media; it writes no activities
	RoleFarmer Role = "farmer"
	// RoleBroker records receipt and storage of a batch
	RoleBroker Role = "broker"
	// RoleMNC records QA, processing, packaging and shipment
	RoleMNC Role = "mnc"
	// RoleRetailer records shelf placement and sale
	RoleRetailer Role = "retailer"
	// RoleCustomer is read-only
	RoleCustomer Role = "customer"
)

// IsValidRole checks if a role is one of the known actor roles
func IsValidRole(r Role) bool {
	switch r {
	case RoleFarmer, RoleBroker, RoleMNC, RoleRetailer, RoleCustomer:
		return true
	}
	return false
}

// ActivityType represents the type of supply-chain activity
type ActivityType string

const (
	ActivityProductReceived    ActivityType = "product_received"
	ActivityStorageStart       ActivityType = "storage_start"
	ActivityStorageEnd         ActivityType = "storage_end"
	ActivityQAInspection       ActivityType = "qa_inspection"
	ActivityProcessing         ActivityType = "processing"
	ActivityPackaging          ActivityType = "packaging"
	ActivityShipmentToRetailer ActivityType = "shipment_to_retailer"
	ActivityPlacedOnShelf      ActivityType = "placed_on_shelf"
	ActivityProductSold        ActivityType = "product_sold"
)

// rolePermissions is the static table mapping each role to the activity types
// it may append. Farmer and customer write no activities: the farmer creates
// batches through the registry, the customer is read-only.
var rolePermissions = map[Role]map[ActivityType]bool{
	RoleBroker: {
		ActivityProductReceived: true,
		ActivityStorageStart:    true,
		ActivityStorageEnd:      true,
	},
	RoleMNC: {
		ActivityQAInspection:       true,
		ActivityProcessing:         true,
		ActivityPackaging:          true,
		ActivityShipmentToRetailer: true,
	},
	RoleRetailer: {
		ActivityPlacedOnShelf: true,
		ActivityProductSold:   true,
	},
}

// RoleAllows reports whether the given role may append the given activity type
func RoleAllows(role Role, activityType ActivityType) bool {
	return rolePermissions[role][activityType]
}

// AllowedActivityTypes returns the activity types the role may append
func AllowedActivityTypes(role Role) []ActivityType {
	allowed := make([]ActivityType, 0, len(rolePermissions[role]))
	for t := range rolePermissions[role] {
		allowed = append(allowed, t)
	}
	return allowed
}

// QuantityUnit represents the unit a batch quantity is measured in
type QuantityUnit string

const (
	UnitKilograms QuantityUnit = "kg"
	UnitTonnes    QuantityUnit = "tonnes"
	UnitQuintals  QuantityUnit = "quintals"
	UnitBags      QuantityUnit = "bags"
)

// IsValidQuantityUnit checks if a unit is one of the supported quantity units
func IsValidQuantityUnit(u QuantityUnit) bool {
	switch u {
	case UnitKilograms, UnitTonnes, UnitQuintals, UnitBags:
		return true
	}
	return false
}

// MediaType represents the evidentiary photo type attached to a trace
type MediaType string

const (
	MediaProductPhoto  MediaType = "product_photo"
	MediaWeighingPhoto MediaType = "weighing_photo"
)

// PathKeyword returns the keyword used in blob object keys for this media type
func (m MediaType) PathKeyword() string {
	switch m {
	case MediaProductPhoto:
		return "product"
	case MediaWeighingPhoto:
		return "weighing"
	}
	return string(m)
}

// IsValidMediaType checks if a media type is supported
func IsValidMediaType(m MediaType) bool {
	return m == MediaProductPhoto || m == MediaWeighingPhoto
}

// Actor is the authenticated identity performing an operation. It is passed
// explicitly into every core operation rather than read from ambient state.
type Actor struct {
	ID   string
	Role Role
}

// Valid checks that the actor carries a well-formed ID and a known role
func (a Actor) Valid() bool {
	if _, err := uuid.Parse(a.ID); err != nil {
		return false
	}
	return IsValidRole(a.Role)
}

// ShelfDurationHours computes the derived shelf duration metric: the number of
// hours, rounded to the nearest integer, between shelf placement and sale.
// soldAt earlier than shelvedAt is an input error reported by the caller.
func ShelfDurationHours(shelvedAt, soldAt time.Time) int64 {
	return int64(math.Round(soldAt.Sub(shelvedAt).Hours()))
}
