package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRoleAllows(t *testing.T) {
	tests := []struct {
		name         string
		role         Role
		activityType ActivityType
		allowed      bool
	}{
		{"broker records receipt", RoleBroker, ActivityProductReceived, true},
		{"broker records storage start", RoleBroker, ActivityStorageStart, true},
		{"broker records storage end", RoleBroker, ActivityStorageEnd, true},
		{"broker cannot inspect", RoleBroker, ActivityQAInspection, false},
		{"mnc records qa inspection", RoleMNC, ActivityQAInspection, true},
		{"mnc records processing", RoleMNC, ActivityProcessing, true},
		{"mnc records packaging", RoleMNC, ActivityPackaging, true},
		{"mnc records shipment", RoleMNC, ActivityShipmentToRetailer, true},
		{"mnc cannot sell", RoleMNC, ActivityProductSold, false},
		{"retailer places on shelf", RoleRetailer, ActivityPlacedOnShelf, true},
		{"retailer records sale", RoleRetailer, ActivityProductSold, true},
		{"retailer cannot record receipt", RoleRetailer, ActivityProductReceived, false},
		{"farmer writes no activities", RoleFarmer, ActivityProductReceived, false},
		{"customer writes no activities", RoleCustomer, ActivityProductSold, false},
		{"unknown role writes nothing", Role("auditor"), ActivityProductReceived, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, RoleAllows(tt.role, tt.activityType))
		})
	}
}

func TestAllowedActivityTypes(t *testing.T) {
	assert.ElementsMatch(t,
		[]ActivityType{ActivityProductReceived, ActivityStorageStart, ActivityStorageEnd},
		AllowedActivityTypes(RoleBroker))
	assert.ElementsMatch(t,
		[]ActivityType{ActivityPlacedOnShelf, ActivityProductSold},
		AllowedActivityTypes(RoleRetailer))
	assert.Empty(t, AllowedActivityTypes(RoleFarmer))
	assert.Empty(t, AllowedActivityTypes(RoleCustomer))
}

func TestIsValidRole(t *testing.T) {
	for _, r := range []Role{RoleFarmer, RoleBroker, RoleMNC, RoleRetailer, RoleCustomer} {
		assert.True(t, IsValidRole(r), string(r))
	}
	assert.False(t, IsValidRole(Role("")))
	assert.False(t, IsValidRole(Role("admin")))
}

func TestIsValidQuantityUnit(t *testing.T) {
	for _, u := range []QuantityUnit{UnitKilograms, UnitTonnes, UnitQuintals, UnitBags} {
		assert.True(t, IsValidQuantityUnit(u), string(u))
	}
	assert.False(t, IsValidQuantityUnit(QuantityUnit("")))
	assert.False(t, IsValidQuantityUnit(QuantityUnit("pounds")))
}

func TestMediaTypePathKeyword(t *testing.T) {
	assert.Equal(t, "product", MediaProductPhoto.PathKeyword())
	assert.Equal(t, "weighing", MediaWeighingPhoto.PathKeyword())
}

func TestActorValid(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		valid bool
	}{
		{"valid actor", Actor{ID: uuid.NewString(), Role: RoleBroker}, true},
		{"malformed id", Actor{ID: "not-a-uuid", Role: RoleBroker}, false},
		{"empty id", Actor{Role: RoleBroker}, false},
		{"unknown role", Actor{ID: uuid.NewString(), Role: Role("admin")}, false},
		{"zero actor", Actor{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.actor.Valid())
		})
	}
}

func TestShelfDurationHours(t *testing.T) {
	shelved := time.Date(2025, 11, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		soldAt time.Time
		hours  int64
	}{
		{"exact hours", shelved.Add(49 * time.Hour), 49},
		{"rounds up from half", shelved.Add(90 * time.Minute), 2},
		{"rounds down below half", shelved.Add(80 * time.Minute), 1},
		{"sub-hour sale rounds to zero", shelved.Add(10 * time.Minute), 0},
		{"same instant", shelved, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.hours, ShelfDurationHours(shelved, tt.soldAt))
		})
	}
}
