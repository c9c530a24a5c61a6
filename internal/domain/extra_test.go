package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalExtra(t *testing.T) {
	t.Run("nil payload serializes as empty object", func(t *testing.T) {
		data, err := MarshalExtra(nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(data))
	})

	t.Run("remarks payload", func(t *testing.T) {
		data, err := MarshalExtra(RemarksExtra{Remarks: "cold storage unit 4"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"remarks":"cold storage unit 4"}`, string(data))
	})

	t.Run("empty remarks are omitted", func(t *testing.T) {
		data, err := MarshalExtra(RemarksExtra{})
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(data))
	})

	t.Run("qa payload", func(t *testing.T) {
		data, err := MarshalExtra(QAExtra{QAStatus: "passed"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"qa_status":"passed"}`, string(data))
	})

	t.Run("expiry payload", func(t *testing.T) {
		data, err := MarshalExtra(ExpiryExtra{ExpiryDate: "2026-03-01"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"expiry_date":"2026-03-01"}`, string(data))
	})

	t.Run("sale payload with metric", func(t *testing.T) {
		hours := int64(49)
		data, err := MarshalExtra(SaleExtra{ShelfDurationHours: &hours})
		require.NoError(t, err)
		assert.JSONEq(t, `{"shelf_duration_hours":49}`, string(data))
	})

	t.Run("sale payload without metric omits the field", func(t *testing.T) {
		data, err := MarshalExtra(SaleExtra{})
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(data))
	})
}

func TestExtraMatchesType(t *testing.T) {
	tests := []struct {
		name         string
		activityType ActivityType
		extra        ExtraData
		matches      bool
	}{
		{"receipt with remarks", ActivityProductReceived, RemarksExtra{Remarks: "intact"}, true},
		{"receipt without payload", ActivityProductReceived, nil, true},
		{"storage start with remarks", ActivityStorageStart, RemarksExtra{}, true},
		{"storage end with qa payload", ActivityStorageEnd, QAExtra{QAStatus: "passed"}, false},
		{"inspection with qa payload", ActivityQAInspection, QAExtra{QAStatus: "passed"}, true},
		{"inspection without payload", ActivityQAInspection, nil, false},
		{"processing with remarks", ActivityProcessing, RemarksExtra{}, false},
		{"packaging with expiry", ActivityPackaging, ExpiryExtra{ExpiryDate: "2026-03-01"}, true},
		{"shipment with expiry", ActivityShipmentToRetailer, ExpiryExtra{ExpiryDate: "2026-03-01"}, true},
		{"shipment without payload", ActivityShipmentToRetailer, nil, false},
		{"shelf placement without payload", ActivityPlacedOnShelf, nil, true},
		{"shelf placement with empty payload", ActivityPlacedOnShelf, EmptyExtra{}, true},
		{"shelf placement with remarks", ActivityPlacedOnShelf, RemarksExtra{}, false},
		{"sale with sale payload", ActivityProductSold, SaleExtra{}, true},
		{"sale without payload", ActivityProductSold, nil, true},
		{"sale with qa payload", ActivityProductSold, QAExtra{}, false},
		{"unknown activity type", ActivityType("fumigation"), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, ExtraMatchesType(tt.activityType, tt.extra))
		})
	}
}
