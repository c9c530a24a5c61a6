package domain

import "encoding/json"

// ExtraData is the open payload attached to an activity. Each activity type
// carries one concrete shape; free text is confined to the remarks payload.
type ExtraData interface {
	extraData()
}

// EmptyExtra is the payload for activity types that carry no extra data,
// such as placed_on_shelf
type EmptyExtra struct{}

func (EmptyExtra) extraData() {}

// RemarksExtra carries the broker's free-text remarks on receipt and storage
// activities
type RemarksExtra struct {
	Remarks string `json:"remarks,omitempty"`
}

func (RemarksExtra) extraData() {}

// QAExtra carries the QA status recorded during inspection and processing
type QAExtra struct {
	QAStatus string `json:"qa_status"`
}

func (QAExtra) extraData() {}

// ExpiryExtra carries the expiry date stamped at packaging and shipment
type ExpiryExtra struct {
	ExpiryDate string `json:"expiry_date"`
}

func (ExpiryExtra) extraData() {}

// SaleExtra carries the derived shelf duration computed when a product_sold
// activity is appended. The metric is computed at write time and never
// recomputed retroactively.
type SaleExtra struct {
	ShelfDurationHours *int64 `json:"shelf_duration_hours,omitempty"`
}

func (SaleExtra) extraData() {}

// MarshalExtra serializes an extra payload for storage. A nil payload
// serializes as an empty JSON object.
func MarshalExtra(extra ExtraData) ([]byte, error) {
	if extra == nil {
		extra = EmptyExtra{}
	}
	return json.Marshal(extra)
}

// ExtraMatchesType reports whether the payload shape is the one the activity
// type carries. Composite submissions are rejected as a whole when any entry
// carries a mismatched payload.
func ExtraMatchesType(activityType ActivityType, extra ExtraData) bool {
	switch activityType {
	case ActivityProductReceived, ActivityStorageStart, ActivityStorageEnd:
		_, ok := extra.(RemarksExtra)
		return ok || extra == nil
	case ActivityQAInspection, ActivityProcessing:
		_, ok := extra.(QAExtra)
		return ok
	case ActivityPackaging, ActivityShipmentToRetailer:
		_, ok := extra.(ExpiryExtra)
		return ok
	case ActivityPlacedOnShelf:
		_, ok := extra.(EmptyExtra)
		return ok || extra == nil
	case ActivityProductSold:
		_, ok := extra.(SaleExtra)
		return ok || extra == nil
	}
	return false
}
