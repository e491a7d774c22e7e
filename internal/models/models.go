package models

// Bill represents a scanned receipt being split among participants.
// It owns its line items and participants through their BillID fields.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string `json:"id"`

	// Title is the human-readable name for the bill.
	// Auto-generated from the uploaded filename when scanned.
	Title string `json:"title"`

	// Subtotal is the sum of the unit prices of all live line items.
	// It is recomputed eagerly after every item create/update/delete.
	Subtotal float64 `json:"subtotal"`

	// CreatedAt is the Unix timestamp when the bill was created.
	CreatedAt int64 `json:"created_at"`
}

// LineItem represents a single purchased item on a bill.
// Items are produced by the receipt line extractor and can be edited or
// deleted afterwards; the split calculator never mutates them.
type LineItem struct {
	// ID is the unique identifier for the item (UUID format).
	ID string `json:"id"`

	// BillID is the owning bill.
	BillID string `json:"bill_id"`

	// Name is the item description as read from the receipt.
	Name string `json:"name"`

	// Price is the unit price in whole currency units. The source
	// currency carries no fractional subunit, so extracted prices are
	// always integer-valued.
	Price float64 `json:"price"`

	// Quantity is the purchased count, defaulting to 1.
	Quantity int `json:"quantity"`
}

// Participant represents one person splitting a bill.
// Participants are scoped to a single bill and immutable after creation.
type Participant struct {
	// ID is the unique identifier for the participant (UUID format).
	ID string `json:"id"`

	// BillID is the bill this participant belongs to.
	BillID string `json:"bill_id"`

	// Name is the display name of the participant.
	Name string `json:"name"`
}

// Assignment is a participant's claim on an equal share of one line item.
// At most one assignment exists per (item, participant) pair; the pair is
// created and destroyed exclusively through the toggle operation.
type Assignment struct {
	ItemID        string `json:"item_id"`
	ParticipantID string `json:"participant_id"`
}
