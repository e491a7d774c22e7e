// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"splitbill/internal/ledger"
	"splitbill/internal/models"
)

// ErrNotFound is returned when a referenced entity id does not exist.
// Callers surface it as a client error; it is never retried.
var ErrNotFound = errors.New("not found")

// Store defines the interface for bill storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
//
// Every item mutation (create, update, delete) recomputes the owning
// bill's subtotal from the full live item set inside the same transaction
// as the mutation, so the stored subtotal never drifts.
type Store interface {
	// CreateBill persists a new bill. The bill's ID and CreatedAt fields
	// are populated by the store when unset.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill retrieves a bill by id. Returns ErrNotFound if absent.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// ListBills returns all bills, newest first.
	ListBills(ctx context.Context) ([]*models.Bill, error)

	// DeleteBill removes a bill together with its items, participants,
	// and all assignments referencing them. Returns ErrNotFound if the
	// bill does not exist.
	DeleteBill(ctx context.Context, billID string) error

	// CreateItems inserts items under the given bill, assigning ids, and
	// recomputes the bill subtotal. Returns the stored items.
	CreateItems(ctx context.Context, billID string, items []models.LineItem) ([]models.LineItem, error)

	// GetItem retrieves an item by id. Returns ErrNotFound if absent.
	GetItem(ctx context.Context, itemID string) (*models.LineItem, error)

	// UpdateItem updates an item's name and price and recomputes the
	// owning bill's subtotal. Returns ErrNotFound if the item is absent.
	UpdateItem(ctx context.Context, item *models.LineItem) error

	// DeleteItem removes an item and its assignments and recomputes the
	// owning bill's subtotal. Returns ErrNotFound if the item is absent.
	DeleteItem(ctx context.Context, itemID string) error

	// ListItems returns all items of a bill in insertion order.
	ListItems(ctx context.Context, billID string) ([]models.LineItem, error)

	// CreateParticipant adds a participant to a bill, assigning an id.
	CreateParticipant(ctx context.Context, participant *models.Participant) error

	// ListParticipants returns all participants of a bill.
	ListParticipants(ctx context.Context, billID string) ([]models.Participant, error)

	// ToggleAssignment creates the (item, participant) pair if absent and
	// removes it if present, in one transaction. Returns ErrNotFound if
	// either entity does not exist.
	ToggleAssignment(ctx context.Context, itemID, participantID string) (ledger.ToggleResult, error)

	// AssignmentsByBill returns the assigned participant ids per item id
	// for all items of the bill. Unassigned items are omitted.
	AssignmentsByBill(ctx context.Context, billID string) (map[string][]string, error)

	// RecalculateSubtotal recomputes and persists the bill's subtotal
	// from its current items, returning the new value.
	RecalculateSubtotal(ctx context.Context, billID string) (float64, error)

	// ResetAll drops all stored data and recreates the schema. Idempotent.
	ResetAll(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
