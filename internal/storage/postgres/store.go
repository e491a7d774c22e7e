// Package postgres provides a Postgres-backed implementation of the
// storage.Store interface, mirroring the SQLite backend's semantics.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"splitbill/internal/ledger"
	"splitbill/internal/models"
	"splitbill/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

const defaultDSN = "postgres://localhost/splitbill?sslmode=disable"

const schema = `
CREATE TABLE IF NOT EXISTS bills (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    subtotal DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    seq BIGSERIAL,
    bill_id TEXT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    price DOUBLE PRECISION NOT NULL,
    quantity INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS participants (
    id TEXT PRIMARY KEY,
    seq BIGSERIAL,
    bill_id TEXT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
    item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    participant_id TEXT NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
    PRIMARY KEY (item_id, participant_id)
);

CREATE INDEX IF NOT EXISTS idx_items_bill_id ON items(bill_id);
CREATE INDEX IF NOT EXISTS idx_participants_bill_id ON participants(bill_id);
CREATE INDEX IF NOT EXISTS idx_assignments_participant_id ON assignments(participant_id);
`

// Store implements storage.Store using PostgreSQL via the pgx stdlib driver.
type Store struct {
	db *sql.DB
}

// New opens a Postgres-backed store using the provided DSN (falls back to
// a localhost default) and applies the schema on startup.
func New(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ResetAll drops every table and recreates the schema from scratch.
func (s *Store) ResetAll(ctx context.Context) error {
	drop := `
DROP TABLE IF EXISTS assignments;
DROP TABLE IF EXISTS participants;
DROP TABLE IF EXISTS items;
DROP TABLE IF EXISTS bills;
`
	if _, err := s.db.ExecContext(ctx, drop); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("recreate schema: %w", err)
	}
	return nil
}

// CreateBill persists a new bill.
func (s *Store) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	if bill.Title == "" {
		bill.Title = fmt.Sprintf("Bill - %s", time.Now().Format("Jan 2, 2006"))
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO bills (id, title, subtotal, created_at) VALUES ($1, $2, $3, $4)",
		bill.ID, bill.Title, bill.Subtotal, bill.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}
	return nil
}

// GetBill retrieves a bill by ID.
func (s *Store) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	bill := &models.Bill{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, subtotal, created_at FROM bills WHERE id = $1",
		billID,
	).Scan(&bill.ID, &bill.Title, &bill.Subtotal, &bill.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	return bill, nil
}

// ListBills returns all bills, newest first.
func (s *Store) ListBills(ctx context.Context) ([]*models.Bill, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, subtotal, created_at FROM bills ORDER BY created_at DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		bill := &models.Bill{}
		if err := rows.Scan(&bill.ID, &bill.Title, &bill.Subtotal, &bill.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}
	return bills, nil
}

// DeleteBill removes a bill and all of its dependents.
func (s *Store) DeleteBill(ctx context.Context, billID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM bills WHERE id = $1", billID)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CreateItems inserts items under a bill and recomputes its subtotal in
// the same transaction.
func (s *Store) CreateItems(ctx context.Context, billID string, items []models.LineItem) ([]models.LineItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM bills WHERE id = $1", billID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check bill: %w", err)
	}

	stored := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.BillID = billID
		if item.Quantity < 1 {
			item.Quantity = 1
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO items (id, bill_id, name, price, quantity) VALUES ($1, $2, $3, $4, $5)",
			item.ID, item.BillID, item.Name, item.Price, item.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("insert item: %w", err)
		}
		stored = append(stored, item)
	}

	if _, err := recalcSubtotalTx(ctx, tx, billID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return stored, nil
}

// GetItem retrieves an item by ID.
func (s *Store) GetItem(ctx context.Context, itemID string) (*models.LineItem, error) {
	item := &models.LineItem{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, bill_id, name, price, quantity FROM items WHERE id = $1",
		itemID,
	).Scan(&item.ID, &item.BillID, &item.Name, &item.Price, &item.Quantity)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// UpdateItem updates an item's name and price and recomputes the owning
// bill's subtotal in the same transaction.
func (s *Store) UpdateItem(ctx context.Context, item *models.LineItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var billID string
	err = tx.QueryRowContext(ctx, "SELECT bill_id FROM items WHERE id = $1", item.ID).Scan(&billID)
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check item: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE items SET name = $1, price = $2 WHERE id = $3",
		item.Name, item.Price, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	item.BillID = billID

	if _, err := recalcSubtotalTx(ctx, tx, billID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteItem removes an item and its assignments and recomputes the
// owning bill's subtotal in the same transaction.
func (s *Store) DeleteItem(ctx context.Context, itemID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var billID string
	err = tx.QueryRowContext(ctx, "SELECT bill_id FROM items WHERE id = $1", itemID).Scan(&billID)
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE id = $1", itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	if _, err := recalcSubtotalTx(ctx, tx, billID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListItems returns all items of a bill in insertion order.
func (s *Store) ListItems(ctx context.Context, billID string) ([]models.LineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, bill_id, name, price, quantity FROM items WHERE bill_id = $1 ORDER BY seq",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.ID, &item.BillID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// CreateParticipant adds a participant to a bill.
func (s *Store) CreateParticipant(ctx context.Context, participant *models.Participant) error {
	if participant.ID == "" {
		participant.ID = uuid.New().String()
	}

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM bills WHERE id = $1", participant.BillID).Scan(&exists)
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check bill: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO participants (id, bill_id, name) VALUES ($1, $2, $3)",
		participant.ID, participant.BillID, participant.Name,
	)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// ListParticipants returns all participants of a bill.
func (s *Store) ListParticipants(ctx context.Context, billID string) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, bill_id, name FROM participants WHERE bill_id = $1 ORDER BY seq",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.BillID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

// ToggleAssignment flips the (item, participant) pair in one transaction.
func (s *Store) ToggleAssignment(ctx context.Context, itemID, participantID string) (ledger.ToggleResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM items WHERE id = $1", itemID).Scan(&exists)
	if err == sql.ErrNoRows {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("check item: %w", err)
	}

	err = tx.QueryRowContext(ctx, "SELECT 1 FROM participants WHERE id = $1", participantID).Scan(&exists)
	if err == sql.ErrNoRows {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("check participant: %w", err)
	}

	var assigned int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM assignments WHERE item_id = $1 AND participant_id = $2",
		itemID, participantID,
	).Scan(&assigned)

	var result ledger.ToggleResult
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO assignments (item_id, participant_id) VALUES ($1, $2)",
			itemID, participantID,
		); err != nil {
			return "", fmt.Errorf("insert assignment: %w", err)
		}
		result = ledger.Added
	case err != nil:
		return "", fmt.Errorf("check assignment: %w", err)
	default:
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM assignments WHERE item_id = $1 AND participant_id = $2",
			itemID, participantID,
		); err != nil {
			return "", fmt.Errorf("delete assignment: %w", err)
		}
		result = ledger.Removed
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}

// AssignmentsByBill returns the assigned participant ids keyed by item id.
func (s *Store) AssignmentsByBill(ctx context.Context, billID string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.item_id, a.participant_id
		 FROM assignments a
		 JOIN items i ON i.id = a.item_id
		 WHERE i.bill_id = $1
		 ORDER BY a.item_id, a.participant_id`,
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	assignments := make(map[string][]string)
	for rows.Next() {
		var itemID, participantID string
		if err := rows.Scan(&itemID, &participantID); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments[itemID] = append(assignments[itemID], participantID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return assignments, nil
}

// RecalculateSubtotal recomputes and persists the bill's subtotal from its
// current items.
func (s *Store) RecalculateSubtotal(ctx context.Context, billID string) (float64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	subtotal, err := recalcSubtotalTx(ctx, tx, billID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return subtotal, nil
}

func recalcSubtotalTx(ctx context.Context, tx *sql.Tx, billID string) (float64, error) {
	_, err := tx.ExecContext(ctx,
		`UPDATE bills
		 SET subtotal = (SELECT COALESCE(SUM(price), 0) FROM items WHERE bill_id = $1)
		 WHERE id = $2`,
		billID, billID,
	)
	if err != nil {
		return 0, fmt.Errorf("update subtotal: %w", err)
	}

	var subtotal float64
	err = tx.QueryRowContext(ctx, "SELECT subtotal FROM bills WHERE id = $1", billID).Scan(&subtotal)
	if err == sql.ErrNoRows {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read subtotal: %w", err)
	}
	return subtotal, nil
}
