package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"splitbill/internal/models"
	"splitbill/internal/storage"
)

// CreateItems inserts items under a bill and recomputes its subtotal in
// the same transaction.
func (s *SQLiteStore) CreateItems(ctx context.Context, billID string, items []models.LineItem) ([]models.LineItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM bills WHERE id = ?", billID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check bill: %w", err)
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
			"INSERT INTO items (id, bill_id, name, price, quantity) VALUES (?, ?, ?, ?, ?)",
			item.ID, item.BillID, item.Name, item.Price, item.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert item: %w", err)
		}
		stored = append(stored, item)
	}

	if _, err := recalcSubtotalTx(ctx, tx, billID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return stored, nil
}

// GetItem retrieves an item by ID.
func (s *SQLiteStore) GetItem(ctx context.Context, itemID string) (*models.LineItem, error) {
	item := &models.LineItem{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, bill_id, name, price, quantity FROM items WHERE id = ?",
		itemID,
	).Scan(&item.ID, &item.BillID, &item.Name, &item.Price, &item.Quantity)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// UpdateItem updates an item's name and price and recomputes the owning
// bill's subtotal in the same transaction.
func (s *SQLiteStore) UpdateItem(ctx context.Context, item *models.LineItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var billID string
	err = tx.QueryRowContext(ctx, "SELECT bill_id FROM items WHERE id = ?", item.ID).Scan(&billID)
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check item: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE items SET name = ?, price = ? WHERE id = ?",
		item.Name, item.Price, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	item.BillID = billID

	if _, err := recalcSubtotalTx(ctx, tx, billID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteItem removes an item and its assignments and recomputes the
// owning bill's subtotal in the same transaction.
func (s *SQLiteStore) DeleteItem(ctx context.Context, itemID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var billID string
	err = tx.QueryRowContext(ctx, "SELECT bill_id FROM items WHERE id = ?", itemID).Scan(&billID)
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM assignments WHERE item_id = ?", itemID); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE id = ?", itemID); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	if _, err := recalcSubtotalTx(ctx, tx, billID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListItems returns all items of a bill in insertion order.
func (s *SQLiteStore) ListItems(ctx context.Context, billID string) ([]models.LineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, bill_id, name, price, quantity FROM items WHERE bill_id = ? ORDER BY rowid",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.ID, &item.BillID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}
