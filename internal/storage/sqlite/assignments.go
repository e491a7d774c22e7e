package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"splitbill/internal/ledger"
	"splitbill/internal/storage"
)

// ToggleAssignment flips the (item, participant) pair in one transaction:
// it is created if absent and removed if present. Toggling the same pair
// twice restores the original state.
func (s *SQLiteStore) ToggleAssignment(ctx context.Context, itemID, participantID string) (ledger.ToggleResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM items WHERE id = ?", itemID).Scan(&exists)
	if err == sql.ErrNoRows {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to check item: %w", err)
	}

	err = tx.QueryRowContext(ctx, "SELECT 1 FROM participants WHERE id = ?", participantID).Scan(&exists)
	if err == sql.ErrNoRows {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to check participant: %w", err)
	}

	var assigned int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM assignments WHERE item_id = ? AND participant_id = ?",
		itemID, participantID,
	).Scan(&assigned)

	var result ledger.ToggleResult
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO assignments (item_id, participant_id) VALUES (?, ?)",
			itemID, participantID,
		); err != nil {
			return "", fmt.Errorf("failed to insert assignment: %w", err)
		}
		result = ledger.Added
	case err != nil:
		return "", fmt.Errorf("failed to check assignment: %w", err)
	default:
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM assignments WHERE item_id = ? AND participant_id = ?",
			itemID, participantID,
		); err != nil {
			return "", fmt.Errorf("failed to delete assignment: %w", err)
		}
		result = ledger.Removed
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// AssignmentsByBill returns the assigned participant ids keyed by item id
// for all items of the bill.
func (s *SQLiteStore) AssignmentsByBill(ctx context.Context, billID string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.item_id, a.participant_id
		 FROM assignments a
		 JOIN items i ON i.id = a.item_id
		 WHERE i.bill_id = ?
		 ORDER BY a.item_id, a.participant_id`,
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	assignments := make(map[string][]string)
	for rows.Next() {
		var itemID, participantID string
		if err := rows.Scan(&itemID, &participantID); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments[itemID] = append(assignments[itemID], participantID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}
	return assignments, nil
}
