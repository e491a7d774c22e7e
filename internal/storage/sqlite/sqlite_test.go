package sqlite

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"splitbill/internal/ledger"
	"splitbill/internal/models"
	"splitbill/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "splitbill-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func createBillWithItems(t *testing.T, store *SQLiteStore, prices ...float64) (*models.Bill, []models.LineItem) {
	t.Helper()
	ctx := context.Background()

	bill := &models.Bill{Title: "Test Bill"}
	if err := store.CreateBill(ctx, bill); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	items := make([]models.LineItem, 0, len(prices))
	for i, price := range prices {
		items = append(items, models.LineItem{
			Name:     "Item " + string(rune('A'+i)),
			Price:    price,
			Quantity: 1,
		})
	}
	stored, err := store.CreateItems(ctx, bill.ID, items)
	if err != nil {
		t.Fatalf("CreateItems failed: %v", err)
	}
	return bill, stored
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateBill generates ID and timestamp", func(t *testing.T) {
		store := newTestStore(t)
		bill := &models.Bill{Title: "Struk warung.jpg"}
		if err := store.CreateBill(ctx, bill); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
		if bill.ID == "" {
			t.Error("Expected bill ID to be generated")
		}
		if bill.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
	})

	t.Run("CreateItems recomputes subtotal", func(t *testing.T) {
		store := newTestStore(t)
		bill, items := createBillWithItems(t, store, 10, 20, 30)

		if len(items) != 3 {
			t.Fatalf("expected 3 stored items, got %d", len(items))
		}
		for _, item := range items {
			if item.ID == "" {
				t.Error("expected item ID to be generated")
			}
			if item.BillID != bill.ID {
				t.Errorf("item bill id = %s, want %s", item.BillID, bill.ID)
			}
		}

		got, err := store.GetBill(ctx, bill.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}
		if math.Abs(got.Subtotal-60) > 1e-9 {
			t.Errorf("subtotal = %v, want 60", got.Subtotal)
		}
	})

	t.Run("UpdateItem recomputes subtotal", func(t *testing.T) {
		store := newTestStore(t)
		bill, items := createBillWithItems(t, store, 10, 20, 30)

		items[0].Name = "Renamed"
		items[0].Price = 100
		if err := store.UpdateItem(ctx, &items[0]); err != nil {
			t.Fatalf("UpdateItem failed: %v", err)
		}

		got, err := store.GetBill(ctx, bill.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}
		if math.Abs(got.Subtotal-150) > 1e-9 {
			t.Errorf("subtotal = %v, want 150", got.Subtotal)
		}

		item, err := store.GetItem(ctx, items[0].ID)
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
		if item.Name != "Renamed" || item.Price != 100 {
			t.Errorf("item = %+v, want Renamed/100", item)
		}
	})

	t.Run("DeleteItem recomputes subtotal from remaining items", func(t *testing.T) {
		store := newTestStore(t)
		bill, items := createBillWithItems(t, store, 10, 20, 30)

		if err := store.DeleteItem(ctx, items[0].ID); err != nil {
			t.Fatalf("DeleteItem failed: %v", err)
		}

		got, err := store.GetBill(ctx, bill.ID)
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}
		if math.Abs(got.Subtotal-50) > 1e-9 {
			t.Errorf("subtotal = %v, want 50", got.Subtotal)
		}

		remaining, err := store.ListItems(ctx, bill.ID)
		if err != nil {
			t.Fatalf("ListItems failed: %v", err)
		}
		if len(remaining) != 2 {
			t.Errorf("expected 2 items left, got %d", len(remaining))
		}
	})

	t.Run("RecalculateSubtotal returns current sum", func(t *testing.T) {
		store := newTestStore(t)
		bill, _ := createBillWithItems(t, store, 25000)

		subtotal, err := store.RecalculateSubtotal(ctx, bill.ID)
		if err != nil {
			t.Fatalf("RecalculateSubtotal failed: %v", err)
		}
		if math.Abs(subtotal-25000) > 1e-9 {
			t.Errorf("subtotal = %v, want 25000", subtotal)
		}
	})

	t.Run("ToggleAssignment adds then removes", func(t *testing.T) {
		store := newTestStore(t)
		bill, items := createBillWithItems(t, store, 10000)

		p := &models.Participant{BillID: bill.ID, Name: "Alice"}
		if err := store.CreateParticipant(ctx, p); err != nil {
			t.Fatalf("CreateParticipant failed: %v", err)
		}

		result, err := store.ToggleAssignment(ctx, items[0].ID, p.ID)
		if err != nil {
			t.Fatalf("first toggle failed: %v", err)
		}
		if result != ledger.Added {
			t.Errorf("first toggle = %v, want %v", result, ledger.Added)
		}

		assignments, err := store.AssignmentsByBill(ctx, bill.ID)
		if err != nil {
			t.Fatalf("AssignmentsByBill failed: %v", err)
		}
		if got := assignments[items[0].ID]; len(got) != 1 || got[0] != p.ID {
			t.Errorf("assignments = %v, want [%s]", got, p.ID)
		}

		result, err = store.ToggleAssignment(ctx, items[0].ID, p.ID)
		if err != nil {
			t.Fatalf("second toggle failed: %v", err)
		}
		if result != ledger.Removed {
			t.Errorf("second toggle = %v, want %v", result, ledger.Removed)
		}

		assignments, err = store.AssignmentsByBill(ctx, bill.ID)
		if err != nil {
			t.Fatalf("AssignmentsByBill failed: %v", err)
		}
		if len(assignments) != 0 {
			t.Errorf("assignments = %v, want empty after double toggle", assignments)
		}
	})

	t.Run("ToggleAssignment rejects unknown ids", func(t *testing.T) {
		store := newTestStore(t)
		bill, items := createBillWithItems(t, store, 10000)

		p := &models.Participant{BillID: bill.ID, Name: "Alice"}
		if err := store.CreateParticipant(ctx, p); err != nil {
			t.Fatalf("CreateParticipant failed: %v", err)
		}

		if _, err := store.ToggleAssignment(ctx, "missing", p.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("toggle with missing item = %v, want ErrNotFound", err)
		}
		if _, err := store.ToggleAssignment(ctx, items[0].ID, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("toggle with missing participant = %v, want ErrNotFound", err)
		}
	})

	t.Run("DeleteBill cascades to dependents", func(t *testing.T) {
		store := newTestStore(t)
		bill, items := createBillWithItems(t, store, 10000, 20000)

		p := &models.Participant{BillID: bill.ID, Name: "Alice"}
		if err := store.CreateParticipant(ctx, p); err != nil {
			t.Fatalf("CreateParticipant failed: %v", err)
		}
		if _, err := store.ToggleAssignment(ctx, items[0].ID, p.ID); err != nil {
			t.Fatalf("ToggleAssignment failed: %v", err)
		}

		if err := store.DeleteBill(ctx, bill.ID); err != nil {
			t.Fatalf("DeleteBill failed: %v", err)
		}

		if _, err := store.GetBill(ctx, bill.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetBill after delete = %v, want ErrNotFound", err)
		}
		if _, err := store.GetItem(ctx, items[0].ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetItem after delete = %v, want ErrNotFound", err)
		}
		participants, err := store.ListParticipants(ctx, bill.ID)
		if err != nil {
			t.Fatalf("ListParticipants failed: %v", err)
		}
		if len(participants) != 0 {
			t.Errorf("participants = %v, want empty", participants)
		}
	})

	t.Run("NotFound conditions", func(t *testing.T) {
		store := newTestStore(t)

		if _, err := store.GetBill(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetBill = %v, want ErrNotFound", err)
		}
		if err := store.DeleteBill(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("DeleteBill = %v, want ErrNotFound", err)
		}
		if err := store.DeleteItem(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("DeleteItem = %v, want ErrNotFound", err)
		}
		if err := store.UpdateItem(ctx, &models.LineItem{ID: "nope"}); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("UpdateItem = %v, want ErrNotFound", err)
		}
		if _, err := store.RecalculateSubtotal(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("RecalculateSubtotal = %v, want ErrNotFound", err)
		}
		if err := store.CreateParticipant(ctx, &models.Participant{BillID: "nope", Name: "X"}); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("CreateParticipant = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListBills newest first", func(t *testing.T) {
		store := newTestStore(t)

		first := &models.Bill{Title: "first", CreatedAt: 100}
		second := &models.Bill{Title: "second", CreatedAt: 200}
		for _, b := range []*models.Bill{first, second} {
			if err := store.CreateBill(ctx, b); err != nil {
				t.Fatalf("CreateBill failed: %v", err)
			}
		}

		bills, err := store.ListBills(ctx)
		if err != nil {
			t.Fatalf("ListBills failed: %v", err)
		}
		if len(bills) != 2 || bills[0].Title != "second" || bills[1].Title != "first" {
			t.Errorf("unexpected order: %+v", bills)
		}
	})

	t.Run("ResetAll wipes everything and is idempotent", func(t *testing.T) {
		store := newTestStore(t)
		createBillWithItems(t, store, 10000)

		if err := store.ResetAll(ctx); err != nil {
			t.Fatalf("ResetAll failed: %v", err)
		}
		bills, err := store.ListBills(ctx)
		if err != nil {
			t.Fatalf("ListBills after reset failed: %v", err)
		}
		if len(bills) != 0 {
			t.Errorf("bills = %v, want empty", bills)
		}

		if err := store.ResetAll(ctx); err != nil {
			t.Fatalf("second ResetAll failed: %v", err)
		}
	})
}
