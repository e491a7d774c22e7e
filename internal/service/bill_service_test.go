package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splitbill/internal/extractor"
	"splitbill/internal/imagestore/fs"
	"splitbill/internal/ledger"
	"splitbill/internal/storage"
	"splitbill/internal/storage/sqlite"
)

// stubEngine returns canned OCR text regardless of the image bytes.
type stubEngine struct {
	text string
	err  error
}

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	return e.text, e.err
}

func newTestService(t *testing.T, ocrText string) *BillService {
	t.Helper()

	store, err := sqlite.New(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	images, err := fs.New(t.TempDir())
	require.NoError(t, err)

	return NewBillService(store, images, &stubEngine{text: ocrText}, extractor.New(), -1, -1)
}

const receiptText = `Resto Sederhana
Jl. Melati 12
1 Nasi Goreng 25.000
2 Es Teh Manis 10.000
Sub Total 35.000
Total 40.600`

func TestScanAndSave(t *testing.T) {
	svc := newTestService(t, receiptText)
	ctx := context.Background()

	result, err := svc.ScanAndSave(ctx, "warung.jpg", []byte{0xff, 0xd8})
	require.NoError(t, err)
	require.NotEmpty(t, result.BillID)
	require.Len(t, result.Items, 2)

	assert.Equal(t, "Nasi Goreng", result.Items[0].Name)
	assert.Equal(t, 25000.0, result.Items[0].Price)
	assert.Equal(t, "Es Teh Manis", result.Items[1].Name)
	assert.Equal(t, 2, result.Items[1].Quantity)

	details, err := svc.BillDetails(ctx, result.BillID)
	require.NoError(t, err)
	assert.Equal(t, "Struk warung.jpg", details.Bill.Title)
	assert.Equal(t, 35000.0, details.Bill.Subtotal)
	assert.Equal(t, result.BillID+".jpg", details.ImageKey)
}

func TestCalculateSplitEndToEnd(t *testing.T) {
	svc := newTestService(t, "1 Nasi Goreng 25.000")
	ctx := context.Background()

	result, err := svc.ScanAndSave(ctx, "warung.jpg", []byte{1})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	alice, err := svc.AddParticipant(ctx, result.BillID, "Alice")
	require.NoError(t, err)

	toggled, err := svc.ToggleAssignment(ctx, result.Items[0].ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.Added, toggled)

	split, err := svc.CalculateSplit(ctx, result.BillID, -1, -1)
	require.NoError(t, err)

	share := split.Shares["Alice"]
	require.NotNil(t, share)
	assert.InDelta(t, 25000.0, share.BasePrice, 0.01)
	assert.InDelta(t, 29000.0, share.FinalPrice, 0.01)
	assert.InDelta(t, 29000.0, split.GrandTotalEstimate, 0.01)
	assert.Equal(t, []string{"Nasi Goreng (1/1)"}, share.Items)
}

func TestToggleTwiceExcludesItem(t *testing.T) {
	svc := newTestService(t, "1 Nasi Goreng 25.000")
	ctx := context.Background()

	result, err := svc.ScanAndSave(ctx, "warung.jpg", []byte{1})
	require.NoError(t, err)

	alice, err := svc.AddParticipant(ctx, result.BillID, "Alice")
	require.NoError(t, err)

	itemID := result.Items[0].ID
	for _, want := range []ledger.ToggleResult{ledger.Added, ledger.Removed} {
		got, err := svc.ToggleAssignment(ctx, itemID, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	split, err := svc.CalculateSplit(ctx, result.BillID, -1, -1)
	require.NoError(t, err)
	assert.Empty(t, split.Shares)
	assert.Zero(t, split.GrandTotalEstimate)
}

func TestUpdateAndDeleteItemRecalculateSubtotal(t *testing.T) {
	svc := newTestService(t, "1 Nasi Goreng 10\n1 Mie Ayam 20\n1 Sate Ayam 30")
	ctx := context.Background()

	result, err := svc.ScanAndSave(ctx, "warung.png", []byte{1})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)

	newPrice := 100.0
	updated, err := svc.UpdateItem(ctx, result.Items[0].ID, nil, &newPrice)
	require.NoError(t, err)
	assert.Equal(t, 100.0, updated.Price)
	assert.Equal(t, "Nasi Goreng", updated.Name)

	subtotal, err := svc.RecalculateSubtotal(ctx, result.BillID)
	require.NoError(t, err)
	assert.InDelta(t, 150.0, subtotal, 1e-9)

	require.NoError(t, svc.DeleteItem(ctx, result.Items[0].ID))

	details, err := svc.BillDetails(ctx, result.BillID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, details.Bill.Subtotal, 1e-9)
	assert.Len(t, details.Items, 2)
}

func TestDeleteBillRemovesImage(t *testing.T) {
	svc := newTestService(t, "1 Nasi Goreng 25.000")
	ctx := context.Background()

	result, err := svc.ScanAndSave(ctx, "warung.webp", []byte{1})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBill(ctx, result.BillID))

	_, err = svc.BillDetails(ctx, result.BillID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	key, ok, err := svc.images.Find(ctx, result.BillID)
	require.NoError(t, err)
	assert.False(t, ok, "image %s should be gone", key)
}

func TestNotFoundSurfaces(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()

	_, err := svc.UpdateItem(ctx, "missing", nil, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteItem(ctx, "missing"), storage.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteBill(ctx, "missing"), storage.ErrNotFound)

	_, err = svc.ToggleAssignment(ctx, "missing", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.CalculateSplit(ctx, "missing", -1, -1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.RecalculateSubtotal(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.AddParticipant(ctx, "missing", "Alice")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExtractItemsIsPure(t *testing.T) {
	svc := newTestService(t, "")

	items := svc.ExtractItems("2 Es Teh Manis 10.000")
	require.Len(t, items, 1)
	assert.Equal(t, 10000.0, items[0].Price)

	bills, err := svc.ListBills(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bills)
}

func TestSetExtractorHotSwap(t *testing.T) {
	svc := newTestService(t, "")

	require.Len(t, svc.ExtractItems("1 Promo Hemat 10.000"), 1)

	svc.SetExtractor(extractor.WithKeywords(append([]string{"Promo"}, extractor.DefaultNoiseKeywords...)))
	assert.Empty(t, svc.ExtractItems("1 Promo Hemat 10.000"))
}

func TestReset(t *testing.T) {
	svc := newTestService(t, "1 Nasi Goreng 25.000")
	ctx := context.Background()

	result, err := svc.ScanAndSave(ctx, "warung.jpg", []byte{1})
	require.NoError(t, err)
	require.NotEmpty(t, result.BillID)

	require.NoError(t, svc.Reset(ctx))

	bills, err := svc.ListBills(ctx)
	require.NoError(t, err)
	assert.Empty(t, bills)

	_, ok, err := svc.images.Find(ctx, result.BillID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Reset on empty state is fine.
	require.NoError(t, svc.Reset(ctx))
}
