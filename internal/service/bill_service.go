// Package service implements the bill-splitting operation surface on top
// of the storage, OCR, and image collaborators. Each operation runs to
// completion before the next is considered; mutations are single
// all-or-nothing units against storage, so an aborting caller leaves the
// prior consistent state untouched.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"splitbill/internal/calculator"
	"splitbill/internal/extractor"
	"splitbill/internal/imagestore"
	"splitbill/internal/ledger"
	"splitbill/internal/models"
	"splitbill/internal/ocr"
	"splitbill/internal/storage"
)

// BillService coordinates receipt scanning, assignment toggling, and
// split calculation for bills.
type BillService struct {
	store     storage.Store
	images    imagestore.Store
	engine    ocr.Engine
	extractor atomic.Pointer[extractor.Extractor]

	taxRate     float64
	serviceRate float64
}

// NewBillService creates a BillService. Negative rates fall back to the
// calculator defaults.
func NewBillService(store storage.Store, images imagestore.Store, engine ocr.Engine, ex *extractor.Extractor, taxRate, serviceRate float64) *BillService {
	if ex == nil {
		ex = extractor.New()
	}
	if taxRate < 0 {
		taxRate = calculator.DefaultTaxRate
	}
	if serviceRate < 0 {
		serviceRate = calculator.DefaultServiceRate
	}
	s := &BillService{
		store:       store,
		images:      images,
		engine:      engine,
		taxRate:     taxRate,
		serviceRate: serviceRate,
	}
	s.extractor.Store(ex)
	return s
}

// SetExtractor swaps the line extractor, e.g. after a noise-keyword
// configuration reload.
func (s *BillService) SetExtractor(ex *extractor.Extractor) {
	if ex != nil {
		s.extractor.Store(ex)
	}
}

// ScanResult is the outcome of scanning a receipt image.
type ScanResult struct {
	BillID string
	Items  []models.LineItem
}

// ScanAndSave runs OCR on the uploaded receipt image, extracts line
// items, and persists a new bill with its items and the original image.
func (s *BillService) ScanAndSave(ctx context.Context, filename string, image []byte) (*ScanResult, error) {
	text, err := s.engine.Recognize(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("ocr failed: %w", err)
	}

	items := s.extractor.Load().Extract(text)
	slog.Info("Receipt scanned", "filename", filename, "engine", s.engine.Name(), "items", len(items))

	var subtotal float64
	for _, item := range items {
		subtotal += item.Price
	}

	bill := &models.Bill{
		Title:    "Struk " + filename,
		Subtotal: subtotal,
	}
	if err := s.store.CreateBill(ctx, bill); err != nil {
		return nil, err
	}

	stored, err := s.store.CreateItems(ctx, bill.ID, items)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if imagestore.ValidExtension(ext) {
		if err := s.images.Save(ctx, bill.ID, ext, image); err != nil {
			return nil, fmt.Errorf("save receipt image: %w", err)
		}
	} else {
		slog.Warn("Receipt image not stored", "filename", filename, "reason", "unknown extension")
	}

	return &ScanResult{BillID: bill.ID, Items: stored}, nil
}

// ExtractItems parses receipt text into line items without persisting
// anything.
func (s *BillService) ExtractItems(text string) []models.LineItem {
	return s.extractor.Load().Extract(text)
}

// ToggleAssignment flips one (item, participant) assignment pair.
func (s *BillService) ToggleAssignment(ctx context.Context, itemID, participantID string) (ledger.ToggleResult, error) {
	return s.store.ToggleAssignment(ctx, itemID, participantID)
}

// SplitDetails is the display form of a split calculation: shares keyed
// by participant name.
type SplitDetails struct {
	Shares             map[string]*calculator.Share `json:"shares"`
	GrandTotalEstimate float64                      `json:"grand_total_estimate"`
}

// CalculateSplit computes each participant's share of the bill including
// amortized tax and service charges. Negative rates select the service
// defaults.
func (s *BillService) CalculateSplit(ctx context.Context, billID string, taxRate, serviceRate float64) (*SplitDetails, error) {
	if _, err := s.store.GetBill(ctx, billID); err != nil {
		return nil, err
	}

	items, err := s.store.ListItems(ctx, billID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, billID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.AssignmentsByBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	if taxRate < 0 {
		taxRate = s.taxRate
	}
	if serviceRate < 0 {
		serviceRate = s.serviceRate
	}

	ids := make([]string, 0, len(participants))
	names := make(map[string]string, len(participants))
	for _, p := range participants {
		ids = append(ids, p.ID)
		names[p.ID] = p.Name
	}

	result := calculator.CalculateSplit(items, ledger.FromAssignments(assignments), ids, taxRate, serviceRate)

	details := &SplitDetails{
		Shares:             make(map[string]*calculator.Share, len(result.Shares)),
		GrandTotalEstimate: result.GrandTotalEstimate,
	}
	for pid, share := range result.Shares {
		name := names[pid]
		if existing, ok := details.Shares[name]; ok {
			// Two participants with the same display name; merge for output.
			existing.BasePrice += share.BasePrice
			existing.FinalPrice += share.FinalPrice
			existing.Items = append(existing.Items, share.Items...)
			continue
		}
		details.Shares[name] = share
	}
	return details, nil
}

// RecalculateSubtotal recomputes and persists the bill's subtotal from
// its current items, returning the new value.
func (s *BillService) RecalculateSubtotal(ctx context.Context, billID string) (float64, error) {
	return s.store.RecalculateSubtotal(ctx, billID)
}

// UpdateItem edits an item's name and/or price. Nil fields are left
// unchanged. The owning bill's subtotal is recomputed transactionally.
func (s *BillService) UpdateItem(ctx context.Context, itemID string, name *string, price *float64) (*models.LineItem, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if name != nil && *name != "" {
		item.Name = *name
	}
	if price != nil {
		item.Price = *price
	}
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes an item; the owning bill's subtotal is recomputed
// transactionally.
func (s *BillService) DeleteItem(ctx context.Context, itemID string) error {
	return s.store.DeleteItem(ctx, itemID)
}

// DeleteBill removes a bill with all of its items, participants, and
// assignments, and deletes the stored receipt image.
func (s *BillService) DeleteBill(ctx context.Context, billID string) error {
	if _, err := s.store.GetBill(ctx, billID); err != nil {
		return err
	}
	if err := s.images.Remove(ctx, billID); err != nil {
		// The bill record is authoritative; an orphaned image is only
		// worth a warning.
		slog.Warn("Failed to remove receipt image", "bill_id", billID, "error", err)
	}
	return s.store.DeleteBill(ctx, billID)
}

// AddParticipant creates a participant scoped to the bill.
func (s *BillService) AddParticipant(ctx context.Context, billID, name string) (*models.Participant, error) {
	participant := &models.Participant{BillID: billID, Name: name}
	if err := s.store.CreateParticipant(ctx, participant); err != nil {
		return nil, err
	}
	return participant, nil
}

// ListBills returns all bills, newest first.
func (s *BillService) ListBills(ctx context.Context) ([]*models.Bill, error) {
	return s.store.ListBills(ctx)
}

// BillDetails aggregates everything a client needs to render one bill.
type BillDetails struct {
	Bill         *models.Bill         `json:"bill"`
	Items        []models.LineItem    `json:"items"`
	Participants []models.Participant `json:"participants"`
	// Assignments maps item id to assigned participant ids.
	Assignments map[string][]string `json:"assignments"`
	// ImageKey is the stored receipt image key, empty if none.
	ImageKey string `json:"image_key"`
}

// BillDetails loads a bill with its items, participants, assignments,
// and receipt image reference.
func (s *BillService) BillDetails(ctx context.Context, billID string) (*BillDetails, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx, billID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, billID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.AssignmentsByBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	details := &BillDetails{
		Bill:         bill,
		Items:        items,
		Participants: participants,
		Assignments:  assignments,
	}
	key, ok, err := s.images.Find(ctx, billID)
	if err != nil {
		slog.Warn("Failed to look up receipt image", "bill_id", billID, "error", err)
	} else if ok {
		details.ImageKey = key
	}
	return details, nil
}

// Reset performs the factory reset: all stored data and all receipt
// images are gone afterwards. Idempotent.
func (s *BillService) Reset(ctx context.Context) error {
	if err := s.store.ResetAll(ctx); err != nil {
		return err
	}
	if err := s.images.RemoveAll(ctx); err != nil {
		return err
	}
	slog.Info("System factory reset completed")
	return nil
}
