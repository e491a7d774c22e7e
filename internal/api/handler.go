// Package api exposes the bill service over a JSON HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"splitbill/internal/service"
	"splitbill/internal/storage"
)

// maxUploadBytes bounds the receipt image size accepted by scan-and-save.
const maxUploadBytes = 16 << 20

// Handler serves the JSON API on top of a BillService.
type Handler struct {
	svc *service.BillService
}

func New(svc *service.BillService) *Handler {
	return &Handler{svc: svc}
}

// Register attaches all routes to the mux using method patterns.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /scan-and-save", h.scanAndSave)
	mux.HandleFunc("GET /bills", h.listBills)
	mux.HandleFunc("GET /bills/{id}/details", h.billDetails)
	mux.HandleFunc("DELETE /bills/{id}", h.deleteBill)
	mux.HandleFunc("POST /bills/{id}/participants", h.addParticipant)
	mux.HandleFunc("POST /bills/{id}/calculate-split", h.calculateSplit)
	mux.HandleFunc("POST /assignments", h.toggleAssignment)
	mux.HandleFunc("PUT /bill-items/{id}", h.updateItem)
	mux.HandleFunc("DELETE /bill-items/{id}", h.deleteItem)
	mux.HandleFunc("POST /bills/{id}/recalculate", h.recalculateSubtotal)
	mux.HandleFunc("POST /system/hard-reset", h.hardReset)
	mux.HandleFunc("GET /healthz", h.healthz)
}

func (h *Handler) scanAndSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable upload")
		return
	}

	result, err := h.svc.ScanAndSave(r.Context(), header.Filename, image)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"bill_id": result.BillID,
		"items":   result.Items,
	})
}

func (h *Handler) listBills(w http.ResponseWriter, r *http.Request) {
	bills, err := h.svc.ListBills(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bills": bills})
}

func (h *Handler) billDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.BillDetails(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *Handler) deleteBill(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBill(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) addParticipant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	participant, err := h.svc.AddParticipant(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, participant)
}

func (h *Handler) calculateSplit(w http.ResponseWriter, r *http.Request) {
	taxRate, ok := rateQuery(r, "tax_rate")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid tax_rate")
		return
	}
	serviceRate, ok := rateQuery(r, "service_rate")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid service_rate")
		return
	}

	split, err := h.svc.CalculateSplit(r.Context(), r.PathValue("id"), taxRate, serviceRate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, split)
}

func (h *Handler) toggleAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID        string `json:"item_id"`
		ParticipantID string `json:"participant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" || req.ParticipantID == "" {
		writeError(w, http.StatusBadRequest, "item_id and participant_id are required")
		return
	}

	result, err := h.svc.ToggleAssignment(r.Context(), req.ItemID, req.ParticipantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": string(result)})
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  *string  `json:"name"`
		Price *float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Name == nil && req.Price == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	item, err := h.svc.UpdateItem(r.Context(), r.PathValue("id"), req.Name, req.Price)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteItem(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) recalculateSubtotal(w http.ResponseWriter, r *http.Request) {
	subtotal, err := h.svc.RecalculateSubtotal(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subtotal": subtotal})
}

func (h *Handler) hardReset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reset": true})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// rateQuery parses an optional rate parameter. Absent values return -1,
// which downstream code maps to the configured defaults.
func rateQuery(r *http.Request, key string) (float64, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return -1, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Response encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	slog.Error("Request handling failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
