package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splitbill/internal/extractor"
	"splitbill/internal/imagestore/fs"
	"splitbill/internal/service"
	"splitbill/internal/storage/sqlite"
)

type fixedEngine struct{ text string }

func (e *fixedEngine) Name() string { return "fixed" }

func (e *fixedEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	return e.text, nil
}

func newTestMux(t *testing.T, ocrText string) *http.ServeMux {
	t.Helper()

	store, err := sqlite.New(t.TempDir() + "/api.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	images, err := fs.New(t.TempDir())
	require.NoError(t, err)

	svc := service.NewBillService(store, images, &fixedEngine{text: ocrText}, extractor.New(), -1, -1)

	mux := http.NewServeMux()
	New(svc).Register(mux)
	return mux
}

func uploadRequest(t *testing.T, filename string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte{0xff, 0xd8, 0xff})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/scan-and-save", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestScanAndSaveEndpoint(t *testing.T) {
	mux := newTestMux(t, "1 Nasi Goreng 25.000\n2 Es Teh Manis 10.000")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "warung.jpg"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		BillID string `json:"bill_id"`
		Items  []struct {
			ID    string  `json:"id"`
			Name  string  `json:"name"`
			Price float64 `json:"price"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.BillID)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Nasi Goreng", resp.Items[0].Name)
	assert.Equal(t, 25000.0, resp.Items[0].Price)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bills/"+resp.BillID+"/details", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScanAndSaveRejectsMissingFile(t *testing.T) {
	mux := newTestMux(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/scan-and-save", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotFoundMapsTo404(t *testing.T) {
	mux := newTestMux(t, "")

	for _, tc := range []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/bills/missing/details", ""},
		{http.MethodDelete, "/bills/missing", ""},
		{http.MethodDelete, "/bill-items/missing", ""},
		{http.MethodPost, "/bills/missing/recalculate", ""},
		{http.MethodPost, "/bills/missing/calculate-split", ""},
		{http.MethodPost, "/bills/missing/participants", `{"name":"Alice"}`},
		{http.MethodPost, "/assignments", `{"item_id":"a","participant_id":"b"}`},
	} {
		var body *strings.Reader
		if tc.body != "" {
			body = strings.NewReader(tc.body)
		} else {
			body = strings.NewReader("")
		}
		req := httptest.NewRequest(tc.method, tc.path, body)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestToggleAssignmentRoundTrip(t *testing.T) {
	mux := newTestMux(t, "1 Nasi Goreng 25.000")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "warung.jpg"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var scan struct {
		BillID string `json:"bill_id"`
		Items  []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scan))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/bills/"+scan.BillID+"/participants", strings.NewReader(`{"name":"Alice"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var participant struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &participant))

	toggle := `{"item_id":"` + scan.Items[0].ID + `","participant_id":"` + participant.ID + `"}`
	for _, want := range []string{"added", "removed"} {
		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/assignments", strings.NewReader(toggle)))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, want, resp.Status)
	}
}

func TestUpdateItemValidation(t *testing.T) {
	mux := newTestMux(t, "")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/bill-items/x", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculateSplitRejectsBadRate(t *testing.T) {
	mux := newTestMux(t, "")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
		"/bills/x/calculate-split?tax_rate=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	mux := newTestMux(t, "")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
