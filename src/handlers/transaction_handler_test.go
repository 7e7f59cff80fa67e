package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/store"
)

func newTestRouter(t *testing.T, policy store.DuplicatePolicy) (*chi.Mux, *store.Store) {
	t.Helper()

	s, err := store.New(store.Config{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
		OnDuplicate:  policy,
	})
	require.NoError(t, err)
	require.NoError(t, s.Initialize())
	t.Cleanup(func() { s.Close() })

	h := NewTransactionHandler(s, cache.New(time.Minute, time.Minute))

	r := chi.NewRouter()
	r.Use(ContextualLoggerMiddleware)
	r.Post("/api/transactions", h.HandleIngestTransaction)
	r.Get("/api/transactions", h.HandleListTransactions)
	r.Get("/api/transactions/source/{sourceID}", h.HandleGetTransactionBySourceID)
	r.Patch("/api/transactions/{id}/category", h.HandleUpdateCategory)
	return r, s
}

func doJSON(t *testing.T, router *chi.Mux, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func ingestBody(sourceID string) map[string]any {
	body := map[string]any{
		"transaction_time": "2026-08-01T10:15:00Z",
		"description":      "Countdown Auckland",
		"amount":           -42.50,
		"currency":         "NZD",
		"source":           "wise",
		"category":         "Groceries",
	}
	if sourceID != "" {
		body["source_id"] = sourceID
	}
	return body
}

func TestHandleIngestTransaction_Created(t *testing.T) {
	router, _ := newTestRouter(t, store.DuplicateReject)

	rec := doJSON(t, router, http.MethodPost, "/api/transactions", ingestBody("wise-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got models.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotZero(t, got.ID)
	assert.Equal(t, "wise-1", got.SourceID.String)
	assert.Equal(t, -42.50, got.Amount)
	assert.NotEmpty(t, got.CreatedAt)
}

func TestHandleIngestTransaction_MissingRequiredFields(t *testing.T) {
	router, _ := newTestRouter(t, store.DuplicateReject)

	rec := doJSON(t, router, http.MethodPost, "/api/transactions", map[string]any{
		"amount": 10.0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleIngestTransaction_DuplicateRejected(t *testing.T) {
	router, s := newTestRouter(t, store.DuplicateReject)

	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/transactions", ingestBody("wise-1")).Code)

	rec := doJSON(t, router, http.MethodPost, "/api/transactions", ingestBody("wise-1"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var count int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestHandleIngestTransaction_DuplicateIgnored(t *testing.T) {
	router, s := newTestRouter(t, store.DuplicateIgnore)

	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/transactions", ingestBody("wise-1")).Code)

	rec := doJSON(t, router, http.MethodPost, "/api/transactions", ingestBody("wise-1"))
	assert.Equal(t, http.StatusOK, rec.Code, "idempotent re-ingestion responds 200 with the stored record")

	var count int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestHandleGetTransactionBySourceID_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, store.DuplicateReject)

	rec := doJSON(t, router, http.MethodGet, "/api/transactions/source/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListTransactions(t *testing.T) {
	router, _ := newTestRouter(t, store.DuplicateReject)

	for i, sourceID := range []string{"a-1", "a-2"} {
		body := ingestBody(sourceID)
		body["transaction_time"] = []string{"2026-08-01T10:00:00Z", "2026-09-05T10:00:00Z"}[i]
		require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/transactions", body).Code)
	}

	t.Run("by time range", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/transactions?from=2026-08-01T00:00:00Z&to=2026-09-01T00:00:00Z", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got []models.Transaction
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "a-1", got[0].SourceID.String)
	})

	t.Run("by category", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/transactions?category=Groceries", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got []models.Transaction
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Len(t, got, 2)
	})

	t.Run("missing filters", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/transactions", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleUpdateCategory(t *testing.T) {
	router, _ := newTestRouter(t, store.DuplicateReject)

	created := doJSON(t, router, http.MethodPost, "/api/transactions", ingestBody("wise-1"))
	require.Equal(t, http.StatusCreated, created.Code)
	var tx models.Transaction
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &tx))

	rec := doJSON(t, router, http.MethodPatch,
		"/api/transactions/"+strconv.FormatInt(tx.ID, 10)+"/category",
		CategoryUpdateRequest{Category: "Rent"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Cached category listing must reflect the write (cache flushed).
	list := doJSON(t, router, http.MethodGet, "/api/transactions?category=Rent", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var got []models.Transaction
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Rent", got[0].Category.String)
}

func TestHandleUpdateCategory_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, store.DuplicateReject)

	rec := doJSON(t, router, http.MethodPatch, "/api/transactions/9999/category",
		CategoryUpdateRequest{Category: "Rent"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
