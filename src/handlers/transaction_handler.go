package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/models"
	"github.com/username/fintrack/backend/src/store"
	"github.com/username/fintrack/backend/src/utils"
)

// TransactionHandler exposes the transaction store's narrow query/update
// contract over HTTP. It performs no parsing, categorization or reporting of
// its own; every endpoint maps directly onto one store operation.
type TransactionHandler struct {
	store     *store.Store
	listCache *cache.Cache
}

func NewTransactionHandler(s *store.Store, listCache *cache.Cache) *TransactionHandler {
	return &TransactionHandler{
		store:     s,
		listCache: listCache,
	}
}

// HandleIngestTransaction persists a single transaction record. Responds 201
// with the stored record on a fresh insert, 200 with the previously stored
// record when an idempotent duplicate is ignored, and 409 when the store's
// policy rejects the duplicate.
func (h *TransactionHandler) HandleIngestTransaction(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var tx models.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if tx.TransactionTime == "" || tx.Currency == "" || tx.Source == "" {
		utils.SendJSONError(w, "transaction_time, currency and source are required", http.StatusBadRequest)
		return
	}

	// Remember whether the dedup key was already present so the response can
	// distinguish a fresh insert from an ignored re-ingestion.
	alreadyStored := false
	if tx.SourceID.Valid {
		if _, err := h.store.GetTransactionBySourceID(r.Context(), tx.SourceID.String); err == nil {
			alreadyStored = true
		}
	}

	if err := h.store.InsertTransaction(r.Context(), &tx); err != nil {
		if errors.Is(err, store.ErrDuplicateSourceID) {
			ctxLogger.Info("Duplicate transaction rejected", "sourceID", tx.SourceID.String, "source", tx.Source)
			utils.SendJSONError(w, fmt.Sprintf("transaction with source_id %q already exists", tx.SourceID.String), http.StatusConflict)
			return
		}
		ctxLogger.Error("Failed to insert transaction", "source", tx.Source, "error", err)
		h.writeStoreError(w, err)
		return
	}

	h.listCache.Flush()

	// The store does not expose the generated id; fetch the stored record by
	// its dedup key when one was supplied.
	if tx.SourceID.Valid {
		stored, err := h.store.GetTransactionBySourceID(r.Context(), tx.SourceID.String)
		if err != nil {
			ctxLogger.Error("Failed to fetch stored transaction after insert", "sourceID", tx.SourceID.String, "error", err)
			h.writeStoreError(w, err)
			return
		}
		status := http.StatusCreated
		if alreadyStored {
			status = http.StatusOK
		}
		utils.SendJSON(w, stored, status)
		return
	}

	utils.SendJSON(w, &tx, http.StatusCreated)
}

// HandleGetTransactionBySourceID returns the transaction carrying the given
// dedup key, or 404 when none exists.
func (h *TransactionHandler) HandleGetTransactionBySourceID(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "sourceID")
	if sourceID == "" {
		utils.SendJSONError(w, "sourceID is required", http.StatusBadRequest)
		return
	}

	tx, err := h.store.GetTransactionBySourceID(r.Context(), sourceID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	utils.SendJSON(w, tx, http.StatusOK)
}

// HandleListTransactions lists transactions by time range (?from=&to=, ISO
// 8601, half-open interval) or by category (?category=). Results for each
// parameter combination are cached until the next write.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	category := r.URL.Query().Get("category")

	var cacheKey string
	switch {
	case category != "":
		cacheKey = "category:" + category
	case from != "" && to != "":
		cacheKey = "range:" + from + ":" + to
	default:
		utils.SendJSONError(w, "either category or both from and to are required", http.StatusBadRequest)
		return
	}

	if cached, found := h.listCache.Get(cacheKey); found {
		utils.SendJSON(w, cached, http.StatusOK)
		return
	}

	var (
		transactions []models.Transaction
		err          error
	)
	if category != "" {
		transactions, err = h.store.ListTransactionsByCategory(r.Context(), category)
	} else {
		transactions, err = h.store.ListTransactionsByTimeRange(r.Context(), from, to)
	}
	if err != nil {
		ctxLogger.Error("Failed to list transactions", "cacheKey", cacheKey, "error", err)
		h.writeStoreError(w, err)
		return
	}

	h.listCache.Set(cacheKey, transactions, cache.DefaultExpiration)
	utils.SendJSON(w, transactions, http.StatusOK)
}

// CategoryUpdateRequest is the body for the category mutation endpoint.
type CategoryUpdateRequest struct {
	Category string `json:"category"`
}

// HandleUpdateCategory assigns a category to an existing transaction. The
// updated_at column is refreshed by the store's trigger, not by this handler.
func (h *TransactionHandler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}

	var req CategoryUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Category == "" {
		utils.SendJSONError(w, "category is required", http.StatusBadRequest)
		return
	}

	if err := h.store.UpdateTransactionCategory(r.Context(), id, req.Category); err != nil {
		ctxLogger.Error("Failed to update category", "id", id, "error", err)
		h.writeStoreError(w, err)
		return
	}

	h.listCache.Flush()
	utils.SendJSON(w, map[string]string{"status": "updated"}, http.StatusOK)
}

// writeStoreError maps the store's error kinds onto HTTP statuses.
func (h *TransactionHandler) writeStoreError(w http.ResponseWriter, err error) {
	switch store.KindOf(err) {
	case store.KindNotFound:
		utils.SendJSONError(w, "transaction not found", http.StatusNotFound)
	case store.KindConstraintViolation:
		utils.SendJSONError(w, "conflicting transaction data", http.StatusConflict)
	case store.KindInvalidStatement:
		utils.SendJSONError(w, "invalid request", http.StatusBadRequest)
	default:
		utils.SendJSONError(w, "internal storage error", http.StatusInternalServerError)
	}
}
