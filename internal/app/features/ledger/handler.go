// internal/app/features/ledger/handler.go
package ledgerfeature

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	ledgerstore "github.com/dalemusser/stratadelivery/internal/app/store/ledger"
	"github.com/dalemusser/stratadelivery/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadelivery/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// EntryReader reads request ledger entries.
type EntryReader interface {
	RecentErrors(ctx context.Context, errorClass string, limit int) ([]ledgerstore.Entry, error)
	GetByRequestID(ctx context.Context, requestID string) (*ledgerstore.Entry, error)
}

// Handler serves the request ledger over JSON.
type Handler struct {
	store EntryReader
	log   *zap.Logger
}

// NewHandler creates a new ledger handler.
func NewHandler(store EntryReader, logger *zap.Logger) *Handler {
	return &Handler{store: store, log: logger}
}

// ServeErrors handles GET /errors?class=&limit=.
func (h *Handler) ServeErrors(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonutil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Store(), h.log, "ledger recent errors")
	defer cancel()

	entries, err := h.store.RecentErrors(ctx, r.URL.Query().Get("class"), limit)
	if err != nil {
		h.log.Error("failed to list ledger errors", zap.Error(err))
		jsonutil.InternalError(w, "failed to list ledger errors")
		return
	}
	jsonutil.OK(w, map[string]any{"entries": entries})
}

// ServeEntry handles GET /{requestID}.
func (h *Handler) ServeEntry(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Store(), h.log, "ledger get entry")
	defer cancel()

	entry, err := h.store.GetByRequestID(ctx, requestID)
	if errors.Is(err, ledgerstore.ErrNotFound) {
		jsonutil.NotFound(w, "ledger entry not found")
		return
	}
	if err != nil {
		h.log.Error("failed to load ledger entry", zap.String("request_id", requestID), zap.Error(err))
		jsonutil.InternalError(w, "failed to load ledger entry")
		return
	}
	jsonutil.OK(w, entry)
}
