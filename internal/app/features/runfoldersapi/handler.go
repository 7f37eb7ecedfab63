// Package runfoldersapi lists the runfolders found under the configured
// runfolder directory.
package runfoldersapi

import (
	"fmt"
	"net/http"

	"github.com/dalemusser/stratadelivery/internal/app/system/apicors"
	"github.com/dalemusser/stratadelivery/internal/app/system/apierr"
	"github.com/dalemusser/stratadelivery/internal/app/system/auth"
	"github.com/dalemusser/stratadelivery/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadelivery/internal/domain/delivererr"
	"github.com/dalemusser/stratadelivery/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Source discovers runfolders. *runfolders.Store satisfies it.
type Source interface {
	List() ([]*models.Runfolder, error)
	Get(name string) (*models.Runfolder, error)
}

// Handler serves runfolder listings.
type Handler struct {
	runfolders Source
	logger     *zap.Logger
}

// NewHandler creates a runfolders handler.
func NewHandler(runfolders Source, logger *zap.Logger) *Handler {
	return &Handler{runfolders: runfolders, logger: logger}
}

// Routes returns a router with the runfolder endpoints.
//
// When mounted at /api/1.0/runfolders:
//   - GET /api/1.0/runfolders                - every runfolder
//   - GET /api/1.0/runfolders/{runfolderID}  - one runfolder
func Routes(h *Handler, apiKey string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(apicors.Middleware())
	r.Use(auth.APIKeyAuth(apiKey, logger))

	r.Get("/", h.List)
	r.Get("/{runfolderID}", h.Get)
	return r
}

// List handles GET /.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.runfolders.List()
	if err != nil {
		h.logger.Error("failed to list runfolders", zap.Error(err))
		apierr.Write(w, r, err)
		return
	}
	if all == nil {
		all = []*models.Runfolder{}
	}
	jsonutil.OK(w, map[string]any{"runfolders": all})
}

// Get handles GET /{runfolderID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runfolderID")
	rf, err := h.runfolders.Get(id)
	if err != nil {
		h.logger.Error("failed to load runfolder", zap.String("runfolder", id), zap.Error(err))
		apierr.Write(w, r, err)
		return
	}
	if rf == nil {
		apierr.Write(w, r, fmt.Errorf("%w: %s", delivererr.ErrRunfolderNotFound, id))
		return
	}
	jsonutil.OK(w, rf)
}
