package organiseapi

import (
	"net/http"

	"github.com/dalemusser/stratadelivery/internal/app/system/apicors"
	"github.com/dalemusser/stratadelivery/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Routes returns a router with the organise endpoints.
//
// When mounted at /api/1.0/organise:
//   - POST /api/1.0/organise/runfolder/{runfolderID}
//   - GET  /api/1.0/organise/runs
//
// Authentication is via API key (Bearer token in Authorization header).
func Routes(h *Handler, apiKey string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(apicors.Middleware())
	r.Use(auth.APIKeyAuth(apiKey, logger))

	r.Post("/runfolder/{runfolderID}", h.OrganiseHandler)
	r.Get("/runs", h.RunsHandler)

	return r
}
