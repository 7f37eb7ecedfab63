// internal/app/features/ledger/routes.go
package ledgerfeature

import (
	"net/http"

	"github.com/dalemusser/stratadelivery/internal/app/system/apicors"
	"github.com/dalemusser/stratadelivery/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Routes returns a router with the ledger endpoints.
//
// When mounted at /api/1.0/ledger:
//   - GET /api/1.0/ledger/errors
//   - GET /api/1.0/ledger/{requestID}
func Routes(h *Handler, apiKey string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(apicors.Middleware())
	r.Use(auth.APIKeyAuth(apiKey, logger))

	r.Get("/errors", h.ServeErrors)
	r.Get("/{requestID}", h.ServeEntry)

	return r
}
