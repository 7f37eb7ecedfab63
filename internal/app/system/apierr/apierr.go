// Package apierr maps discovery and organisation errors onto JSON API
// responses.
package apierr

import (
	"net/http"

	"github.com/dalemusser/stratadelivery/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadelivery/internal/app/system/ledger"
	"github.com/dalemusser/stratadelivery/internal/domain/delivererr"
)

// Status returns the HTTP status for err.
//
//	not found       404
//	conflict        403
//	data integrity  500
//	anything else   500
func Status(err error) int {
	switch {
	case delivererr.IsNotFound(err):
		return http.StatusNotFound
	case delivererr.IsConflict(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Write sends err as {"error": message} with the mapped status and tags the
// request's ledger entry with the error class.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	ledger.SetErrorClass(r.Context(), delivererr.Class(err))
	ledger.SetErrorMessage(r.Context(), err.Error())
	jsonutil.Error(w, Status(err), err.Error())
}

// BadRequest sends a 400 and tags the ledger entry as a validation error.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	ledger.SetErrorClass(r.Context(), "validation")
	ledger.SetErrorMessage(r.Context(), message)
	jsonutil.BadRequest(w, message)
}
