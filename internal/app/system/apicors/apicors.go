// Package apicors provides CORS middleware for the API-key protected
// endpoints. No cookies are involved, so any origin may call the API.
package apicors

import (
	"net/http"
	"strings"
)

var (
	allowMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	allowHeaders = "Authorization, Content-Type, Accept, X-Request-ID"
)

// Middleware allows any origin without credentials and answers preflight
// OPTIONS requests with 204.
//
//	r.Use(apicors.Middleware())
//	r.Use(auth.APIKeyAuth(appCfg.APIKey, logger))
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", allowMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
