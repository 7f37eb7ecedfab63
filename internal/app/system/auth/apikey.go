// Package auth guards the API with a shared bearer key.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dalemusser/stratadelivery/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

// APIKeyAuth returns middleware that requires "Authorization: Bearer <key>".
//
// Failures get a 401 with a JSON error body. When validKey is empty every
// request is rejected, so an unconfigured deployment never runs open.
func APIKeyAuth(validKey string, logger *zap.Logger) func(http.Handler) http.Handler {
	if validKey == "" {
		logger.Warn("API key not configured - all API requests will be rejected")
	}
	want := []byte(validKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validKey == "" {
				logger.Warn("API request rejected: API key not configured",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				jsonutil.Unauthorized(w, "API authentication not configured")
				return
			}

			key, ok := bearerToken(r)
			if !ok {
				logger.Debug("API request rejected: missing or malformed Authorization header",
					zap.String("path", r.URL.Path),
				)
				jsonutil.Unauthorized(w, "expected Authorization: Bearer <api-key>")
				return
			}

			if subtle.ConstantTimeCompare([]byte(key), want) != 1 {
				logger.Warn("API request rejected: invalid API key",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				jsonutil.Unauthorized(w, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
