// internal/app/system/ledger/middleware.go
package ledger

import (
	"context"
	"net/http"
	"strings"
	"time"

	ledgerstore "github.com/dalemusser/stratadelivery/internal/app/store/ledger"
	"github.com/dalemusser/stratadelivery/internal/app/system/timeouts"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ctxKey is the context key type for ledger data.
type ctxKey int

const ctxKeyEntry ctxKey = iota

// EntryWriter persists completed entries. *ledgerstore.Store satisfies it.
type EntryWriter interface {
	Create(ctx context.Context, entry ledgerstore.Entry) error
}

// Config holds configuration for the ledger middleware.
type Config struct {
	// Store persists entries. Writes happen after the response is sent.
	Store EntryWriter

	// Logger for logging errors.
	Logger *zap.Logger

	// ExcludePaths is a list of path prefixes to exclude from logging.
	ExcludePaths []string

	// OnlyAPIPaths restricts logging to paths starting with these prefixes.
	// If empty, all paths are logged (except ExcludePaths).
	OnlyAPIPaths []string
}

// DefaultConfig returns a Config that records the versioned API only.
func DefaultConfig(store EntryWriter, logger *zap.Logger) Config {
	return Config{
		Store:        store,
		Logger:       logger,
		ExcludePaths: []string{"/health", "/ready", "/livez", "/readyz"},
		OnlyAPIPaths: []string{"/api/"},
	}
}

// Middleware returns HTTP middleware that logs requests to the ledger.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if !cfg.includes(path) {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()
			entry := &ledgerstore.Entry{
				RequestID:       uuid.New().String(),
				ClientRequestID: r.Header.Get("X-Request-ID"),
				Method:          r.Method,
				Path:            path,
				Query:           r.URL.RawQuery,
				RemoteIP:        extractIP(r),
				StartedAt:       startTime,
			}

			r = r.WithContext(context.WithValue(r.Context(), ctxKeyEntry, entry))

			wrapped := &responseWrapper{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			next.ServeHTTP(wrapped, r)

			endTime := time.Now()
			entry.StatusCode = wrapped.statusCode
			entry.ResponseSize = wrapped.bytesWritten
			entry.CompletedAt = endTime
			entry.TotalMs = float64(endTime.Sub(startTime).Microseconds()) / 1000.0

			if wrapped.statusCode >= 400 && entry.ErrorClass == "" {
				entry.ErrorClass = classifyStatus(wrapped.statusCode)
			}

			// Store entry asynchronously to not block response
			done := *entry
			go func() {
				storeCtx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Store(), cfg.Logger, "store ledger entry")
				defer cancel()
				if err := cfg.Store.Create(storeCtx, done); err != nil {
					cfg.Logger.Error("failed to store ledger entry",
						zap.String("request_id", done.RequestID),
						zap.Error(err))
				}
			}()
		})
	}
}

func (cfg Config) includes(path string) bool {
	for _, prefix := range cfg.ExcludePaths {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	if len(cfg.OnlyAPIPaths) == 0 {
		return true
	}
	for _, prefix := range cfg.OnlyAPIPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func classifyStatus(code int) string {
	switch {
	case code == http.StatusBadRequest:
		return "validation"
	case code == http.StatusUnauthorized:
		return "auth"
	case code == http.StatusForbidden:
		return "forbidden"
	case code == http.StatusNotFound:
		return "not_found"
	case code >= 500:
		return "internal"
	default:
		return "client_error"
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code and bytes written.
type responseWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (rw *responseWrapper) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWrapper) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher.
func (rw *responseWrapper) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// extractIP extracts the client IP from the request.
func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// RequestID returns the ledger request ID for ctx, or "" outside the middleware.
func RequestID(ctx context.Context) string {
	entry, ok := ctx.Value(ctxKeyEntry).(*ledgerstore.Entry)
	if !ok {
		return ""
	}
	return entry.RequestID
}

// SetErrorClass sets the error class for the ledger entry.
func SetErrorClass(ctx context.Context, class string) {
	entry, ok := ctx.Value(ctxKeyEntry).(*ledgerstore.Entry)
	if !ok {
		return
	}
	entry.ErrorClass = class
}

// SetErrorMessage sets the error message for the ledger entry.
func SetErrorMessage(ctx context.Context, message string) {
	entry, ok := ctx.Value(ctxKeyEntry).(*ledgerstore.Entry)
	if !ok {
		return
	}
	entry.ErrorMessage = message
}
