// internal/app/features/health/health.go
package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratadelivery/internal/app/system/fsutil"
	"github.com/dalemusser/stratadelivery/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadelivery/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger reports database reachability. *mongo.Client satisfies it.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// Handler provides health check endpoints.
type Handler struct {
	mongo        Pinger
	fs           fsutil.FileSystem
	runfolderDir string
	logger       *zap.Logger
}

// NewHandler creates a health handler checking mongo and the runfolder
// directory.
func NewHandler(mongo Pinger, fsys fsutil.FileSystem, runfolderDir string, logger *zap.Logger) *Handler {
	return &Handler{
		mongo:        mongo,
		fs:           fsys,
		runfolderDir: runfolderDir,
		logger:       logger,
	}
}

// Response represents the health check response.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes returns a chi.Router with health check routes mounted.
// Provides /health (full check), /health/ready, and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the Kubernetes probe endpoints on the root router:
// /ready and /readyz for readiness, /livez for liveness.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// Check pings MongoDB and confirms the runfolder directory is present.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	resp := Response{
		Status:   "ok",
		Services: make(map[string]string),
	}

	if err := h.pingMongo(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Services["mongodb"] = "unavailable"
		h.logger.Warn("health check: mongodb ping failed", zap.Error(err))
	} else {
		resp.Services["mongodb"] = "ok"
	}

	if h.fs.IsDir(h.runfolderDir) {
		resp.Services["runfolders"] = "ok"
	} else {
		resp.Status = "degraded"
		resp.Services["runfolders"] = "unavailable"
		h.logger.Warn("health check: runfolder directory missing",
			zap.String("path", h.runfolderDir))
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, status, resp)
}

// Ready checks if the service is ready to accept requests.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.pingMongo(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		jsonutil.JSON(w, http.StatusServiceUnavailable, Response{Status: "not ready"})
		return
	}
	jsonutil.OK(w, Response{Status: "ready"})
}

// Live checks if the service is alive.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, Response{Status: "alive"})
}

func (h *Handler) pingMongo(ctx context.Context) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Ping(), h.logger, "health ping")
	defer cancel()
	return h.mongo.Ping(ctx, readpref.Primary())
}
