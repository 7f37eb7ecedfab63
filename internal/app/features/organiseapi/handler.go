// Package organiseapi exposes runfolder organisation over HTTP.
//
// Endpoints:
//   - POST /organise/runfolder/{runfolderID} - organise a runfolder
//   - GET  /organise/runs                     - recent organise runs
package organiseapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dalemusser/stratadelivery/internal/app/store/organiseruns"
	"github.com/dalemusser/stratadelivery/internal/app/system/apierr"
	"github.com/dalemusser/stratadelivery/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadelivery/internal/app/system/ledger"
	"github.com/dalemusser/stratadelivery/internal/app/system/timeouts"
	"github.com/dalemusser/stratadelivery/internal/domain/delivererr"
	"github.com/dalemusser/stratadelivery/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Organiser organises one runfolder. *organise.Service satisfies it.
type Organiser interface {
	OrganiseRunfolder(runfolderID string, lanes []int, projectNames []string, force bool) (*models.Runfolder, error)
}

// RunStore records organise runs. *organiseruns.Store satisfies it.
type RunStore interface {
	Create(ctx context.Context, run organiseruns.Run) error
	List(ctx context.Context, filter organiseruns.ListFilter, limit int) ([]organiseruns.Run, error)
}

// Archiver uploads organised manifests. *manifestarchive.Archiver satisfies it.
type Archiver interface {
	ArchiveRunfolder(ctx context.Context, rf *models.Runfolder) int
}

// Metrics observes organise outcomes. *metrics.Recorder satisfies it.
type Metrics interface {
	ObserveOrganise(outcome string, d time.Duration)
	AddArchived(n int)
}

// Handler serves the organise endpoints.
type Handler struct {
	organiser Organiser
	runs      RunStore
	archiver  Archiver // nil disables archiving
	metrics   Metrics  // nil disables metrics
	logger    *zap.Logger
	now       func() time.Time

	// Requests for the same runfolder run one at a time.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewHandler creates an organise handler. archiver may be nil.
func NewHandler(organiser Organiser, runs RunStore, archiver Archiver, logger *zap.Logger) *Handler {
	return &Handler{
		organiser: organiser,
		runs:      runs,
		archiver:  archiver,
		logger:    logger,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// SetMetrics enables outcome metrics.
func (h *Handler) SetMetrics(m Metrics) {
	h.metrics = m
}

// Request is the optional body of an organise request.
type Request struct {
	Projects []string `json:"projects"`
	Lanes    []int    `json:"lanes"`
	Force    bool     `json:"force"`
}

// Response reports where the runfolder was organised.
type Response struct {
	Runfolder string   `json:"runfolder"`
	Projects  []string `json:"projects"`
}

// OrganiseHandler handles POST /organise/runfolder/{runfolderID}.
//
// Request body (optional, every field may be omitted):
//
//	{"projects": ["ABC_123"], "lanes": [1, 2], "force": true}
//
// An empty body means every project and lane without force. A body that is
// not a single JSON object is rejected with 400 rather than treated as empty.
//
// Response (200 OK):
//
//	{"runfolder": "/data/runfolders/160930_ST-E00216_0111_BH37CWALXX",
//	 "projects": ["ABC_123"]}
//
// The run record and manifest archive outlive the request context, so a
// client disconnect or router timeout does not drop them.
func (h *Handler) OrganiseHandler(w http.ResponseWriter, r *http.Request) {
	runfolderID := chi.URLParam(r, "runfolderID")

	var in Request
	if err := jsonutil.Decode(r, &in); err != nil && !errors.Is(err, io.EOF) {
		apierr.BadRequest(w, r, "Invalid JSON payload")
		return
	}

	h.logger.Info("organising runfolder",
		zap.String("runfolder", runfolderID),
		zap.Strings("projects", in.Projects),
		zap.Ints("lanes", in.Lanes),
		zap.Bool("force", in.Force),
	)

	ctx := context.WithoutCancel(r.Context())

	unlock := h.lock(runfolderID)
	defer unlock()

	started := h.now()
	organised, err := h.organiser.OrganiseRunfolder(runfolderID, in.Lanes, in.Projects, in.Force)
	completed := h.now()

	run := organiseruns.Run{
		RequestID:   requestID(r),
		RunfolderID: runfolderID,
		Lanes:       in.Lanes,
		Projects:    in.Projects,
		Force:       in.Force,
		StartedAt:   started,
		CompletedAt: completed,
		DurationMs:  float64(completed.Sub(started).Microseconds()) / 1000.0,
	}

	if err != nil {
		run.Status = organiseruns.StatusFailed
		run.ErrorClass = delivererr.Class(err)
		run.ErrorMessage = err.Error()
		h.record(ctx, run)
		h.observe(run.ErrorClass, completed.Sub(started))

		h.logger.Error("organise runfolder failed",
			zap.String("runfolder", runfolderID),
			zap.String("error_class", run.ErrorClass),
			zap.Error(err),
		)
		apierr.Write(w, r, err)
		return
	}

	run.Status = organiseruns.StatusCompleted
	run.Organised = organised.ProjectNames()
	h.record(ctx, run)
	h.observe(organiseruns.StatusCompleted, completed.Sub(started))

	// Archive under the runfolder lock; a forced re-organise moves Projects.
	if h.archiver != nil {
		n := h.archiver.ArchiveRunfolder(ctx, organised)
		if h.metrics != nil {
			h.metrics.AddArchived(n)
		}
	}

	jsonutil.OK(w, Response{
		Runfolder: organised.Path,
		Projects:  organised.ProjectNames(),
	})
}

// RunsHandler handles GET /organise/runs?runfolder=<id>&status=<s>&limit=<n>.
func (h *Handler) RunsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			apierr.BadRequest(w, r, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Store(), h.logger, "list organise runs")
	defer cancel()

	runs, err := h.runs.List(ctx, organiseruns.ListFilter{
		RunfolderID: q.Get("runfolder"),
		Status:      q.Get("status"),
	}, limit)
	if err != nil {
		h.logger.Error("failed to list organise runs", zap.Error(err))
		jsonutil.InternalError(w, "Failed to list organise runs")
		return
	}

	jsonutil.OK(w, map[string]any{"runs": runs})
}

// record stores run. Failures are logged only.
func (h *Handler) record(ctx context.Context, run organiseruns.Run) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Store(), h.logger, "record organise run")
	defer cancel()
	if err := h.runs.Create(ctx, run); err != nil {
		h.logger.Warn("failed to record organise run",
			zap.String("runfolder", run.RunfolderID),
			zap.String("request_id", run.RequestID),
			zap.Error(err),
		)
	}
}

func (h *Handler) observe(outcome string, d time.Duration) {
	if h.metrics != nil {
		h.metrics.ObserveOrganise(outcome, d)
	}
}

func (h *Handler) lock(runfolderID string) func() {
	h.locksMu.Lock()
	mu, ok := h.locks[runfolderID]
	if !ok {
		mu = &sync.Mutex{}
		h.locks[runfolderID] = mu
	}
	h.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// requestID reuses the ledger's ID so runs and ledger entries correlate.
func requestID(r *http.Request) string {
	if id := ledger.RequestID(r.Context()); id != "" {
		return id
	}
	return uuid.New().String()
}
