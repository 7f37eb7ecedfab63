// Package projectsapi lists delivery projects: the general projects kept
// under the general project directory, and the projects found inside
// runfolders.
package projectsapi

import (
	"net/http"

	"github.com/dalemusser/stratadelivery/internal/app/system/apicors"
	"github.com/dalemusser/stratadelivery/internal/app/system/apierr"
	"github.com/dalemusser/stratadelivery/internal/app/system/auth"
	"github.com/dalemusser/stratadelivery/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadelivery/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// GeneralSource lists general projects. *projects.GeneralStore satisfies it.
type GeneralSource interface {
	List() ([]models.GeneralProject, error)
	Get(name string) (models.GeneralProject, error)
}

// RunfolderSource finds runfolder projects by name. *runfolders.Store
// satisfies it.
type RunfolderSource interface {
	ProjectsNamed(name string) ([]*models.RunfolderProject, error)
}

// Handler serves project listings.
type Handler struct {
	general    GeneralSource
	runfolders RunfolderSource
	logger     *zap.Logger
}

// NewHandler creates a projects handler.
func NewHandler(general GeneralSource, runfolders RunfolderSource, logger *zap.Logger) *Handler {
	return &Handler{general: general, runfolders: runfolders, logger: logger}
}

// Routes returns a router with the project endpoints.
//
// When mounted at /api/1.0/projects:
//   - GET /api/1.0/projects                  - general projects
//   - GET /api/1.0/projects/{name}           - one general project
//   - GET /api/1.0/projects/runfolder/{name} - runfolder projects called name
func Routes(h *Handler, apiKey string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(apicors.Middleware())
	r.Use(auth.APIKeyAuth(apiKey, logger))

	r.Get("/", h.List)
	r.Get("/runfolder/{name}", h.RunfolderProjects)
	r.Get("/{name}", h.Get)
	return r
}

// List handles GET /.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.general.List()
	if err != nil {
		h.logger.Error("failed to list general projects", zap.Error(err))
		apierr.Write(w, r, err)
		return
	}
	jsonutil.OK(w, map[string]any{"projects": all})
}

// Get handles GET /{name}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, err := h.general.Get(name)
	if err != nil {
		h.logger.Info("general project lookup failed", zap.String("project", name), zap.Error(err))
		apierr.Write(w, r, err)
		return
	}
	jsonutil.OK(w, p)
}

// RunfolderProjects handles GET /runfolder/{name}.
func (h *Handler) RunfolderProjects(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	found, err := h.runfolders.ProjectsNamed(name)
	if err != nil {
		h.logger.Info("runfolder project lookup failed", zap.String("project", name), zap.Error(err))
		apierr.Write(w, r, err)
		return
	}
	jsonutil.OK(w, map[string]any{"projects": found})
}
