package handlers

import (
	"net/http"

	"github.com/harborview-health/patient-portal/internal/directory"
	"github.com/harborview-health/patient-portal/pkg/logging"
)

// DirectoryHandler serves the provider and department listings outside the
// workflow, e.g. for the portal's browse pages.
type DirectoryHandler struct {
	repo   directory.Repository
	logger *logging.Logger
}

// NewDirectoryHandler creates a directory handler.
func NewDirectoryHandler(repo directory.Repository, logger *logging.Logger) *DirectoryHandler {
	if repo == nil {
		panic("handlers: directory repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DirectoryHandler{repo: repo, logger: logger}
}

// ListProviders returns providers matching the optional filters.
// GET /providers?search=&specialty=&department=
func (h *DirectoryHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.repo.ListProviders(r.Context())
	if err != nil {
		h.logger.Error("failed to list providers", "error", err)
		writeWorkflowError(w, err)
		return
	}

	q := r.URL.Query()
	filtered := directory.Apply(providers, directory.Filter{
		Search:     q.Get("search"),
		Specialty:  q.Get("specialty"),
		Department: q.Get("department"),
	})

	writeJSON(w, http.StatusOK, struct {
		Providers   []directory.Provider `json:"providers"`
		Total       int                  `json:"total"`
		Specialties []string             `json:"specialties"`
	}{
		Providers:   filtered,
		Total:       len(filtered),
		Specialties: directory.Specialties(providers),
	})
}

// ListDepartments returns all departments with their provider counts.
// GET /departments
func (h *DirectoryHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.repo.ListDepartments(r.Context())
	if err != nil {
		h.logger.Error("failed to list departments", "error", err)
		writeWorkflowError(w, err)
		return
	}
	providers, err := h.repo.ListProviders(r.Context())
	if err != nil {
		h.logger.Error("failed to list providers for counts", "error", err)
		writeWorkflowError(w, err)
		return
	}

	counts := directory.ProviderCounts(providers)
	views := make([]departmentView, 0, len(departments))
	for _, dep := range departments {
		views = append(views, departmentView{Department: dep, ProviderCount: counts[dep.Name]})
	}
	writeJSON(w, http.StatusOK, struct {
		Departments []departmentView `json:"departments"`
	}{Departments: views})
}
