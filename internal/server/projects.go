package server

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
)

// Pipelines starts project pipelines. [tasks.Engine] implements it.
type Pipelines interface {
	BackupProject(ctx context.Context, userID, projectID int64, params models.BackupParams) (*models.Task, error)
	ExportBackup(ctx context.Context, userID, projectID int64, params models.ExportBackupParams) (*models.Task, error)
	ImportSamples(ctx context.Context, userID, projectID int64, params models.ImportSamplesParams) (*models.Task, error)
	ListImportableSamples(ctx context.Context, userID, projectID int64) ([]models.HeaderSample, error)
}

const (
	routeBackup     = "POST /projects/{project_id}/backup"
	routeExport     = "POST /projects/{project_id}/backup/export"
	routeImportable = "GET /projects/{project_id}/samples/importable"
	routeImport     = "POST /projects/{project_id}/samples/import"
)

// ProjectHandler starts pipelines on a project and lists its importable samples.
//
// Pipeline routes answer 201 with the Pending task.
type ProjectHandler struct {
	pipelines Pipelines
	logger    *log.Logger
}

// NewProjectHandler creates a [ProjectHandler].
func NewProjectHandler(pipelines Pipelines, logger *log.Logger) *ProjectHandler {
	return &ProjectHandler{pipelines: pipelines, logger: logger}
}

func (h *ProjectHandler) Routes() []string {
	return []string{routeBackup, routeExport, routeImportable, routeImport}
}

func (h *ProjectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no current user")
		return
	}
	projectID, err := pathID(r, "project_id")
	if err != nil {
		writeErr(w, err)
		return
	}

	var task *models.Task
	switch r.Pattern {
	case routeBackup:
		var params models.BackupParams
		if err = decodeBody(r, &params); err == nil {
			task, err = h.pipelines.BackupProject(r.Context(), userID, projectID, params)
		}
	case routeExport:
		var params models.ExportBackupParams
		if err = decodeBody(r, &params); err == nil {
			task, err = h.pipelines.ExportBackup(r.Context(), userID, projectID, params)
		}
	case routeImport:
		var params models.ImportSamplesParams
		if err = decodeBody(r, &params); err == nil {
			task, err = h.pipelines.ImportSamples(r.Context(), userID, projectID, params)
		}
	case routeImportable:
		samples, err := h.pipelines.ListImportableSamples(r.Context(), userID, projectID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, samples)
		return
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *ProjectHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeErr(w, err)
}
