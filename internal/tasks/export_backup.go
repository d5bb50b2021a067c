package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// ExportBackup zips the project's backup folder and optionally drops it on the FTP server.
// The finished task carries a [models.ExportBackupResult].
func (e *Engine) ExportBackup(ctx context.Context, userID, projectID int64, params models.ExportBackupParams) (*models.Task, error) {
	return e.execute(ctx, launchRequest{
		userID:    userID,
		projectID: projectID,
		required:  PrivilegeGranted,
		params:    params,
		build: func(task *models.Task, project *models.Project) *plan {
			return e.exportBackupPlan(task.ID, project, params)
		},
	})
}

// DownloadLink is the HTTP link serving the export artifact of a task.
func (e *Engine) DownloadLink(taskID string) string {
	return fmt.Sprintf("%s/tasks/%s/file", strings.TrimRight(e.publicURL, "/"), taskID)
}

func (e *Engine) exportBackupPlan(taskID string, project *models.Project, params models.ExportBackupParams) *plan {
	backup := e.files.ProjectBackupPath(project.ID)
	result := &models.ExportBackupResult{}

	return &plan{
		steps: []step{
			{
				phase: LocateBackup,
				pct:   0,
				msg:   "Locating project backup",
				run: func(ctx context.Context) error {
					running, err := e.ledger.CountRunning(ctx, models.TaskImportBackup, project.ID)
					if err != nil {
						return err
					}
					if running > 0 {
						return fmt.Errorf("%w: backup already running for project %d", shared.ErrConflict, project.ID)
					}

					ok, err := e.files.IsDir(backup)
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("%w: Backup folder does not exist at path: %s", shared.ErrNotFound, backup)
					}
					return nil
				},
			},
			{
				phase: ZipBackup,
				pct:   25,
				msg:   "Zipping project backup",
				run: func(ctx context.Context) error {
					zipPath, err := e.ledger.ZipFilePath(ctx, taskID)
					if err != nil {
						return err
					}
					if err := e.files.ZipTree(ctx, backup, zipPath); err != nil {
						return fmt.Errorf("failed to zip backup: %w", err)
					}
					if err := e.ledger.LogMessage(ctx, taskID, "Backup zipped at "+zipPath); err != nil {
						return err
					}
					result.SearchExportLink = e.DownloadLink(taskID)

					if !params.OutToFTP {
						return nil
					}
					if e.uploader == nil {
						return fmt.Errorf("%w: no FTP drop configured", shared.ErrValidation)
					}
					if err := e.ledger.UpdateProgress(ctx, taskID, 75, "Uploading backup to FTP"); err != nil {
						return err
					}
					link, err := e.uploader.Upload(ctx, zipPath)
					if err != nil {
						return err
					}
					result.FTPLink = link
					return e.ledger.LogMessage(ctx, taskID, "Backup uploaded to "+link)
				},
			},
		},
		result: func() any { return result },
	}
}
