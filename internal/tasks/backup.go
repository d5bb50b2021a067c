package tasks

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
	"github.com/ecotaxa/ecopart-back-sub000/internal/storage"
)

// backupFolders lists the project root folders an instrument family must provide.
func backupFolders(family models.InstrumentFamily) []string {
	folders := []string{"raw", "meta", "config"}
	if family == models.FamilyUVP5 {
		folders = append(folders, "work")
	}
	return folders
}

// BackupProject copies the project's raw data into its hidden backup folder.
func (e *Engine) BackupProject(ctx context.Context, userID, projectID int64, params models.BackupParams) (*models.Task, error) {
	return e.execute(ctx, launchRequest{
		userID:    userID,
		projectID: projectID,
		required:  PrivilegeManager,
		params:    params,
		build: func(task *models.Task, project *models.Project) *plan {
			return e.backupPlan(task.ID, project, params)
		},
	})
}

func (e *Engine) backupPlan(taskID string, project *models.Project, params models.BackupParams) *plan {
	var folders []string

	return &plan{steps: []step{
		{
			phase: CheckConflicts,
			pct:   0,
			msg:   "Checking that no backup export is running",
			run: func(ctx context.Context) error {
				running, err := e.ledger.CountRunning(ctx, models.TaskExportBackup, project.ID)
				if err != nil {
					return err
				}
				if running > 0 {
					return fmt.Errorf("%w: backup export already running for project %d", shared.ErrConflict, project.ID)
				}
				return nil
			},
		},
		{
			phase: CheckLayout,
			pct:   15,
			msg:   "Checking project folder layout",
			run: func(ctx context.Context) error {
				family, err := project.Family()
				if err != nil {
					return err
				}
				folders = backupFolders(family)
				for _, name := range folders {
					ok, err := e.files.IsDir(filepath.Join(project.RootFolderPath, name))
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("%w: folder %s is missing from project root %s", shared.ErrValidation, name, project.RootFolderPath)
					}
				}
				return nil
			},
		},
		{
			phase: CopyBackup,
			pct:   25,
			msg:   "Copying project data to backup",
			run: func(ctx context.Context) error {
				return e.copyBackup(ctx, taskID, project, folders, params.SkipAlreadyImported)
			},
		},
	}}
}

func (e *Engine) copyBackup(ctx context.Context, taskID string, project *models.Project, folders []string, skipExisting bool) error {
	total := 0
	for _, name := range folders {
		n, err := e.files.CountFiles(filepath.Join(project.RootFolderPath, name))
		if err != nil {
			return err
		}
		total += n
	}

	backup := e.files.ProjectBackupPath(project.ID)
	onFile := e.copyProgress(ctx, taskID, CopyBackup, 25, 99, total)

	var copied, skipped int
	for _, name := range folders {
		stats, err := e.files.CopyTree(ctx,
			filepath.Join(project.RootFolderPath, name),
			filepath.Join(backup, name),
			storage.CopyOptions{SkipExisting: skipExisting, OnFile: onFile},
		)
		if err != nil {
			return fmt.Errorf("failed to back up %s: %w", name, err)
		}
		copied += stats.Copied
		skipped += stats.Skipped
	}

	return e.ledger.UpdateProgress(ctx, taskID, 99,
		fmt.Sprintf("Backup complete: %d files copied, %d skipped", copied, skipped))
}
