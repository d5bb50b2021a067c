package main

import (
	"context"
	"fmt"

	"github.com/ecotaxa/ecopart-back-sub000/internal/formatter"
	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
	"github.com/ecotaxa/ecopart-back-sub000/internal/tasks"
	"github.com/urfave/cli/v3"
)

// currentUser returns the acting user from the global --user flag.
func currentUser(cmd *cli.Command) (int64, error) {
	id := cmd.Int("user")
	if id <= 0 {
		return 0, fmt.Errorf("%w: --user (or ECOPART_USER) is required", shared.ErrMissingArgument)
	}
	return int64(id), nil
}

// UserCreate registers a user whose email is already validated.
func (r *Runner) UserCreate(ctx context.Context, cmd *cli.Command) error {
	user := &models.User{
		Email:      cmd.String("email"),
		FirstName:  cmd.String("first-name"),
		LastName:   cmd.String("last-name"),
		IsAdmin:    cmd.Bool("admin"),
		ValidEmail: true,
	}
	if err := r.users.Create(ctx, user); err != nil {
		return err
	}

	r.logger.Info("user created", "user_id", user.ID, "email", user.Email)
	return r.writeJSON(user, true)
}

// UserGrant grants a member or manager privilege on a project.
func (r *Runner) UserGrant(ctx context.Context, cmd *cli.Command) error {
	p := models.Privilege{
		UserID:    int64(cmd.Int("id")),
		ProjectID: int64(cmd.Int("project")),
		Name:      models.PrivilegeName(cmd.String("privilege")),
		Contact:   cmd.Bool("contact"),
	}
	if _, err := r.users.Get(ctx, p.UserID); err != nil {
		return err
	}
	if _, err := r.projects.Get(ctx, p.ProjectID); err != nil {
		return err
	}
	if err := r.users.GrantPrivilege(ctx, p); err != nil {
		return err
	}
	return r.writePlain("✓ user %d is %s on project %d\n", p.UserID, p.Name, p.ProjectID)
}

// ProjectCreate registers a project.
func (r *Runner) ProjectCreate(ctx context.Context, cmd *cli.Command) error {
	project := &models.Project{
		Title:           cmd.String("title"),
		RootFolderPath:  cmd.String("root"),
		InstrumentModel: cmd.String("instrument"),
	}
	if err := r.projects.Create(ctx, project); err != nil {
		return err
	}

	r.logger.Info("project created", "project_id", project.ID, "instrument", project.InstrumentModel)
	return r.writeJSON(project, true)
}

// ProjectList prints every project.
func (r *Runner) ProjectList(ctx context.Context, cmd *cli.Command) error {
	projects, err := r.projects.List(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(projects, true)
	}

	r.writePlainHeader(fmt.Sprintf("Projects (%d)", len(projects)))
	for _, p := range projects {
		r.writePlain("%4d  %-8s %s\n      %s\n", p.ID, p.InstrumentModel, p.Title, p.RootFolderPath)
	}
	return nil
}

// ProjectBackup runs the backup pipeline and follows it to completion.
func (r *Runner) ProjectBackup(ctx context.Context, cmd *cli.Command) error {
	userID, err := currentUser(cmd)
	if err != nil {
		return err
	}

	task, err := r.engine.BackupProject(ctx, userID, int64(cmd.Int("project")), models.BackupParams{
		SkipAlreadyImported: cmd.Bool("skip-existing"),
	})
	if err != nil {
		return err
	}
	return r.follow(ctx, task)
}

// ProjectExportBackup runs the export pipeline and follows it to completion.
func (r *Runner) ProjectExportBackup(ctx context.Context, cmd *cli.Command) error {
	userID, err := currentUser(cmd)
	if err != nil {
		return err
	}

	task, err := r.engine.ExportBackup(ctx, userID, int64(cmd.Int("project")), models.ExportBackupParams{
		OutToFTP: cmd.Bool("ftp"),
	})
	if err != nil {
		return err
	}
	return r.follow(ctx, task)
}

// follow prints the progress events of task until its run settles, then the final task.
// A task that ends in Error is reported as a command failure.
func (r *Runner) follow(ctx context.Context, task *models.Task) error {
	r.writePlain("Started %s task %s\n", task.Type, task.ID)

	settled := make(chan struct{})
	go func() {
		r.engine.Wait()
		close(settled)
	}()

	for done := false; !done; {
		select {
		case u := <-r.progress:
			r.printUpdate(task.ID, u)
		case <-settled:
			done = true
		}
	}
	// Events sent just before the run settled may still be buffered.
	for drained := false; !drained; {
		select {
		case u := <-r.progress:
			r.printUpdate(task.ID, u)
		default:
			drained = true
		}
	}

	final, err := r.ledger.GetOne(ctx, task.ID)
	if err != nil {
		return err
	}
	r.writePlainln("%s", formatter.TaskToText(final))

	if final.Status == models.StatusError {
		return fmt.Errorf("task %s failed: %s", final.ID, final.Error)
	}
	return nil
}

func (r *Runner) printUpdate(taskID string, u tasks.ProgressUpdate) {
	if u.TaskID != taskID {
		return
	}
	r.writePlain("[%3d%%] %-17s %s\n", u.Percent, u.Phase, u.Message)
}
