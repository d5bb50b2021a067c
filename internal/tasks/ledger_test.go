package tasks

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/repositories"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
	th "github.com/ecotaxa/ecopart-back-sub000/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB, email string, admin bool) *models.User {
	t.Helper()
	user := &models.User{Email: email, ValidEmail: true, IsAdmin: admin}
	if err := repositories.NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func newTestLedger(t *testing.T) (*Ledger, *models.User) {
	t.Helper()
	db := setupTestDB(t)
	owner := seedUser(t, db, "owner@example.com", false)
	return NewLedger(repositories.NewTaskRepository(db), filepath.Join(t.TempDir(), "tasks"), nil), owner
}

func createTask(t *testing.T, l *Ledger, ownerID int64) string {
	t.Helper()
	id, err := l.Create(context.Background(), CreateTaskInput{
		Type:    models.TaskImportBackup,
		OwnerID: ownerID,
		Params:  models.BackupParams{},
	})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return id
}

func mustGet(t *testing.T, l *Ledger, id string) *models.Task {
	t.Helper()
	task, err := l.GetOne(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to get task %s: %v", id, err)
	}
	return task
}

func TestLedgerCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("records pending task with empty log", func(t *testing.T) {
		l, owner := newTestLedger(t)
		id := createTask(t, l, owner.ID)

		task := mustGet(t, l, id)
		if task.Status != models.StatusPending {
			t.Errorf("expected Pending, got %s", task.Status)
		}
		if task.LogFilePath != l.LogFilePath(id) {
			t.Errorf("expected log path %s, got %s", l.LogFilePath(id), task.LogFilePath)
		}
		if content := th.MustReadFile(t, task.LogFilePath); content != "" {
			t.Errorf("expected empty log, got %q", content)
		}
	})

	tests := []struct {
		name  string
		input CreateTaskInput
	}{
		{"missing type", CreateTaskInput{OwnerID: 1, Params: models.BackupParams{}}},
		{"missing owner", CreateTaskInput{Type: models.TaskImportBackup, Params: models.BackupParams{}}},
		{"params of another type", CreateTaskInput{Type: models.TaskImport, OwnerID: 1, Params: models.BackupParams{}}},
		{"invalid params", CreateTaskInput{Type: models.TaskImport, OwnerID: 1, Params: models.ImportSamplesParams{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLedger(t)
			_, err := l.Create(ctx, tt.input)
			if !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLedgerTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("start only from pending", func(t *testing.T) {
		l, owner := newTestLedger(t)
		id := createTask(t, l, owner.ID)

		if err := l.Start(ctx, id); err != nil {
			t.Fatalf("failed to start: %v", err)
		}
		task := mustGet(t, l, id)
		if task.Status != models.StatusRunning || task.StartedAt == nil {
			t.Errorf("expected Running with start date, got %s/%v", task.Status, task.StartedAt)
		}

		if err := l.Start(ctx, id); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found on second start, got %v", err)
		}
		if err := l.Start(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found for unknown task, got %v", err)
		}
	})

	t.Run("progress requires running", func(t *testing.T) {
		l, owner := newTestLedger(t)
		id := createTask(t, l, owner.ID)

		if err := l.UpdateProgress(ctx, id, 10, "early"); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error on pending task, got %v", err)
		}
		if err := l.Finish(ctx, id, nil); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error finishing pending task, got %v", err)
		}
	})

	t.Run("progress never decreases", func(t *testing.T) {
		l, owner := newTestLedger(t)
		id := createTask(t, l, owner.ID)
		if err := l.Start(ctx, id); err != nil {
			t.Fatalf("failed to start: %v", err)
		}

		for _, pct := range []int{10, 40, 20} {
			if err := l.UpdateProgress(ctx, id, pct, "step"); err != nil {
				t.Fatalf("failed to update progress to %d: %v", pct, err)
			}
		}
		if task := mustGet(t, l, id); task.ProgressPct != 40 {
			t.Errorf("expected progress 40, got %d", task.ProgressPct)
		}

		for _, pct := range []int{-1, 101} {
			if err := l.UpdateProgress(ctx, id, pct, "bad"); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected validation error for %d, got %v", pct, err)
			}
		}
	})

	t.Run("finish records result", func(t *testing.T) {
		l, owner := newTestLedger(t)
		id := createTask(t, l, owner.ID)
		if err := l.Start(ctx, id); err != nil {
			t.Fatalf("failed to start: %v", err)
		}

		want := models.ExportBackupResult{SearchExportLink: "http://localhost/tasks/x/file"}
		if err := l.Finish(ctx, id, want); err != nil {
			t.Fatalf("failed to finish: %v", err)
		}

		task := mustGet(t, l, id)
		if task.Status != models.StatusDone || task.ProgressPct != 100 || task.EndedAt == nil {
			t.Errorf("expected Done at 100 with end date, got %s/%d/%v", task.Status, task.ProgressPct, task.EndedAt)
		}
		var got models.ExportBackupResult
		if ok, err := task.DecodeResult(&got); err != nil || !ok {
			t.Fatalf("expected result, got %v/%v", ok, err)
		}
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}

		if err := l.UpdateProgress(ctx, id, 100, "late"); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected done task to be immutable, got %v", err)
		}
	})

	t.Run("fail is idempotent", func(t *testing.T) {
		l, owner := newTestLedger(t)
		id := createTask(t, l, owner.ID)

		l.Fail(ctx, id, errors.New("first"))
		l.Fail(ctx, id, errors.New("second"))

		task := mustGet(t, l, id)
		if task.Status != models.StatusError || task.Error != "first" {
			t.Errorf("expected Error with first cause, got %s/%q", task.Status, task.Error)
		}
	})

	t.Run("fail does not touch done task", func(t *testing.T) {
		l, owner := newTestLedger(t)
		id := createTask(t, l, owner.ID)
		if err := l.Start(ctx, id); err != nil {
			t.Fatalf("failed to start: %v", err)
		}
		if err := l.Finish(ctx, id, nil); err != nil {
			t.Fatalf("failed to finish: %v", err)
		}

		l.Fail(ctx, id, errors.New("too late"))
		l.Fail(ctx, "missing", errors.New("unknown"))

		if task := mustGet(t, l, id); task.Status != models.StatusDone || task.Error != "" {
			t.Errorf("expected Done without error, got %s/%q", task.Status, task.Error)
		}
	})

	t.Run("wait for response and answer", func(t *testing.T) {
		l, owner := newTestLedger(t)
		id := createTask(t, l, owner.ID)
		if err := l.Start(ctx, id); err != nil {
			t.Fatalf("failed to start: %v", err)
		}

		if err := l.Answer(ctx, id, "yes"); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error answering running task, got %v", err)
		}
		if err := l.WaitForResponse(ctx, id, "overwrite?"); err != nil {
			t.Fatalf("failed to wait: %v", err)
		}
		if task := mustGet(t, l, id); task.Status != models.StatusWaitingForResponse || task.Question != "overwrite?" {
			t.Errorf("expected waiting with question, got %s/%q", task.Status, task.Question)
		}
		if err := l.Answer(ctx, id, "yes"); err != nil {
			t.Fatalf("failed to answer: %v", err)
		}
		if task := mustGet(t, l, id); task.Status != models.StatusRunning || task.Question != "" {
			t.Errorf("expected running without question, got %s/%q", task.Status, task.Question)
		}
	})
}

func TestLedgerLogFile(t *testing.T) {
	ctx := context.Background()
	l, owner := newTestLedger(t)
	id := createTask(t, l, owner.ID)

	if err := l.Start(ctx, id); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if err := l.UpdateProgress(ctx, id, 50, "halfway there"); err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	if err := l.LogMessage(ctx, id, "a note"); err != nil {
		t.Fatalf("failed to log: %v", err)
	}
	l.Fail(ctx, id, errors.New("boom"))

	content := th.MustReadFile(t, l.LogFilePath(id))
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 log lines, got %d: %q", len(lines), content)
	}
	for i, want := range []string{"task started", "halfway there", "a note", "boom"} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d: expected %q in %q", i, want, lines[i])
		}
	}
}

func TestLedgerCountRunning(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	owner := seedUser(t, db, "owner@example.com", false)
	project := &models.Project{Title: "tara", RootFolderPath: t.TempDir(), InstrumentModel: "UVP6M"}
	if err := repositories.NewProjectRepository(db).Create(ctx, project); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	l := NewLedger(repositories.NewTaskRepository(db), t.TempDir(), nil)

	id, err := l.Create(ctx, CreateTaskInput{
		Type: models.TaskExportBackup, OwnerID: owner.ID, ProjectID: &project.ID, Params: models.ExportBackupParams{},
	})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	count := func() int {
		n, err := l.CountRunning(ctx, models.TaskExportBackup, project.ID)
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		return n
	}
	if n := count(); n != 0 {
		t.Errorf("expected no running task before start, got %d", n)
	}
	if err := l.Start(ctx, id); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if n := count(); n != 1 {
		t.Errorf("expected one running task, got %d", n)
	}

	zipPath, err := l.ZipFilePath(ctx, id)
	if err != nil {
		t.Fatalf("failed to resolve zip path: %v", err)
	}
	if filepath.Base(zipPath) != "export_backup_"+strconv.FormatInt(project.ID, 10)+"_"+id+".zip" {
		t.Errorf("unexpected zip path %s", zipPath)
	}
}
