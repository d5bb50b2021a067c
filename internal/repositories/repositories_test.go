package repositories

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
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

func seedUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, ValidEmail: true}
	if err := NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func seedProject(t *testing.T, db *sql.DB, model string) *models.Project {
	t.Helper()
	project := &models.Project{Title: "tara", RootFolderPath: "/data/tara", InstrumentModel: model}
	if err := NewProjectRepository(db).Create(context.Background(), project); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return project
}

func TestTaskRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create and Get", func(t *testing.T) {
		db := setupTestDB(t)
		owner := seedUser(t, db, "owner@example.com")
		project := seedProject(t, db, "UVP6M")

		repo := NewTaskRepository(db)
		task := &models.Task{
			Type:      models.TaskImport,
			OwnerID:   owner.ID,
			ProjectID: &project.ID,
			Params:    models.ImportSamplesParams{SampleNames: []string{"sampleA"}},
		}

		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("failed to create task: %v", err)
		}
		if task.ID == "" || task.Sequence != 1 {
			t.Fatalf("expected id and sequence 1, got %q/%d", task.ID, task.Sequence)
		}

		got, err := repo.Get(ctx, task.ID)
		if err != nil {
			t.Fatalf("failed to get task: %v", err)
		}
		if got.Status != models.StatusPending {
			t.Errorf("expected Pending, got %s", got.Status)
		}
		if got.Project() != project.ID {
			t.Errorf("expected project %d, got %d", project.ID, got.Project())
		}
		params, ok := got.Params.(models.ImportSamplesParams)
		if !ok || len(params.SampleNames) != 1 || params.SampleNames[0] != "sampleA" {
			t.Errorf("unexpected params %#v", got.Params)
		}
	})

	t.Run("Sequence increases", func(t *testing.T) {
		db := setupTestDB(t)
		owner := seedUser(t, db, "owner@example.com")
		repo := NewTaskRepository(db)

		for i := 1; i <= 3; i++ {
			task := &models.Task{Type: models.TaskImportBackup, OwnerID: owner.ID, Params: models.BackupParams{}}
			if err := repo.Create(ctx, task); err != nil {
				t.Fatalf("failed to create task: %v", err)
			}
			if task.Sequence != i {
				t.Errorf("expected sequence %d, got %d", i, task.Sequence)
			}
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		owner := seedUser(t, db, "owner@example.com")
		repo := NewTaskRepository(db)

		task := &models.Task{Type: models.TaskExportBackup, OwnerID: owner.ID, Params: models.ExportBackupParams{}}
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("failed to create task: %v", err)
		}

		task.Status = models.StatusError
		task.ProgressPct = 25
		task.Error = "Backup folder does not exist at path: /x"
		if err := repo.Update(ctx, task); err != nil {
			t.Fatalf("failed to update task: %v", err)
		}

		got, err := repo.Get(ctx, task.ID)
		if err != nil {
			t.Fatalf("failed to get task: %v", err)
		}
		if got.Status != models.StatusError || got.ProgressPct != 25 || got.Error != task.Error {
			t.Errorf("unexpected task after update: %+v", got)
		}
	})

	t.Run("List filters", func(t *testing.T) {
		db := setupTestDB(t)
		owner := seedUser(t, db, "owner@example.com")
		project := seedProject(t, db, "UVP5HD")
		repo := NewTaskRepository(db)

		for _, typ := range []models.TaskType{models.TaskImportBackup, models.TaskExportBackup, models.TaskImportBackup} {
			params, _ := models.DecodeParams(typ, "{}")
			task := &models.Task{Type: typ, OwnerID: owner.ID, ProjectID: &project.ID, Params: params}
			if err := repo.Create(ctx, task); err != nil {
				t.Fatalf("failed to create task: %v", err)
			}
		}

		tasks, err := repo.List(ctx, TaskFilter{Fields: map[string]string{"type": "Import_Backup"}})
		if err != nil {
			t.Fatalf("failed to list tasks: %v", err)
		}
		if len(tasks) != 2 {
			t.Errorf("expected 2 backup tasks, got %d", len(tasks))
		}

		tasks, err = repo.List(ctx, TaskFilter{Limit: 1, Desc: true})
		if err != nil {
			t.Fatalf("failed to list tasks: %v", err)
		}
		if len(tasks) != 1 || tasks[0].Sequence != 3 {
			t.Errorf("expected newest task first, got %+v", tasks)
		}

		_, err = repo.List(ctx, TaskFilter{Fields: map[string]string{"task_error": "x"}})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation for non whitelisted field, got %v", err)
		}

		_, err = repo.List(ctx, TaskFilter{Fields: map[string]string{"project_id": "abc"}})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation for non numeric project id, got %v", err)
		}
	})

	t.Run("CountByTypeAndStatus", func(t *testing.T) {
		db := setupTestDB(t)
		owner := seedUser(t, db, "owner@example.com")
		project := seedProject(t, db, "UVP6M")
		repo := NewTaskRepository(db)

		task := &models.Task{Type: models.TaskExportBackup, OwnerID: owner.ID, ProjectID: &project.ID, Params: models.ExportBackupParams{}}
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("failed to create task: %v", err)
		}
		task.Status = models.StatusRunning
		if err := repo.Update(ctx, task); err != nil {
			t.Fatalf("failed to update task: %v", err)
		}

		typeID, err := repo.TypeID(ctx, models.TaskExportBackup)
		if err != nil {
			t.Fatalf("TypeID() error = %v", err)
		}
		statusID, err := repo.StatusID(ctx, models.StatusRunning)
		if err != nil {
			t.Fatalf("StatusID() error = %v", err)
		}

		count, err := repo.CountByTypeAndStatus(ctx, typeID, statusID, project.ID)
		if err != nil {
			t.Fatalf("CountByTypeAndStatus() error = %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 running export, got %d", count)
		}

		count, err = repo.CountByTypeAndStatus(ctx, typeID, statusID, project.ID+1)
		if err != nil || count != 0 {
			t.Errorf("expected no running export on another project, got %d (%v)", count, err)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTaskRepository(db)

		if _, err := repo.Get(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.TypeID(ctx, "Rebuild"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound for unknown type, got %v", err)
		}
		if err := repo.Create(ctx, &models.Task{Type: models.TaskImport, Params: models.ImportSamplesParams{SampleNames: []string{"a"}}}); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation for missing owner, got %v", err)
		}
		if err := repo.Update(ctx, &models.Task{ID: "missing", Status: models.StatusDone}); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on update, got %v", err)
		}
	})
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Privileges", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		user := seedUser(t, db, "member@example.com")
		project := seedProject(t, db, "UVP6M")

		granted, err := repo.IsGranted(ctx, user.ID, project.ID)
		if err != nil || granted {
			t.Fatalf("expected no privilege yet, got %v (%v)", granted, err)
		}

		if err := repo.GrantPrivilege(ctx, models.Privilege{UserID: user.ID, ProjectID: project.ID, Name: models.PrivilegeMember}); err != nil {
			t.Fatalf("GrantPrivilege() error = %v", err)
		}
		if granted, _ := repo.IsGranted(ctx, user.ID, project.ID); !granted {
			t.Error("member should be granted")
		}
		if manager, _ := repo.IsManager(ctx, user.ID, project.ID); manager {
			t.Error("member should not be manager")
		}

		if err := repo.GrantPrivilege(ctx, models.Privilege{UserID: user.ID, ProjectID: project.ID, Name: models.PrivilegeManager}); err != nil {
			t.Fatalf("GrantPrivilege() error = %v", err)
		}
		if manager, _ := repo.IsManager(ctx, user.ID, project.ID); !manager {
			t.Error("upgraded privilege should make the user manager")
		}

		err = repo.GrantPrivilege(ctx, models.Privilege{UserID: user.ID, ProjectID: project.ID, Name: "owner"})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation for unknown privilege, got %v", err)
		}
	})

	t.Run("EnsureUsable", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)

		active := seedUser(t, db, "active@example.com")
		if err := repo.EnsureUsable(ctx, active.ID); err != nil {
			t.Errorf("active user should be usable: %v", err)
		}

		unverified := &models.User{Email: "new@example.com"}
		if err := repo.Create(ctx, unverified); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		if err := repo.EnsureUsable(ctx, unverified.ID); !errors.Is(err, shared.ErrAuthorization) {
			t.Errorf("expected ErrAuthorization for unverified email, got %v", err)
		}

		if err := repo.Delete(ctx, active.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := repo.EnsureUsable(ctx, active.ID); !errors.Is(err, shared.ErrAuthorization) {
			t.Errorf("expected ErrAuthorization for deleted user, got %v", err)
		}
		if err := repo.Delete(ctx, active.ID); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound when deleting twice, got %v", err)
		}

		if err := repo.EnsureUsable(ctx, 999); !errors.Is(err, shared.ErrAuthorization) {
			t.Errorf("expected ErrAuthorization for unknown user, got %v", err)
		}
	})

	t.Run("IsAdmin", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		admin := &models.User{Email: "admin@example.com", IsAdmin: true, ValidEmail: true}
		if err := repo.Create(ctx, admin); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		isAdmin, err := repo.IsAdmin(ctx, admin.ID)
		if err != nil || !isAdmin {
			t.Errorf("expected admin, got %v (%v)", isAdmin, err)
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		db := setupTestDB(t)
		seedUser(t, db, "dup@example.com")
		if err := NewUserRepository(db).Create(ctx, &models.User{Email: "dup@example.com"}); err == nil {
			t.Fatal("expected error when creating user with duplicate email")
		}
	})
}

func TestProjectRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewProjectRepository(db)

	project := seedProject(t, db, "UVP5HD")
	got, err := repo.Get(ctx, project.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.InstrumentModel != "UVP5HD" || got.RootFolderPath != "/data/tara" {
		t.Errorf("unexpected project %+v", got)
	}

	if err := repo.Create(ctx, &models.Project{Title: "x", RootFolderPath: "/x", InstrumentModel: "LISST"}); !errors.Is(err, shared.ErrValidation) {
		t.Errorf("expected ErrValidation for unknown instrument, got %v", err)
	}

	projects, err := repo.List(ctx)
	if err != nil || len(projects) != 1 {
		t.Errorf("expected 1 project, got %d (%v)", len(projects), err)
	}

	if err := repo.Delete(ctx, project.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, project.ID); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSampleRepository(t *testing.T) {
	ctx := context.Background()

	newSample := func(projectID, typeID int64, name string) *models.Sample {
		draft := models.NewSampleDraft(name)
		draft.SampleTypeID = typeID
		draft.Latitude = 43.68333
		draft.Longitude = 7.31667
		draft.Vignette = &models.VignetteSettings{Gamma: 1.5, Scale: 2}
		return draft.ToSample(projectID)
	}

	t.Run("CreateMany", func(t *testing.T) {
		db := setupTestDB(t)
		project := seedProject(t, db, "UVP6M")
		typeID, err := NewSampleTypeRepository(db).IDByLabel(ctx, models.SampleTypeDepth)
		if err != nil {
			t.Fatalf("IDByLabel() error = %v", err)
		}

		repo := NewSampleRepository(db)
		samples := []*models.Sample{newSample(project.ID, typeID, "sampleB"), newSample(project.ID, typeID, "sampleA")}
		if err := repo.CreateMany(ctx, samples); err != nil {
			t.Fatalf("CreateMany() error = %v", err)
		}
		if samples[0].ID == 0 || samples[1].ID == 0 {
			t.Error("ids should be set after insert")
		}

		names, err := repo.ListNames(ctx, project.ID)
		if err != nil {
			t.Fatalf("ListNames() error = %v", err)
		}
		if len(names) != 2 || names[0] != "sampleA" || names[1] != "sampleB" {
			t.Errorf("unexpected names %v", names)
		}

		got, err := repo.Get(ctx, samples[0].ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !math.IsNaN(got.BottomDepth) {
			t.Errorf("NULL bottom depth should read back as NaN, got %v", got.BottomDepth)
		}
		if got.Latitude != 43.68333 {
			t.Errorf("expected latitude 43.68333, got %v", got.Latitude)
		}
		if got.InstrumentSettings.Vignette == nil || got.InstrumentSettings.Vignette.Gamma != 1.5 {
			t.Errorf("vignette settings should round trip, got %+v", got.InstrumentSettings)
		}
	})

	t.Run("CreateMany is all or nothing", func(t *testing.T) {
		db := setupTestDB(t)
		project := seedProject(t, db, "UVP6M")
		typeID, _ := NewSampleTypeRepository(db).IDByLabel(ctx, models.SampleTypeTime)
		repo := NewSampleRepository(db)

		if err := repo.Create(ctx, newSample(project.ID, typeID, "sampleA")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		err := repo.CreateMany(ctx, []*models.Sample{
			newSample(project.ID, typeID, "sampleC"),
			newSample(project.ID, typeID, "sampleA"),
		})
		if err == nil {
			t.Fatal("expected unique constraint failure")
		}

		names, _ := repo.ListNames(ctx, project.ID)
		if len(names) != 1 {
			t.Errorf("failed batch must not leave rows behind, got %v", names)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		project := seedProject(t, db, "UVP6M")
		typeID, _ := NewSampleTypeRepository(db).IDByLabel(ctx, models.SampleTypeTime)
		repo := NewSampleRepository(db)

		sample := newSample(project.ID, typeID, "sampleA")
		if err := repo.Create(ctx, sample); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := repo.Delete(ctx, sample.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		samples, err := repo.ListByProject(ctx, project.ID)
		if err != nil || len(samples) != 0 {
			t.Errorf("expected no samples, got %d (%v)", len(samples), err)
		}
	})

	t.Run("Unknown sample type", func(t *testing.T) {
		db := setupTestDB(t)
		if _, err := NewSampleTypeRepository(db).IDByLabel(ctx, "transect"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
