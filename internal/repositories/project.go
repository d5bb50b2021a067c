package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// ProjectRepository persists [models.Project] rows.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new [ProjectRepository] with the given database connection
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a project and sets its ID.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if err := project.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO projects (project_title, root_folder_path, instrument_model, project_creation_date)
		VALUES (?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query, project.Title, project.RootFolderPath, project.InstrumentModel, project.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read project id: %w", err)
	}
	project.ID = id

	return nil
}

// Get retrieves a project by ID.
func (r *ProjectRepository) Get(ctx context.Context, id int64) (*models.Project, error) {
	query := `
		SELECT project_id, project_title, root_folder_path, instrument_model, project_creation_date
		FROM projects
		WHERE project_id = ?
	`

	var p models.Project
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Title, &p.RootFolderPath, &p.InstrumentModel, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: project %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query project: %w", err)
	}

	return &p, nil
}

// List retrieves all projects ordered by id.
func (r *ProjectRepository) List(ctx context.Context) ([]*models.Project, error) {
	query := `
		SELECT project_id, project_title, root_folder_path, instrument_model, project_creation_date
		FROM projects
		ORDER BY project_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Title, &p.RootFolderPath, &p.InstrumentModel, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return projects, nil
}

// Delete removes a project. Samples and privileges cascade.
func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE project_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: project %d", shared.ErrNotFound, id)
	}

	return nil
}
