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

// UserRepository persists [models.User] rows and their project privileges.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and sets its ID.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (email, first_name, last_name, is_admin, valid_email, deleted, user_creation_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query,
		user.Email, user.FirstName, user.LastName, boolInt(user.IsAdmin), boolInt(user.ValidEmail),
		nullTime(user.Deleted), user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	user.ID = id

	return nil
}

// Get retrieves a user by ID, including soft-deleted users.
func (r *UserRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT user_id, email, first_name, last_name, is_admin, valid_email, deleted, user_creation_date
		FROM users
		WHERE user_id = ?
	`

	var (
		user    models.User
		deleted sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.IsAdmin, &user.ValidEmail, &deleted, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	user.Deleted = timePtr(deleted)

	return &user, nil
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET deleted = ?
		WHERE user_id = ? AND deleted IS NULL
	`

	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %d not found or already deleted", shared.ErrNotFound, id)
	}

	return nil
}

// IsAdmin reports whether the user holds the admin flag.
func (r *UserRepository) IsAdmin(ctx context.Context, id int64) (bool, error) {
	user, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// EnsureUsable fails with [shared.ErrAuthorization] when the user is unknown, deleted or has no valid email.
func (r *UserRepository) EnsureUsable(ctx context.Context, id int64) error {
	user, err := r.Get(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: unknown user %d", shared.ErrAuthorization, id)
	}
	if err != nil {
		return err
	}
	if user.Deleted != nil {
		return fmt.Errorf("%w: user %d is deleted", shared.ErrAuthorization, id)
	}
	if !user.ValidEmail {
		return fmt.Errorf("%w: user %d has not validated their email", shared.ErrAuthorization, id)
	}
	return nil
}

// GrantPrivilege creates or replaces the privilege a user holds on a project.
func (r *UserRepository) GrantPrivilege(ctx context.Context, p models.Privilege) error {
	if p.Name != models.PrivilegeMember && p.Name != models.PrivilegeManager {
		return fmt.Errorf("%w: unknown privilege %q", shared.ErrValidation, p.Name)
	}

	query := `
		INSERT INTO privilege (user_id, project_id, privilege_name, contact)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, project_id) DO UPDATE SET privilege_name = excluded.privilege_name, contact = excluded.contact
	`

	if _, err := r.db.ExecContext(ctx, query, p.UserID, p.ProjectID, string(p.Name), boolInt(p.Contact)); err != nil {
		return fmt.Errorf("failed to grant privilege: %w", err)
	}
	return nil
}

// IsGranted reports whether the user holds any privilege on the project.
func (r *UserRepository) IsGranted(ctx context.Context, userID, projectID int64) (bool, error) {
	return r.hasPrivilege(ctx, userID, projectID, models.PrivilegeMember, models.PrivilegeManager)
}

// IsManager reports whether the user manages the project.
func (r *UserRepository) IsManager(ctx context.Context, userID, projectID int64) (bool, error) {
	return r.hasPrivilege(ctx, userID, projectID, models.PrivilegeManager, models.PrivilegeManager)
}

func (r *UserRepository) hasPrivilege(ctx context.Context, userID, projectID int64, a, b models.PrivilegeName) (bool, error) {
	query := `
		SELECT COUNT(*) FROM privilege
		WHERE user_id = ? AND project_id = ? AND privilege_name IN (?, ?)
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, projectID, string(a), string(b)).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to query privilege: %w", err)
	}
	return count > 0, nil
}
