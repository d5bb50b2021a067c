package tasks

import (
	"context"
	"fmt"

	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// UserStore answers the authorization questions pipelines ask. [repositories.UserRepository] implements it.
type UserStore interface {
	EnsureUsable(ctx context.Context, userID int64) error
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	IsGranted(ctx context.Context, userID, projectID int64) (bool, error)
	IsManager(ctx context.Context, userID, projectID int64) (bool, error)
}

// Privilege is the minimum project privilege a pipeline requires.
type Privilege int

const (
	// PrivilegeGranted is held by project members and managers.
	PrivilegeGranted Privilege = iota
	PrivilegeManager
)

func (p Privilege) String() string {
	if p == PrivilegeManager {
		return "manager"
	}
	return "granted"
}

// authorize lets admins through and otherwise checks the required privilege on the project.
func (e *Engine) authorize(ctx context.Context, userID, projectID int64, required Privilege) error {
	if err := e.users.EnsureUsable(ctx, userID); err != nil {
		return err
	}

	admin, err := e.users.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if admin {
		return nil
	}

	var ok bool
	switch required {
	case PrivilegeManager:
		ok, err = e.users.IsManager(ctx, userID, projectID)
	default:
		ok, err = e.users.IsGranted(ctx, userID, projectID)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user %d is not %s on project %d", shared.ErrAuthorization, userID, required, projectID)
	}
	return nil
}
