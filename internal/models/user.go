package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// User is an account that may own tasks and hold project privileges.
type User struct {
	ID         int64      `json:"user_id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	IsAdmin    bool       `json:"is_admin"`
	ValidEmail bool       `json:"valid_email"`
	Deleted    *time.Time `json:"deleted,omitempty"`
	CreatedAt  time.Time  `json:"user_creation_date"`
}

// Validate requires an email address.
func (u *User) Validate() error {
	if !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: invalid email %q", shared.ErrValidation, u.Email)
	}
	return nil
}

// Usable reports whether the account may act: not deleted and with a validated email.
func (u *User) Usable() bool {
	return u.Deleted == nil && u.ValidEmail
}

// PrivilegeName is the right a user holds on a project.
type PrivilegeName string

const (
	PrivilegeMember  PrivilegeName = "member"
	PrivilegeManager PrivilegeName = "manager"
)

// Privilege binds a user to a project.
type Privilege struct {
	UserID    int64         `json:"user_id"`
	ProjectID int64         `json:"project_id"`
	Name      PrivilegeName `json:"privilege_name"`
	Contact   bool          `json:"contact"`
}
