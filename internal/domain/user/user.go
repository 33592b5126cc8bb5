package user

import (
	"context"
	"strings"
	"time"

	"spacebook/internal/pkg/errs"
)

var (
	ErrIDRequired          = errs.Field("id", "is required")
	ErrEmailRequired       = errs.Field("email", "is required")
	ErrPasswordHashMissing = errs.New("user: password hash is required")
	ErrNameRequired        = errs.Field("name", "is required")
	ErrInvalidRole         = errs.Field("roles", "unknown role")
	ErrEmailAlreadyUsed    = errs.Mark(errs.New("user: email already used"), errs.ErrConflict)
	ErrNotFound            = errs.Mark(errs.New("user: not found"), errs.ErrNotFound)
)

type ID string

// Role is a platform-wide role. Whether an owner or staff member may operate
// a given space is decided by the space, not by the role alone.
type Role string

const (
	RoleUser  Role = "user"
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// SelfServiceRoles may be requested at registration; admin is granted by fixtures only.
var SelfServiceRoles = []Role{RoleUser, RoleOwner, RoleStaff}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleOwner, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// User is an account. CreatedAt doubles as the registration date the
// first-time-customer promos look at.
type User struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
}

func NewUser(params CreateParams) (*User, error) {
	u := &User{
		ID:           ID(strings.TrimSpace(string(params.ID))),
		Email:        NormalizeEmail(params.Email),
		Name:         strings.TrimSpace(params.Name),
		PasswordHash: params.PasswordHash,
	}
	switch {
	case u.ID == "":
		return nil, ErrIDRequired
	case u.Email == "":
		return nil, ErrEmailRequired
	case strings.TrimSpace(u.PasswordHash) == "":
		return nil, ErrPasswordHashMissing
	case u.Name == "":
		return nil, ErrNameRequired
	}

	roles, err := normalizeRoles(params.Roles)
	if err != nil {
		return nil, err
	}
	u.Roles = roles

	created := params.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	u.CreatedAt = created.UTC()
	u.UpdatedAt = u.CreatedAt
	return u, nil
}

// normalizeRoles lower-cases and de-duplicates roles, keeping the first
// occurrence order. No roles means RoleUser.
func normalizeRoles(roles []Role) ([]Role, error) {
	out := make([]Role, 0, len(roles))
	for _, role := range roles {
		role = Role(strings.ToLower(strings.TrimSpace(string(role))))
		if !role.Valid() {
			return nil, ErrInvalidRole
		}
		dup := false
		for _, seen := range out {
			if seen == role {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, role)
		}
	}
	if len(out) == 0 {
		out = append(out, RoleUser)
	}
	return out, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
