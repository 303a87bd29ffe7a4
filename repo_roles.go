package auth

import (
	"context"
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles resolves the application role of an authenticated identity through
// a single lookup on the users table.
type Roles struct {
	db     bun.IDB
	logger Logger
}

var _ RoleResolver = (*Roles)(nil)

// NewRolesRepository returns a bun-backed RoleResolver.
func NewRolesRepository(db bun.IDB) *Roles {
	return &Roles{db: db, logger: defLogger{}}
}

// WithLogger overrides the logger used by the resolver.
func (r *Roles) WithLogger(logger Logger) *Roles {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// GetRole looks up the role recorded for the user. A missing row resolves
// to ErrRoleNotFound, which callers treat as RoleUnknown rather than an
// error. An unrecognized stored value also resolves to RoleUnknown so a bad
// row never grants an out-of-set role.
func (r *Roles) GetRole(ctx context.Context, userID string) (Role, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return RoleUnknown, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid user id").
			WithCode(goerrors.CodeBadRequest)
	}

	user := new(User)
	err = r.db.NewSelect().
		Model(user).
		Column("role").
		Where("usr.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RoleUnknown, ErrRoleNotFound
		}
		r.logger.Error("role lookup for user %s failed: %v", userID, err)
		return RoleUnknown, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to load user role").
			WithTextCode(textCodeRoleLookupFailed)
	}

	role, ok := ParseRole(string(user.Role))
	if !ok {
		r.logger.Warn("unrecognized role %q for user %s, treating as unknown", user.Role, userID)
	}

	return role, nil
}
