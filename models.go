package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the coarse authorization label attached to an authenticated
// identity.
type Role string

const (
	// RoleAdmin can manage every account and booking
	RoleAdmin Role = "admin"
	// RoleStaff is a coach with an own client roster
	RoleStaff Role = "staff"
	// RoleClient is a regular customer account
	RoleClient Role = "client"
	// RoleUnknown means no role has been resolved for the identity yet
	RoleUnknown Role = "unknown"
)

// User is the cached read-only copy of the identity owned by the identity
// provider, plus the profile columns of the users table.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email           string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Role            Role       `bun:"role,notnull" json:"role,omitempty"`
	FirstName       string     `bun:"first_name" json:"first_name,omitempty"`
	LastName        string     `bun:"last_name" json:"last_name,omitempty"`
	Phone           string     `bun:"phone" json:"phone,omitempty"`
	Birthdate       string     `bun:"birthdate" json:"birthdate,omitempty"`
	Street          string     `bun:"street" json:"street,omitempty"`
	StreetNr        string     `bun:"street_nr" json:"street_nr,omitempty"`
	Zip             string     `bun:"zip" json:"zip,omitempty"`
	City            string     `bun:"city" json:"city,omitempty"`
	AssignedStaffID *uuid.UUID `bun:"assigned_staff_id,nullzero" json:"assigned_staff_id,omitempty"`
	PasswordHash    string     `bun:"password_hash" json:"-"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Clone returns a copy safe to hand to state listeners.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.AssignedStaffID != nil {
		staff := *u.AssignedStaffID
		clone.AssignedStaffID = &staff
	}
	return &clone
}

// SameIdentity reports whether both users refer to the same provider
// identity. Two nils are the same (still anonymous).
func (u *User) SameIdentity(other *User) bool {
	if u == nil || other == nil {
		return u == nil && other == nil
	}
	return u.ID == other.ID
}
