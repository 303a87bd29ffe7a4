package auth

// Status names the position of the store in its transition graph. It is
// derived from the State aggregate, never stored separately.
type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
)

// State is the auth state aggregate owned by the Store. Identity is a
// read-only cached copy of the provider-owned user, Role is a derived
// attribute resolved lazily after each identity change.
//
// Invariants:
//   - Loading is true only while a login/register/logout/role-fetch is in
//     flight and is always reset once the operation settles.
//   - If Identity is absent, Role is RoleUnknown.
type State struct {
	Identity *User
	Role     Role
	Loading  bool
	Err      string
}

// Status derives the transition-graph position from the aggregate.
func (s State) Status() Status {
	if s.Identity != nil {
		return StatusAuthenticated
	}
	if s.Loading {
		return StatusAuthenticating
	}
	return StatusAnonymous
}

// IsLoggedIn reports whether an identity is established.
func (s State) IsLoggedIn() bool {
	return s.Identity != nil
}

func (s State) IsAdmin() bool {
	return s.Role == RoleAdmin
}

func (s State) IsStaff() bool {
	return s.Role == RoleStaff
}

func (s State) IsClient() bool {
	return s.Role == RoleClient
}

// clone returns a copy safe to hand outside the store's lock.
func (s State) clone() State {
	c := s
	c.Identity = s.Identity.Clone()
	return c
}
