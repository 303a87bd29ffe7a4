package auth

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleClient, RoleUnknown:
		return true
	default:
		return false
	}
}

// IsResolved reports whether the role carries real authorization data.
// RoleUnknown is valid but unresolved.
func (r Role) IsResolved() bool {
	return r.IsValid() && r != RoleUnknown
}

// ParseRole safely parses a string into a Role. Unrecognized values map to
// RoleUnknown so a bad row never produces an out-of-set role.
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	if role.IsValid() {
		return role, true
	}
	return RoleUnknown, false
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleStaff,
		RoleClient,
		RoleUnknown,
	}
}
