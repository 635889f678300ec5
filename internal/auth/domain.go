package auth

import "github.com/google/uuid"

// PrincipalRole is a role attached to a principal, populated with the names
// of the permissions it grants.
type PrincipalRole struct {
	ID          uuid.UUID `json:"_id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
}

// Principal is the resolved authenticated identity: the user record with its
// roles and their permissions eagerly populated. It is rebuilt on every
// authenticated request and never cached.
type Principal struct {
	ID           uuid.UUID       `json:"_id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	TokenVersion int             `json:"-"`
	Roles        []PrincipalRole `json:"roles"`
}

// Account couples a principal with its credential hash. It only exists inside
// the login path; the hash never crosses the service boundary.
type Account struct {
	Principal
	PasswordHash string
}

// PermissionNames flattens the principal's roles into a deduplicated list of
// permission names, in order of first appearance.
func (p *Principal) PermissionNames() []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, role := range p.Roles {
		for _, perm := range role.Permissions {
			if _, ok := seen[perm]; ok {
				continue
			}
			seen[perm] = struct{}{}
			names = append(names, perm)
		}
	}
	return names
}

// RoleNames returns the names of the principal's roles.
func (p *Principal) RoleNames() []string {
	names := make([]string, 0, len(p.Roles))
	for _, role := range p.Roles {
		names = append(names, role.Name)
	}
	return names
}

// HasRole reports whether the principal holds the named role.
func (p *Principal) HasRole(name string) bool {
	for _, role := range p.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// HasPermission reports whether any of the principal's roles grants the
// named permission.
func (p *Principal) HasPermission(name string) bool {
	for _, role := range p.Roles {
		for _, perm := range role.Permissions {
			if perm == name {
				return true
			}
		}
	}
	return false
}
