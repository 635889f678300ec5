package users

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// UserRole is a role attached to a user, populated with permission names.
type UserRole struct {
	ID          uuid.UUID `json:"_id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
}

// User represents a user account. The credential hash and token version
// never serialize.
type User struct {
	ID           uuid.UUID  `json:"_id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	TokenVersion int        `json:"-"`
	Roles        []UserRole `json:"roles"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// RoleNames returns the names of the user's roles.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	return names
}

// PermissionNames flattens the user's roles into a deduplicated list of
// permission names, in order of first appearance.
func (u *User) PermissionNames() []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, role := range u.Roles {
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

// RoleList normalizes the accepted role-reference input shapes: a JSON array
// of identifiers, a JSON-encoded string containing such an array, or a single
// bare identifier string. Any other shape decodes to an empty list rather
// than failing.
type RoleList []string

// UnmarshalJSON implements the shape normalization.
func (l *RoleList) UnmarshalJSON(data []byte) error {
	*l = RoleList{}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	var inner []string
	if err := json.Unmarshal([]byte(s), &inner); err == nil {
		*l = inner
		return nil
	}
	var one string
	if err := json.Unmarshal([]byte(s), &one); err == nil {
		*l = RoleList{one}
		return nil
	}
	*l = RoleList{s}
	return nil
}

// ValidIDs filters the list to syntactically valid identifiers. Invalid
// entries are dropped, not rejected.
func (l RoleList) ValidIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(l))
	for _, value := range l {
		id, err := uuid.Parse(value)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
