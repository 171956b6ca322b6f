// Package models defines the client-side data models: the signed-in user,
// health reports as returned by the API, and locally queued outbox entries.
package models

import "fmt"

// Role is the closed set of portal roles issued by the server.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAshaWorker Role = "asha_worker"
	RoleNGO        Role = "ngo"
	RoleClinic     Role = "clinic"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleAshaWorker, RoleNGO, RoleClinic}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAshaWorker, RoleNGO, RoleClinic:
		return true
	}
	return false
}

// UserProfile is the user record returned by login. It is immutable for the
// lifetime of a session and replaced wholesale on the next login.
type UserProfile struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
	State    string `json:"state,omitempty"`
	District string `json:"district,omitempty"`
	Village  string `json:"village,omitempty"`
}

func (u UserProfile) String() string {
	return fmt.Sprintf("%s <%s> (%s)", u.Name, u.Email, u.Role)
}
