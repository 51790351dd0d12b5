package domain

// Role is the pre-resolved role of the caller.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleParent     Role = "PARENT"
	RoleStaff      Role = "STAFF"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
	RoleSystem     Role = "SYSTEM"
)

// Actor identifies who performs a mutation. Authentication happens upstream.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used for scheduler-driven mutations.
var SystemActor = Actor{ID: "system", Role: RoleSystem}

// IsHandler reports whether the actor works complaints rather than submitting them.
func (a Actor) IsHandler() bool {
	switch a.Role {
	case RoleStaff, RoleSupervisor, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// IsElevated reports whether the actor may escalate or configure policy.
func (a Actor) IsElevated() bool {
	return a.Role == RoleSupervisor || a.Role == RoleAdmin || a.Role == RoleSystem
}

// IsAdmin reports admin privileges.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
