package auth

// Roles known to the system.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Capability names an operation class a principal may perform. Handlers
// declare the capability they need; roles map to capability sets here, so
// role strings are checked in exactly one place.
type Capability string

const (
	CapManageGroups  Capability = "groups:manage"
	CapIssueSessions Capability = "sessions:issue"
	CapRedeem        Capability = "redemptions:create"
	CapViewUsers     Capability = "users:view"
	CapViewAnalytics Capability = "analytics:view"
)

var roleCapabilities = map[string][]Capability{
	RoleStudent: {CapRedeem},
	RoleTeacher: {CapManageGroups, CapIssueSessions, CapViewUsers, CapViewAnalytics},
	RoleAdmin:   {CapManageGroups, CapIssueSessions, CapViewUsers, CapViewAnalytics},
}

// ValidRole reports whether role is one the system knows.
func ValidRole(role string) bool {
	_, ok := roleCapabilities[role]
	return ok
}

// Allows reports whether the role's capability set contains cap.
// Ownership checks (is this principal the group's owner) stay with the
// services; the gate only answers role-level questions.
func Allows(role string, cap Capability) bool {
	for _, c := range roleCapabilities[role] {
		if c == cap {
			return true
		}
	}
	return false
}
