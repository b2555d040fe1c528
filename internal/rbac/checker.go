package rbac

import "strings"

// Permission keys.
const (
	OrganizationsRead  = "organizations:read"
	OrganizationsWrite = "organizations:write"
	DocumentsWrite     = "documents:write"
	UsersRead          = "users:read"
	UsersWrite         = "users:write"
	AuditRead          = "audit:read"
)

// Operator roles.
const (
	RoleAdmin      = "admin"
	RoleOnboarding = "onboarding"
	RoleViewer     = "viewer"
)

var rolePermissions = map[string][]string{
	RoleAdmin: {
		OrganizationsRead, OrganizationsWrite, DocumentsWrite,
		UsersRead, UsersWrite, AuditRead,
	},
	RoleOnboarding: {
		OrganizationsRead, OrganizationsWrite, DocumentsWrite,
		UsersRead, UsersWrite,
	},
	RoleViewer: {OrganizationsRead, UsersRead},
}

// Checker answers permission questions for operator roles. The role table is
// fixed; operators carry exactly one role.
type Checker struct{}

func (Checker) Can(role, permKey string) bool {
	for _, p := range rolePermissions[strings.ToLower(role)] {
		if p == permKey {
			return true
		}
	}
	return false
}

// Permissions lists what role may do, for the /me endpoint.
func (Checker) Permissions(role string) []string {
	return append([]string(nil), rolePermissions[strings.ToLower(role)]...)
}

func ValidRole(role string) bool {
	_, ok := rolePermissions[strings.ToLower(role)]
	return ok
}

// Helper to compose like "users:read" from resource+action
func Key(resource, action string) string { return strings.ToLower(resource + ":" + action) }
