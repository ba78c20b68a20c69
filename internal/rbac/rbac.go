// Package rbac defines the global roles and the permission scopes they grant.
package rbac

import "slices"

// Role is a global role name as stored on a user.
type Role string

const (
	RoleOwner  Role = "global:owner"
	RoleAdmin  Role = "global:admin"
	RoleMember Role = "global:member"
)

var roleLabels = map[Role]string{
	RoleOwner:  "Owner",
	RoleAdmin:  "Admin",
	RoleMember: "Member",
}

// Label returns the human-readable name of a role. Unknown roles are returned verbatim.
func Label(r Role) string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return string(r)
}

// IsValid reports whether r is one of the known global roles.
func IsValid(r Role) bool {
	_, ok := roleLabels[r]
	return ok
}

// AssignableRoles returns the roles that can be set through a role change.
// The owner role is fixed at bootstrap and never assignable.
func AssignableRoles() []Role {
	return []Role{RoleMember, RoleAdmin}
}

// IsAssignable reports whether r can be the target of a role change.
func IsAssignable(r Role) bool {
	return slices.Contains(AssignableRoles(), r)
}

// Scope is a unit of permission checked before an action is allowed.
type Scope string

const (
	ScopeUserList       Scope = "user:list"
	ScopeUserCreate     Scope = "user:create"
	ScopeUserDelete     Scope = "user:delete"
	ScopeUserChangeRole Scope = "user:changeRole"
	ScopeProjectList    Scope = "project:list"
)

var adminScopes = []Scope{
	ScopeUserList,
	ScopeUserCreate,
	ScopeUserDelete,
	ScopeUserChangeRole,
	ScopeProjectList,
}

var roleScopes = map[Role][]Scope{
	RoleOwner:  adminScopes,
	RoleAdmin:  adminScopes,
	RoleMember: {ScopeProjectList},
}

// HasScope reports whether the given role grants scope.
func HasScope(r Role, scope Scope) bool {
	return slices.Contains(roleScopes[r], scope)
}
