package domain

import (
	"fmt"
	"strings"
)

// Role is a closed enumeration ordered by privilege.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleEditor     Role = "editor"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Permission names a single capability a role may hold.
type Permission string

const (
	PermissionNewsCreate     Permission = "news:create"
	PermissionNewsUpdate     Permission = "news:update"
	PermissionNewsDelete     Permission = "news:delete"
	PermissionOfficialManage Permission = "official:manage"
	PermissionDistrictManage Permission = "district:manage"
	PermissionTourismManage  Permission = "tourism:manage"
	PermissionUserManage     Permission = "user:manage"
	PermissionAuditView      Permission = "audit:view"
)

// roleHierarchy assigns each role a strictly increasing privilege level.
// CanManageRole compares these levels; equal levels can never manage each other.
var roleHierarchy = map[Role]int{
	RoleViewer:     1,
	RoleEditor:     2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

// rolePermissions is the immutable role to permission-set table, built once at
// process start and never mutated at runtime.
var rolePermissions = map[Role]map[Permission]struct{}{
	RoleViewer: permissionSet(),
	RoleEditor: permissionSet(
		PermissionNewsCreate,
		PermissionNewsUpdate,
		PermissionTourismManage,
	),
	RoleAdmin: permissionSet(
		PermissionNewsCreate,
		PermissionNewsUpdate,
		PermissionNewsDelete,
		PermissionOfficialManage,
		PermissionDistrictManage,
		PermissionTourismManage,
		PermissionAuditView,
	),
	RoleSuperAdmin: permissionSet(
		PermissionNewsCreate,
		PermissionNewsUpdate,
		PermissionNewsDelete,
		PermissionOfficialManage,
		PermissionDistrictManage,
		PermissionTourismManage,
		PermissionUserManage,
		PermissionAuditView,
	),
}

func permissionSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// ParseRole validates a raw role string against the closed enumeration.
// Unknown values are rejected here, at the authentication boundary, rather than
// at permission-check sites.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := roleHierarchy[role]; !ok {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// HierarchyLevel returns the privilege level of a role, 0 for unknown roles.
func (r Role) HierarchyLevel() int {
	return roleHierarchy[r]
}

// Valid reports whether the role belongs to the enumeration.
func (r Role) Valid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

// HasPermission reports whether the role grants the capability.
func (r Role) HasPermission(perm Permission) bool {
	perms, ok := rolePermissions[r]
	if !ok {
		return false
	}
	_, granted := perms[perm]
	return granted
}

// HasAnyPermission reports whether the role grants at least one of the capabilities.
func (r Role) HasAnyPermission(perms ...Permission) bool {
	for _, perm := range perms {
		if r.HasPermission(perm) {
			return true
		}
	}
	return false
}

// CanManageRole reports whether an actor role may create, elevate, or modify the
// target role. Management requires a strictly higher hierarchy level, so a role
// can never manage itself or a peer.
func CanManageRole(actor, target Role) bool {
	actorLevel, ok := roleHierarchy[actor]
	if !ok {
		return false
	}
	targetLevel, ok := roleHierarchy[target]
	if !ok {
		return false
	}
	return actorLevel > targetLevel
}

// Roles lists the enumeration in ascending privilege order.
func Roles() []Role {
	return []Role{RoleViewer, RoleEditor, RoleAdmin, RoleSuperAdmin}
}
