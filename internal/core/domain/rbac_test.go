package domain

import "testing"

func TestParseRoleAcceptsKnownRoles(t *testing.T) {
	cases := map[string]Role{
		"viewer":      RoleViewer,
		"EDITOR":      RoleEditor,
		" admin ":     RoleAdmin,
		"super_admin": RoleSuperAdmin,
	}

	for raw, want := range cases {
		got, err := ParseRole(raw)
		if err != nil {
			t.Fatalf("ParseRole(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseRole(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParseRoleRejectsUnknownRoles(t *testing.T) {
	for _, raw := range []string{"", "root", "superadmin", "admin2"} {
		if _, err := ParseRole(raw); err == nil {
			t.Fatalf("ParseRole(%q) succeeded, want error", raw)
		}
	}
}

func TestCanManageRoleIsStrictlyHierarchical(t *testing.T) {
	roles := Roles()

	for _, actor := range roles {
		for _, target := range roles {
			got := CanManageRole(actor, target)
			want := actor.HierarchyLevel() > target.HierarchyLevel()
			if got != want {
				t.Fatalf("CanManageRole(%s, %s) = %v, want %v", actor, target, got, want)
			}
		}
	}
}

func TestCanManageRoleNeverReflexive(t *testing.T) {
	for _, role := range Roles() {
		if CanManageRole(role, role) {
			t.Fatalf("CanManageRole(%s, %s) must be false", role, role)
		}
	}
}

func TestCanManageRoleRejectsUnknownRoles(t *testing.T) {
	if CanManageRole("root", RoleViewer) {
		t.Fatal("unknown actor role must not manage anyone")
	}
	if CanManageRole(RoleSuperAdmin, "root") {
		t.Fatal("unknown target role must not be manageable")
	}
}

func TestHasPermission(t *testing.T) {
	if RoleViewer.HasPermission(PermissionNewsCreate) {
		t.Fatal("viewer must not create news")
	}
	if !RoleEditor.HasPermission(PermissionNewsCreate) {
		t.Fatal("editor must create news")
	}
	if RoleEditor.HasPermission(PermissionNewsDelete) {
		t.Fatal("editor must not delete news")
	}
	if !RoleAdmin.HasPermission(PermissionNewsDelete) {
		t.Fatal("admin must delete news")
	}
	if RoleAdmin.HasPermission(PermissionUserManage) {
		t.Fatal("user management is reserved for super_admin")
	}
	if !RoleSuperAdmin.HasPermission(PermissionUserManage) {
		t.Fatal("super_admin must manage users")
	}
}

func TestHasAnyPermission(t *testing.T) {
	if !RoleEditor.HasAnyPermission(PermissionNewsDelete, PermissionNewsUpdate) {
		t.Fatal("editor holds news:update, any-of must pass")
	}
	if RoleViewer.HasAnyPermission(PermissionNewsCreate, PermissionNewsDelete) {
		t.Fatal("viewer holds neither permission")
	}
}

func TestSuperAdminHierarchyDominatesEveryOtherRole(t *testing.T) {
	for _, role := range Roles() {
		if role == RoleSuperAdmin {
			continue
		}
		if !CanManageRole(RoleSuperAdmin, role) {
			t.Fatalf("super_admin must manage %s", role)
		}
		if CanManageRole(role, RoleSuperAdmin) {
			t.Fatalf("%s must not manage super_admin", role)
		}
	}
}

func TestOwnsResource(t *testing.T) {
	owner := Principal{ID: "user-1", Role: RoleEditor, IsActive: true}
	other := Principal{ID: "user-2", Role: RoleAdmin, IsActive: true}
	super := Principal{ID: "user-3", Role: RoleSuperAdmin, IsActive: true}

	if !owner.OwnsResource("user-1") {
		t.Fatal("owner must pass ownership check")
	}
	if other.OwnsResource("user-1") {
		t.Fatal("admin without ownership must be denied")
	}
	if !super.OwnsResource("user-1") {
		t.Fatal("super_admin bypasses ownership")
	}
	if owner.OwnsResource("") {
		t.Fatal("empty owner id must never match")
	}
}
