// Copyright 2026 The Elev8 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package access_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elev8/access/internal/access"
	"github.com/elev8/access/internal/identity"
)

// TestPurpose: Validates role derivation from the nullable profile flags.
// Scope: Unit Test
// Security: Privilege assignment (admin overrides staff, absent flags never grant)
// Expected: nil and unset profiles are members, admin wins over staff.
// Test Case ID: ACC-01
func TestAccess_ResolveRole(t *testing.T) {
	tests := []struct {
		name    string
		profile *identity.Profile
		want    access.Role
	}{
		{"nil profile", nil, access.RoleMember},
		{"flags absent", &identity.Profile{ID: "u1"}, access.RoleMember},
		{"both false", &identity.Profile{IsAdmin: identity.Bool(false), IsStaff: identity.Bool(false)}, access.RoleMember},
		{"staff only", &identity.Profile{IsAdmin: identity.Bool(false), IsStaff: identity.Bool(true)}, access.RoleStaff},
		{"admin without staff", &identity.Profile{IsAdmin: identity.Bool(true), IsStaff: identity.Bool(false)}, access.RoleAdmin},
		{"admin and staff", &identity.Profile{IsAdmin: identity.Bool(true), IsStaff: identity.Bool(true)}, access.RoleAdmin},
		{"admin with staff absent", &identity.Profile{IsAdmin: identity.Bool(true)}, access.RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, access.ResolveRole(tt.profile))
		})
	}
}

// TestPurpose: Validates the concrete permission decisions of the default table.
// Scope: Unit Test
// Security: Route authorization (deny by default, prefix wildcards)
// Expected: Matches the published access matrix.
// Test Case ID: ACC-02
func TestAccess_HasPermission_Scenarios(t *testing.T) {
	tests := []struct {
		role access.Role
		path string
		want bool
	}{
		{access.RoleMember, "/member/dashboard", true},
		{access.RoleMember, "/members", false},
		{access.RoleStaff, "/members", true},
		{access.RoleStaff, "/members/42", true},
		{access.RoleAdmin, "/debug/anything", true},
		{access.RoleStaff, "/debug/anything", false},
		{access.RoleMember, "/coach/programming", false},
		{access.RoleStaff, "/billing/dashboard", false},
		{access.RoleAdmin, "/billing/reports", true},
		{access.RoleMember, "/unknown", false},
		{access.RoleAdmin, "/unknown", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, access.HasPermission(tt.role, tt.path))
		})
	}
}

// TestPurpose: Validates that the wildcard base keeps its trailing slash.
// Scope: Unit Test
// Security: Prevents prefix collisions granting unrelated pages
// Expected: /members/* matches /members/ and below, never /membersarchive.
// Test Case ID: ACC-03
func TestAccess_Wildcard_PrefixBoundary(t *testing.T) {
	table := access.MustNewTable(
		access.PermissionConfig{Role: access.RoleMember, AllowedPaths: []string{"/home", "/members/*"}, RedirectPath: "/home"},
		access.PermissionConfig{Role: access.RoleStaff, AllowedPaths: []string{"/home"}, RedirectPath: "/home"},
		access.PermissionConfig{Role: access.RoleAdmin, AllowedPaths: []string{"/home"}, RedirectPath: "/home"},
	)

	assert.True(t, table.HasPermission(access.RoleMember, "/members/"))
	assert.True(t, table.HasPermission(access.RoleMember, "/members/xyz-abc"))
	assert.True(t, table.HasPermission(access.RoleMember, "/members/1/edit"))
	assert.False(t, table.HasPermission(access.RoleMember, "/members"))
	assert.False(t, table.HasPermission(access.RoleMember, "/membersarchive"))
}

func TestAccess_DebugWildcard_BareBase(t *testing.T) {
	assert.True(t, access.HasPermission(access.RoleAdmin, "/debug/"))
	assert.True(t, access.HasPermission(access.RoleAdmin, "/debug/cache"))
	// /debug/* has no exact entry beside it, so the bare base stays closed.
	assert.False(t, access.HasPermission(access.RoleAdmin, "/debug"))
	assert.False(t, access.IsPathAccessible("/debug", access.RoleAdmin))
	assert.False(t, access.HasPermission(access.RoleAdmin, "/debugger"))
}

// TestPurpose: Validates that authentication pages are reachable for every role.
// Scope: Unit Test
// Expected: /auth/* is accessible regardless of the permission table.
// Test Case ID: ACC-04
func TestAccess_IsPathAccessible_AuthPrefix(t *testing.T) {
	for _, r := range access.AllRoles {
		assert.True(t, access.IsPathAccessible("/auth/login", r), r)
		assert.True(t, access.IsPathAccessible("/auth/reset-password", r), r)
		assert.False(t, access.HasPermission(r, "/auth/login"), r)
	}
	assert.False(t, access.IsPathAccessible("/authz", access.RoleAdmin))
}

// TestPurpose: Validates that no role can be redirected into a page it cannot view.
// Scope: Unit Test
// Security: Redirect loop prevention
// Expected: Every landing path is accessible to its own role.
// Test Case ID: ACC-05
func TestAccess_RedirectPath_AccessibleToOwnRole(t *testing.T) {
	want := map[access.Role]string{
		access.RoleAdmin:  "/dashboard",
		access.RoleStaff:  "/coach/programming",
		access.RoleMember: "/member/dashboard",
	}
	for _, r := range access.AllRoles {
		path, err := access.GetRedirectPath(r)
		require.NoError(t, err)
		assert.Equal(t, want[r], path)
		assert.True(t, access.IsPathAccessible(path, r), "landing %s for %s", path, r)
	}
}

// TestPurpose: Validates that every literal allowed path is permitted.
// Scope: Unit Test
// Expected: HasPermission is true for each non-wildcard entry of each role.
// Test Case ID: ACC-06
func TestAccess_LiteralPathsPermitted(t *testing.T) {
	table := access.DefaultTable()
	for _, r := range access.AllRoles {
		cfg, ok := table.Config(r)
		require.True(t, ok)
		for _, p := range cfg.AllowedPaths {
			if strings.HasSuffix(p, "/*") {
				continue
			}
			assert.True(t, table.HasPermission(r, p), "%s should reach %s", r, p)
		}
	}
}

// TestPurpose: Validates that admin can reach every page staff or members can reach.
// Scope: Unit Test
// Security: No page is hidden from administrators
// Expected: admin allowed set is a superset of staff and member sets.
// Test Case ID: ACC-07
func TestAccess_AdminSuperset(t *testing.T) {
	table := access.DefaultTable()
	for _, r := range []access.Role{access.RoleStaff, access.RoleMember} {
		cfg, _ := table.Config(r)
		for _, p := range cfg.AllowedPaths {
			probe := p
			if strings.HasSuffix(p, "/*") {
				probe = strings.TrimSuffix(p, "*") + "42"
			}
			assert.True(t, table.HasPermission(access.RoleAdmin, probe), "admin should reach %s", probe)
		}
	}
}

// TestPurpose: Validates that repeated decisions are stable.
// Scope: Unit Test
// Expected: Same inputs yield the same output.
// Test Case ID: ACC-08
func TestAccess_HasPermission_Idempotent(t *testing.T) {
	for _, r := range access.AllRoles {
		for _, p := range []string{"/members/7", "/dashboard", "/help", "/nope"} {
			first := access.HasPermission(r, p)
			for i := 0; i < 3; i++ {
				assert.Equal(t, first, access.HasPermission(r, p))
			}
		}
	}
}

// TestPurpose: Validates fail-fast handling of roles outside the table.
// Scope: Unit Test
// Expected: RedirectPath returns ErrUnknownRole, HasPermission panics.
// Test Case ID: ACC-09
func TestAccess_UnknownRole(t *testing.T) {
	_, err := access.GetRedirectPath(access.Role("owner"))
	assert.ErrorIs(t, err, access.ErrUnknownRole)

	assert.Panics(t, func() {
		access.HasPermission(access.Role("owner"), "/dashboard")
	})

	_, err = access.ParseRole("owner")
	assert.ErrorIs(t, err, access.ErrUnknownRole)

	r, err := access.ParseRole("staff")
	require.NoError(t, err)
	assert.Equal(t, access.RoleStaff, r)
}

// TestPurpose: Validates table construction rejects misconfiguration.
// Scope: Unit Test
// Expected: Missing roles, bad patterns and unreachable landings are errors.
// Test Case ID: ACC-10
func TestAccess_NewTable_Validation(t *testing.T) {
	ok := func(r access.Role) access.PermissionConfig {
		return access.PermissionConfig{Role: r, AllowedPaths: []string{"/home"}, RedirectPath: "/home"}
	}

	_, err := access.NewTable(ok(access.RoleMember), ok(access.RoleStaff))
	assert.ErrorIs(t, err, access.ErrMissingRole)

	_, err = access.NewTable(ok(access.RoleMember), ok(access.RoleStaff), access.PermissionConfig{
		Role: access.RoleAdmin, AllowedPaths: []string{"/home"}, RedirectPath: "/dashboard",
	})
	assert.ErrorIs(t, err, access.ErrRedirectNotAllow)

	_, err = access.NewTable(ok(access.RoleMember), ok(access.RoleStaff), access.PermissionConfig{
		Role: access.RoleAdmin, AllowedPaths: []string{"/home", "/a/*/b"}, RedirectPath: "/home",
	})
	assert.ErrorIs(t, err, access.ErrInvalidPattern)

	_, err = access.NewTable(ok(access.RoleMember), ok(access.RoleStaff), access.PermissionConfig{
		Role: access.RoleAdmin, AllowedPaths: []string{"home"}, RedirectPath: "/home",
	})
	assert.ErrorIs(t, err, access.ErrInvalidPattern)

	_, err = access.NewTable(ok(access.RoleMember), ok(access.RoleStaff), ok(access.RoleAdmin))
	assert.NoError(t, err)

	assert.NoError(t, access.DefaultTable().Validate())
}

// TestPurpose: Validates route constraints and the admin override.
// Scope: Unit Test
// Security: Route-level tightening on top of the permission table
// Expected: admin-only pages refuse staff, coaching pages admit staff, member pages are open.
// Test Case ID: ACC-11
func TestAccess_Routes_Constraints(t *testing.T) {
	routes := access.Routes()

	adminMgmt := routes.Lookup("/admin-management")
	assert.False(t, adminMgmt.Permits(access.RoleStaff))
	assert.True(t, adminMgmt.Permits(access.RoleAdmin))

	member := routes.Lookup("/members/42")
	assert.Equal(t, access.RoleAdmin, member.RequiredRole)

	social := routes.Lookup("/planning/social-media/content")
	assert.Equal(t, access.RoleAdmin, social.RequiredRole)

	coach := routes.Lookup("/coach/results")
	assert.True(t, coach.Permits(access.RoleStaff))
	assert.False(t, coach.Permits(access.RoleMember))

	assert.True(t, routes.Lookup("/member/workouts").IsZero())
	assert.True(t, routes.Lookup("/help").IsZero())
}

func TestAccess_Constraint_Merge(t *testing.T) {
	a := access.Constraint{AllowedRoles: []access.Role{access.RoleStaff, access.RoleMember}}
	b := access.Constraint{AllowedRoles: []access.Role{access.RoleStaff}}

	m := a.Merge(b)
	assert.True(t, m.Permits(access.RoleStaff))
	assert.False(t, m.Permits(access.RoleMember))

	disjoint := access.Constraint{AllowedRoles: []access.Role{access.RoleMember}}.Merge(b)
	assert.False(t, disjoint.Permits(access.RoleMember))
	assert.False(t, disjoint.Permits(access.RoleStaff))
	assert.True(t, disjoint.Permits(access.RoleAdmin))

	req := access.Constraint{}.Merge(access.Constraint{RequiredRole: access.RoleStaff})
	assert.True(t, req.Permits(access.RoleStaff))
	assert.False(t, req.Permits(access.RoleMember))

	same := access.Constraint{RequiredRole: access.RoleStaff}.Merge(access.Constraint{RequiredRole: access.RoleStaff})
	assert.Equal(t, access.RoleStaff, same.RequiredRole)
}

// TestPurpose: Validates that an extra constraint can never loosen a route.
// Scope: Unit Test
// Security: Caller-supplied constraints only tighten access
// Expected: Merging staff-required into admin-required still refuses staff, in either order.
// Test Case ID: ACC-12
func TestAccess_Constraint_Merge_NeverLoosens(t *testing.T) {
	adminOnly := access.Constraint{RequiredRole: access.RoleAdmin}
	staffOnly := access.Constraint{RequiredRole: access.RoleStaff}

	for _, m := range []access.Constraint{adminOnly.Merge(staffOnly), staffOnly.Merge(adminOnly)} {
		assert.False(t, m.Permits(access.RoleStaff))
		assert.False(t, m.Permits(access.RoleMember))
		assert.True(t, m.Permits(access.RoleAdmin))
	}

	routed := access.Routes().Lookup("/members/42").Merge(staffOnly)
	assert.False(t, routed.Permits(access.RoleStaff))

	memberOnly := access.Constraint{RequiredRole: access.RoleMember}
	conflicting := staffOnly.Merge(memberOnly)
	assert.False(t, conflicting.Permits(access.RoleStaff))
	assert.False(t, conflicting.Permits(access.RoleMember))
}

func TestAccess_Navigation(t *testing.T) {
	member := access.Navigation(access.RoleMember)
	require.Len(t, member, 6)
	assert.Equal(t, "/member/dashboard", member[0].Path)
	assert.Equal(t, "Help & Support", member[5].Label)

	staff := access.Navigation(access.RoleStaff)
	require.Len(t, staff, 11)
	assert.Equal(t, access.NavGroupStaff, staff[0].Group)

	admin := access.Navigation(access.RoleAdmin)
	require.Len(t, admin, 20)
	assert.Equal(t, "/dashboard", admin[0].Path)

	for _, r := range access.AllRoles {
		for _, item := range access.Navigation(r) {
			assert.True(t, access.IsPathAccessible(item.Path, r), "%s nav item %s", r, item.Path)
		}
	}
}

func TestAccess_DisplayName(t *testing.T) {
	assert.Equal(t, "Administrator", access.DisplayName(access.RoleAdmin))
	assert.Equal(t, "Staff Member", access.DisplayName(access.RoleStaff))
	assert.Equal(t, "Member", access.DisplayName(access.RoleMember))
}
