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

package access

import (
	"fmt"
	"slices"
)

// Constraint tightens access to a route beyond the permission table.
// The zero value imposes nothing.
type Constraint struct {
	RequiredRole Role
	AllowedRoles []Role
}

// IsZero reports whether c imposes no restriction.
func (c Constraint) IsZero() bool {
	return c.RequiredRole == "" && len(c.AllowedRoles) == 0
}

// Permits reports whether role satisfies c. Admin satisfies every
// constraint.
func (c Constraint) Permits(role Role) bool {
	if role == RoleAdmin {
		return true
	}
	if c.RequiredRole != "" && c.RequiredRole != role {
		return false
	}
	if len(c.AllowedRoles) > 0 && !slices.Contains(c.AllowedRoles, role) {
		return false
	}
	return true
}

// Merge combines two constraints so that both must hold.
func (c Constraint) Merge(other Constraint) Constraint {
	out := Constraint{RequiredRole: c.RequiredRole}
	switch {
	case other.RequiredRole == "" || other.RequiredRole == c.RequiredRole:
	case c.RequiredRole == "":
		out.RequiredRole = other.RequiredRole
	default:
		// No single role meets two different requirements.
		out.RequiredRole = RoleAdmin
	}
	switch {
	case len(c.AllowedRoles) == 0:
		out.AllowedRoles = other.AllowedRoles
	case len(other.AllowedRoles) == 0:
		out.AllowedRoles = c.AllowedRoles
	default:
		for _, r := range c.AllowedRoles {
			if slices.Contains(other.AllowedRoles, r) {
				out.AllowedRoles = append(out.AllowedRoles, r)
			}
		}
		if out.AllowedRoles == nil {
			// Disjoint sets admit only the admin override.
			out.AllowedRoles = []Role{RoleAdmin}
		}
	}
	return out
}

// Route binds a path pattern to a constraint.
type Route struct {
	Pattern    string
	Constraint Constraint
}

type compiledRoute struct {
	pattern    pattern
	constraint Constraint
}

// RouteTable resolves the constraint that applies to a path. It is
// immutable after construction.
type RouteTable struct {
	exact    map[string]Constraint
	wildcard []compiledRoute
}

// NewRouteTable compiles routes. Patterns use the same syntax as the
// permission table.
func NewRouteTable(routes ...Route) (*RouteTable, error) {
	rt := &RouteTable{exact: make(map[string]Constraint)}
	for _, r := range routes {
		p, err := compilePattern(r.Pattern)
		if err != nil {
			return nil, err
		}
		if r.Constraint.RequiredRole != "" && !r.Constraint.RequiredRole.Valid() {
			return nil, fmt.Errorf("route %s: %w: %q", r.Pattern, ErrUnknownRole, r.Constraint.RequiredRole)
		}
		for _, role := range r.Constraint.AllowedRoles {
			if !role.Valid() {
				return nil, fmt.Errorf("route %s: %w: %q", r.Pattern, ErrUnknownRole, role)
			}
		}
		if p.wildcard {
			rt.wildcard = append(rt.wildcard, compiledRoute{pattern: p, constraint: r.Constraint})
			continue
		}
		rt.exact[p.base] = r.Constraint
	}

	// Longest base first so the most specific wildcard wins.
	slices.SortStableFunc(rt.wildcard, func(a, b compiledRoute) int {
		return len(b.pattern.base) - len(a.pattern.base)
	})
	return rt, nil
}

// MustNewRouteTable is like NewRouteTable but panics on error.
func MustNewRouteTable(routes ...Route) *RouteTable {
	rt, err := NewRouteTable(routes...)
	if err != nil {
		panic(err)
	}
	return rt
}

// Lookup returns the constraint declared for path. Exact routes take
// precedence over wildcards.
func (rt *RouteTable) Lookup(path string) Constraint {
	if rt == nil {
		return Constraint{}
	}
	if c, ok := rt.exact[path]; ok {
		return c
	}
	for _, r := range rt.wildcard {
		if r.pattern.matches(path) {
			return r.constraint
		}
	}
	return Constraint{}
}

var (
	adminOnly    = Constraint{RequiredRole: RoleAdmin}
	coachingTeam = Constraint{AllowedRoles: []Role{RoleAdmin, RoleStaff}}
)

// DefaultRoutes returns the route metadata of the gym app. Member pages,
// settings and help carry no constraint.
func DefaultRoutes() []Route {
	admin := []string{
		"/dashboard",
		"/billing/dashboard",
		"/billing/setup",
		"/billing/invoices",
		"/billing/memberships",
		"/billing/products",
		"/billing/coupons",
		"/billing/reports",
		"/planning",
		"/planning/marketing",
		"/planning/social-media",
		"/planning/social-media/*",
		"/planning/events",
		"/planning/retention",
		"/members",
		"/members/*",
		"/staff",
		"/staff/*",
		"/admin-management",
		"/analytics",
		"/debug/*",
	}
	coaching := []string{
		"/coaching-schedule",
		"/programming-setup",
		"/coach/programming",
		"/coach/results",
		"/coach/attendance",
	}

	routes := make([]Route, 0, len(admin)+len(coaching))
	for _, p := range admin {
		routes = append(routes, Route{Pattern: p, Constraint: adminOnly})
	}
	for _, p := range coaching {
		routes = append(routes, Route{Pattern: p, Constraint: coachingTeam})
	}
	return routes
}

var defaultRoutes = MustNewRouteTable(DefaultRoutes()...)

// Routes returns the process-wide route metadata table.
func Routes() *RouteTable {
	return defaultRoutes
}
