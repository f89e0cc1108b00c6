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
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrUnknownRole      = errors.New("unknown role")
	ErrInvalidPattern   = errors.New("invalid path pattern")
	ErrMissingRole      = errors.New("permission table is missing a role")
	ErrRedirectNotAllow = errors.New("redirect path is not accessible to its own role")
)

// AuthPrefix is always reachable so that anonymous visitors can sign in.
const AuthPrefix = "/auth/"

const wildcardSuffix = "*"

// PermissionConfig is the static configuration of one role.
type PermissionConfig struct {
	Role         Role
	AllowedPaths []string
	RedirectPath string
}

type pattern struct {
	raw      string
	base     string
	wildcard bool
}

func (p pattern) matches(path string) bool {
	if p.wildcard {
		return strings.HasPrefix(path, p.base)
	}
	return path == p.base
}

func compilePattern(raw string) (pattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return pattern{}, fmt.Errorf("%w: %q must be absolute", ErrInvalidPattern, raw)
	}
	idx := strings.Index(raw, wildcardSuffix)
	switch {
	case idx < 0:
		return pattern{raw: raw, base: raw}, nil
	case idx == len(raw)-1 && strings.HasSuffix(raw, "/"+wildcardSuffix):
		// Base keeps its trailing slash so /members/* never matches /membersarchive.
		return pattern{raw: raw, base: strings.TrimSuffix(raw, wildcardSuffix), wildcard: true}, nil
	default:
		return pattern{}, fmt.Errorf("%w: %q wildcard must be a trailing /*", ErrInvalidPattern, raw)
	}
}

type roleEntry struct {
	config   PermissionConfig
	patterns []pattern
}

// Table is an immutable role to permission mapping. It is safe for
// concurrent use.
type Table struct {
	entries map[Role]roleEntry
}

// NewTable compiles and validates the given configurations. Every known
// role must be present exactly once, and every landing path must be
// reachable by its own role.
func NewTable(configs ...PermissionConfig) (*Table, error) {
	t := &Table{entries: make(map[Role]roleEntry, len(configs))}

	for _, cfg := range configs {
		if !cfg.Role.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, cfg.Role)
		}
		if _, dup := t.entries[cfg.Role]; dup {
			return nil, fmt.Errorf("duplicate configuration for role %q", cfg.Role)
		}

		entry := roleEntry{
			config: PermissionConfig{
				Role:         cfg.Role,
				AllowedPaths: append([]string(nil), cfg.AllowedPaths...),
				RedirectPath: cfg.RedirectPath,
			},
			patterns: make([]pattern, 0, len(cfg.AllowedPaths)),
		}
		for _, raw := range cfg.AllowedPaths {
			p, err := compilePattern(raw)
			if err != nil {
				return nil, fmt.Errorf("role %s: %w", cfg.Role, err)
			}
			entry.patterns = append(entry.patterns, p)
		}
		t.entries[cfg.Role] = entry
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// MustNewTable is like NewTable but panics on error.
func MustNewTable(configs ...PermissionConfig) *Table {
	t, err := NewTable(configs...)
	if err != nil {
		panic(err)
	}
	return t
}

// Validate checks the table invariants. NewTable already calls it; the
// server calls it again at startup so a bad table never serves traffic.
func (t *Table) Validate() error {
	for _, r := range AllRoles {
		entry, ok := t.entries[r]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingRole, r)
		}
		if !t.IsPathAccessible(entry.config.RedirectPath, r) {
			return fmt.Errorf("%w: %s -> %q", ErrRedirectNotAllow, r, entry.config.RedirectPath)
		}
	}
	return nil
}

func (t *Table) entry(r Role) roleEntry {
	e, ok := t.entries[r]
	if !ok {
		// Callers only hold roles produced by ResolveRole or ParseRole.
		panic(fmt.Errorf("access: %w: %q", ErrUnknownRole, r))
	}
	return e
}

// HasPermission reports whether role may view path. Deny by default.
// It panics if role is not in the table.
func (t *Table) HasPermission(role Role, path string) bool {
	for _, p := range t.entry(role).patterns {
		if p.matches(path) {
			return true
		}
	}
	return false
}

// IsPathAccessible is HasPermission with the authentication pages always
// allowed.
func (t *Table) IsPathAccessible(path string, role Role) bool {
	if strings.HasPrefix(path, AuthPrefix) {
		return true
	}
	return t.HasPermission(role, path)
}

// RedirectPath returns the landing page of role.
func (t *Table) RedirectPath(role Role) (string, error) {
	e, ok := t.entries[role]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return e.config.RedirectPath, nil
}

// Config returns a copy of the configuration of role.
func (t *Table) Config(role Role) (PermissionConfig, bool) {
	e, ok := t.entries[role]
	if !ok {
		return PermissionConfig{}, false
	}
	cfg := e.config
	cfg.AllowedPaths = append([]string(nil), cfg.AllowedPaths...)
	return cfg, true
}

// -----------------------------------------------------------------------------
// Default Table
// -----------------------------------------------------------------------------

var (
	memberPages = []string{
		"/member/dashboard",
		"/member/workouts",
		"/member/schedule",
		"/member/account",
	}

	coachPages = []string{
		"/coach/programming",
		"/coach/results",
		"/coach/attendance",
	}

	commonPages = []string{
		"/settings",
		"/help",
	}
)

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// DefaultConfigs returns the permission configuration of the gym app.
func DefaultConfigs() []PermissionConfig {
	return []PermissionConfig{
		{
			Role: RoleAdmin,
			AllowedPaths: concat(
				[]string{"/dashboard"},
				[]string{
					"/planning",
					"/planning/marketing",
					"/planning/social-media",
					"/planning/social-media/content",
					"/planning/social-media/statistics",
					"/planning/social-media/settings",
					"/planning/events",
					"/planning/retention",
				},
				[]string{"/members", "/members/*", "/staff", "/staff/*", "/admin-management"},
				[]string{
					"/billing/dashboard",
					"/billing/setup",
					"/billing/invoices",
					"/billing/memberships",
					"/billing/products",
					"/billing/coupons",
					"/billing/reports",
				},
				[]string{"/coaching-schedule", "/programming-setup", "/analytics"},
				coachPages,
				memberPages,
				commonPages,
				[]string{"/debug/*"},
			),
			RedirectPath: "/dashboard",
		},
		{
			Role: RoleStaff,
			AllowedPaths: concat(
				coachPages,
				[]string{"/coaching-schedule", "/programming-setup"},
				memberPages,
				[]string{"/members", "/members/*"},
				commonPages,
			),
			RedirectPath: "/coach/programming",
		},
		{
			Role:         RoleMember,
			AllowedPaths: concat(memberPages, commonPages),
			RedirectPath: "/member/dashboard",
		},
	}
}

var defaultTable = MustNewTable(DefaultConfigs()...)

// DefaultTable returns the process-wide permission table.
func DefaultTable() *Table {
	return defaultTable
}

// HasPermission checks role against the default table.
func HasPermission(role Role, path string) bool {
	return defaultTable.HasPermission(role, path)
}

// IsPathAccessible checks path against the default table.
func IsPathAccessible(path string, role Role) bool {
	return defaultTable.IsPathAccessible(path, role)
}

// GetRedirectPath returns the landing page of role in the default table.
func GetRedirectPath(role Role) (string, error) {
	return defaultTable.RedirectPath(role)
}
