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

	"github.com/elev8/access/internal/identity"
)

// -----------------------------------------------------------------------------
// Role Constants
// These are the only roles the permission table knows about.
// -----------------------------------------------------------------------------

// Role is a coarse permission tier derived from the member profile flags.
type Role string

const (
	// RoleMember is the default role for every signed-in user.
	RoleMember Role = "member"

	// RoleStaff is granted by the staff flag.
	// Covers coaching pages and the member directory.
	RoleStaff Role = "staff"

	// RoleAdmin is granted by the admin flag and overrides the staff flag.
	RoleAdmin Role = "admin"
)

// AllRoles lists the roles in ascending order of privilege.
var AllRoles = []Role{RoleMember, RoleStaff, RoleAdmin}

// String implements fmt.Stringer
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts a wire value to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// ResolveRole derives the role from a profile. A missing profile, or one
// with neither flag set, is a member. Admin wins over staff.
func ResolveRole(p *identity.Profile) Role {
	switch {
	case p.Admin():
		return RoleAdmin
	case p.Staff():
		return RoleStaff
	default:
		return RoleMember
	}
}

// DisplayName returns the human readable label of a role.
func DisplayName(r Role) string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleStaff:
		return "Staff Member"
	default:
		return "Member"
	}
}
