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

// NavGroup is the sidebar section a navigation item belongs to.
type NavGroup string

const (
	NavGroupAdmin  NavGroup = "admin"
	NavGroupStaff  NavGroup = "staff"
	NavGroupMember NavGroup = "member"
	NavGroupCommon NavGroup = "common"
)

// NavItem is a sidebar entry.
type NavItem struct {
	Path  string   `json:"path"`
	Label string   `json:"label"`
	Group NavGroup `json:"group"`
}

var (
	adminNav = []NavItem{
		{Path: "/dashboard", Label: "Dashboard", Group: NavGroupAdmin},
		{Path: "/planning", Label: "Planning", Group: NavGroupAdmin},
		{Path: "/members", Label: "Members", Group: NavGroupAdmin},
		{Path: "/staff", Label: "Staff", Group: NavGroupAdmin},
		{Path: "/admin-management", Label: "Admin Management", Group: NavGroupAdmin},
		{Path: "/billing/dashboard", Label: "Billing", Group: NavGroupAdmin},
		{Path: "/coaching-schedule", Label: "Coaching Schedule", Group: NavGroupAdmin},
		{Path: "/programming-setup", Label: "Programming Setup", Group: NavGroupAdmin},
		{Path: "/analytics", Label: "Analytics", Group: NavGroupAdmin},
	}

	staffNav = []NavItem{
		{Path: "/coach/programming", Label: "Programming", Group: NavGroupStaff},
		{Path: "/coach/results", Label: "Results", Group: NavGroupStaff},
		{Path: "/coach/attendance", Label: "Attendance", Group: NavGroupStaff},
		{Path: "/coaching-schedule", Label: "Schedule", Group: NavGroupStaff},
		{Path: "/members", Label: "Members", Group: NavGroupStaff},
	}

	memberNav = []NavItem{
		{Path: "/member/dashboard", Label: "My Dashboard", Group: NavGroupMember},
		{Path: "/member/workouts", Label: "Daily Workouts", Group: NavGroupMember},
		{Path: "/member/schedule", Label: "Class Schedule", Group: NavGroupMember},
		{Path: "/member/account", Label: "Account Info", Group: NavGroupMember},
	}

	commonNav = []NavItem{
		{Path: "/settings", Label: "Settings", Group: NavGroupCommon},
		{Path: "/help", Label: "Help & Support", Group: NavGroupCommon},
	}
)

// Navigation returns the sidebar items for role, grouped admin, staff,
// member, common. An item may appear in more than one group.
func Navigation(role Role) []NavItem {
	var groups [][]NavItem
	switch role {
	case RoleAdmin:
		groups = [][]NavItem{adminNav, staffNav, memberNav, commonNav}
	case RoleStaff:
		groups = [][]NavItem{staffNav, memberNav, commonNav}
	case RoleMember:
		groups = [][]NavItem{memberNav, commonNav}
	default:
		groups = [][]NavItem{memberNav}
	}

	var items []NavItem
	for _, g := range groups {
		items = append(items, g...)
	}
	return items
}
