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

package guard

import (
	"fmt"

	"github.com/elev8/access/internal/access"
)

// State is a step of the guard pipeline.
type State int

const (
	StateLoadingAuth State = iota
	StateLoadingProfile
	StateUnauthenticated
	StateAccessDenied
	StateAccessGranted
)

var stateNames = map[State]string{
	StateLoadingAuth:     "loading_auth",
	StateLoadingProfile:  "loading_profile",
	StateUnauthenticated: "unauthenticated",
	StateAccessDenied:    "access_denied",
	StateAccessGranted:   "access_granted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether s ends the pipeline.
func (s State) Terminal() bool {
	return s >= StateUnauthenticated
}

// Decision is the outcome, or an intermediate step, of one guard run.
type Decision struct {
	State         State       `json:"state"`
	Path          string      `json:"path"`
	Role          access.Role `json:"role,omitempty"`
	Authenticated bool        `json:"authenticated"`
	UserID        string      `json:"user_id,omitempty"`
	SessionID     string      `json:"-"`
	// RedirectTo is set for unauthenticated and denied outcomes.
	RedirectTo string `json:"redirect_to,omitempty"`
	// ReturnTo is the path to resume after signing in.
	ReturnTo string `json:"return_to,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Allowed reports whether the requested page may be rendered.
func (d Decision) Allowed() bool {
	return d.State == StateAccessGranted
}

// Landing is the outcome of the root redirector.
type Landing struct {
	Role          access.Role `json:"role"`
	Authenticated bool        `json:"authenticated"`
	UserID        string      `json:"user_id,omitempty"`
	RedirectTo    string      `json:"redirect_to"`
}

// Denial reasons
const (
	ReasonNoSession       = "no_session"
	ReasonSessionError    = "session_error"
	ReasonNotPermitted    = "path_not_permitted"
	ReasonRouteConstraint = "route_constraint"
)
