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
	"context"
	"time"

	"github.com/elev8/access/internal/audit"
)

// Recorder observes guard outcomes for metrics and auditing.
type Recorder interface {
	RecordDecision(ctx context.Context, d Decision)
	RecordProfileLookup(ctx context.Context, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordDecision(context.Context, Decision)                   {}
func (nopRecorder) RecordProfileLookup(context.Context, time.Duration, error) {}

// MultiRecorder fans out to several recorders.
type MultiRecorder []Recorder

func (m MultiRecorder) RecordDecision(ctx context.Context, d Decision) {
	for _, r := range m {
		r.RecordDecision(ctx, d)
	}
}

func (m MultiRecorder) RecordProfileLookup(ctx context.Context, elapsed time.Duration, err error) {
	for _, r := range m {
		r.RecordProfileLookup(ctx, elapsed, err)
	}
}

// AuditRecorder writes denied and unauthenticated decisions to the audit
// log. Grants are audited only when GrantsToo is set.
type AuditRecorder struct {
	Logger    audit.Logger
	GrantsToo bool
}

func (a AuditRecorder) RecordDecision(ctx context.Context, d Decision) {
	var eventType string
	switch d.State {
	case StateAccessDenied:
		eventType = audit.TypeAccessDenied
	case StateUnauthenticated:
		eventType = audit.TypeAccessUnauthenticated
	case StateAccessGranted:
		if !a.GrantsToo {
			return
		}
		eventType = audit.TypeAccessGranted
	default:
		return
	}

	a.Logger.Log(ctx, audit.Event{
		Type:     eventType,
		ActorID:  d.UserID,
		Resource: d.Path,
		Metadata: map[string]any{
			"role":        d.Role.String(),
			"redirect_to": d.RedirectTo,
			"reason":      d.Reason,
		},
	})
}

func (AuditRecorder) RecordProfileLookup(context.Context, time.Duration, error) {}
