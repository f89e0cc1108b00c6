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

package http

import (
	"context"

	"github.com/elev8/access/internal/access"
	"github.com/elev8/access/internal/identity"
)

type contextKey string

const (
	sessionKey contextKey = "session"
	roleKey    contextKey = "role"
)

func withIdentity(ctx context.Context, sess *identity.Session, role access.Role) context.Context {
	ctx = context.WithValue(ctx, sessionKey, sess)
	return context.WithValue(ctx, roleKey, role)
}

// GetSession retrieves the verified session placed by RequireSession.
func GetSession(ctx context.Context) *identity.Session {
	if val, ok := ctx.Value(sessionKey).(*identity.Session); ok {
		return val
	}
	return nil
}

// GetUserID retrieves the authenticated user ID from context.
func GetUserID(ctx context.Context) string {
	if sess := GetSession(ctx); sess != nil {
		return sess.UserID
	}
	return ""
}

// GetSessionID retrieves the session ID from context.
func GetSessionID(ctx context.Context) string {
	if sess := GetSession(ctx); sess != nil {
		return sess.ID
	}
	return ""
}

// GetRole retrieves the resolved role from context. It is empty outside
// RequireSession.
func GetRole(ctx context.Context) access.Role {
	if val, ok := ctx.Value(roleKey).(access.Role); ok {
		return val
	}
	return ""
}
