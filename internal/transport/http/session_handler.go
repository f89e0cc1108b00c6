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
	"log/slog"
	"net/http"

	"github.com/elev8/access/internal/access"
	"github.com/elev8/access/internal/audit"
	"github.com/elev8/access/internal/identity"
	"github.com/elev8/access/internal/observability/logger"
)

// SignInRequest carries optional details for a first-time member record.
type SignInRequest struct {
	FullName string `json:"full_name,omitempty" validate:"omitempty,max=200"`
}

// SignInResponse tells the front end where to go after signing in.
type SignInResponse struct {
	Created    bool        `json:"created"`
	Role       access.Role `json:"role"`
	RedirectTo string      `json:"redirect_to"`
}

// SignIn is called once the hosted auth backend has signed a user in. It
// makes sure a member record exists and announces the new session.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := GetSession(ctx)

	var req SignInRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	profile, created, err := h.members.EnsureMember(ctx, identity.NewMemberFromSession(sess, req.FullName))
	if err != nil {
		slog.ErrorContext(ctx, "failed to ensure member record", logger.UserID(sess.UserID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load member")
		return
	}
	if created {
		slog.InfoContext(ctx, "member record created", logger.UserID(sess.UserID), logger.Email(sess.Email))
		h.auditEvent(r, audit.TypeMemberCreated, sess.UserID, map[string]any{"email": sess.Email})
	}

	h.publish(ctx, identity.Event{Type: identity.EventSignedIn, UserID: sess.UserID, SessionID: sess.ID})
	h.auditEvent(r, audit.TypeSignedIn, sess.UserID, nil)

	role := access.ResolveRole(profile)
	redirect, err := h.guard.Table().RedirectPath(role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "no landing page for role")
		return
	}
	respondJSON(w, http.StatusOK, SignInResponse{Created: created, Role: role, RedirectTo: redirect})
}

// RefreshSession announces a refreshed token so open watchers re-evaluate.
func (h *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	sess := GetSession(r.Context())
	h.publish(r.Context(), identity.Event{Type: identity.EventTokenRefreshed, UserID: sess.UserID, SessionID: sess.ID})
	w.WriteHeader(http.StatusNoContent)
}

// SignOut revokes the caller's session and announces it.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := GetSession(ctx)

	// Revoke before publishing so watchers re-run against the revoked token.
	if h.revoker != nil {
		if err := h.revoker.Revoke(ctx, sess.ID, sess.ExpiresAt); err != nil {
			slog.ErrorContext(ctx, "failed to revoke session", logger.SessionID(sess.ID), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to sign out")
			return
		}
	}

	h.publish(ctx, identity.Event{Type: identity.EventSignedOut, UserID: sess.UserID, SessionID: sess.ID})
	h.auditEvent(r, audit.TypeSignedOut, sess.UserID, nil)
	h.clearTokenCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
