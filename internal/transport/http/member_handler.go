package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/elev8/access/internal/access"
	"github.com/elev8/access/internal/audit"
	"github.com/elev8/access/internal/identity"
	"github.com/elev8/access/internal/observability/logger"
)

// UpdateRolesRequest sets a member's role flags. Omitted flags are left
// unchanged.
type UpdateRolesRequest struct {
	IsAdmin *bool `json:"is_admin"`
	IsStaff *bool `json:"is_staff"`
}

// MemberRolesResponse is a member's flags and the role they resolve to.
type MemberRolesResponse struct {
	ID      string      `json:"id"`
	Email   string      `json:"email"`
	IsAdmin bool        `json:"is_admin"`
	IsStaff bool        `json:"is_staff"`
	Role    access.Role `json:"role"`
}

// UpdateMemberRoles changes a member's admin and staff flags.
func (h *Handler) UpdateMemberRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID := chi.URLParam(r, "memberID")
	if memberID == "" {
		respondError(w, http.StatusBadRequest, "member id is required")
		return
	}

	var req UpdateRolesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IsAdmin == nil && req.IsStaff == nil {
		respondError(w, http.StatusBadRequest, "is_admin or is_staff is required")
		return
	}

	profile, err := h.members.UpdateRoleFlags(ctx, memberID, req.IsAdmin, req.IsStaff)
	if err != nil {
		if errors.Is(err, identity.ErrMemberNotFound) {
			respondError(w, http.StatusNotFound, "member not found")
			return
		}
		slog.ErrorContext(ctx, "failed to update role flags", logger.UserID(memberID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to update member")
		return
	}

	role := access.ResolveRole(profile)
	slog.InfoContext(ctx, "member role flags changed",
		logger.UserID(memberID),
		logger.Role(role.String()),
		slog.String("actor_id", GetUserID(ctx)),
	)
	h.auditEvent(r, audit.TypeRoleFlagsChanged, memberID, map[string]any{
		"is_admin": profile.Admin(),
		"is_staff": profile.Staff(),
		"role":     role.String(),
	})
	h.publish(ctx, identity.Event{Type: identity.EventProfileUpdated, UserID: memberID})

	respondJSON(w, http.StatusOK, MemberRolesResponse{
		ID:      profile.ID,
		Email:   profile.Email,
		IsAdmin: profile.Admin(),
		IsStaff: profile.Staff(),
		Role:    role,
	})
}
