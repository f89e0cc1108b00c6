package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/elev8/access/internal/access"
	"github.com/elev8/access/internal/guard"
)

// CheckAccessRequest asks whether the caller may view Path, optionally
// under extra role constraints.
type CheckAccessRequest struct {
	Path         string        `json:"path" validate:"required,startswith=/"`
	RequiredRole access.Role   `json:"required_role,omitempty" validate:"omitempty,oneof=admin staff member"`
	AllowedRoles []access.Role `json:"allowed_roles,omitempty" validate:"omitempty,dive,oneof=admin staff member"`
}

// CheckAccessResponse is a terminal guard decision.
type CheckAccessResponse struct {
	guard.Decision
	Allowed bool `json:"allowed"`
}

// CheckAccess evaluates a path for the caller. A denial is a normal
// answer: 200 with allowed=false and the redirect target.
func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	var req CheckAccessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	var extra []access.Constraint
	if req.RequiredRole != "" || len(req.AllowedRoles) > 0 {
		extra = append(extra, access.Constraint{RequiredRole: req.RequiredRole, AllowedRoles: req.AllowedRoles})
	}

	d := h.guard.Evaluate(r.Context(), req.Path, extra...)
	respondJSON(w, http.StatusOK, CheckAccessResponse{Decision: d, Allowed: d.Allowed()})
}

// GetLanding returns the caller's landing page.
func (h *Handler) GetLanding(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.guard.Landing(r.Context()))
}

// LandingRedirect sends the caller to their landing page.
func (h *Handler) LandingRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.guard.Landing(r.Context()).RedirectTo, http.StatusFound)
}

type navigationResponse struct {
	Role  access.Role      `json:"role"`
	Items []access.NavItem `json:"items"`
}

// GetNavigation returns the sidebar entries for the caller's role.
func (h *Handler) GetNavigation(w http.ResponseWriter, r *http.Request) {
	_, role := h.guard.Identify(r.Context())
	respondJSON(w, http.StatusOK, navigationResponse{Role: role, Items: access.Navigation(role)})
}

type roleResponse struct {
	Role          access.Role `json:"role"`
	DisplayName   string      `json:"display_name"`
	Authenticated bool        `json:"authenticated"`
	UserID        string      `json:"user_id,omitempty"`
}

// GetMyRole returns the caller's resolved role.
func (h *Handler) GetMyRole(w http.ResponseWriter, r *http.Request) {
	sess, role := h.guard.Identify(r.Context())
	resp := roleResponse{Role: role, DisplayName: access.DisplayName(role)}
	if sess != nil {
		resp.Authenticated = true
		resp.UserID = sess.UserID
	}
	respondJSON(w, http.StatusOK, resp)
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := decodeJSON(w, r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
