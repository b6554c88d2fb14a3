package http

import (
	"encoding/json"
	"net/http"

	"github.com/flindersec/mfad/internal/mfa/service"
	"github.com/flindersec/mfad/pkg/httpx"
	"github.com/flindersec/mfad/pkg/mfasdk"
	"github.com/flindersec/mfad/pkg/slogx"
)

// AuthHandler handles the login/validate/logout endpoints.
type AuthHandler struct {
	AuthService *service.AuthService
}

// HandleLogin handles POST /v1/auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req mfasdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidBody.WriteError(w)
		return
	}

	res, err := h.AuthService.Login(ctx, req.Username, req.Credential, req.TOTPCode, httpx.IPKeyExtractor(r))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, mfasdk.LoginResponse{
		UserID:       res.User.ID,
		Username:     res.User.Username,
		SessionToken: res.Token,
		ExpiresAt:    res.ExpiresAt,
	})
}

// HandleValidate handles GET /v1/auth/validate. The session token is taken
// from the Authorization header.
func (h *AuthHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, err := h.AuthService.ValidateSession(ctx, httpx.BearerToken(r))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, mfasdk.ValidateResponse{
		UserID:   user.ID,
		Username: user.Username,
	})
}

// HandleLogout handles POST /v1/auth/logout. Logging out with a missing or
// unknown token is still a success.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := h.AuthService.Logout(ctx, httpx.BearerToken(r)); err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, mfasdk.MessageResponse{Message: "logged out"})
}
