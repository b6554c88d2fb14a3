package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/flindersec/mfad/internal/mfa/domain"
	"github.com/flindersec/mfad/internal/mfa/service"
	"github.com/flindersec/mfad/pkg/httpx"
	"github.com/flindersec/mfad/pkg/mfasdk"
	"github.com/flindersec/mfad/pkg/slogx"
)

// AdminHandler handles user administration: enrollment, listing, MFA
// toggles, secret rotation, and deletion.
type AdminHandler struct {
	AuthService *service.AuthService
	UserService *service.UserService
}

// HandleRegister handles POST /v1/admin/users.
func (h *AdminHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req mfasdk.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidBody.WriteError(w)
		return
	}

	res, err := h.AuthService.Register(ctx, req.Username, req.Credential)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, mfasdk.RegisterResponse{
		UserID:          res.User.ID,
		Username:        res.User.Username,
		Secret:          res.Secret,
		ProvisioningURI: res.ProvisioningURI,
		QRCodePNG:       encodeQR(res.QRCodePNG),
	})
}

// HandleList handles GET /v1/admin/users.
func (h *AdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	users, err := h.UserService.List(ctx)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	records := make([]mfasdk.UserRecord, 0, len(users))
	for _, u := range users {
		records = append(records, mfasdk.UserRecord{
			ID:         u.ID,
			Username:   u.Username,
			MFAEnabled: u.MFAEnabled,
			CreatedAt:  u.CreatedAt,
			UpdatedAt:  u.UpdatedAt,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, mfasdk.ListUsersResponse{Users: records})
}

// HandleQR handles POST /v1/admin/users/qr: regenerates enrollment material
// for the user's current secret.
func (h *AdminHandler) HandleQR(w http.ResponseWriter, r *http.Request) {
	h.provisioning(w, r, h.UserService.ProvisioningURI)
}

// HandleRotateSecret handles POST /v1/admin/users/rotate-secret: issues a
// fresh secret, invalidating previously enrolled devices.
func (h *AdminHandler) HandleRotateSecret(w http.ResponseWriter, r *http.Request) {
	h.provisioning(w, r, h.UserService.RotateSecret)
}

// HandleEnableMFA handles POST /v1/admin/users/enable-mfa.
func (h *AdminHandler) HandleEnableMFA(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, true)
}

// HandleDisableMFA handles POST /v1/admin/users/disable-mfa.
func (h *AdminHandler) HandleDisableMFA(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, false)
}

// HandleDelete handles DELETE /v1/admin/users: removes the user, their
// sessions, and their attempt history.
func (h *AdminHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	req, ok := decodeUserID(w, r)
	if !ok {
		return
	}

	if err := h.UserService.Delete(ctx, req.UserID); err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, mfasdk.MessageResponse{Message: "user deleted"})
}

func (h *AdminHandler) provisioning(
	w http.ResponseWriter,
	r *http.Request,
	fn func(context.Context, int64) (domain.RegisterResult, error),
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	req, ok := decodeUserID(w, r)
	if !ok {
		return
	}

	res, err := fn(ctx, req.UserID)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, mfasdk.ProvisioningResponse{
		UserID:          res.User.ID,
		Username:        res.User.Username,
		Secret:          res.Secret,
		ProvisioningURI: res.ProvisioningURI,
		QRCodePNG:       encodeQR(res.QRCodePNG),
	})
}

func (h *AdminHandler) toggleMFA(w http.ResponseWriter, r *http.Request, enabled bool) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	req, ok := decodeUserID(w, r)
	if !ok {
		return
	}

	var err error
	var msg string
	if enabled {
		err = h.AuthService.EnableMFA(ctx, req.UserID)
		msg = "MFA enabled"
	} else {
		err = h.AuthService.DisableMFA(ctx, req.UserID)
		msg = "MFA disabled"
	}
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, mfasdk.MessageResponse{Message: msg})
}

func decodeUserID(w http.ResponseWriter, r *http.Request) (mfasdk.UserIDRequest, bool) {
	var req mfasdk.UserIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errInvalidBody.WriteError(w)
		return mfasdk.UserIDRequest{}, false
	}
	return req, true
}

func encodeQR(png []byte) string {
	if len(png) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(png)
}
