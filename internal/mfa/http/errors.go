package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/flindersec/mfad/internal/mfa/service"
	"github.com/flindersec/mfad/pkg/mfasdk"
)

// writeServiceError maps service-layer sentinels onto wire errors. Anything
// unrecognised is logged with detail and surfaced as a generic server error
// so internal store failures never leak to the caller.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		mfasdk.NewAPIError(http.StatusBadRequest, mfasdk.ErrorCodeValidation, err.Error()).WriteError(w)
	case errors.Is(err, service.ErrDuplicateUsername):
		mfasdk.NewAPIError(http.StatusBadRequest, mfasdk.ErrorCodeDuplicateUsername, err.Error()).WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		mfasdk.NewAPIError(http.StatusUnauthorized, mfasdk.ErrorCodeInvalidCredentials, err.Error()).WriteError(w)
	case errors.Is(err, service.ErrInvalidTOTPCode):
		mfasdk.NewAPIError(http.StatusUnauthorized, mfasdk.ErrorCodeInvalidTOTPCode, err.Error()).WriteError(w)
	case errors.Is(err, service.ErrRateLimited):
		mfasdk.NewAPIError(http.StatusUnauthorized, mfasdk.ErrorCodeRateLimited, err.Error()).WriteError(w)
	case errors.Is(err, service.ErrInvalidSession):
		mfasdk.NewAPIError(http.StatusUnauthorized, mfasdk.ErrorCodeInvalidSession, err.Error()).WriteError(w)
	case errors.Is(err, service.ErrNotFound):
		mfasdk.NewAPIError(http.StatusBadRequest, mfasdk.ErrorCodeNotFound, err.Error()).WriteError(w)
	default:
		log.Error("internal error", "error", err)
		mfasdk.NewAPIError(http.StatusInternalServerError, mfasdk.ErrorCodeServerError, "internal server error").WriteError(w)
	}
}

var errInvalidBody = mfasdk.NewAPIError(http.StatusBadRequest, mfasdk.ErrorCodeValidation, "invalid JSON body")
