package mfasdk

import "time"

// RegisterRequest enrolls a new user.
type RegisterRequest struct {
	Username   string `json:"username"`
	Credential string `json:"credential"`
}

// RegisterResponse carries everything needed to configure an authenticator
// app for the new user. The QR code is a base64-encoded PNG.
type RegisterResponse struct {
	UserID          int64  `json:"user_id"`
	Username        string `json:"username"`
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	QRCodePNG       string `json:"qr_code_png,omitempty"`
}

// UserRecord is the safe public view of a user. The credential hash and
// TOTP secret are never exposed here.
type UserRecord struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	MFAEnabled bool      `json:"mfa_enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListUsersResponse wraps the user listing.
type ListUsersResponse struct {
	Users []UserRecord `json:"users"`
}

// UserIDRequest targets a single user by id (enable/disable MFA, QR
// regeneration, secret rotation, deletion).
type UserIDRequest struct {
	UserID int64 `json:"user_id"`
}

// ProvisioningResponse is returned by QR regeneration and secret rotation.
type ProvisioningResponse struct {
	UserID          int64  `json:"user_id"`
	Username        string `json:"username"`
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	QRCodePNG       string `json:"qr_code_png,omitempty"`
}

// LoginRequest authenticates a user. TOTPCode may be empty when the account
// has MFA disabled.
type LoginRequest struct {
	Username   string `json:"username"`
	Credential string `json:"credential"`
	TOTPCode   string `json:"totp_code,omitempty"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ValidateResponse identifies the user owning a valid session token.
type ValidateResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// MessageResponse is a generic acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthChecks reports the status of critical dependencies.
type HealthChecks struct {
	Database string `json:"database"`
}

// HealthResponse is returned by the liveness and readiness probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
