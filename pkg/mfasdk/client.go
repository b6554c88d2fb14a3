// Package mfasdk is a small Go client for the MFA authentication service.
// It mirrors the service's wire types so integrators and end-to-end tests
// share one definition of the API surface.
package mfasdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a running MFA service instance.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register enrolls a new user and returns the enrollment material.
func (c *Client) Register(ctx context.Context, username, credential string) (RegisterResponse, error) {
	var out RegisterResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/admin/users", RegisterRequest{
		Username:   username,
		Credential: credential,
	}, "", &out, http.StatusCreated)
	return out, err
}

// ListUsers returns every registered user.
func (c *Client) ListUsers(ctx context.Context) ([]UserRecord, error) {
	var out ListUsersResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/admin/users", nil, "", &out, http.StatusOK)
	return out.Users, err
}

// ProvisioningURI regenerates the enrollment URI and QR code for a user.
func (c *Client) ProvisioningURI(ctx context.Context, userID int64) (ProvisioningResponse, error) {
	var out ProvisioningResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/admin/users/qr", UserIDRequest{UserID: userID}, "", &out, http.StatusOK)
	return out, err
}

// RotateSecret replaces a user's TOTP secret and returns fresh enrollment
// material.
func (c *Client) RotateSecret(ctx context.Context, userID int64) (ProvisioningResponse, error) {
	var out ProvisioningResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/admin/users/rotate-secret", UserIDRequest{UserID: userID}, "", &out, http.StatusOK)
	return out, err
}

// EnableMFA turns on the TOTP requirement for a user.
func (c *Client) EnableMFA(ctx context.Context, userID int64) error {
	var out MessageResponse
	return c.doJSON(ctx, http.MethodPost, "/v1/admin/users/enable-mfa", UserIDRequest{UserID: userID}, "", &out, http.StatusOK)
}

// DisableMFA turns off the TOTP requirement for a user.
func (c *Client) DisableMFA(ctx context.Context, userID int64) error {
	var out MessageResponse
	return c.doJSON(ctx, http.MethodPost, "/v1/admin/users/disable-mfa", UserIDRequest{UserID: userID}, "", &out, http.StatusOK)
}

// DeleteUser removes a user along with their sessions and attempt history.
func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	var out MessageResponse
	return c.doJSON(ctx, http.MethodDelete, "/v1/admin/users", UserIDRequest{UserID: userID}, "", &out, http.StatusOK)
}

// Login authenticates a user and returns a session token.
func (c *Client) Login(ctx context.Context, username, credential, totpCode string) (LoginResponse, error) {
	var out LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login", LoginRequest{
		Username:   username,
		Credential: credential,
		TOTPCode:   totpCode,
	}, "", &out, http.StatusOK)
	return out, err
}

// ValidateSession resolves a session token to its owning user.
func (c *Client) ValidateSession(ctx context.Context, token string) (ValidateResponse, error) {
	var out ValidateResponse
	err := c.doJSON(ctx, http.MethodGet, "/v1/auth/validate", nil, token, &out, http.StatusOK)
	return out, err
}

// Logout invalidates a session token. Logging out an unknown token still
// succeeds.
func (c *Client) Logout(ctx context.Context, token string) error {
	var out MessageResponse
	return c.doJSON(ctx, http.MethodPost, "/v1/auth/logout", nil, token, &out, http.StatusOK)
}

// Ready reports whether the service's readiness probe passes.
func (c *Client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/readyz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service not ready: status %d", resp.StatusCode)
	}
	return nil
}

// doJSON sends an optional JSON body and decodes a JSON response, mapping
// non-expected statuses to *APIError.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, bearer string, target any, expectedStatus int) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(bodyBytes, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = ErrorCodeServerError
			apiErr.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return apiErr
	}

	if target != nil {
		if err := json.Unmarshal(bodyBytes, target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
