// Package totpx wraps time-based one-time password generation and
// verification with the parameters used across the service: 6-digit codes,
// 30 second steps, SHA-1, and a one-step clock skew allowance.
package totpx

import (
	"bytes"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"image/png"
	"net/url"
	"strconv"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Period is the TOTP time step in seconds.
	Period = 30

	// SecretBytes is the raw entropy of a generated secret (160 bits, the
	// RFC 4226 recommended minimum).
	SecretBytes = 20

	// DefaultSkew is how many time steps either side of now a code is
	// accepted for, to tolerate clock drift between server and device.
	DefaultSkew = 1

	// DefaultIssuer labels provisioning URIs when no issuer is configured.
	DefaultIssuer = "MFA System"
)

// b32 is the unpadded base32 alphabet authenticator apps expect.
var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Engine generates and verifies TOTP codes for enrolled accounts.
type Engine struct {
	Issuer string // Issuer name shown in authenticator apps
	Skew   uint   // Accepted time-step drift; zero means DefaultSkew
}

func (e *Engine) issuer() string {
	if e.Issuer == "" {
		return DefaultIssuer
	}
	return e.Issuer
}

func (e *Engine) skew() uint {
	if e.Skew == 0 {
		return DefaultSkew
	}
	return e.Skew
}

func (e *Engine) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      e.skew(),
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// GenerateSecret returns a fresh base32-encoded TOTP secret.
func (e *Engine) GenerateSecret() (string, error) {
	buf := make([]byte, SecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}
	return b32.EncodeToString(buf), nil
}

// ProvisioningURI builds the otpauth:// URI that authenticator apps scan to
// enroll an account.
func (e *Engine) ProvisioningURI(account, secret string) string {
	issuer := e.issuer()

	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", issuer)
	q.Set("period", strconv.Itoa(Period))
	q.Set("algorithm", "SHA1")
	q.Set("digits", "6")

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + account,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// VerifyCode reports whether code is valid for secret at the current time.
// Empty codes always fail.
func (e *Engine) VerifyCode(secret, code string) bool {
	return e.VerifyCodeAt(secret, code, time.Now())
}

// VerifyCodeAt is VerifyCode against an explicit reference time. A
// verification error (malformed secret) fails closed.
func (e *Engine) VerifyCodeAt(secret, code string, at time.Time) bool {
	if code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, at.UTC(), e.opts())
	if err != nil {
		return false
	}
	return ok
}

// CurrentCode returns the code a correctly-synced device would show now.
func (e *Engine) CurrentCode(secret string) (string, error) {
	return e.CodeAt(secret, time.Now())
}

// CodeAt returns the code for secret at an explicit reference time.
func (e *Engine) CodeAt(secret string, at time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, at.UTC(), e.opts())
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP code: %w", err)
	}
	return code, nil
}

// QRCodePNG renders the provisioning URI as a PNG image of the given pixel
// size, suitable for inlining into an enrollment response.
func (e *Engine) QRCodePNG(account, secret string, size int) ([]byte, error) {
	key, err := otp.NewKeyFromURL(e.ProvisioningURI(account, secret))
	if err != nil {
		return nil, fmt.Errorf("failed to build provisioning key: %w", err)
	}

	img, err := key.Image(size, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return buf.Bytes(), nil
}
