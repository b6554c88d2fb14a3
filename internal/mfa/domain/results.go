package domain

import "time"

// RegisterResult is returned after enrolling a new user: everything the
// operator needs to hand over for authenticator setup.
type RegisterResult struct {
	User            User
	Secret          string
	ProvisioningURI string
	QRCodePNG       []byte
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}
