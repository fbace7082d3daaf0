package core

import "time"

// Session represents an authenticated principal holding an access credential
type Session struct {
	ID        string    // Unique identifier of the access token
	Principal Principal // Principal bound to the wallet key
	Address   string    // Canonical wallet address or public key
	IssuedAt  time.Time // When the credential was issued
	ExpiresAt time.Time // When the credential stops being accepted
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Principal   Principal
	Address     string
	AccessToken string
	ExpiresAt   time.Time
}
