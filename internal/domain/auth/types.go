package auth

import "time"

// Config drives token verification.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TokenTTL time.Duration
	// Leeway tolerates clock skew between the issuer and this service.
	Leeway time.Duration
}

// Claims are extracted from a verified access token.
type Claims struct {
	UserID    string
	TokenType string
	ExpiresAt time.Time
}
