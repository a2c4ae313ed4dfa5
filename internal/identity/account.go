package identity

import (
	"time"

	"github.com/google/uuid"
)

// Providers an account can originate from.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// Account represents an identity known to the provider.
type Account struct {
	ID              uuid.UUID
	Email           string
	DisplayName     string
	PasswordHash    string
	Provider        string
	ProviderSubject string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastLoginAt     time.Time
}

// Session represents an issued authentication session.
type Session struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// FederatedClaims contains the relevant claims from a Google ID token.
type FederatedClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}
