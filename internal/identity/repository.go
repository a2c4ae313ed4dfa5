package identity

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for account and session persistence.
type Repository interface {
	// Account operations
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	FindAccountBySubject(ctx context.Context, provider, subject string) (*Account, error)
	CreateAccount(ctx context.Context, account Account) (Account, error)
	UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error
	TouchLogin(ctx context.Context, id uuid.UUID) error

	// Session operations
	CreateSession(ctx context.Context, session Session, tokenHash string) error
	FindSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, *Account, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}
