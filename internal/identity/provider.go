package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Provider implements the identity operations the session manager consumes:
// create-identity-with-password, sign-in-with-password, federated sign-in,
// update-display-name, sign-out and session validation.
type Provider struct {
	repo       Repository
	sessionTTL time.Duration
}

// NewProvider creates a Provider over the given repository.
func NewProvider(repo Repository, sessionTTL time.Duration) *Provider {
	if sessionTTL == 0 {
		sessionTTL = 12 * time.Hour
	}
	return &Provider{
		repo:       repo,
		sessionTTL: sessionTTL,
	}
}

// CreateWithPassword registers a new password-based identity.
// Malformed emails, short passwords and duplicate emails are reported
// through the provider code table.
func (p *Provider) CreateWithPassword(ctx context.Context, email, password string) (*Account, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, NewError(CodeInvalidEmail)
	}
	if len(password) < minPasswordLength {
		return nil, NewError(CodeWeakPassword)
	}

	existing, err := p.repo.FindAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if existing != nil {
		return nil, NewError(CodeEmailInUse)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	account := Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Provider:     ProviderPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLoginAt:  now,
	}

	created, err := p.repo.CreateAccount(ctx, account)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, NewError(CodeEmailInUse)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	return &created, nil
}

// SignInWithPassword authenticates an existing password identity.
// An unknown email and a wrong password both yield CodeInvalidCredentials
// so callers cannot tell which part was wrong.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*Account, error) {
	email = normalizeEmail(email)

	account, err := p.repo.FindAccountByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if account == nil || account.PasswordHash == "" {
		return nil, NewError(CodeInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, NewError(CodeInvalidCredentials)
	}

	if err := p.repo.TouchLogin(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("touch login: %w", err)
	}
	account.LastLoginAt = time.Now()

	return account, nil
}

// SignInFederated completes a federated sign-in from verified claims.
// The returned flag reports whether this is the identity's first-ever
// sign-in, which callers use to provision a profile record.
func (p *Provider) SignInFederated(ctx context.Context, claims *FederatedClaims) (*Account, bool, error) {
	existing, err := p.repo.FindAccountBySubject(ctx, ProviderGoogle, claims.Sub)
	if err != nil {
		return nil, false, fmt.Errorf("find account: %w", err)
	}

	if existing != nil {
		if existing.DisplayName != claims.Name {
			if err := p.repo.UpdateDisplayName(ctx, existing.ID, claims.Name); err != nil {
				return nil, false, fmt.Errorf("update display name: %w", err)
			}
			existing.DisplayName = claims.Name
		}
		if err := p.repo.TouchLogin(ctx, existing.ID); err != nil {
			return nil, false, fmt.Errorf("touch login: %w", err)
		}
		existing.LastLoginAt = time.Now()
		return existing, false, nil
	}

	now := time.Now()
	account := Account{
		ID:              uuid.New(),
		Email:           normalizeEmail(claims.Email),
		DisplayName:     claims.Name,
		Provider:        ProviderGoogle,
		ProviderSubject: claims.Sub,
		CreatedAt:       now,
		UpdatedAt:       now,
		LastLoginAt:     now,
	}

	created, err := p.repo.CreateAccount(ctx, account)
	if err != nil {
		return nil, false, fmt.Errorf("create account: %w", err)
	}

	return &created, true, nil
}

// UpdateDisplayName sets the display name on an existing identity.
func (p *Provider) UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error {
	if err := p.repo.UpdateDisplayName(ctx, id, displayName); err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	return nil
}

// IssueSession creates a new session for the given account and returns the session token.
func (p *Provider) IssueSession(ctx context.Context, accountID uuid.UUID) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	now := time.Now()
	session := Session{
		ID:        uuid.New(),
		AccountID: accountID,
		ExpiresAt: now.Add(p.sessionTTL),
		CreatedAt: now,
	}

	if err := p.repo.CreateSession(ctx, session, HashToken(token)); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	return token, nil
}

// Validate checks whether the token belongs to a live session and returns the
// associated account. Expired sessions are removed and reported as absent.
func (p *Provider) Validate(ctx context.Context, token string) (*Account, error) {
	if token == "" {
		return nil, nil
	}

	session, account, err := p.repo.FindSessionByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}

	if session == nil || account == nil {
		return nil, nil
	}

	if time.Now().After(session.ExpiresAt) {
		_ = p.repo.DeleteSession(ctx, session.ID)
		return nil, nil
	}

	return account, nil
}

// SignOut invalidates the session associated with the given token.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, _, err := p.repo.FindSessionByTokenHash(ctx, HashToken(token))
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}

	if session == nil {
		return nil
	}

	return p.repo.DeleteSession(ctx, session.ID)
}

// CleanupExpiredSessions removes all expired sessions from the store.
func (p *Provider) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return p.repo.DeleteExpiredSessions(ctx)
}

// HashToken returns the SHA-256 hash of the token as a hex string.
// Tokens are only ever stored and compared in hashed form.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
