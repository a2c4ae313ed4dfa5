// Package session owns the authenticated-identity lifecycle: registration,
// password and federated sign-in, sign-out, and passive observation of
// session state. It mediates between the HTTP surface and the identity
// provider, and provisions a profile record the first time an identity is
// seen.
package session

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"sharelooped/internal/identity"
	"sharelooped/internal/profile"
)

// IdentityProvider is the slice of the identity provider the manager consumes.
type IdentityProvider interface {
	CreateWithPassword(ctx context.Context, email, password string) (*identity.Account, error)
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Account, error)
	SignInFederated(ctx context.Context, claims *identity.FederatedClaims) (*identity.Account, bool, error)
	UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error
	IssueSession(ctx context.Context, accountID uuid.UUID) (string, error)
	Validate(ctx context.Context, token string) (*identity.Account, error)
	SignOut(ctx context.Context, token string) error
}

// Metrics records auth-operation outcomes and live subscription counts.
type Metrics interface {
	RecordAuthAttempt(operation, outcome string)
	RecordProfileWrite()
	SubscriptionOpened()
	SubscriptionClosed()
}

type nopMetrics struct{}

func (nopMetrics) RecordAuthAttempt(string, string) {}
func (nopMetrics) RecordProfileWrite()              {}
func (nopMetrics) SubscriptionOpened()              {}
func (nopMetrics) SubscriptionClosed()              {}

// Manager is the session manager. It holds no session state of its own;
// the identity provider owns sessions and the hub owns observation.
type Manager struct {
	provider IdentityProvider
	profiles profile.Store
	hub      *Hub
	limiter  *loginLimiter
	metrics  Metrics
	logger   *slog.Logger
}

// NewManager wires a Manager. metrics may be nil.
func NewManager(provider IdentityProvider, profiles profile.Store, hub *Hub, metrics Metrics, logger *slog.Logger) *Manager {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Manager{
		provider: provider,
		profiles: profiles,
		hub:      hub,
		limiter:  newLoginLimiter(rate.Limit(10.0/60.0), 10),
		metrics:  metrics,
		logger:   logger,
	}
}

// Register creates a new password identity, provisions its profile record
// with default preferences, and starts a session. An empty full name fails
// before the provider is contacted.
func (m *Manager) Register(ctx context.Context, email, password, fullName string) (*identity.Account, string, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		m.metrics.RecordAuthAttempt("register", "validation_error")
		return nil, "", fmt.Errorf("%w: full name is required", ErrValidation)
	}

	account, err := m.provider.CreateWithPassword(ctx, email, password)
	if err != nil {
		m.metrics.RecordAuthAttempt("register", "failure")
		return nil, "", err
	}

	if err := m.provider.UpdateDisplayName(ctx, account.ID, fullName); err != nil {
		m.metrics.RecordAuthAttempt("register", "failure")
		return nil, "", fmt.Errorf("set display name: %w", err)
	}
	account.DisplayName = fullName

	// Identity creation and the profile write are not transactional. A failed
	// write leaves the identity without a profile record and no retry path.
	if err := m.profiles.Put(ctx, profile.DefaultRecord(account.ID, account.Email, fullName)); err != nil {
		m.logger.Error("profile write failed after registration", "account_id", account.ID, "error", err)
		m.metrics.RecordAuthAttempt("register", "failure")
		return nil, "", fmt.Errorf("write profile record: %w", err)
	}
	m.metrics.RecordProfileWrite()

	token, err := m.provider.IssueSession(ctx, account.ID)
	if err != nil {
		m.metrics.RecordAuthAttempt("register", "failure")
		return nil, "", fmt.Errorf("issue session: %w", err)
	}

	m.metrics.RecordAuthAttempt("register", "success")
	m.logger.Info("user registered", "account_id", account.ID, "email", account.Email)
	return account, token, nil
}

// Login authenticates an existing password identity and starts a session.
func (m *Manager) Login(ctx context.Context, email, password string) (*identity.Account, string, error) {
	if !m.limiter.Allow(email) {
		m.metrics.RecordAuthAttempt("login", "rate_limited")
		return nil, "", identity.NewError(identity.CodeTooManyRequests)
	}

	account, err := m.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		m.metrics.RecordAuthAttempt("login", "failure")
		return nil, "", err
	}

	token, err := m.provider.IssueSession(ctx, account.ID)
	if err != nil {
		m.metrics.RecordAuthAttempt("login", "failure")
		return nil, "", fmt.Errorf("issue session: %w", err)
	}

	m.metrics.RecordAuthAttempt("login", "success")
	m.logger.Info("user logged in", "account_id", account.ID)
	return account, token, nil
}

// LoginWithGoogle completes a federated sign-in from verified claims. The
// profile record is written only when the provider reports a first-ever
// sign-in for the identity.
func (m *Manager) LoginWithGoogle(ctx context.Context, claims *identity.FederatedClaims) (*identity.Account, string, error) {
	account, isNew, err := m.provider.SignInFederated(ctx, claims)
	if err != nil {
		m.metrics.RecordAuthAttempt("google", "failure")
		return nil, "", err
	}

	if isNew {
		if err := m.profiles.Put(ctx, profile.DefaultRecord(account.ID, account.Email, account.DisplayName)); err != nil {
			m.logger.Error("profile write failed after federated sign-in", "account_id", account.ID, "error", err)
			m.metrics.RecordAuthAttempt("google", "failure")
			return nil, "", fmt.Errorf("write profile record: %w", err)
		}
		m.metrics.RecordProfileWrite()
	}

	token, err := m.provider.IssueSession(ctx, account.ID)
	if err != nil {
		m.metrics.RecordAuthAttempt("google", "failure")
		return nil, "", fmt.Errorf("issue session: %w", err)
	}

	m.metrics.RecordAuthAttempt("google", "success")
	m.logger.Info("federated login", "account_id", account.ID, "new_user", isNew)
	return account, token, nil
}

// Logout invalidates the session and notifies its observers. Provider errors
// are surfaced to the caller.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if err := m.provider.SignOut(ctx, token); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}

	m.hub.Publish(identity.HashToken(token), Snapshot{Authenticated: false})
	m.metrics.RecordAuthAttempt("logout", "success")
	return nil
}

// Current returns the session snapshot for a token without subscribing.
func (m *Manager) Current(ctx context.Context, token string) (Snapshot, error) {
	account, err := m.provider.Validate(ctx, token)
	if err != nil {
		return Snapshot{}, fmt.Errorf("validate session: %w", err)
	}
	return snapshotOf(account), nil
}

// Observe opens a live subscription to the session's state. The current
// snapshot is delivered first, exactly once, then every pushed change in
// order until the subscriber cancels.
func (m *Manager) Observe(ctx context.Context, token string) (*Subscription, error) {
	current, err := m.Current(ctx, token)
	if err != nil {
		return nil, err
	}
	return m.hub.Subscribe(identity.HashToken(token), current), nil
}

func snapshotOf(account *identity.Account) Snapshot {
	if account == nil {
		return Snapshot{Authenticated: false}
	}
	return Snapshot{
		Authenticated: true,
		Identity: &Identity{
			ID:          account.ID,
			Email:       account.Email,
			DisplayName: account.DisplayName,
		},
	}
}
