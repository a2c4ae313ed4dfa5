package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for development and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]Account
	sessions map[string]Session // keyed by token hash
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[uuid.UUID]Account),
		sessions: make(map[string]Session),
	}
}

// FindAccountByEmail looks up an account by its email address.
func (r *MemoryRepository) FindAccountByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if account.Email == email {
			copied := account
			return &copied, nil
		}
	}
	return nil, nil
}

// FindAccountBySubject looks up an account by its federated provider and subject.
func (r *MemoryRepository) FindAccountBySubject(_ context.Context, provider, subject string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if account.Provider == provider && account.ProviderSubject == subject {
			copied := account
			return &copied, nil
		}
	}
	return nil, nil
}

// CreateAccount stores a new account, rejecting duplicate emails.
func (r *MemoryRepository) CreateAccount(_ context.Context, account Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return Account{}, ErrDuplicateEmail
		}
	}

	r.accounts[account.ID] = account
	return account, nil
}

// UpdateDisplayName sets the account's display name.
func (r *MemoryRepository) UpdateDisplayName(_ context.Context, id uuid.UUID, displayName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil
	}
	account.DisplayName = displayName
	account.UpdatedAt = time.Now()
	r.accounts[id] = account
	return nil
}

// TouchLogin records a successful sign-in.
func (r *MemoryRepository) TouchLogin(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil
	}
	now := time.Now()
	account.LastLoginAt = now
	account.UpdatedAt = now
	r.accounts[id] = account
	return nil
}

// CreateSession stores a new session keyed by its token hash.
func (r *MemoryRepository) CreateSession(_ context.Context, session Session, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[tokenHash] = session
	return nil
}

// FindSessionByTokenHash returns the session and its account for a token hash.
func (r *MemoryRepository) FindSessionByTokenHash(_ context.Context, tokenHash string) (*Session, *Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[tokenHash]
	if !ok {
		return nil, nil, nil
	}

	account, ok := r.accounts[session.AccountID]
	if !ok {
		return nil, nil, nil
	}

	sessionCopy := session
	accountCopy := account
	return &sessionCopy, &accountCopy, nil
}

// DeleteSession removes a single session.
func (r *MemoryRepository) DeleteSession(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, session := range r.sessions {
		if session.ID == id {
			delete(r.sessions, hash)
			return nil
		}
	}
	return nil
}

// DeleteExpiredSessions removes all sessions past their expiry.
func (r *MemoryRepository) DeleteExpiredSessions(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var removed int64
	for hash, session := range r.sessions {
		if now.After(session.ExpiresAt) {
			delete(r.sessions, hash)
			removed++
		}
	}
	return removed, nil
}
