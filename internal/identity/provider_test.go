package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type repoStub struct {
	findAccountByEmail    func(ctx context.Context, email string) (*Account, error)
	findAccountBySubject  func(ctx context.Context, provider, subject string) (*Account, error)
	createAccount         func(ctx context.Context, account Account) (Account, error)
	updateDisplayName     func(ctx context.Context, id uuid.UUID, displayName string) error
	touchLogin            func(ctx context.Context, id uuid.UUID) error
	createSession         func(ctx context.Context, session Session, tokenHash string) error
	findSessionByHash     func(ctx context.Context, tokenHash string) (*Session, *Account, error)
	deleteSession         func(ctx context.Context, id uuid.UUID) error
	deleteExpiredSessions func(ctx context.Context) (int64, error)
}

func (r *repoStub) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	if r.findAccountByEmail != nil {
		return r.findAccountByEmail(ctx, email)
	}
	return nil, nil
}

func (r *repoStub) FindAccountBySubject(ctx context.Context, provider, subject string) (*Account, error) {
	if r.findAccountBySubject != nil {
		return r.findAccountBySubject(ctx, provider, subject)
	}
	return nil, nil
}

func (r *repoStub) CreateAccount(ctx context.Context, account Account) (Account, error) {
	if r.createAccount != nil {
		return r.createAccount(ctx, account)
	}
	return account, nil
}

func (r *repoStub) UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error {
	if r.updateDisplayName != nil {
		return r.updateDisplayName(ctx, id, displayName)
	}
	return nil
}

func (r *repoStub) TouchLogin(ctx context.Context, id uuid.UUID) error {
	if r.touchLogin != nil {
		return r.touchLogin(ctx, id)
	}
	return nil
}

func (r *repoStub) CreateSession(ctx context.Context, session Session, tokenHash string) error {
	if r.createSession != nil {
		return r.createSession(ctx, session, tokenHash)
	}
	return nil
}

func (r *repoStub) FindSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, *Account, error) {
	if r.findSessionByHash != nil {
		return r.findSessionByHash(ctx, tokenHash)
	}
	return nil, nil, nil
}

func (r *repoStub) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if r.deleteSession != nil {
		return r.deleteSession(ctx, id)
	}
	return nil
}

func (r *repoStub) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	if r.deleteExpiredSessions != nil {
		return r.deleteExpiredSessions(ctx)
	}
	return 0, nil
}

func TestCreateWithPasswordRejectsMalformedEmail(t *testing.T) {
	provider := NewProvider(&repoStub{}, time.Hour)

	_, err := provider.CreateWithPassword(context.Background(), "not-an-email", "secret123")
	if CodeOf(err) != CodeInvalidEmail {
		t.Fatalf("expected %s, got %v", CodeInvalidEmail, err)
	}
}

func TestCreateWithPasswordRejectsShortPassword(t *testing.T) {
	provider := NewProvider(&repoStub{}, time.Hour)

	_, err := provider.CreateWithPassword(context.Background(), "user@example.com", "12345")
	if CodeOf(err) != CodeWeakPassword {
		t.Fatalf("expected %s, got %v", CodeWeakPassword, err)
	}
}

func TestCreateWithPasswordRejectsDuplicateEmail(t *testing.T) {
	repo := &repoStub{
		findAccountByEmail: func(ctx context.Context, email string) (*Account, error) {
			return &Account{ID: uuid.New(), Email: email}, nil
		},
	}
	provider := NewProvider(repo, time.Hour)

	_, err := provider.CreateWithPassword(context.Background(), "user@example.com", "secret123")
	if CodeOf(err) != CodeEmailInUse {
		t.Fatalf("expected %s, got %v", CodeEmailInUse, err)
	}
}

func TestCreateWithPasswordMapsRepositoryDuplicate(t *testing.T) {
	repo := &repoStub{
		createAccount: func(ctx context.Context, account Account) (Account, error) {
			return Account{}, ErrDuplicateEmail
		},
	}
	provider := NewProvider(repo, time.Hour)

	_, err := provider.CreateWithPassword(context.Background(), "user@example.com", "secret123")
	if CodeOf(err) != CodeEmailInUse {
		t.Fatalf("expected %s, got %v", CodeEmailInUse, err)
	}
}

func TestCreateWithPasswordNormalizesEmailAndHashes(t *testing.T) {
	var created Account
	repo := &repoStub{
		createAccount: func(ctx context.Context, account Account) (Account, error) {
			created = account
			return account, nil
		},
	}
	provider := NewProvider(repo, time.Hour)

	account, err := provider.CreateWithPassword(context.Background(), "  User@Example.COM ", "secret123")
	if err != nil {
		t.Fatalf("CreateWithPassword returned error: %v", err)
	}
	if account.Email != "user@example.com" {
		t.Fatalf("expected normalized email, got %q", account.Email)
	}
	if created.PasswordHash == "" || created.PasswordHash == "secret123" {
		t.Fatalf("expected hashed password, got %q", created.PasswordHash)
	}
	if created.Provider != ProviderPassword {
		t.Fatalf("expected provider %q, got %q", ProviderPassword, created.Provider)
	}
}

func TestSignInWithPasswordUsesOneCodeForUnknownUserAndWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	provider := NewProvider(&repoStub{
		findAccountByEmail: func(ctx context.Context, email string) (*Account, error) {
			if email != "known@example.com" {
				return nil, nil
			}
			return &Account{ID: uuid.New(), Email: email, PasswordHash: string(hash)}, nil
		},
	}, time.Hour)

	_, unknownErr := provider.SignInWithPassword(context.Background(), "nobody@example.com", "whatever")
	_, wrongErr := provider.SignInWithPassword(context.Background(), "known@example.com", "wrong-password")

	if CodeOf(unknownErr) != CodeInvalidCredentials {
		t.Fatalf("unknown user: expected %s, got %v", CodeInvalidCredentials, unknownErr)
	}
	if CodeOf(wrongErr) != CodeInvalidCredentials {
		t.Fatalf("wrong password: expected %s, got %v", CodeInvalidCredentials, wrongErr)
	}
}

func TestSignInWithPasswordSucceeds(t *testing.T) {
	repo := NewMemoryRepository()
	provider := NewProvider(repo, time.Hour)

	created, err := provider.CreateWithPassword(context.Background(), "user@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateWithPassword returned error: %v", err)
	}

	account, err := provider.SignInWithPassword(context.Background(), "user@example.com", "secret123")
	if err != nil {
		t.Fatalf("SignInWithPassword returned error: %v", err)
	}
	if account.ID != created.ID {
		t.Fatalf("expected account %s, got %s", created.ID, account.ID)
	}
}

func TestSignInFederatedCreatesNewAccountOnce(t *testing.T) {
	repo := NewMemoryRepository()
	provider := NewProvider(repo, time.Hour)

	claims := &FederatedClaims{Sub: "sub-123", Email: "fed@example.com", Name: "Fed User"}

	first, isNew, err := provider.SignInFederated(context.Background(), claims)
	if err != nil {
		t.Fatalf("SignInFederated returned error: %v", err)
	}
	if !isNew {
		t.Fatal("expected first federated sign-in to report a new identity")
	}
	if first.DisplayName != "Fed User" || first.Provider != ProviderGoogle {
		t.Fatalf("unexpected account: %+v", first)
	}

	second, isNew, err := provider.SignInFederated(context.Background(), claims)
	if err != nil {
		t.Fatalf("SignInFederated returned error: %v", err)
	}
	if isNew {
		t.Fatal("expected second federated sign-in to report an existing identity")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same account, got %s and %s", first.ID, second.ID)
	}
}

func TestIssueAndValidateSession(t *testing.T) {
	repo := NewMemoryRepository()
	provider := NewProvider(repo, time.Hour)

	created, err := provider.CreateWithPassword(context.Background(), "user@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateWithPassword returned error: %v", err)
	}

	token, err := provider.IssueSession(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}

	account, err := provider.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if account == nil || account.ID != created.ID {
		t.Fatalf("expected account %s, got %+v", created.ID, account)
	}
}

func TestValidateRemovesExpiredSessions(t *testing.T) {
	var deleted bool
	sessionID := uuid.New()
	repo := &repoStub{
		findSessionByHash: func(ctx context.Context, tokenHash string) (*Session, *Account, error) {
			session := &Session{ID: sessionID, ExpiresAt: time.Now().Add(-time.Minute)}
			return session, &Account{ID: uuid.New()}, nil
		},
		deleteSession: func(ctx context.Context, id uuid.UUID) error {
			if id != sessionID {
				return errors.New("unexpected session id")
			}
			deleted = true
			return nil
		},
	}
	provider := NewProvider(repo, time.Hour)

	account, err := provider.Validate(context.Background(), "some-token")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if account != nil {
		t.Fatal("expected expired session to be treated as absent")
	}
	if !deleted {
		t.Fatal("expected expired session to be deleted")
	}
}

func TestSignOutInvalidatesSession(t *testing.T) {
	repo := NewMemoryRepository()
	provider := NewProvider(repo, time.Hour)

	created, err := provider.CreateWithPassword(context.Background(), "user@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateWithPassword returned error: %v", err)
	}
	token, err := provider.IssueSession(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}

	if err := provider.SignOut(context.Background(), token); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}

	account, err := provider.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if account != nil {
		t.Fatal("expected session to be gone after sign-out")
	}
}

func TestSignOutWithEmptyTokenIsNoOp(t *testing.T) {
	called := false
	repo := &repoStub{
		findSessionByHash: func(ctx context.Context, tokenHash string) (*Session, *Account, error) {
			called = true
			return nil, nil, nil
		},
	}
	provider := NewProvider(repo, time.Hour)

	if err := provider.SignOut(context.Background(), ""); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}
	if called {
		t.Fatal("expected no repository access for an empty token")
	}
}
