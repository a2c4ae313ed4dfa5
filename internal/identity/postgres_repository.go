package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type accountRow struct {
	ID              uuid.UUID `db:"id"`
	Email           string    `db:"email"`
	DisplayName     string    `db:"display_name"`
	PasswordHash    string    `db:"password_hash"`
	Provider        string    `db:"provider"`
	ProviderSubject string    `db:"provider_subject"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
	LastLoginAt     time.Time `db:"last_login_at"`
}

func (r accountRow) toAccount() *Account {
	return &Account{
		ID:              r.ID,
		Email:           r.Email,
		DisplayName:     r.DisplayName,
		PasswordHash:    r.PasswordHash,
		Provider:        r.Provider,
		ProviderSubject: r.ProviderSubject,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		LastLoginAt:     r.LastLoginAt,
	}
}

const accountColumns = `id, email, display_name, password_hash, provider, provider_subject, created_at, updated_at, last_login_at`

// FindAccountByEmail looks up an account by its email address.
func (r *PostgresRepository) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	var row accountRow
	if err := r.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toAccount(), nil
}

// FindAccountBySubject looks up an account by its federated provider and subject.
func (r *PostgresRepository) FindAccountBySubject(ctx context.Context, provider, subject string) (*Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE provider = $1 AND provider_subject = $2`

	var row accountRow
	if err := r.db.GetContext(ctx, &row, query, provider, subject); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toAccount(), nil
}

// CreateAccount inserts a new account. A concurrent insert of the same email
// is reported as ErrDuplicateEmail.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account Account) (Account, error) {
	const query = `
		INSERT INTO accounts (id, email, display_name, password_hash, provider, provider_subject, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.DisplayName,
		account.PasswordHash,
		account.Provider,
		account.ProviderSubject,
		account.CreatedAt,
		account.UpdatedAt,
		account.LastLoginAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrDuplicateEmail
		}
		return Account{}, err
	}

	return account, nil
}

// UpdateDisplayName sets the account's display name.
func (r *PostgresRepository) UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error {
	const query = `UPDATE accounts SET display_name = $2, updated_at = $3 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, displayName, time.Now())
	return err
}

// TouchLogin records a successful sign-in.
func (r *PostgresRepository) TouchLogin(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE accounts SET last_login_at = $2, updated_at = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	return err
}

// CreateSession inserts a new session.
func (r *PostgresRepository) CreateSession(ctx context.Context, session Session, tokenHash string) error {
	const query = `
		INSERT INTO sessions (id, account_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.AccountID,
		tokenHash,
		session.ExpiresAt,
		session.CreatedAt,
	)
	return err
}

// FindSessionByTokenHash returns the session and its account for a token hash.
func (r *PostgresRepository) FindSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, *Account, error) {
	const query = `
		SELECT s.id AS session_id, s.account_id, s.expires_at, s.created_at AS session_created_at,
		       a.id, a.email, a.display_name, a.password_hash, a.provider, a.provider_subject,
		       a.created_at, a.updated_at, a.last_login_at
		FROM sessions s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.token_hash = $1
	`

	var row struct {
		SessionID        uuid.UUID `db:"session_id"`
		AccountID        uuid.UUID `db:"account_id"`
		ExpiresAt        time.Time `db:"expires_at"`
		SessionCreatedAt time.Time `db:"session_created_at"`
		accountRow
	}
	if err := r.db.GetContext(ctx, &row, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	session := &Session{
		ID:        row.SessionID,
		AccountID: row.AccountID,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.SessionCreatedAt,
	}
	return session, row.toAccount(), nil
}

// DeleteSession removes a single session.
func (r *PostgresRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM sessions WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// DeleteExpiredSessions removes all sessions past their expiry.
func (r *PostgresRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < $1`

	result, err := r.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
