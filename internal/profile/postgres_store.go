package profile

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Put writes the record at its identity handle. A repeated write for the same
// handle overwrites the earlier record; the create-on-first-sight callers
// never issue one, so this keeps the duplicate-write race harmless.
func (s *PostgresStore) Put(ctx context.Context, record Record) error {
	const query = `
		INSERT INTO profiles (id, email, full_name, email_notifications, push_notifications, dark_mode, language, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.Email,
		record.FullName,
		record.Preferences.EmailNotifications,
		record.Preferences.PushNotifications,
		record.Preferences.DarkMode,
		record.Preferences.Language,
		record.CreatedAt,
	)
	return err
}
