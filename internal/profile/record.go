// Package profile persists application-level user metadata, distinct from the
// identity provider's own account records. A record is written exactly once,
// when an identity is first seen, and is never read back by this service.
package profile

import (
	"time"

	"github.com/google/uuid"
)

// Preferences is the per-user settings block stored with each record.
type Preferences struct {
	EmailNotifications bool   `json:"emailNotifications"`
	PushNotifications  bool   `json:"pushNotifications"`
	DarkMode           bool   `json:"darkMode"`
	Language           string `json:"language"`
}

// Record is the profile document keyed by the identity handle that created it.
type Record struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	FullName    string      `json:"full_name"`
	CreatedAt   time.Time   `json:"created_at"`
	Preferences Preferences `json:"preferences"`
}

// DefaultRecord builds a record with the default preference block applied.
func DefaultRecord(id uuid.UUID, email, fullName string) Record {
	return Record{
		ID:        id,
		Email:     email,
		FullName:  fullName,
		CreatedAt: time.Now(),
		Preferences: Preferences{
			EmailNotifications: true,
			PushNotifications:  true,
			DarkMode:           false,
			Language:           "english",
		},
	}
}
