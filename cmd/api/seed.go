package main

import (
	"context"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"sharelooped/internal/identity"
)

// seedDemoAccount creates a throwaway login for local development so the
// in-memory store is usable without registering first.
func seedDemoAccount(ctx context.Context, repo identity.Repository, logger *slog.Logger) {
	hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
	if err != nil {
		logger.Warn("failed to hash demo password", "error", err)
		return
	}

	now := time.Now()
	account, err := repo.CreateAccount(ctx, identity.Account{
		ID:           uuid.New(),
		Email:        "demo@sharelooped.local",
		DisplayName:  "Demo Investor",
		PasswordHash: string(hash),
		Provider:     identity.ProviderPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		logger.Warn("failed to seed demo account", "error", err)
		return
	}

	logger.Info("seeded demo account", "email", account.Email, "password", "demo-password")
}
