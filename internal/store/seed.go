// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/mudbeaver/site-api/internal/auth"
	"github.com/mudbeaver/site-api/internal/model"
)

// DefaultAdminEmail is the email of the seeded administrator account.
const DefaultAdminEmail = "admin@mudbeaver.in"

// Seed ensures the database has an administrator account to author posts
// and own API keys. Safe to run on every start.
func Seed(ctx context.Context, db DBTX) error {
	queries := New(db)

	count, err := queries.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		return nil
	}

	// Random placeholder password; there is no interactive login surface,
	// the account exists as a post author and key owner.
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generating admin password: %w", err)
	}
	hash, err := auth.HashPassword(base64.URLEncoding.EncodeToString(raw))
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Name:         "Administrator",
		Email:        DefaultAdminEmail,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("seeded administrator account", "email", user.Email, "id", user.ID)
	return nil
}
