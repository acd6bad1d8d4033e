// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mudbeaver/site-api/internal/model"
)

const apiKeyColumns = `id, name, key_hash, key_prefix, role, is_active, expires_at, last_used_at, created_by, created_at, updated_at`

func scanAPIKey(row interface{ Scan(...any) error }) (model.APIKey, error) {
	var k model.APIKey
	err := row.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Role, &k.IsActive,
		&k.ExpiresAt, &k.LastUsedAt, &k.CreatedBy, &k.CreatedAt, &k.UpdatedAt)
	return k, err
}

// CreateAPIKeyParams holds the fields for creating an API key.
type CreateAPIKeyParams struct {
	Name      string
	KeyHash   string
	KeyPrefix string
	Role      string
	IsActive  bool
	ExpiresAt sql.NullTime
	CreatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateAPIKey inserts an API key and returns the stored row.
func (q *Queries) CreateAPIKey(ctx context.Context, arg CreateAPIKeyParams) (model.APIKey, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO api_keys (name, key_hash, key_prefix, role, is_active, expires_at, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+apiKeyColumns,
		arg.Name, arg.KeyHash, arg.KeyPrefix, arg.Role, arg.IsActive,
		arg.ExpiresAt, arg.CreatedBy, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanAPIKey(row)
}

// GetAPIKeyByHash fetches an API key by its SHA-256 hash.
func (q *Queries) GetAPIKeyByHash(ctx context.Context, keyHash string) (model.APIKey, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = ?`, keyHash)
	return scanAPIKey(row)
}

// UpdateAPIKeyLastUsedParams holds the arguments for UpdateAPIKeyLastUsed.
type UpdateAPIKeyLastUsedParams struct {
	LastUsedAt sql.NullTime
	ID         int64
}

// UpdateAPIKeyLastUsed records when a key last authenticated a request.
func (q *Queries) UpdateAPIKeyLastUsed(ctx context.Context, arg UpdateAPIKeyLastUsedParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, arg.LastUsedAt, arg.ID)
	return err
}
