package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// CredentialRepository persists a [models.CredentialSet] as the single row of the credentials table.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Read returns the stored credentials or [shared.ErrNoCredentials] when the table is empty.
func (r *CredentialRepository) Read(ctx context.Context) (*models.CredentialSet, error) {
	query := `SELECT access_token, refresh_token, expires_at FROM credentials WHERE id = 1`

	var (
		creds     models.CredentialSet
		expiresAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query).Scan(&creds.AccessToken, &creds.RefreshToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}

	if expiresAt.Valid {
		creds.ExpiresAt = expiresAt.Time
	}
	return &creds, nil
}

// Write replaces the stored credentials in one statement.
func (r *CredentialRepository) Write(ctx context.Context, creds models.CredentialSet) error {
	query := `
		INSERT INTO credentials (id, access_token, refresh_token, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	var expiresAt sql.NullTime
	if !creds.ExpiresAt.IsZero() {
		expiresAt = sql.NullTime{Time: creds.ExpiresAt.UTC(), Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, query, creds.AccessToken, creds.RefreshToken, expiresAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// Remove deletes the stored credentials. Removing an empty table is not an error.
func (r *CredentialRepository) Remove(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
