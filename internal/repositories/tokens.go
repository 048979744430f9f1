package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Chaouesrex/spotify-gpt-bridge/internal/services"
)

// tokenSchema holds a single row; the bridge serves exactly one account.
const tokenSchema = `
CREATE TABLE IF NOT EXISTS tokens (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	access_token TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	expires_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// TokenRepository persists the connected account's token state in SQLite.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a repository over an open database connection.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Init creates the token table when absent.
func (r *TokenRepository) Init() error {
	if _, err := r.db.Exec(tokenSchema); err != nil {
		return fmt.Errorf("failed to create tokens table: %w", err)
	}
	return nil
}

// Save upserts the token state.
func (r *TokenRepository) Save(state services.TokenState) error {
	query := `
		INSERT INTO tokens (id, access_token, refresh_token, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, state.AccessToken, state.RefreshToken, state.ExpiresAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save token state: %w", err)
	}

	return nil
}

// Load retrieves the persisted token state. The second return value is
// false when nothing has been persisted yet.
func (r *TokenRepository) Load() (services.TokenState, bool, error) {
	query := `SELECT access_token, refresh_token, expires_at FROM tokens WHERE id = 1`

	var state services.TokenState
	err := r.db.QueryRow(query).Scan(&state.AccessToken, &state.RefreshToken, &state.ExpiresAt)
	if err == sql.ErrNoRows {
		return services.TokenState{}, false, nil
	}
	if err != nil {
		return services.TokenState{}, false, fmt.Errorf("failed to load token state: %w", err)
	}

	return state, true, nil
}

// Clear removes the persisted token state.
func (r *TokenRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM tokens WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear token state: %w", err)
	}
	return nil
}
