package services

import (
	"context"
	"sync"
	"time"
)

// TokenState is a snapshot of the OAuth tokens held for the connected
// Spotify account. AccessToken and RefreshToken are opaque strings;
// ExpiresAt is only meaningful while AccessToken is present.
type TokenState struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Connected reports whether a refresh token is held, i.e. whether the
// one-time OAuth handshake has completed since this state was created.
func (s TokenState) Connected() bool {
	return s.RefreshToken != ""
}

// TokenStore holds the token state for exactly one Spotify account.
// It is the only shared mutable resource in the bridge and is safe for
// concurrent use. The store is injected into [SpotifyService] rather than
// living as a package-level variable so tests can substitute their own.
type TokenStore struct {
	mu    sync.Mutex
	state TokenState
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// State returns a copy of the current token state.
func (t *TokenStore) State() TokenState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Set replaces the entire token state. Used by the OAuth handshake and by
// startup code restoring a persisted refresh token.
func (t *TokenStore) Set(state TokenState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
}

// Update overwrites the access token and expiry after a refresh. The
// refresh token is preserved unless the provider returned a new one.
func (t *TokenStore) Update(accessToken string, expiresAt time.Time, refreshToken string) TokenState {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.AccessToken = accessToken
	t.state.ExpiresAt = expiresAt
	if refreshToken != "" {
		t.state.RefreshToken = refreshToken
	}
	return t.state
}

// Connected reports whether the store holds a refresh token.
func (t *TokenStore) Connected() bool {
	return t.State().Connected()
}

// TrackSummary is the normalized shape of a single search result.
type TrackSummary struct {
	ID      string   `json:"id"`
	URI     string   `json:"uri"`
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
	Album   string   `json:"album"`
}

// PlayerService captures the slice of the Spotify Web API the command
// dispatcher uses. [SpotifyService] is the production implementation.
type PlayerService interface {
	// PlayerState retrieves the current playback state (GET /me/player).
	PlayerState(ctx context.Context) (*APIResponse, error)

	// Devices lists the account's playback devices.
	Devices(ctx context.Context) (*APIResponse, error)

	// Play resumes playback, optionally on a specific device.
	Play(ctx context.Context, deviceID string) (*APIResponse, error)

	// Pause pauses playback.
	Pause(ctx context.Context) (*APIResponse, error)

	// Next skips to the next track.
	Next(ctx context.Context) (*APIResponse, error)

	// Previous skips to the previous track.
	Previous(ctx context.Context) (*APIResponse, error)

	// SetVolume sets the playback volume percent on a device.
	SetVolume(ctx context.Context, deviceID string, volume int) (*APIResponse, error)

	// TransferPlayback moves playback to the given device.
	TransferPlayback(ctx context.Context, deviceID string, play bool) (*APIResponse, error)

	// SearchTracks performs a track search with the given result limit.
	SearchTracks(ctx context.Context, query string, limit int) (*APIResponse, error)

	// CurrentUser retrieves the authenticated user's profile.
	CurrentUser(ctx context.Context) (*APIResponse, error)

	// CreatePlaylist creates a playlist owned by the given user.
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*APIResponse, error)

	// UserPlaylists retrieves one page of the user's playlists.
	UserPlaylists(ctx context.Context, limit, offset int) (*APIResponse, error)

	// AddToPlaylist appends track URIs to a playlist.
	AddToPlaylist(ctx context.Context, playlistID string, uris []string) (*APIResponse, error)
}
