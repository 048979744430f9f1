// Spotify Web API implementation of [PlayerService]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Chaouesrex/spotify-gpt-bridge/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// expirySkew is subtracted from the recorded expiry so a token that is
	// about to expire mid-flight is refreshed up front.
	expirySkew = 10 * time.Second

	// defaultExpiresIn is used when the token endpoint omits expires_in.
	defaultExpiresIn = 3600

	upstreamTimeout = 10 * time.Second
)

// SpotifyDevice represents a playback device registered with the account.
type SpotifyDevice struct {
	ID       string `json:"id"`
	IsActive bool   `json:"is_active"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Volume   int    `json:"volume_percent"`
}

// SpotifyDeviceList represents the response of GET /me/player/devices.
type SpotifyDeviceList struct {
	Devices []SpotifyDevice `json:"devices"`
}

// SpotifyPlayerState represents the subset of GET /me/player the bridge
// inspects for device resolution.
type SpotifyPlayerState struct {
	Device    SpotifyDevice `json:"device"`
	IsPlaying bool          `json:"is_playing"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Album   SpotifyAlbum    `json:"album"`
	URI     string          `json:"uri"`
}

// SpotifySearchResult represents the track portion of a search response.
type SpotifySearchResult struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
		Total int            `json:"total"`
	} `json:"tracks"`
}

// Summary converts a track to the normalized search-result shape.
func (t SpotifyTrack) Summary() TrackSummary {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	return TrackSummary{
		ID:      t.ID,
		URI:     t.URI,
		Name:    t.Name,
		Artists: artists,
		Album:   t.Album.Name,
	}
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Public bool   `json:"public"`
	URI    string `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

// SpotifyService implements [PlayerService] against the Spotify Web API.
// It owns the token lifecycle for exactly one account: the OAuth handshake
// populates the injected [TokenStore], and every call refreshes the access
// token first when it is stale.
type SpotifyService struct {
	config     *oauth2.Config
	tokens     *TokenStore
	httpClient *http.Client

	// overridable for tests; default to the public Spotify endpoints
	baseURL  string
	tokenURL string

	// refreshMu serializes refreshes so concurrent expiring requests share
	// one network round trip per expiry window.
	refreshMu sync.Mutex

	onTokenChange func(TokenState)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2
// credentials, writing token state into the provided store.
func NewSpotifyService(credentials map[string]string, tokens *TokenStore) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-playback-state",
			"user-modify-playback-state",
			"user-read-currently-playing",
			"playlist-read-private",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	if tokens == nil {
		tokens = NewTokenStore()
	}

	return &SpotifyService{
		config:     config,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: upstreamTimeout},
		baseURL:    spotifyBaseURL,
		tokenURL:   spotifyTokenURL,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Tokens returns the token store backing this service.
func (s *SpotifyService) Tokens() *TokenStore {
	return s.tokens
}

// SetTokenChangeCallback registers a callback invoked whenever the token
// state changes (handshake or refresh). Used to persist the refresh token.
func (s *SpotifyService) SetTokenChangeCallback(fn func(TokenState)) {
	s.onTokenChange = fn
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for tokens and populates the store.
func (s *SpotifyService) Exchange(ctx context.Context, code string) error {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	expiry := token.Expiry
	if expiry.IsZero() {
		expiry = time.Now().Add(defaultExpiresIn * time.Second)
	}

	state := TokenState{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiry,
	}
	s.tokens.Set(state)
	s.notify(state)

	return nil
}

func (s *SpotifyService) notify(state TokenState) {
	if s.onTokenChange != nil {
		s.onTokenChange(state)
	}
}

// EnsureAccessToken returns a valid access token, refreshing when the cached
// one is missing or expires within the skew window. Fails with
// [shared.ErrNotConnected] when no refresh token is held and with
// [shared.ErrRefreshFailed] when the token endpoint rejects the refresh.
func (s *SpotifyService) EnsureAccessToken(ctx context.Context) (string, error) {
	if token, ok := s.cachedToken(); ok {
		return token, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// another caller may have refreshed while we waited on the lock
	if token, ok := s.cachedToken(); ok {
		return token, nil
	}

	state := s.tokens.State()
	if state.RefreshToken == "" {
		return "", shared.ErrNotConnected
	}

	return s.refresh(ctx, state.RefreshToken)
}

func (s *SpotifyService) cachedToken() (string, bool) {
	state := s.tokens.State()
	if state.AccessToken != "" && time.Now().Before(state.ExpiresAt.Add(-expirySkew)) {
		return state.AccessToken, true
	}
	return "", false
}

// tokenEndpointResponse is the token endpoint's success payload.
type tokenEndpointResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// refresh performs one grant_type=refresh_token round trip. Not retried;
// the next command invocation retries naturally.
func (s *SpotifyService) refresh(ctx context.Context, refreshToken string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.SetBasicAuth(s.config.ClientID, s.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body bytes.Buffer
		body.ReadFrom(resp.Body)
		return "", fmt.Errorf("%w: status %d, body: %s", shared.ErrRefreshFailed, resp.StatusCode, body.String())
	}

	var payload tokenEndpointResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: failed to decode token response: %v", shared.ErrRefreshFailed, err)
	}

	expiresIn := payload.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}

	state := s.tokens.Update(payload.AccessToken, time.Now().Add(time.Duration(expiresIn)*time.Second), payload.RefreshToken)
	s.notify(state)

	return payload.AccessToken, nil
}

// Call performs an authenticated request against the Spotify Web API.
//
// All HTTP statuses are treated as valid responses so callers can inspect
// and relay them; upstream error bodies ("no active device" and friends)
// are meaningful to the bridge's callers and must not be swallowed.
// A 204 No Content is normalized to an empty JSON object.
func (s *SpotifyService) Call(ctx context.Context, method, path string, query url.Values, body any) (*APIResponse, error) {
	token, err := s.EnsureAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	apiURL := s.baseURL + path
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	var req *http.Request
	if payload != nil {
		req, err = http.NewRequestWithContext(ctx, method, apiURL, payload)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, apiURL, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return ReadResponse(resp)
}

// isTimeout reports whether an upstream call failed on a deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// PlayerState retrieves the current playback state.
func (s *SpotifyService) PlayerState(ctx context.Context) (*APIResponse, error) {
	return s.Call(ctx, http.MethodGet, "/me/player", nil, nil)
}

// Devices lists the account's playback devices.
func (s *SpotifyService) Devices(ctx context.Context) (*APIResponse, error) {
	return s.Call(ctx, http.MethodGet, "/me/player/devices", nil, nil)
}

// Play resumes playback, optionally on a specific device.
func (s *SpotifyService) Play(ctx context.Context, deviceID string) (*APIResponse, error) {
	query := url.Values{}
	if deviceID != "" {
		query.Set("device_id", deviceID)
	}
	return s.Call(ctx, http.MethodPut, "/me/player/play", query, nil)
}

// Pause pauses playback.
func (s *SpotifyService) Pause(ctx context.Context) (*APIResponse, error) {
	return s.Call(ctx, http.MethodPut, "/me/player/pause", nil, nil)
}

// Next skips to the next track.
func (s *SpotifyService) Next(ctx context.Context) (*APIResponse, error) {
	return s.Call(ctx, http.MethodPost, "/me/player/next", nil, nil)
}

// Previous skips to the previous track.
func (s *SpotifyService) Previous(ctx context.Context) (*APIResponse, error) {
	return s.Call(ctx, http.MethodPost, "/me/player/previous", nil, nil)
}

// SetVolume sets the playback volume percent on a device.
func (s *SpotifyService) SetVolume(ctx context.Context, deviceID string, volume int) (*APIResponse, error) {
	query := url.Values{}
	query.Set("volume_percent", strconv.Itoa(volume))
	if deviceID != "" {
		query.Set("device_id", deviceID)
	}
	return s.Call(ctx, http.MethodPut, "/me/player/volume", query, nil)
}

// TransferPlayback moves playback to the given device.
func (s *SpotifyService) TransferPlayback(ctx context.Context, deviceID string, play bool) (*APIResponse, error) {
	body := map[string]any{
		"device_ids": []string{deviceID},
		"play":       play,
	}
	return s.Call(ctx, http.MethodPut, "/me/player", nil, body)
}

// SearchTracks performs a track search with the given result limit.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) (*APIResponse, error) {
	if limit <= 0 {
		limit = 1
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limit))
	return s.Call(ctx, http.MethodGet, "/search", params, nil)
}

// CurrentUser retrieves the authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*APIResponse, error) {
	return s.Call(ctx, http.MethodGet, "/me", nil, nil)
}

// CreatePlaylist creates a playlist owned by the given user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*APIResponse, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}
	path := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	return s.Call(ctx, http.MethodPost, path, nil, body)
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*APIResponse, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	return s.Call(ctx, http.MethodGet, "/me/playlists", query, nil)
}

// AddToPlaylist appends track URIs to a playlist.
func (s *SpotifyService) AddToPlaylist(ctx context.Context, playlistID string, uris []string) (*APIResponse, error) {
	body := map[string]any{"uris": uris}
	path := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.Call(ctx, http.MethodPost, path, nil, body)
}
