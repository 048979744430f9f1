package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Chaouesrex/spotify-gpt-bridge/internal/shared"
)

func testCredentials() map[string]string {
	return map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
		"redirect_uri":  "http://localhost:8080/callback",
	}
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials(), NewTokenStore())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv == nil {
				t.Fatal("expected service to be created")
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{
				"client_secret": "test_client_secret",
			}, nil)

			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{
				"client_id": "test_client_id",
			}, nil)

			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			}, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != "http://localhost:8080/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Nil Store Gets A Fresh One", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials(), nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Tokens() == nil {
				t.Error("expected a token store to be created")
			}
		})
	})

	t.Run("GetAuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials(), nil)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("")
		if authURL == "" {
			t.Fatal("expected auth URL to be generated")
		}

		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "access_type=offline") {
			t.Error("auth URL should request offline access")
		}
		if !strings.Contains(authURL, "user-modify-playback-state") {
			t.Error("auth URL should request playback scopes")
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		t.Run("Populates Store And Notifies", func(t *testing.T) {
			tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{
					"access_token":  "exchanged_access",
					"refresh_token": "exchanged_refresh",
					"token_type":    "Bearer",
					"expires_in":    3600,
				})
			}))
			defer tokenServer.Close()

			tokens := NewTokenStore()
			srv, _ := NewSpotifyService(testCredentials(), tokens)
			srv.config.Endpoint.TokenURL = tokenServer.URL

			var notified bool
			srv.SetTokenChangeCallback(func(state TokenState) {
				notified = state.RefreshToken == "exchanged_refresh"
			})

			if err := srv.Exchange(context.Background(), "auth_code"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			state := tokens.State()
			if state.AccessToken != "exchanged_access" {
				t.Errorf("expected access token to be stored, got %s", state.AccessToken)
			}
			if !state.Connected() {
				t.Error("expected store to report connected after exchange")
			}
			if !notified {
				t.Error("expected token change callback to fire")
			}
		})

		t.Run("Rejected Code", func(t *testing.T) {
			tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error": "invalid_grant"}`))
			}))
			defer tokenServer.Close()

			srv, _ := NewSpotifyService(testCredentials(), NewTokenStore())
			srv.config.Endpoint.TokenURL = tokenServer.URL

			if err := srv.Exchange(context.Background(), "bad_code"); err == nil {
				t.Error("expected error for rejected code")
			}
		})
	})

	t.Run("EnsureAccessToken", func(t *testing.T) {
		t.Run("Not Connected", func(t *testing.T) {
			srv, _ := NewSpotifyService(testCredentials(), NewTokenStore())

			_, err := srv.EnsureAccessToken(context.Background())
			if !errors.Is(err, shared.ErrNotConnected) {
				t.Errorf("expected ErrNotConnected, got %v", err)
			}
		})

		t.Run("Returns Cached Token", func(t *testing.T) {
			tokens := NewTokenStore()
			tokens.Set(TokenState{
				AccessToken:  "cached_token",
				RefreshToken: "refresh",
				ExpiresAt:    time.Now().Add(time.Hour),
			})

			srv, _ := NewSpotifyService(testCredentials(), tokens)
			srv.tokenURL = "http://invalid.invalid"

			token, err := srv.EnsureAccessToken(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token != "cached_token" {
				t.Errorf("expected cached token, got %s", token)
			}
		})

		t.Run("Refreshes Within Skew Window", func(t *testing.T) {
			var refreshes atomic.Int32
			tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				refreshes.Add(1)

				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse form: %v", err)
				}
				if r.PostForm.Get("grant_type") != "refresh_token" {
					t.Errorf("expected grant_type refresh_token, got %s", r.PostForm.Get("grant_type"))
				}
				if r.PostForm.Get("refresh_token") != "refresh" {
					t.Errorf("expected refresh_token to be sent, got %s", r.PostForm.Get("refresh_token"))
				}
				if user, pass, ok := r.BasicAuth(); !ok || user != "test_client_id" || pass != "test_client_secret" {
					t.Error("expected client credentials as basic auth")
				}

				json.NewEncoder(w).Encode(map[string]any{
					"access_token": "refreshed_token",
					"token_type":   "Bearer",
					"expires_in":   3600,
				})
			}))
			defer tokenServer.Close()

			tokens := NewTokenStore()
			tokens.Set(TokenState{
				AccessToken:  "stale_token",
				RefreshToken: "refresh",
				ExpiresAt:    time.Now().Add(5 * time.Second),
			})

			srv, _ := NewSpotifyService(testCredentials(), tokens)
			srv.tokenURL = tokenServer.URL

			token, err := srv.EnsureAccessToken(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token != "refreshed_token" {
				t.Errorf("expected refreshed token, got %s", token)
			}

			if _, err := srv.EnsureAccessToken(context.Background()); err != nil {
				t.Fatalf("expected no error on second call, got %v", err)
			}
			if refreshes.Load() != 1 {
				t.Errorf("expected exactly one refresh, got %d", refreshes.Load())
			}

			if state := tokens.State(); state.RefreshToken != "refresh" {
				t.Errorf("expected refresh token to be preserved, got %s", state.RefreshToken)
			}
		})

		t.Run("Defaults Expiry When Omitted", func(t *testing.T) {
			tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"access_token": "refreshed_token",
					"token_type":   "Bearer",
				})
			}))
			defer tokenServer.Close()

			tokens := NewTokenStore()
			tokens.Set(TokenState{RefreshToken: "refresh"})

			srv, _ := NewSpotifyService(testCredentials(), tokens)
			srv.tokenURL = tokenServer.URL

			if _, err := srv.EnsureAccessToken(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			remaining := time.Until(tokens.State().ExpiresAt)
			if remaining < 55*time.Minute || remaining > 61*time.Minute {
				t.Errorf("expected expiry about an hour out, got %v", remaining)
			}
		})

		t.Run("Refresh Rejected", func(t *testing.T) {
			tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error": "invalid_grant"}`))
			}))
			defer tokenServer.Close()

			tokens := NewTokenStore()
			tokens.Set(TokenState{RefreshToken: "revoked"})

			srv, _ := NewSpotifyService(testCredentials(), tokens)
			srv.tokenURL = tokenServer.URL

			_, err := srv.EnsureAccessToken(context.Background())
			if !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
		})

		t.Run("Notifies Token Change Callback", func(t *testing.T) {
			tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"access_token": "refreshed_token",
					"expires_in":   3600,
				})
			}))
			defer tokenServer.Close()

			tokens := NewTokenStore()
			tokens.Set(TokenState{RefreshToken: "refresh"})

			srv, _ := NewSpotifyService(testCredentials(), tokens)
			srv.tokenURL = tokenServer.URL

			var notified TokenState
			srv.SetTokenChangeCallback(func(state TokenState) {
				notified = state
			})

			if _, err := srv.EnsureAccessToken(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if notified.AccessToken != "refreshed_token" {
				t.Errorf("expected callback with new state, got %+v", notified)
			}
		})
	})

	t.Run("Call", func(t *testing.T) {
		connected := func() *TokenStore {
			tokens := NewTokenStore()
			tokens.Set(TokenState{
				AccessToken:  "valid_token",
				RefreshToken: "refresh",
				ExpiresAt:    time.Now().Add(time.Hour),
			})
			return tokens
		}

		t.Run("Attaches Bearer Token", func(t *testing.T) {
			apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer valid_token" {
					t.Errorf("expected bearer token, got %s", r.Header.Get("Authorization"))
				}
				json.NewEncoder(w).Encode(map[string]any{"is_playing": true})
			}))
			defer apiServer.Close()

			srv, _ := NewSpotifyService(testCredentials(), connected())
			srv.baseURL = apiServer.URL

			resp, err := srv.PlayerState(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !resp.Ok() {
				t.Errorf("expected success status, got %d", resp.StatusCode)
			}
		})

		t.Run("Normalizes 204 To Empty Object", func(t *testing.T) {
			apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))
			defer apiServer.Close()

			srv, _ := NewSpotifyService(testCredentials(), connected())
			srv.baseURL = apiServer.URL

			resp, err := srv.Pause(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if string(resp.Body) != "{}" {
				t.Errorf("expected body '{}', got %s", string(resp.Body))
			}
			if !resp.IsJSON {
				t.Error("expected normalized body to parse as JSON")
			}
		})

		t.Run("Relays Upstream Errors As Responses", func(t *testing.T) {
			apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error": {"status": 404, "message": "No active device"}}`))
			}))
			defer apiServer.Close()

			srv, _ := NewSpotifyService(testCredentials(), connected())
			srv.baseURL = apiServer.URL

			resp, err := srv.Play(context.Background(), "")
			if err != nil {
				t.Fatalf("expected no error for upstream 404, got %v", err)
			}
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("expected status 404, got %d", resp.StatusCode)
			}
			if !strings.Contains(string(resp.Body), "No active device") {
				t.Error("expected upstream body to be preserved")
			}
		})

		t.Run("Sends Device ID And Volume As Query", func(t *testing.T) {
			apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("volume_percent") != "42" {
					t.Errorf("expected volume_percent 42, got %s", r.URL.Query().Get("volume_percent"))
				}
				if r.URL.Query().Get("device_id") != "dev1" {
					t.Errorf("expected device_id dev1, got %s", r.URL.Query().Get("device_id"))
				}
				w.WriteHeader(http.StatusNoContent)
			}))
			defer apiServer.Close()

			srv, _ := NewSpotifyService(testCredentials(), connected())
			srv.baseURL = apiServer.URL

			if _, err := srv.SetVolume(context.Background(), "dev1", 42); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Times Out Against Stalled Upstream", func(t *testing.T) {
			apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			}))
			defer apiServer.Close()

			srv, _ := NewSpotifyService(testCredentials(), connected())
			srv.baseURL = apiServer.URL
			srv.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

			_, err := srv.PlayerState(context.Background())
			if !errors.Is(err, shared.ErrUpstreamTimeout) {
				t.Errorf("expected ErrUpstreamTimeout, got %v", err)
			}
		})
	})

	t.Run("Track Summary", func(t *testing.T) {
		track := SpotifyTrack{
			ID:   "track1",
			Name: "Song",
			URI:  "spotify:track:track1",
			Artists: []SpotifyArtist{
				{Name: "Artist A"},
				{Name: "Artist B"},
			},
			Album: SpotifyAlbum{Name: "Album"},
		}

		summary := track.Summary()
		if summary.ID != "track1" || summary.URI != "spotify:track:track1" {
			t.Errorf("unexpected identifiers: %+v", summary)
		}
		if len(summary.Artists) != 2 || summary.Artists[0] != "Artist A" {
			t.Errorf("unexpected artists: %v", summary.Artists)
		}
		if summary.Album != "Album" {
			t.Errorf("expected album 'Album', got %s", summary.Album)
		}
	})
}
