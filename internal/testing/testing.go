// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Chaouesrex/spotify-gpt-bridge/internal/services"
)

// JSONResponse builds an [services.APIResponse] for stubbed upstream calls.
func JSONResponse(status int, v any) *services.APIResponse {
	body, _ := json.Marshal(v)
	return &services.APIResponse{
		StatusCode: status,
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		Body:       body,
		IsJSON:     true,
		JSONData:   v,
	}
}

// NoContent builds the normalized shape of an upstream 204.
func NoContent() *services.APIResponse {
	return &services.APIResponse{
		StatusCode: http.StatusNoContent,
		Body:       []byte("{}"),
		IsJSON:     true,
	}
}

// MockPlayer is a test double for [services.PlayerService]. Unset function
// fields answer with an empty 200; Calls records invocation order.
type MockPlayer struct {
	PlayerStateFn      func(ctx context.Context) (*services.APIResponse, error)
	DevicesFn          func(ctx context.Context) (*services.APIResponse, error)
	PlayFn             func(ctx context.Context, deviceID string) (*services.APIResponse, error)
	PauseFn            func(ctx context.Context) (*services.APIResponse, error)
	NextFn             func(ctx context.Context) (*services.APIResponse, error)
	PreviousFn         func(ctx context.Context) (*services.APIResponse, error)
	SetVolumeFn        func(ctx context.Context, deviceID string, volume int) (*services.APIResponse, error)
	TransferPlaybackFn func(ctx context.Context, deviceID string, play bool) (*services.APIResponse, error)
	SearchTracksFn     func(ctx context.Context, query string, limit int) (*services.APIResponse, error)
	CurrentUserFn      func(ctx context.Context) (*services.APIResponse, error)
	CreatePlaylistFn   func(ctx context.Context, userID, name, description string, public bool) (*services.APIResponse, error)
	UserPlaylistsFn    func(ctx context.Context, limit, offset int) (*services.APIResponse, error)
	AddToPlaylistFn    func(ctx context.Context, playlistID string, uris []string) (*services.APIResponse, error)

	Calls []string
}

func (m *MockPlayer) record(name string) {
	m.Calls = append(m.Calls, name)
}

func (m *MockPlayer) PlayerState(ctx context.Context) (*services.APIResponse, error) {
	m.record("PlayerState")
	if m.PlayerStateFn != nil {
		return m.PlayerStateFn(ctx)
	}
	return JSONResponse(http.StatusOK, map[string]any{}), nil
}

func (m *MockPlayer) Devices(ctx context.Context) (*services.APIResponse, error) {
	m.record("Devices")
	if m.DevicesFn != nil {
		return m.DevicesFn(ctx)
	}
	return JSONResponse(http.StatusOK, map[string]any{"devices": []any{}}), nil
}

func (m *MockPlayer) Play(ctx context.Context, deviceID string) (*services.APIResponse, error) {
	m.record("Play")
	if m.PlayFn != nil {
		return m.PlayFn(ctx, deviceID)
	}
	return NoContent(), nil
}

func (m *MockPlayer) Pause(ctx context.Context) (*services.APIResponse, error) {
	m.record("Pause")
	if m.PauseFn != nil {
		return m.PauseFn(ctx)
	}
	return NoContent(), nil
}

func (m *MockPlayer) Next(ctx context.Context) (*services.APIResponse, error) {
	m.record("Next")
	if m.NextFn != nil {
		return m.NextFn(ctx)
	}
	return NoContent(), nil
}

func (m *MockPlayer) Previous(ctx context.Context) (*services.APIResponse, error) {
	m.record("Previous")
	if m.PreviousFn != nil {
		return m.PreviousFn(ctx)
	}
	return NoContent(), nil
}

func (m *MockPlayer) SetVolume(ctx context.Context, deviceID string, volume int) (*services.APIResponse, error) {
	m.record("SetVolume")
	if m.SetVolumeFn != nil {
		return m.SetVolumeFn(ctx, deviceID, volume)
	}
	return NoContent(), nil
}

func (m *MockPlayer) TransferPlayback(ctx context.Context, deviceID string, play bool) (*services.APIResponse, error) {
	m.record("TransferPlayback")
	if m.TransferPlaybackFn != nil {
		return m.TransferPlaybackFn(ctx, deviceID, play)
	}
	return NoContent(), nil
}

func (m *MockPlayer) SearchTracks(ctx context.Context, query string, limit int) (*services.APIResponse, error) {
	m.record("SearchTracks")
	if m.SearchTracksFn != nil {
		return m.SearchTracksFn(ctx, query, limit)
	}
	return JSONResponse(http.StatusOK, map[string]any{"tracks": map[string]any{"items": []any{}}}), nil
}

func (m *MockPlayer) CurrentUser(ctx context.Context) (*services.APIResponse, error) {
	m.record("CurrentUser")
	if m.CurrentUserFn != nil {
		return m.CurrentUserFn(ctx)
	}
	return JSONResponse(http.StatusOK, map[string]any{"id": "mockuser"}), nil
}

func (m *MockPlayer) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*services.APIResponse, error) {
	m.record("CreatePlaylist")
	if m.CreatePlaylistFn != nil {
		return m.CreatePlaylistFn(ctx, userID, name, description, public)
	}
	return JSONResponse(http.StatusCreated, map[string]any{"id": "mockplaylist"}), nil
}

func (m *MockPlayer) UserPlaylists(ctx context.Context, limit, offset int) (*services.APIResponse, error) {
	m.record("UserPlaylists")
	if m.UserPlaylistsFn != nil {
		return m.UserPlaylistsFn(ctx, limit, offset)
	}
	return JSONResponse(http.StatusOK, map[string]any{"items": []any{}, "next": nil}), nil
}

func (m *MockPlayer) AddToPlaylist(ctx context.Context, playlistID string, uris []string) (*services.APIResponse, error) {
	m.record("AddToPlaylist")
	if m.AddToPlaylistFn != nil {
		return m.AddToPlaylistFn(ctx, playlistID, uris)
	}
	return JSONResponse(http.StatusCreated, map[string]any{"snapshot_id": "mock"}), nil
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	MaxWrites int
	written   int
	Target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.MaxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.Target.Write(p)
}
