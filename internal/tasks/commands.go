package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Chaouesrex/spotify-gpt-bridge/internal/services"
	"github.com/Chaouesrex/spotify-gpt-bridge/internal/shared"
	"github.com/charmbracelet/log"
)

const (
	playlistPageSize = 50

	// defaultPlaylistDescription is used when playlist creation receives none.
	defaultPlaylistDescription = "Created by spotify-gpt-bridge"
)

// UpstreamError carries a non-success upstream status and body so the HTTP
// layer can relay them outward unchanged.
type UpstreamError struct {
	Status int
	Body   []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d", e.Status)
}

// upstreamErr converts a non-success response into an *UpstreamError.
func upstreamErr(resp *services.APIResponse) *UpstreamError {
	return &UpstreamError{Status: resp.StatusCode, Body: resp.Body}
}

// CreatePlaylistRequest is the input for CreatePlaylist.
type CreatePlaylistRequest struct {
	Name        string
	Description string
	Public      bool
}

// AddToPlaylistRequest is the input for AddToPlaylist. Either URI or Query
// must be set; CreateIfMissing defaults to true when nil.
type AddToPlaylistRequest struct {
	PlaylistName    string
	URI             string
	Query           string
	CreateIfMissing *bool
}

// AddToPlaylistResult reports what AddToPlaylist resolved and appended.
type AddToPlaylistResult struct {
	PlaylistID string
	Added      string
	Created    bool
}

// CommandEngine dispatches bridge commands against a [services.PlayerService].
type CommandEngine struct {
	spotify services.PlayerService
	logger  *log.Logger

	// userID caches the account id needed for playlist creation
	userMu sync.Mutex
	userID string
}

// NewCommandEngine creates an engine backed by the given player service.
func NewCommandEngine(spotify services.PlayerService, logger *log.Logger) *CommandEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CommandEngine{spotify: spotify, logger: logger}
}

// Play resumes playback, resolving (and if needed transferring to) a device first.
func (e *CommandEngine) Play(ctx context.Context) (*services.APIResponse, error) {
	deviceID, err := e.resolveDevice(ctx)
	if err != nil {
		return nil, err
	}
	return e.spotify.Play(ctx, deviceID)
}

// Pause pauses playback.
func (e *CommandEngine) Pause(ctx context.Context) (*services.APIResponse, error) {
	return e.spotify.Pause(ctx)
}

// Next skips to the next track.
func (e *CommandEngine) Next(ctx context.Context) (*services.APIResponse, error) {
	return e.spotify.Next(ctx)
}

// Previous skips to the previous track.
func (e *CommandEngine) Previous(ctx context.Context) (*services.APIResponse, error) {
	return e.spotify.Previous(ctx)
}

// Status retrieves the raw player state for passthrough.
func (e *CommandEngine) Status(ctx context.Context) (*services.APIResponse, error) {
	return e.spotify.PlayerState(ctx)
}

// Devices retrieves the raw device list for passthrough.
func (e *CommandEngine) Devices(ctx context.Context) (*services.APIResponse, error) {
	return e.spotify.Devices(ctx)
}

// Volume clamps the requested volume to [0, 100], resolves a device, and
// applies it.
func (e *CommandEngine) Volume(ctx context.Context, volume int) (*services.APIResponse, error) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	deviceID, err := e.resolveDevice(ctx)
	if err != nil {
		return nil, err
	}
	return e.spotify.SetVolume(ctx, deviceID, volume)
}

// Transfer moves playback to the named device.
func (e *CommandEngine) Transfer(ctx context.Context, deviceID string) (*services.APIResponse, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: deviceId is required", shared.ErrMissingInput)
	}
	return e.spotify.TransferPlayback(ctx, deviceID, true)
}

// Search finds the single best track match for a free-text query.
func (e *CommandEngine) Search(ctx context.Context, query string) (*services.TrackSummary, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: q is required", shared.ErrMissingInput)
	}

	resp, err := e.spotify.SearchTracks(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if !resp.Ok() {
		return nil, upstreamErr(resp)
	}

	var result services.SpotifySearchResult
	if err := resp.Decode(&result); err != nil {
		return nil, err
	}
	if len(result.Tracks.Items) == 0 {
		return nil, fmt.Errorf("%w: no match for %q", shared.ErrTrackNotFound, query)
	}

	summary := result.Tracks.Items[0].Summary()
	return &summary, nil
}

// CreatePlaylist creates a playlist for the connected account. Description
// defaults when absent; playlists are private unless requested public.
func (e *CommandEngine) CreatePlaylist(ctx context.Context, req CreatePlaylistRequest) (string, error) {
	if strings.TrimSpace(req.Name) == "" {
		return "", fmt.Errorf("%w: name is required", shared.ErrMissingInput)
	}

	description := req.Description
	if description == "" {
		description = defaultPlaylistDescription
	}

	userID, err := e.currentUserID(ctx)
	if err != nil {
		return "", err
	}

	resp, err := e.spotify.CreatePlaylist(ctx, userID, req.Name, description, req.Public)
	if err != nil {
		return "", err
	}
	if !resp.Ok() {
		return "", upstreamErr(resp)
	}

	var playlist services.SpotifySimplePlaylist
	if err := resp.Decode(&playlist); err != nil {
		return "", err
	}

	e.logger.Info("playlist created", "name", req.Name, "id", playlist.ID)
	return playlist.ID, nil
}

// AddToPlaylist resolves a track (direct URI or search query) and a playlist
// (case-insensitive exact name match, created when missing unless disabled),
// then appends the track.
func (e *CommandEngine) AddToPlaylist(ctx context.Context, req AddToPlaylistRequest) (*AddToPlaylistResult, error) {
	if strings.TrimSpace(req.PlaylistName) == "" {
		return nil, fmt.Errorf("%w: playlistName is required", shared.ErrMissingInput)
	}
	if req.URI == "" && strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: either uri or query is required", shared.ErrMissingInput)
	}

	uri := req.URI
	if uri == "" {
		track, err := e.Search(ctx, req.Query)
		if err != nil {
			return nil, err
		}
		uri = track.URI
	}

	playlistID, created, err := e.resolvePlaylist(ctx, req.PlaylistName, req.CreateIfMissing == nil || *req.CreateIfMissing)
	if err != nil {
		return nil, err
	}

	resp, err := e.spotify.AddToPlaylist(ctx, playlistID, []string{uri})
	if err != nil {
		return nil, err
	}
	if !resp.Ok() {
		return nil, upstreamErr(resp)
	}

	e.logger.Info("track added to playlist", "playlist", req.PlaylistName, "uri", uri)
	return &AddToPlaylistResult{PlaylistID: playlistID, Added: uri, Created: created}, nil
}

// resolveDevice returns the id of a device eligible to receive playback
// commands, transferring playback (paused) to an inactive device when no
// active one exists.
func (e *CommandEngine) resolveDevice(ctx context.Context) (string, error) {
	resp, err := e.spotify.PlayerState(ctx)
	if err != nil {
		return "", err
	}

	if resp.Ok() {
		var state services.SpotifyPlayerState
		if err := resp.Decode(&state); err == nil && state.Device.ID != "" {
			return state.Device.ID, nil
		}
	}

	resp, err = e.spotify.Devices(ctx)
	if err != nil {
		return "", err
	}
	if !resp.Ok() {
		return "", upstreamErr(resp)
	}

	var list services.SpotifyDeviceList
	if err := resp.Decode(&list); err != nil {
		return "", err
	}
	if len(list.Devices) == 0 {
		return "", shared.ErrNoDevice
	}

	for _, d := range list.Devices {
		if d.IsActive {
			return d.ID, nil
		}
	}

	// a device exists but none is active: wake it without starting playback
	device := list.Devices[0]
	e.logger.Info("transferring playback to inactive device", "device", device.Name)
	transferResp, err := e.spotify.TransferPlayback(ctx, device.ID, false)
	if err != nil {
		return "", err
	}
	if !transferResp.Ok() {
		return "", upstreamErr(transferResp)
	}

	return device.ID, nil
}

// resolvePlaylist finds a playlist by case-insensitive exact name, paging
// through the account's playlists until exhausted. Creates one when missing
// if createIfMissing is set.
func (e *CommandEngine) resolvePlaylist(ctx context.Context, name string, createIfMissing bool) (string, bool, error) {
	offset := 0
	for {
		resp, err := e.spotify.UserPlaylists(ctx, playlistPageSize, offset)
		if err != nil {
			return "", false, err
		}
		if !resp.Ok() {
			return "", false, upstreamErr(resp)
		}

		var page services.SpotifyPaginatedPlaylists
		if err := resp.Decode(&page); err != nil {
			return "", false, err
		}

		for _, p := range page.Items {
			if strings.EqualFold(p.Name, name) {
				return p.ID, false, nil
			}
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += playlistPageSize
	}

	if !createIfMissing {
		return "", false, fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, name)
	}

	id, err := e.CreatePlaylist(ctx, CreatePlaylistRequest{Name: name})
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// currentUserID fetches and caches the connected account's user id.
func (e *CommandEngine) currentUserID(ctx context.Context) (string, error) {
	e.userMu.Lock()
	defer e.userMu.Unlock()

	if e.userID != "" {
		return e.userID, nil
	}

	resp, err := e.spotify.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	if !resp.Ok() {
		return "", upstreamErr(resp)
	}

	var user services.SpotifyUser
	if err := resp.Decode(&user); err != nil {
		return "", err
	}
	if user.ID == "" {
		return "", fmt.Errorf("%w: empty user id in profile", shared.ErrAPIRequest)
	}

	e.userID = user.ID
	return e.userID, nil
}
