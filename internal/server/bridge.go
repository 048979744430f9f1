package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Chaouesrex/spotify-gpt-bridge/internal/services"
	"github.com/Chaouesrex/spotify-gpt-bridge/internal/shared"
	"github.com/Chaouesrex/spotify-gpt-bridge/internal/tasks"
	"github.com/charmbracelet/log"
)

// BridgeHandler exposes the command dispatcher over HTTP.
//
// Every route registered through [BridgeHandler.Register] is wrapped by the
// supplied guard middleware; /health stays open so operators can probe the
// process without the secret.
type BridgeHandler struct {
	engine *tasks.CommandEngine
	tokens *services.TokenStore
	logger *log.Logger
}

// NewBridgeHandler creates the handler for the bridge's command routes.
func NewBridgeHandler(engine *tasks.CommandEngine, tokens *services.TokenStore, logger *log.Logger) *BridgeHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &BridgeHandler{engine: engine, tokens: tokens, logger: logger}
}

// Register wires the command routes into the router, guarding each one.
func (h *BridgeHandler) Register(r Router, guard Middleware) {
	post := func(path string, fn http.HandlerFunc) {
		r.Handle(http.MethodPost, path, guard(fn))
	}
	get := func(path string, fn http.HandlerFunc) {
		r.Handle(http.MethodGet, path, guard(fn))
	}

	post("/play", h.Play)
	post("/pause", h.Pause)
	post("/next", h.Next)
	post("/previous", h.Previous)
	post("/volume", h.Volume)
	post("/transfer", h.Transfer)
	post("/playlist", h.CreatePlaylist)
	post("/playlist/add", h.AddToPlaylist)
	get("/status", h.Status)
	get("/devices", h.Devices)
	get("/search", h.Search)

	r.Handle(http.MethodGet, "/health", http.HandlerFunc(h.Health))
}

// Play handles POST /play.
func (h *BridgeHandler) Play(w http.ResponseWriter, r *http.Request) {
	resp, err := h.engine.Play(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, resp)
}

// Pause handles POST /pause.
func (h *BridgeHandler) Pause(w http.ResponseWriter, r *http.Request) {
	resp, err := h.engine.Pause(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, resp)
}

// Next handles POST /next.
func (h *BridgeHandler) Next(w http.ResponseWriter, r *http.Request) {
	resp, err := h.engine.Next(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, resp)
}

// Previous handles POST /previous.
func (h *BridgeHandler) Previous(w http.ResponseWriter, r *http.Request) {
	resp, err := h.engine.Previous(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, resp)
}

// Status handles GET /status, relaying the raw player state.
func (h *BridgeHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp, err := h.engine.Status(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	relay(w, resp)
}

// Devices handles GET /devices, relaying the raw device list.
func (h *BridgeHandler) Devices(w http.ResponseWriter, r *http.Request) {
	resp, err := h.engine.Devices(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	relay(w, resp)
}

// Volume handles POST /volume.
func (h *BridgeHandler) Volume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Volume *int `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Volume == nil {
		writeError(w, http.StatusBadRequest, shared.ErrMissingInput)
		return
	}

	resp, err := h.engine.Volume(r.Context(), *body.Volume)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, resp)
}

// Transfer handles POST /transfer.
func (h *BridgeHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeviceID string `json:"deviceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, shared.ErrMissingInput)
		return
	}

	resp, err := h.engine.Transfer(r.Context(), body.DeviceID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, resp)
}

// Search handles GET /search?q=...
func (h *BridgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	track, err := h.engine.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// CreatePlaylist handles POST /playlist.
func (h *BridgeHandler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Public      bool   `json:"public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, shared.ErrMissingInput)
		return
	}

	playlistID, err := h.engine.CreatePlaylist(r.Context(), tasks.CreatePlaylistRequest{
		Name:        body.Name,
		Description: body.Description,
		Public:      body.Public,
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "playlistId": playlistID})
}

// AddToPlaylist handles POST /playlist/add.
func (h *BridgeHandler) AddToPlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlaylistName    string `json:"playlistName"`
		Query           string `json:"query"`
		URI             string `json:"uri"`
		CreateIfMissing *bool  `json:"createIfMissing"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, shared.ErrMissingInput)
		return
	}

	result, err := h.engine.AddToPlaylist(r.Context(), tasks.AddToPlaylistRequest{
		PlaylistName:    body.PlaylistName,
		Query:           body.Query,
		URI:             body.URI,
		CreateIfMissing: body.CreateIfMissing,
	})
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"playlistId": result.PlaylistID,
		"added":      result.Added,
	})
}

// Health handles GET /health. Unguarded; reports only liveness and whether
// an account is connected.
func (h *BridgeHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"connected": h.tokens.Connected(),
	})
}

// ok maps a control-call response outward: success statuses collapse to
// {ok:true}, anything else is relayed verbatim.
func (h *BridgeHandler) ok(w http.ResponseWriter, resp *services.APIResponse) {
	if resp.StatusCode < 400 {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	relay(w, resp)
}

// fail maps dispatcher errors to HTTP. Upstream errors are relayed with
// their original status and body; business sentinels get the bridge's own
// codes; everything else is a 500.
func (h *BridgeHandler) fail(w http.ResponseWriter, err error) {
	var upstream *tasks.UpstreamError
	if errors.As(err, &upstream) {
		relayStatus(w, upstream.Status, upstream.Body)
		return
	}

	switch {
	case errors.Is(err, shared.ErrMissingInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, shared.ErrNoDevice):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, shared.ErrTrackNotFound), errors.Is(err, shared.ErrPlaylistNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, shared.ErrNotConnected):
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "no Spotify account connected: complete the OAuth flow via /login",
		})
	case errors.Is(err, shared.ErrRefreshFailed):
		writeError(w, http.StatusBadGateway, err)
	case errors.Is(err, shared.ErrUpstreamTimeout):
		writeError(w, http.StatusGatewayTimeout, err)
	default:
		h.logger.Error("command failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}
