package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Chaouesrex/spotify-gpt-bridge/internal/shared"
	"github.com/charmbracelet/log"
)

// Authenticator is the slice of the Spotify service the handshake needs.
type Authenticator interface {
	// GetAuthURL returns the provider authorization URL for user login.
	GetAuthURL(state string) string

	// Exchange trades an authorization code for tokens and stores them.
	Exchange(ctx context.Context, code string) error
}

// OAuthHandler serves the one-time authorization-code handshake.
//
// GET /login redirects to the provider's authorization URL; GET /callback
// exchanges the code and populates the token store. No state parameter is
// used: the bridge serves a single operator on a private deployment.
type OAuthHandler struct {
	auth   Authenticator
	logger *log.Logger
}

// NewOAuthHandler creates an OAuth handler backed by the given authenticator.
func NewOAuthHandler(auth Authenticator, logger *log.Logger) *OAuthHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &OAuthHandler{auth: auth, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/login", "/callback"}
}

// ServeHTTP dispatches between the login redirect and the callback exchange.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login":
		h.login(w, r)
	case "/callback":
		h.callback(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *OAuthHandler) login(w http.ResponseWriter, r *http.Request) {
	authURL := h.auth.GetAuthURL("")
	h.logger.Info("redirecting to provider authorization URL")
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		h.logger.Error("authorization failed", "error", errParam, "description", errDesc)
		http.Error(w, fmt.Sprintf("Authorization failed: %s", errParam), http.StatusBadRequest)
		return
	}

	if err := h.auth.Exchange(r.Context(), code); err != nil {
		h.logger.Error("token exchange failed", "error", err)
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("account connected")

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Spotify Connected</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>&#10003; Spotify Connected</h1>
        <p>The bridge can now control playback. You can close this window.</p>
    </div>
</body>
</html>
`)
}
