package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication and token lifecycle errors
	ErrUnauthorized  = fmt.Errorf("unauthorized")
	ErrNotConnected  = fmt.Errorf("no Spotify account connected")
	ErrRefreshFailed = fmt.Errorf("token refresh failed")

	// Upstream and command errors
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrUpstreamTimeout  = fmt.Errorf("upstream request timed out")
	ErrNoDevice         = fmt.Errorf("no playback device available")
	ErrTrackNotFound    = fmt.Errorf("track not found")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")

	// Input validation errors
	ErrMissingInput    = fmt.Errorf("missing required input")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
