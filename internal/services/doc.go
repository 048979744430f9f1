// Package services contains the Spotify Web API client used by the bridge.
//
// [SpotifyService] owns the OAuth token lifecycle: the authorization-code
// exchange populates a [TokenStore], and every upstream call goes through
// EnsureAccessToken, which refreshes the access token when it is stale.
// Upstream responses are returned as [APIResponse] values with the raw
// status and body preserved, so callers can relay Spotify's own error
// payloads instead of swallowing them.
//
// [APIService] is the other side of the coin: a raw HTTP client for the
// bridge's own API, used by the CLI commands to drive a running bridge
// with the shared secret.
package services
