// Package tasks implements the bridge's command dispatcher.
//
// The core abstraction is [CommandEngine], which translates simple commands
// (play, pause, volume, search, playlist add) into one or more Spotify Web
// API calls and maps the results back.
//
// # Error model
//
// Each operation resolves to exactly one of three shapes:
//
//  1. A successful [services.APIResponse] (or a typed value parsed from one)
//  2. An [UpstreamError] carrying a non-success upstream status and body,
//     relayed outward unchanged
//  3. A business sentinel from internal/shared (ErrNoDevice,
//     ErrTrackNotFound, ErrPlaylistNotFound, ErrMissingInput, ...)
//
// The HTTP layer maps shape 2 to a verbatim passthrough and shape 3 to the
// bridge's own status codes, so the mapping is exhaustive without string
// matching on messages.
//
// # Device resolution
//
// play and volume need an eligible playback device. The engine uses the
// player state's device when one is reported, otherwise falls back to the
// device list: no devices at all is ErrNoDevice, and an existing but
// inactive device receives a paused transfer before the original command.
package tasks
