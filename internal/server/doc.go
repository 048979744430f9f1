// Package server provides HTTP routing, middleware, and the bridge's
// request handlers.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Middleware
//
// Three middlewares ship with the bridge: [Logging] (request id, status,
// duration), [Guard] (shared-secret bearer comparison gating every command
// route), and [RateLimit] (a token-bucket over all guarded routes).
//
// # Handlers
//
// [OAuthHandler] serves the one-time authorization-code handshake on
// /login and /callback. [BridgeHandler] exposes the command dispatcher
// (play, pause, volume, search, playlist operations) and maps dispatcher
// outcomes to HTTP: business sentinels become the bridge's own status
// codes, and upstream errors are relayed with their original status and
// body.
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
