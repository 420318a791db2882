// Package server provides HTTP routing, middleware, and the REST surface of
// the playlist generator backend.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with
// method-qualified patterns and path wildcards.
//
// # Endpoint Surface
//
// Auth endpoints (open):
//
//	GET  /api/login    → authorization URL with a fresh state + PKCE challenge
//	GET  /api/callback → OAuth redirect target; mints a session, bounces to the client app
//	POST /api/logout   → deletes the caller's session (idempotent)
//	GET  /api/health   → status, active session count, credential flags
//
// Proxied endpoints (require a Bearer session id; the guard transparently
// refreshes the Spotify access token when expiry is near):
//
//	GET    /api/session                  → session metadata, no tokens
//	GET    /api/user                     → provider profile passthrough
//	GET    /api/user/top/artists         → top artists for seeding
//	GET    /api/user/playlists           → playlist page
//	GET    /api/search/artists           → artist search
//	POST   /api/recommendations          → seeded track recommendations
//	POST   /api/playlists                → create playlist
//	POST   /api/playlists/{id}/tracks    → add tracks
//	DELETE /api/playlists/{id}/tracks    → remove tracks
//	GET    /api/genres                   → available genre seeds
//
// # Error Shape
//
// Validation failures are rejected locally with 400 before any upstream call.
// Guard failures short-circuit with 401; a failed refresh also evicts the
// session. Upstream failures pass Spotify's status code through with a short
// JSON message; a generic 500 is used only when no upstream status exists.
// The callback is the exception: its failures redirect to the client
// application with an error query parameter instead of a JSON body.
package server
