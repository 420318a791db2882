// Package services implements the Spotify Web API client used by the proxy.
//
// # Design
//
// The [Client] is stateless with respect to users: unlike a single-user CLI
// client holding one token, every API method takes the access token for the
// session making the request. Token custody stays with the session store; the
// client only ever sees the token for the duration of one call.
//
// # Request handling
//
// All calls flow through one request helper that waits on a shared
// [golang.org/x/time/rate.Limiter] (Spotify throttles bursts aggressively),
// applies a fixed HTTP timeout, and decodes JSON responses. Non-2xx responses
// surface as [*APIError] carrying the upstream status code so handlers can
// pass it through to the browser client unchanged.
//
// # Token operations
//
// The authorization-code exchange uses [golang.org/x/oauth2] with a PKCE
// verifier. The refresh grant is an explicit form POST instead, because the
// proxy must keep the previous refresh token when Spotify omits a new one, and
// that bookkeeping belongs here rather than inside an opaque token source.
//
// # Caching
//
// The available-genre-seeds list is global rather than per-user, so it is
// cached with a TTL and refetched only after expiry.
//
// Response types follow https://developer.spotify.com/documentation/web-api/reference/
package services
