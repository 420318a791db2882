package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/PKCanCode/SoundM8/internal/auth"
	"github.com/PKCanCode/SoundM8/internal/services"
	"github.com/PKCanCode/SoundM8/internal/session"
	"github.com/PKCanCode/SoundM8/internal/shared"
	"github.com/charmbracelet/log"
)

// API bundles the dependencies shared by every endpoint handler.
type API struct {
	config  *shared.Config
	gateway *auth.Gateway
	store   session.Store
	spotify *services.Client
	logger  *log.Logger
}

// NewAPI creates the handler set for the backend's HTTP surface.
func NewAPI(config *shared.Config, gateway *auth.Gateway, store session.Store, spotify *services.Client, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &API{
		config:  config,
		gateway: gateway,
		store:   store,
		spotify: spotify,
		logger:  logger,
	}
}

// Register mounts every route on the router. Proxied endpoints are wrapped
// with the session guard; auth endpoints are open.
func (a *API) Register(r *BasicRouter) {
	guarded := RequireSession(a.gateway)

	r.Handle(http.MethodGet, "/api/login", http.HandlerFunc(a.Login))
	r.Handle(http.MethodGet, "/api/callback", http.HandlerFunc(a.Callback))
	r.Handle(http.MethodPost, "/api/logout", http.HandlerFunc(a.Logout))
	r.Handle(http.MethodGet, "/api/health", http.HandlerFunc(a.Health))

	r.Handle(http.MethodGet, "/api/session", guarded(http.HandlerFunc(a.SessionInfo)))
	r.Handle(http.MethodGet, "/api/user", guarded(http.HandlerFunc(a.Profile)))
	r.Handle(http.MethodGet, "/api/user/top/artists", guarded(http.HandlerFunc(a.TopArtists)))
	r.Handle(http.MethodGet, "/api/user/playlists", guarded(http.HandlerFunc(a.UserPlaylists)))
	r.Handle(http.MethodGet, "/api/search/artists", guarded(http.HandlerFunc(a.SearchArtists)))
	r.Handle(http.MethodPost, "/api/recommendations", guarded(http.HandlerFunc(a.Recommendations)))
	r.Handle(http.MethodPost, "/api/playlists", guarded(http.HandlerFunc(a.CreatePlaylist)))
	r.Handle(http.MethodPost, "/api/playlists/{id}/tracks", guarded(http.HandlerFunc(a.AddTracks)))
	r.Handle(http.MethodDelete, "/api/playlists/{id}/tracks", guarded(http.HandlerFunc(a.RemoveTracks)))
	r.Handle(http.MethodGet, "/api/genres", guarded(http.HandlerFunc(a.Genres)))

	r.NotFound(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	}))
}

// Login generates a fresh authorization URL for the browser to follow.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	authURL, err := a.gateway.IssueLoginChallenge(r.Context())
	if err != nil {
		a.logger.Errorf("failed to issue login challenge: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate authorization URL")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"authUrl": authURL})
}

// Callback handles the OAuth redirect from Spotify. Success and failure both
// redirect back to the client application; failures carry an error query
// parameter naming the kind so the UI can render a message.
func (a *API) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	providerError := query.Get("error")

	sessionID, err := a.gateway.CompleteCallback(r.Context(), code, state, providerError)
	if err != nil {
		a.logger.Warnf("callback failed: %v", err)
		a.redirectClient(w, r, "?error="+callbackErrorKind(err, providerError))
		return
	}

	a.redirectClient(w, r, "?session="+sessionID+"&success=true")
}

// callbackErrorKind maps a callback failure to the error kind placed in the
// client redirect. A provider denial passes Spotify's own error value through
// verbatim (e.g. access_denied).
func callbackErrorKind(err error, providerError string) string {
	switch {
	case errors.Is(err, shared.ErrProviderDenied):
		return providerError
	case errors.Is(err, shared.ErrMissingParams):
		return "missing_parameters"
	case errors.Is(err, shared.ErrInvalidState):
		return "invalid_state"
	default:
		return "auth_failed"
	}
}

func (a *API) redirectClient(w http.ResponseWriter, r *http.Request, suffix string) {
	http.Redirect(w, r, a.config.Server.ClientURL+suffix, http.StatusFound)
}

// Logout deletes the caller's session. Idempotent; always responds 200.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.gateway.Logout(r.Context(), BearerSessionID(r)); err != nil {
		a.logger.Warnf("logout failed: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Health reports service status, the active session count, and which
// credentials are configured.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	active, err := a.store.ActiveSessions(r.Context())
	if err != nil {
		a.logger.Warnf("failed to count sessions: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "OK",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"activeSessions": active,
		"spotify": map[string]string{
			"clientId":     configuredFlag(a.config.Spotify.ClientID),
			"clientSecret": configuredFlag(a.config.Spotify.ClientSecret),
			"redirectUri":  a.spotify.RedirectURI(),
		},
	})
}

func configuredFlag(value string) string {
	if value == "" {
		return "Missing"
	}
	return "Configured"
}

// SessionInfo describes the caller's session without exposing its tokens.
func (a *API) SessionInfo(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := SessionIDFromContext(r.Context())

	sess, err := a.store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId":       sessionID,
		"expiresAt":       sess.ExpiresAt.UTC().Format(time.RFC3339),
		"timeUntilExpiry": int(time.Until(sess.ExpiresAt).Seconds()),
		"hasRefreshToken": sess.RefreshToken != "",
	})
}
