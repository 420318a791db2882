// Package auth implements the OAuth gateway: login-challenge issuance, the
// PKCE callback exchange, token refresh, and the session guard that gates
// every proxied Spotify call.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/PKCanCode/SoundM8/internal/session"
	"github.com/PKCanCode/SoundM8/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

// RefreshMargin is how long before expiry the guard refreshes a token. The
// margin absorbs clock skew and in-flight latency so a token never expires in
// the middle of an upstream request.
const RefreshMargin = 60 * time.Second

// Provider is the slice of the Spotify client the gateway needs. Implemented
// by [services.Client].
type Provider interface {
	AuthURL(state, verifier string) string
	ExchangeCode(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Gateway drives the per-login state machine over a [session.Store] and an
// OAuth [Provider].
type Gateway struct {
	store    session.Store
	provider Provider
	logger   *log.Logger
	now      func() time.Time
}

// NewGateway creates a gateway over the given store and provider.
func NewGateway(store session.Store, provider Provider, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Gateway{
		store:    store,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// IssueLoginChallenge generates a fresh state and PKCE verifier, stores the
// challenge with a 10 minute expiry, and returns the authorization URL for the
// browser to follow. The verifier never leaves the store.
func (g *Gateway) IssueLoginChallenge(ctx context.Context) (string, error) {
	state, err := session.NewState()
	if err != nil {
		return "", err
	}

	verifier := oauth2.GenerateVerifier()
	now := g.now()

	challenge := session.Challenge{
		CodeVerifier: verifier,
		CreatedAt:    now,
		ExpiresAt:    now.Add(session.ChallengeTTL),
	}
	if err := g.store.PutChallenge(ctx, state, challenge); err != nil {
		return "", fmt.Errorf("failed to store login challenge: %w", err)
	}

	g.logger.Debugf("issued login challenge for state %s", state)
	return g.provider.AuthURL(state, verifier), nil
}

// CompleteCallback finishes the authorization-code flow and returns a new
// session id.
//
// The challenge is consumed on lookup before the exchange runs, so a state is
// single-use even when the exchange then fails. Error precedence follows the
// callback contract: provider denial, then missing parameters, then
// unknown/expired state, then exchange failure.
func (g *Gateway) CompleteCallback(ctx context.Context, code, state, providerError string) (string, error) {
	if providerError != "" {
		return "", fmt.Errorf("%w: %s", shared.ErrProviderDenied, providerError)
	}
	if code == "" || state == "" {
		return "", shared.ErrMissingParams
	}

	challenge, err := g.store.TakeChallenge(ctx, state)
	if err != nil {
		return "", fmt.Errorf("%w: state %s", shared.ErrInvalidState, state)
	}

	token, err := g.provider.ExchangeCode(ctx, code, challenge.CodeVerifier)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrExchangeFailed, err)
	}

	id, err := session.NewID()
	if err != nil {
		return "", err
	}

	now := g.now()
	sess := session.Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		CreatedAt:    now,
		ExpiresAt:    token.Expiry,
	}
	if err := g.store.PutSession(ctx, id, sess); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	g.logger.Infof("authenticated new session %s", id)
	return id, nil
}

// Refresh redeems the session's refresh token and replaces the stored record.
//
// When Spotify omits a new refresh token the old one remains valid and is
// kept; the record is never nulled. Cleanup after a failed refresh is the
// caller's responsibility (see [Gateway.Guard]).
func (g *Gateway) Refresh(ctx context.Context, sessionID string) (string, error) {
	sess, err := g.store.GetSession(ctx, sessionID)
	if err != nil || sess.RefreshToken == "" {
		return "", shared.ErrNoRefreshToken
	}

	token, err := g.provider.RefreshToken(ctx, sess.RefreshToken)
	if err != nil {
		g.logger.Warnf("refresh failed for session %s: %v", sessionID, err)
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	updated := *sess
	updated.AccessToken = token.AccessToken
	updated.ExpiresAt = token.Expiry
	if token.RefreshToken != "" {
		updated.RefreshToken = token.RefreshToken
	}

	// Replace-on-write keeps the update atomic with respect to concurrent guards.
	if err := g.store.PutSession(ctx, sessionID, updated); err != nil {
		return "", fmt.Errorf("failed to store refreshed session: %w", err)
	}

	g.logger.Infof("refreshed token for session %s", sessionID)
	return token.AccessToken, nil
}

// Guard validates a session id and returns a live access token for it,
// refreshing first when expiry is within [RefreshMargin]. A failed refresh
// evicts the session so the client re-authenticates instead of spinning on a
// dead session.
func (g *Gateway) Guard(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", shared.ErrNoSession
	}

	sess, err := g.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", shared.ErrInvalidSession
	}

	if !g.now().Before(sess.ExpiresAt.Add(-RefreshMargin)) {
		token, err := g.Refresh(ctx, sessionID)
		if err != nil {
			_ = g.store.DeleteSession(ctx, sessionID)
			return "", fmt.Errorf("%w: session evicted", shared.ErrRefreshFailed)
		}
		return token, nil
	}

	return sess.AccessToken, nil
}

// Logout deletes the session. Unknown ids are not an error.
func (g *Gateway) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := g.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	g.logger.Infof("session %s logged out", sessionID)
	return nil
}
