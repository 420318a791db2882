// package session implements storage for login challenges and user sessions.
//
// Two record kinds live in the store, each in its own typed namespace so a
// state key and a session id can never collide or be confused for one another:
//
//   - [Challenge]: a transient PKCE record created at login start, keyed by the
//     OAuth state parameter. It is consumed exactly once on callback or evicted
//     after its window passes.
//   - [Session]: the record minted after a successful token exchange, keyed by
//     an opaque session id. The browser client only ever sees the id; Spotify's
//     real tokens never leave the server.
//
// Expired records are rejected on lookup and additionally evicted by a periodic
// sweep ([RunSweeper]); the sweep is memory hygiene, not a correctness mechanism.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by lookups when no live record exists for a key.
// Expired records are reported as absent.
var ErrNotFound = errors.New("session: not found")

// ChallengeTTL is the window within which an issued login challenge must be
// exchanged before it becomes unusable.
const ChallengeTTL = 10 * time.Minute

// Challenge is a transient PKCE record created at login start.
type Challenge struct {
	CodeVerifier string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Session holds the Spotify tokens for one authenticated user.
type Session struct {
	AccessToken  string
	RefreshToken string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Store defines how challenges and sessions are stored and retrieved.
//
// Implementations must be safe for concurrent use. Individual operations are
// atomic; no cross-operation ordering is guaranteed. Session updates are
// whole-record replacements via PutSession.
type Store interface {
	// PutChallenge inserts or overwrites the challenge stored under state.
	PutChallenge(ctx context.Context, state string, c Challenge) error

	// TakeChallenge returns the challenge stored under state and deletes it,
	// making every state single-use. Absent or expired states both return
	// [ErrNotFound].
	TakeChallenge(ctx context.Context, state string) (*Challenge, error)

	// PutSession inserts or overwrites the session stored under id.
	PutSession(ctx context.Context, id string, s Session) error

	// GetSession returns the session stored under id, or [ErrNotFound].
	GetSession(ctx context.Context, id string) (*Session, error)

	// DeleteSession removes the session stored under id. Idempotent.
	DeleteSession(ctx context.Context, id string) error

	// Sweep removes every record whose expiry precedes now and reports how
	// many were evicted.
	Sweep(ctx context.Context, now time.Time) (int, error)

	// ActiveSessions returns the number of stored sessions.
	ActiveSessions(ctx context.Context) (int, error)
}

// NewState generates a cryptographically random OAuth state parameter.
// 16 bytes = 128 bits of entropy, hex encoded.
func NewState() (string, error) {
	return randomHex(16)
}

// NewID generates a cryptographically secure session ID.
// 32 bytes = 256 bits of entropy, hex encoded.
func NewID() (string, error) {
	return randomHex(32)
}

func randomHex(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
