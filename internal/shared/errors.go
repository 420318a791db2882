package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// OAuth callback errors
	ErrProviderDenied = fmt.Errorf("authorization denied by provider")
	ErrMissingParams  = fmt.Errorf("missing callback parameters")
	ErrInvalidState   = fmt.Errorf("invalid or expired state")
	ErrExchangeFailed = fmt.Errorf("token exchange failed")

	// Session guard errors
	ErrNoSession      = fmt.Errorf("no session provided")
	ErrInvalidSession = fmt.Errorf("invalid session")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")

	// API and service errors
	ErrAPIRequest = fmt.Errorf("API request failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
