package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PKCanCode/SoundM8/internal/shared"
	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// TrackURIPrefix is the prefix every forwardable track URI must carry.
	TrackURIPrefix = "spotify:track:"

	requestTimeout = 10 * time.Second
	genreCacheKey  = "genre-seeds"
	genreCacheTTL  = time.Hour
)

// APIError is a non-2xx response from the Spotify Web API. The status code is
// preserved so proxied endpoints can pass it through to their own caller.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error: status %d", e.Status)
}

// Client talks to the Spotify Web API on behalf of many sessions. Access
// tokens are supplied per call; the client holds no per-user state.
type Client struct {
	config     *oauth2.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	genres     *cache.Cache
	baseURL    string
}

// NewClient creates a Spotify client from the given credentials.
func NewClient(creds shared.SpotifyConfig) (*Client, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:5000/api/callback"
	}

	authURL, tokenURL := spotifyAuthURL, spotifyTokenURL
	if creds.AccountsBaseURL != "" {
		authURL = creds.AccountsBaseURL + "/authorize"
		tokenURL = creds.AccountsBaseURL + "/api/token"
	}
	baseURL := creds.APIBaseURL
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-email",
			"user-read-private",
			"playlist-modify-public",
			"playlist-modify-private",
			"user-top-read",
			"user-read-recently-played",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(10), 10),
		genres:     cache.New(genreCacheTTL, genreCacheTTL),
		baseURL:    baseURL,
	}, nil
}

// RedirectURI returns the configured OAuth redirect URI.
func (c *Client) RedirectURI() string {
	return c.config.RedirectURL
}

// AuthURL returns the authorization URL for user login, binding the flow to the
// given state and PKCE verifier with an S256 challenge.
func (c *Client) AuthURL(state, verifier string) string {
	return c.config.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("show_dialog", "true"),
	)
}

// ExchangeCode exchanges an authorization code plus its PKCE verifier for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// RefreshToken redeems a refresh token for a new access token.
//
// The returned token's RefreshToken is empty when Spotify does not rotate it;
// callers must keep the old one in that case rather than storing the empty
// value (observed provider behavior, not documented).
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		TokenType    string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}

	return &oauth2.Token{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    payload.TokenType,
		Expiry:       time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}

// doRequest performs a rate-limited, authenticated request against the Spotify
// Web API and decodes the JSON response into result when result is non-nil.
func (c *Client) doRequest(ctx context.Context, accessToken, method, endpoint string, body any, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Profile retrieves the authenticated user's profile.
func (c *Client) Profile(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.doRequest(ctx, accessToken, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchArtists searches artists matching q. Limit is capped at 50.
func (c *Client) SearchArtists(ctx context.Context, accessToken, q string, limit int) ([]Artist, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	params := url.Values{
		"q":     {q},
		"type":  {"artist"},
		"limit": {strconv.Itoa(limit)},
	}

	var response struct {
		Artists struct {
			Items []Artist `json:"items"`
		} `json:"artists"`
	}
	if err := c.doRequest(ctx, accessToken, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}
	return response.Artists.Items, nil
}

// RecommendationSeeds parameterizes a recommendation request. Seed slices are
// forwarded as given; callers enforce the combined 1-5 seed rule first.
type RecommendationSeeds struct {
	Genres            []string
	Artists           []string
	Limit             int
	TargetDanceabilty *float64
	TargetEnergy      *float64
	TargetValence     *float64
}

// Recommendations retrieves track recommendations for the given seeds.
func (c *Client) Recommendations(ctx context.Context, accessToken string, seeds RecommendationSeeds) ([]Track, error) {
	limit := seeds.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	params := url.Values{"limit": {strconv.Itoa(limit)}}
	if len(seeds.Genres) > 0 {
		params.Set("seed_genres", strings.Join(seeds.Genres, ","))
	}
	if len(seeds.Artists) > 0 {
		params.Set("seed_artists", strings.Join(seeds.Artists, ","))
	}
	if seeds.TargetDanceabilty != nil {
		params.Set("target_danceability", formatFloat(*seeds.TargetDanceabilty))
	}
	if seeds.TargetEnergy != nil {
		params.Set("target_energy", formatFloat(*seeds.TargetEnergy))
	}
	if seeds.TargetValence != nil {
		params.Set("target_valence", formatFloat(*seeds.TargetValence))
	}

	var response struct {
		Tracks []Track `json:"tracks"`
	}
	if err := c.doRequest(ctx, accessToken, http.MethodGet, "/recommendations?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}
	return response.Tracks, nil
}

// CreatePlaylist creates a playlist on the authenticated user's account. The
// owning user id comes from a profile fetch, so this costs two upstream calls.
func (c *Client) CreatePlaylist(ctx context.Context, accessToken, name, description string, public bool) (*Playlist, error) {
	user, err := c.Profile(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var playlist Playlist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(user.ID))
	if err := c.doRequest(ctx, accessToken, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// AddTracks appends up to 100 track URIs to a playlist and returns the new snapshot id.
func (c *Client) AddTracks(ctx context.Context, accessToken, playlistID string, uris []string) (string, error) {
	if len(uris) > 100 {
		uris = uris[:100]
	}

	var response struct {
		SnapshotID string `json:"snapshot_id"`
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := c.doRequest(ctx, accessToken, http.MethodPost, endpoint, map[string]any{"uris": uris}, &response); err != nil {
		return "", err
	}
	return response.SnapshotID, nil
}

// RemoveTracks removes up to 100 track URIs from a playlist and returns the new snapshot id.
func (c *Client) RemoveTracks(ctx context.Context, accessToken, playlistID string, uris []string) (string, error) {
	if len(uris) > 100 {
		uris = uris[:100]
	}

	tracks := make([]map[string]string, 0, len(uris))
	for _, uri := range uris {
		tracks = append(tracks, map[string]string{"uri": uri})
	}

	var response struct {
		SnapshotID string `json:"snapshot_id"`
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := c.doRequest(ctx, accessToken, http.MethodDelete, endpoint, map[string]any{"tracks": tracks}, &response); err != nil {
		return "", err
	}
	return response.SnapshotID, nil
}

// Genres retrieves the available genre seeds, cached for an hour since the
// list is global rather than per-user.
func (c *Client) Genres(ctx context.Context, accessToken string) ([]string, error) {
	if cached, ok := c.genres.Get(genreCacheKey); ok {
		return cached.([]string), nil
	}

	var response struct {
		Genres []string `json:"genres"`
	}
	if err := c.doRequest(ctx, accessToken, http.MethodGet, "/recommendations/available-genre-seeds", nil, &response); err != nil {
		return nil, err
	}

	c.genres.Set(genreCacheKey, response.Genres, cache.DefaultExpiration)
	return response.Genres, nil
}

// TopArtists retrieves the user's top artists over the given time range.
func (c *Client) TopArtists(ctx context.Context, accessToken string, limit int, timeRange string) ([]Artist, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	params := url.Values{
		"limit":      {strconv.Itoa(limit)},
		"time_range": {timeRange},
	}

	var response struct {
		Items []Artist `json:"items"`
	}
	if err := c.doRequest(ctx, accessToken, http.MethodGet, "/me/top/artists?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}

// UserPlaylists retrieves a page of the user's playlists.
func (c *Client) UserPlaylists(ctx context.Context, accessToken string, limit, offset int) (*PaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	params := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}

	var response PaginatedPlaylists
	if err := c.doRequest(ctx, accessToken, http.MethodGet, "/me/playlists?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// FilterTrackURIs returns the entries that are plausible Spotify track URIs.
func FilterTrackURIs(uris []string) []string {
	var valid []string
	for _, uri := range uris {
		if strings.HasPrefix(uri, TrackURIPrefix) && len(uri) > len(TrackURIPrefix) {
			valid = append(valid, uri)
		}
	}
	return valid
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
