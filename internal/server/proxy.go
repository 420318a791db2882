package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/PKCanCode/SoundM8/internal/services"
)

// defaultPlaylistDescription is used when a create-playlist request omits one.
const defaultPlaylistDescription = "Created with AI Playlist Generator"

// Profile proxies the provider profile object unchanged.
func (a *API) Profile(w http.ResponseWriter, r *http.Request) {
	token, _ := AccessTokenFromContext(r.Context())

	user, err := a.spotify.Profile(r.Context(), token)
	if err != nil {
		writeUpstreamError(w, a.logger, err, "Failed to get user profile")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// SearchArtists searches artists by name, reshaping results for the picker UI.
func (a *API) SearchArtists(w http.ResponseWriter, r *http.Request) {
	token, _ := AccessTokenFromContext(r.Context())

	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "Query parameter is required")
		return
	}
	limit := queryInt(r, "limit", 10)

	artists, err := a.spotify.SearchArtists(r.Context(), token, q, limit)
	if err != nil {
		writeUpstreamError(w, a.logger, err, "Failed to search artists")
		return
	}

	results := make([]map[string]any, 0, len(artists))
	for _, artist := range artists {
		results = append(results, map[string]any{
			"id":        artist.ID,
			"name":      artist.Name,
			"image":     services.SmallestImage(artist.Images),
			"followers": artist.Followers.Total,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"artists": results})
}

type recommendationsRequest struct {
	SeedGenres         []string `json:"seed_genres"`
	SeedArtists        []string `json:"seed_artists"`
	Limit              int      `json:"limit"`
	TargetDanceability *float64 `json:"target_danceability"`
	TargetEnergy       *float64 `json:"target_energy"`
	TargetValence      *float64 `json:"target_valence"`
}

// Recommendations validates seed counts locally, then proxies the
// recommendation request and reshapes the tracks for the builder UI.
func (a *API) Recommendations(w http.ResponseWriter, r *http.Request) {
	token, _ := AccessTokenFromContext(r.Context())

	var req recommendationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Spotify requires at least 1 seed and at most 5 total.
	totalSeeds := len(req.SeedGenres) + len(req.SeedArtists)
	if totalSeeds == 0 {
		writeError(w, http.StatusBadRequest, "At least one seed is required")
		return
	}
	if totalSeeds > 5 {
		writeError(w, http.StatusBadRequest, "Maximum 5 seeds allowed")
		return
	}

	for _, target := range []*float64{req.TargetDanceability, req.TargetEnergy, req.TargetValence} {
		if target != nil && (*target < 0 || *target > 1) {
			writeError(w, http.StatusBadRequest, "Target values must be between 0 and 1")
			return
		}
	}

	seeds := services.RecommendationSeeds{
		Genres:            truncateSeeds(req.SeedGenres),
		Artists:           truncateSeeds(req.SeedArtists),
		Limit:             req.Limit,
		TargetDanceabilty: req.TargetDanceability,
		TargetEnergy:      req.TargetEnergy,
		TargetValence:     req.TargetValence,
	}

	tracks, err := a.spotify.Recommendations(r.Context(), token, seeds)
	if err != nil {
		writeUpstreamError(w, a.logger, err, "Failed to get recommendations")
		return
	}

	results := make([]map[string]any, 0, len(tracks))
	for _, track := range tracks {
		artists := make([]map[string]string, 0, len(track.Artists))
		for _, artist := range track.Artists {
			artists = append(artists, map[string]string{"id": artist.ID, "name": artist.Name})
		}

		primary := "Unknown Artist"
		if len(track.Artists) > 0 {
			primary = track.Artists[0].Name
		}

		results = append(results, map[string]any{
			"id":      track.ID,
			"name":    track.Name,
			"artist":  primary,
			"artists": artists,
			"album": map[string]any{
				"name":  track.Album.Name,
				"image": services.LargestImage(track.Album.Images),
			},
			"uri":         track.URI,
			"preview_url": track.PreviewURL,
			"duration_ms": track.DurationMS,
			"popularity":  track.Popularity,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"tracks": results})
}

func truncateSeeds(seeds []string) []string {
	if len(seeds) > 5 {
		return seeds[:5]
	}
	return seeds
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// CreatePlaylist creates a playlist on the user's Spotify account.
func (a *API) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	token, _ := AccessTokenFromContext(r.Context())

	var req createPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Playlist name is required")
		return
	}

	description := req.Description
	if description == "" {
		description = defaultPlaylistDescription
	}

	playlist, err := a.spotify.CreatePlaylist(r.Context(), token, name, description, req.Public)
	if err != nil {
		writeUpstreamError(w, a.logger, err, "Failed to create playlist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"playlist": map[string]any{
			"id":            playlist.ID,
			"name":          playlist.Name,
			"description":   playlist.Description,
			"external_urls": playlist.ExternalURLs,
			"tracks":        playlist.Tracks,
		},
	})
}

type trackURIsRequest struct {
	URIs []string `json:"uris"`
}

// AddTracks appends tracks to a playlist. Entries that are not Spotify track
// URIs are dropped before forwarding; the call fails locally when none remain.
func (a *API) AddTracks(w http.ResponseWriter, r *http.Request) {
	token, _ := AccessTokenFromContext(r.Context())
	playlistID := r.PathValue("id")

	var req trackURIsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.URIs) == 0 {
		writeError(w, http.StatusBadRequest, "Track URIs are required")
		return
	}

	valid := services.FilterTrackURIs(req.URIs)
	if len(valid) == 0 {
		writeError(w, http.StatusBadRequest, "No valid Spotify track URIs provided")
		return
	}
	if len(valid) > 100 {
		valid = valid[:100]
	}

	snapshot, err := a.spotify.AddTracks(r.Context(), token, playlistID, valid)
	if err != nil {
		writeUpstreamError(w, a.logger, err, "Failed to add tracks to playlist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot_id":  snapshot,
		"added_tracks": len(valid),
	})
}

// RemoveTracks removes tracks from a playlist.
func (a *API) RemoveTracks(w http.ResponseWriter, r *http.Request) {
	token, _ := AccessTokenFromContext(r.Context())
	playlistID := r.PathValue("id")

	var req trackURIsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.URIs) == 0 {
		writeError(w, http.StatusBadRequest, "Track URIs are required")
		return
	}

	uris := req.URIs
	if len(uris) > 100 {
		uris = uris[:100]
	}

	snapshot, err := a.spotify.RemoveTracks(r.Context(), token, playlistID, uris)
	if err != nil {
		writeUpstreamError(w, a.logger, err, "Failed to remove tracks from playlist")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot_id":    snapshot,
		"removed_tracks": len(uris),
	})
}

// Genres returns the available genre seeds.
func (a *API) Genres(w http.ResponseWriter, r *http.Request) {
	token, _ := AccessTokenFromContext(r.Context())

	genres, err := a.spotify.Genres(r.Context(), token)
	if err != nil {
		writeUpstreamError(w, a.logger, err, "Failed to get available genres")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"genres": genres})
}

var validTimeRanges = map[string]bool{
	"short_term":  true,
	"medium_term": true,
	"long_term":   true,
}

// TopArtists returns the user's top artists for seeding recommendations.
func (a *API) TopArtists(w http.ResponseWriter, r *http.Request) {
	token, _ := AccessTokenFromContext(r.Context())

	timeRange := r.URL.Query().Get("time_range")
	if timeRange == "" {
		timeRange = "medium_term"
	}
	if !validTimeRanges[timeRange] {
		writeError(w, http.StatusBadRequest, "Invalid time_range parameter")
		return
	}
	limit := queryInt(r, "limit", 20)

	artists, err := a.spotify.TopArtists(r.Context(), token, limit, timeRange)
	if err != nil {
		writeUpstreamError(w, a.logger, err, "Failed to get top artists")
		return
	}

	results := make([]map[string]any, 0, len(artists))
	for _, artist := range artists {
		results = append(results, map[string]any{
			"id":         artist.ID,
			"name":       artist.Name,
			"image":      services.SmallestImage(artist.Images),
			"genres":     artist.Genres,
			"popularity": artist.Popularity,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"artists": results})
}

// UserPlaylists returns a page of the user's playlists.
func (a *API) UserPlaylists(w http.ResponseWriter, r *http.Request) {
	token, _ := AccessTokenFromContext(r.Context())

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	page, err := a.spotify.UserPlaylists(r.Context(), token, limit, offset)
	if err != nil {
		writeUpstreamError(w, a.logger, err, "Failed to get user playlists")
		return
	}

	playlists := make([]map[string]any, 0, len(page.Items))
	for _, playlist := range page.Items {
		playlists = append(playlists, map[string]any{
			"id":            playlist.ID,
			"name":          playlist.Name,
			"description":   playlist.Description,
			"tracks":        playlist.Tracks,
			"external_urls": playlist.ExternalURLs,
			"images":        playlist.Images,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"playlists": playlists,
		"total":     page.Total,
	})
}

// queryInt parses an integer query parameter, falling back on absence or junk.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
