// Spotify API response types, based on https://developer.spotify.com/documentation/web-api/reference/
package services

// Followers holds an artist's or user's follower count.
type Followers struct {
	Total int `json:"total"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// User represents a Spotify user profile.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Country     string    `json:"country"`
	Product     string    `json:"product"` // premium, free, etc.
	Followers   Followers `json:"followers"`
	Images      []Image   `json:"images"`
}

// Artist represents a Spotify artist.
type Artist struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Genres     []string  `json:"genres"`
	Images     []Image   `json:"images"`
	Followers  Followers `json:"followers"`
	Popularity int       `json:"popularity"`
	URI        string    `json:"uri"`
}

// Album represents a Spotify album.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
	URI    string  `json:"uri"`
}

// Track represents a Spotify track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMS int      `json:"duration_ms"`
	PreviewURL string   `json:"preview_url"`
	Popularity int      `json:"popularity"`
	URI        string   `json:"uri"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

// Playlist represents a Spotify playlist.
type Playlist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Public       bool              `json:"public"`
	ExternalURLs map[string]string `json:"external_urls"`
	Tracks       playlistTracks    `json:"tracks"`
	Images       []Image           `json:"images"`
	URI          string            `json:"uri"`
}

// PaginatedPlaylists represents a paginated page of the user's playlists.
type PaginatedPlaylists struct {
	Items  []Playlist `json:"items"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	Next   *string    `json:"next"`
}

// SmallestImage returns the URL of the last (smallest) image, or "" when none exist.
func SmallestImage(images []Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[len(images)-1].URL
}

// LargestImage returns the URL of the first (largest) image, or "" when none exist.
func LargestImage(images []Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
