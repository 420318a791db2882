package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PKCanCode/SoundM8/internal/shared"
)

func testCreds(apiBase, accountsBase string) shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:        "test_client_id",
		ClientSecret:    "test_client_secret",
		RedirectURI:     "http://localhost:5000/api/callback",
		APIBaseURL:      apiBase,
		AccountsBaseURL: accountsBase,
	}
}

func TestNewClient(t *testing.T) {
	t.Run("WithValidCredentials", func(t *testing.T) {
		client, err := NewClient(testCreds("", ""))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client == nil {
			t.Fatal("expected client to be created")
		}
		if client.RedirectURI() != "http://localhost:5000/api/callback" {
			t.Errorf("unexpected redirect URI %s", client.RedirectURI())
		}
	})

	t.Run("MissingClientID", func(t *testing.T) {
		creds := testCreds("", "")
		creds.ClientID = ""
		if _, err := NewClient(creds); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("MissingClientSecret", func(t *testing.T) {
		creds := testCreds("", "")
		creds.ClientSecret = ""
		if _, err := NewClient(creds); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("DefaultRedirectURI", func(t *testing.T) {
		creds := testCreds("", "")
		creds.RedirectURI = ""
		client, err := NewClient(creds)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if client.RedirectURI() == "" {
			t.Error("expected a default redirect URI")
		}
	})
}

func TestAuthURL(t *testing.T) {
	client, err := NewClient(testCreds("", ""))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	authURL := client.AuthURL("test_state", "test_verifier_test_verifier_test_verifier_1")

	for _, want := range []string{
		"accounts.spotify.com",
		"test_client_id",
		"state=test_state",
		"code_challenge=",
		"code_challenge_method=S256",
		"show_dialog=true",
		"playlist-modify-private",
	} {
		if !strings.Contains(authURL, want) {
			t.Errorf("auth URL should contain %q, got %s", want, authURL)
		}
	}

	if strings.Contains(authURL, "test_verifier") {
		t.Error("auth URL must not leak the raw verifier")
	}
}

func TestExchangeCode(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var gotVerifier string
		accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/token" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			_ = r.ParseForm()
			gotVerifier = r.FormValue("code_verifier")

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "new_access",
				"refresh_token": "new_refresh",
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
		}))
		defer accounts.Close()

		client, _ := NewClient(testCreds("", accounts.URL))
		token, err := client.ExchangeCode(context.Background(), "the-code", "the-verifier")
		if err != nil {
			t.Fatalf("exchange failed: %v", err)
		}
		if token.AccessToken != "new_access" || token.RefreshToken != "new_refresh" {
			t.Errorf("unexpected token: %+v", token)
		}
		if token.Expiry.IsZero() {
			t.Error("expected a computed expiry")
		}
		if gotVerifier != "the-verifier" {
			t.Errorf("expected verifier to be sent, got %q", gotVerifier)
		}
	})

	t.Run("ProviderFailure", func(t *testing.T) {
		accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		}))
		defer accounts.Close()

		client, _ := NewClient(testCreds("", accounts.URL))
		if _, err := client.ExchangeCode(context.Background(), "bad", "v"); err == nil {
			t.Error("expected error on provider failure")
		}
	})
}

func TestRefreshToken(t *testing.T) {
	t.Run("WithRotatedToken", func(t *testing.T) {
		accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			if r.FormValue("grant_type") != "refresh_token" {
				t.Errorf("expected refresh_token grant, got %s", r.FormValue("grant_type"))
			}
			if r.FormValue("refresh_token") != "old_refresh" {
				t.Errorf("expected old refresh token, got %s", r.FormValue("refresh_token"))
			}

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "rotated_access",
				"refresh_token": "rotated_refresh",
				"expires_in":    3600,
			})
		}))
		defer accounts.Close()

		client, _ := NewClient(testCreds("", accounts.URL))
		token, err := client.RefreshToken(context.Background(), "old_refresh")
		if err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		if token.AccessToken != "rotated_access" || token.RefreshToken != "rotated_refresh" {
			t.Errorf("unexpected token: %+v", token)
		}
	})

	t.Run("WithoutNewRefreshToken", func(t *testing.T) {
		accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "only_access",
				"expires_in":   3600,
			})
		}))
		defer accounts.Close()

		client, _ := NewClient(testCreds("", accounts.URL))
		token, err := client.RefreshToken(context.Background(), "old_refresh")
		if err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		if token.RefreshToken != "" {
			t.Errorf("expected empty refresh token when omitted, got %q", token.RefreshToken)
		}
	})

	t.Run("ProviderFailure", func(t *testing.T) {
		accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		}))
		defer accounts.Close()

		client, _ := NewClient(testCreds("", accounts.URL))
		_, err := client.RefreshToken(context.Background(), "dead")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
			t.Errorf("expected APIError with status 400, got %v", err)
		}
	})
}

func TestDoRequest(t *testing.T) {
	t.Run("AttachesBearerToken", func(t *testing.T) {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer the-token" {
				t.Errorf("expected bearer header, got %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "user-1"})
		}))
		defer api.Close()

		client, _ := NewClient(testCreds(api.URL, ""))
		user, err := client.Profile(context.Background(), "the-token")
		if err != nil {
			t.Fatalf("profile failed: %v", err)
		}
		if user.ID != "user-1" {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("UpstreamErrorPreservesStatus", func(t *testing.T) {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"status":403,"message":"Insufficient scope"}}`, http.StatusForbidden)
		}))
		defer api.Close()

		client, _ := NewClient(testCreds(api.URL, ""))
		_, err := client.Profile(context.Background(), "t")

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.Status != http.StatusForbidden {
			t.Errorf("expected 403, got %d", apiErr.Status)
		}
	})
}

func TestSearchArtists(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("type") != "artist" {
			t.Errorf("expected artist search, got %s", q.Get("type"))
		}
		if q.Get("limit") != "50" {
			t.Errorf("expected limit capped at 50, got %s", q.Get("limit"))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"artists": map[string]any{
				"items": []map[string]any{{"id": "a1", "name": "Artist One"}},
			},
		})
	}))
	defer api.Close()

	client, _ := NewClient(testCreds(api.URL, ""))
	artists, err := client.SearchArtists(context.Background(), "t", "one", 999)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(artists) != 1 || artists[0].ID != "a1" {
		t.Errorf("unexpected artists %+v", artists)
	}
}

func TestRecommendations(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("seed_genres") != "jazz,funk" {
			t.Errorf("unexpected seed_genres %q", q.Get("seed_genres"))
		}
		if q.Get("seed_artists") != "a1" {
			t.Errorf("unexpected seed_artists %q", q.Get("seed_artists"))
		}
		if q.Get("target_energy") != "0.8" {
			t.Errorf("unexpected target_energy %q", q.Get("target_energy"))
		}
		if q.Has("target_valence") {
			t.Error("unset targets must not be forwarded")
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tracks": []map[string]any{{"id": "t1", "name": "Track", "uri": "spotify:track:t1"}},
		})
	}))
	defer api.Close()

	energy := 0.8
	client, _ := NewClient(testCreds(api.URL, ""))
	tracks, err := client.Recommendations(context.Background(), "tok", RecommendationSeeds{
		Genres:       []string{"jazz", "funk"},
		Artists:      []string{"a1"},
		TargetEnergy: &energy,
	})
	if err != nil {
		t.Fatalf("recommendations failed: %v", err)
	}
	if len(tracks) != 1 || tracks[0].URI != "spotify:track:t1" {
		t.Errorf("unexpected tracks %+v", tracks)
	}
}

func TestCreatePlaylist(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/me":
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "user-1"})
		case r.URL.Path == "/users/user-1/playlists" && r.Method == http.MethodPost:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":   "pl-1",
				"name": body["name"],
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer api.Close()

	client, _ := NewClient(testCreds(api.URL, ""))
	playlist, err := client.CreatePlaylist(context.Background(), "tok", "My Mix", "desc", false)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if playlist.ID != "pl-1" || playlist.Name != "My Mix" {
		t.Errorf("unexpected playlist %+v", playlist)
	}
}

func TestTrackOperations(t *testing.T) {
	t.Run("AddTracksTruncatesAt100", func(t *testing.T) {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				URIs []string `json:"uris"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if len(body.URIs) != 100 {
				t.Errorf("expected 100 URIs forwarded, got %d", len(body.URIs))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"snapshot_id": "snap-1"})
		}))
		defer api.Close()

		uris := make([]string, 150)
		for i := range uris {
			uris[i] = "spotify:track:x"
		}

		client, _ := NewClient(testCreds(api.URL, ""))
		snapshot, err := client.AddTracks(context.Background(), "tok", "pl-1", uris)
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if snapshot != "snap-1" {
			t.Errorf("unexpected snapshot %s", snapshot)
		}
	})

	t.Run("RemoveTracksSendsTrackObjects", func(t *testing.T) {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				t.Errorf("expected DELETE, got %s", r.Method)
			}
			var body struct {
				Tracks []map[string]string `json:"tracks"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if len(body.Tracks) != 2 || body.Tracks[0]["uri"] != "spotify:track:a" {
				t.Errorf("unexpected body %+v", body)
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"snapshot_id": "snap-2"})
		}))
		defer api.Close()

		client, _ := NewClient(testCreds(api.URL, ""))
		snapshot, err := client.RemoveTracks(context.Background(), "tok", "pl-1", []string{"spotify:track:a", "spotify:track:b"})
		if err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if snapshot != "snap-2" {
			t.Errorf("unexpected snapshot %s", snapshot)
		}
	})
}

func TestGenres(t *testing.T) {
	hits := 0
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"genres": []string{"jazz", "funk"}})
	}))
	defer api.Close()

	client, _ := NewClient(testCreds(api.URL, ""))

	for range 3 {
		genres, err := client.Genres(context.Background(), "tok")
		if err != nil {
			t.Fatalf("genres failed: %v", err)
		}
		if len(genres) != 2 {
			t.Errorf("unexpected genres %v", genres)
		}
	}

	if hits != 1 {
		t.Errorf("expected genre list to be cached after first fetch, got %d upstream hits", hits)
	}
}

func TestFilterTrackURIs(t *testing.T) {
	got := FilterTrackURIs([]string{"spotify:track:abc", "not-a-uri", "", "spotify:track:"})
	if len(got) != 1 || got[0] != "spotify:track:abc" {
		t.Errorf("unexpected filtered URIs %v", got)
	}

	if got := FilterTrackURIs(nil); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}
