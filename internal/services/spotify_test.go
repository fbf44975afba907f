package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	tu "github.com/desertthunder/spx/internal/testing"
)

type staticToken struct {
	token string
	err   error
}

func (s staticToken) AccessToken() (string, error) {
	return s.token, s.err
}

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
	auth   string
}

// newTestService serves handler and records every request it receives.
func newTestService(t *testing.T, handler http.HandlerFunc) (*SpotifyService, *[]recorded) {
	t.Helper()
	var requests []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization")}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		requests = append(requests, rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	svc := NewSpotifyService(SpotifyOpts{
		BaseURL: srv.URL,
		Tokens:  staticToken{token: "tok"},
		Logger:  shared.NewLogger(io.Discard),
	})
	return svc, &requests
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("NewOAuthConfig", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			cfg, err := NewOAuthConfig(shared.SpotifyConfig{
				ClientID:    "test_client_id",
				RedirectURI: "http://127.0.0.1:3000/callback",
			}, shared.APIConfig{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cfg.Endpoint.TokenURL != spotifyTokenURL {
				t.Errorf("expected default token URL, got %s", cfg.Endpoint.TokenURL)
			}
			if len(cfg.Scopes) != len(DefaultScopes) {
				t.Errorf("expected default scopes, got %v", cfg.Scopes)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewOAuthConfig(shared.SpotifyConfig{RedirectURI: "http://x/callback"}, shared.APIConfig{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Redirect URI", func(t *testing.T) {
			_, err := NewOAuthConfig(shared.SpotifyConfig{ClientID: "c"}, shared.APIConfig{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("UserProfile", func(t *testing.T) {
		svc, reqs := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"u1","display_name":"Listener","product":"premium"}`))
		})

		user, err := svc.UserProfile(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.DisplayName != "Listener" {
			t.Errorf("expected Listener, got %s", user.DisplayName)
		}
		if (*reqs)[0].auth != "Bearer tok" {
			t.Errorf("expected bearer token header, got %q", (*reqs)[0].auth)
		}
	})

	t.Run("Devices", func(t *testing.T) {
		svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"devices":[
				{"id":"a","name":"Laptop","type":"Computer","is_active":false,"volume_percent":null},
				{"id":"b","name":"Kitchen","type":"Speaker","is_active":true,"volume_percent":55}
			]}`))
		})

		devices, err := svc.Devices(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(devices) != 2 || devices[0].ID != "a" || devices[1].VolumePercent != 55 || !devices[1].IsActive {
			t.Errorf("unexpected devices %+v", devices)
		}
	})

	t.Run("PlaybackState", func(t *testing.T) {
		t.Run("Playing", func(t *testing.T) {
			svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{
					"device":{"id":"b","name":"Kitchen","type":"Speaker","is_active":true,"volume_percent":40},
					"shuffle_state":true,"repeat_state":"track","progress_ms":1200,"is_playing":true,
					"context":{"uri":"spotify:playlist:1"},
					"item":{"id":"t1","uri":"spotify:track:t1","name":"Song","duration_ms":180000,
						"artists":[{"name":"A"},{"name":"B"}],"album":{"name":"Record"}}
				}`))
			})

			snap, err := svc.PlaybackState(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !snap.IsPlaying || !snap.Shuffle || snap.Repeat != models.RepeatSingle {
				t.Errorf("unexpected flags %+v", snap)
			}
			if snap.Item == nil || snap.Item.Name != "Song" || len(snap.Item.Artists) != 2 {
				t.Errorf("unexpected item %+v", snap.Item)
			}
			if snap.Device == nil || snap.Device.ID != "b" || snap.ContextURI != "spotify:playlist:1" {
				t.Errorf("unexpected device or context %+v", snap)
			}
		})

		t.Run("Nothing Playing", func(t *testing.T) {
			svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})

			snap, err := svc.PlaybackState(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if snap.IsPlaying || snap.Item != nil || snap.Device != nil {
				t.Errorf("expected empty snapshot, got %+v", snap)
			}
		})
	})

	t.Run("Player Commands", func(t *testing.T) {
		svc, reqs := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		if err := svc.Play(ctx, "dev", "spotify:playlist:1"); err != nil {
			t.Fatalf("play failed: %v", err)
		}
		if err := svc.Play(ctx, "dev", "spotify:track:9"); err != nil {
			t.Fatalf("play track failed: %v", err)
		}
		if err := svc.SetVolume(ctx, "dev", 100); err != nil {
			t.Fatalf("volume failed: %v", err)
		}
		if err := svc.SetShuffle(ctx, "dev", true); err != nil {
			t.Fatalf("shuffle failed: %v", err)
		}
		if err := svc.SetRepeat(ctx, "dev", models.RepeatSingle); err != nil {
			t.Fatalf("repeat failed: %v", err)
		}

		r := *reqs
		if len(r) != 5 {
			t.Fatalf("expected 5 requests, got %d", len(r))
		}
		if r[0].method != http.MethodPut || r[0].path != "/me/player/play" || r[0].body["context_uri"] != "spotify:playlist:1" {
			t.Errorf("unexpected play request %+v", r[0])
		}
		if _, ok := r[1].body["uris"]; !ok {
			t.Errorf("expected track to be sent as uris, got %+v", r[1].body)
		}
		if !strings.Contains(r[2].query, "volume_percent=100") || !strings.Contains(r[2].query, "device_id=dev") {
			t.Errorf("unexpected volume query %s", r[2].query)
		}
		if !strings.Contains(r[3].query, "state=true") {
			t.Errorf("unexpected shuffle query %s", r[3].query)
		}
		if !strings.Contains(r[4].query, "state=track") {
			t.Errorf("expected single to map to track, got %s", r[4].query)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		tc := []struct {
			name   string
			status int
			body   string
			is     []error
			isNot  []error
		}{
			{
				name:   "unauthorized",
				status: http.StatusUnauthorized,
				body:   `{"error":{"status":401,"message":"The access token expired"}}`,
				is:     []error{shared.ErrTokenExpired, shared.ErrAPIRequest},
				isNot:  []error{shared.ErrNoDevice},
			},
			{
				name:   "no active device",
				status: http.StatusNotFound,
				body:   `{"error":{"status":404,"message":"Player command failed","reason":"NO_ACTIVE_DEVICE"}}`,
				is:     []error{shared.ErrNoDevice},
				isNot:  []error{shared.ErrTokenExpired},
			},
			{
				name:   "rate limited",
				status: http.StatusTooManyRequests,
				body:   ``,
				is:     []error{shared.ErrServiceUnavailable},
				isNot:  []error{shared.ErrTokenExpired},
			},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					w.Write([]byte(tt.body))
				})

				err := svc.Play(ctx, "", "spotify:album:1")
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.status {
					t.Fatalf("expected APIError with status %d, got %v", tt.status, err)
				}
				for _, target := range tt.is {
					if !errors.Is(err, target) {
						t.Errorf("expected error to match %v", target)
					}
				}
				for _, target := range tt.isNot {
					if errors.Is(err, target) {
						t.Errorf("expected error not to match %v", target)
					}
				}
			})
		}
	})

	t.Run("Not Authenticated", func(t *testing.T) {
		svc := NewSpotifyService(SpotifyOpts{Tokens: staticToken{err: shared.ErrNotAuthenticated}})
		if _, err := svc.Devices(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		svc := NewSpotifyService(SpotifyOpts{
			Tokens:     staticToken{token: "tok"},
			HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))},
		})
		if _, err := svc.PlaybackState(ctx); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Unreadable Error Body", func(t *testing.T) {
		svc := NewSpotifyService(SpotifyOpts{
			Tokens: staticToken{token: "tok"},
			HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
				StatusCode: http.StatusBadGateway,
				Body:       &tu.FCloser{},
				Header:     http.Header{},
			}, nil)},
		})
		if _, err := svc.Devices(ctx); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
