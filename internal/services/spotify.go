// Spotify Web API player client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
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

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// DefaultScopes are requested when the configuration lists none.
var DefaultScopes = []string{
	"user-read-private",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

type spotifyArtist struct {
	Name string `json:"name"`
}

type spotifyAlbum struct {
	Name string `json:"name"`
}

type spotifyItem struct {
	ID         string          `json:"id"`
	URI        string          `json:"uri"`
	Name       string          `json:"name"`
	DurationMS int             `json:"duration_ms"`
	Artists    []spotifyArtist `json:"artists"`
	Album      spotifyAlbum    `json:"album"`
}

type spotifyDevice struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	VolumePercent *int   `json:"volume_percent"`
}

type spotifyContext struct {
	URI string `json:"uri"`
}

// spotifyPlayback is the body of GET /me/player.
type spotifyPlayback struct {
	Device       *spotifyDevice  `json:"device"`
	ShuffleState bool            `json:"shuffle_state"`
	RepeatState  string          `json:"repeat_state"`
	Context      *spotifyContext `json:"context"`
	ProgressMS   int             `json:"progress_ms"`
	IsPlaying    bool            `json:"is_playing"`
	Item         *spotifyItem    `json:"item"`
}

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	AccessToken() (string, error)
}

// SpotifyOpts configures a [SpotifyService].
type SpotifyOpts struct {
	BaseURL           string
	HTTPClient        *http.Client
	Tokens            TokenSource
	RequestsPerSecond float64 // Zero or negative disables pacing
	Logger            *log.Logger
}

// SpotifyService calls the Spotify Web API player endpoints.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	logger     *log.Logger
	now        func() time.Time
}

// NewSpotifyService creates a new Spotify service.
func NewSpotifyService(opts SpotifyOpts) *SpotifyService {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &SpotifyService{
		baseURL:    baseURL,
		httpClient: client,
		tokens:     opts.Tokens,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     shared.WithLogger(opts.Logger, "component", "spotify"),
		now:        time.Now,
	}
}

// NewOAuthConfig builds the oauth2 configuration for the Spotify accounts service.
func NewOAuthConfig(creds shared.SpotifyConfig, api shared.APIConfig) (*oauth2.Config, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: spotify client_id", shared.ErrMissingCredentials)
	}
	if creds.RedirectURI == "" {
		return nil, fmt.Errorf("%w: spotify redirect_uri", shared.ErrMissingCredentials)
	}

	authURL, tokenURL := api.AuthURL, api.TokenURL
	if authURL == "" {
		authURL = spotifyAuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}

	scopes := creds.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// It returns the response status so callers can tell 204 No Content apart.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) (int, error) {
	token, err := s.tokens.AccessToken()
	if err != nil {
		return 0, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := s.now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	s.logger.Debug("spotify request", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, decodeError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil && err != io.EOF {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body errorBody
	if data, err := io.ReadAll(resp.Body); err == nil && json.Unmarshal(data, &body) == nil {
		apiErr.Message = body.Error.Message
		apiErr.Reason = body.Error.Reason
	}
	return apiErr
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if _, err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Devices lists the playback targets in the order Spotify returns them.
func (s *SpotifyService) Devices(ctx context.Context) ([]models.Device, error) {
	var response struct {
		Devices []spotifyDevice `json:"devices"`
	}
	if _, err := s.doRequest(ctx, http.MethodGet, "/me/player/devices", nil, &response); err != nil {
		return nil, err
	}

	devices := make([]models.Device, 0, len(response.Devices))
	for _, d := range response.Devices {
		devices = append(devices, toDevice(d))
	}
	return devices, nil
}

// PlaybackState fetches the current player state.
//
// When nothing is playing Spotify answers 204 and the snapshot is empty.
func (s *SpotifyService) PlaybackState(ctx context.Context) (*models.PlaybackSnapshot, error) {
	var pb spotifyPlayback
	status, err := s.doRequest(ctx, http.MethodGet, "/me/player", nil, &pb)
	if err != nil {
		return nil, err
	}

	snapshot := &models.PlaybackSnapshot{Repeat: models.RepeatOff, FetchedAt: s.now()}
	if status == http.StatusNoContent {
		return snapshot, nil
	}

	snapshot.IsPlaying = pb.IsPlaying
	snapshot.Shuffle = pb.ShuffleState
	snapshot.Repeat = fromSpotifyRepeat(pb.RepeatState)
	snapshot.ProgressMs = pb.ProgressMS
	if pb.Context != nil {
		snapshot.ContextURI = pb.Context.URI
	}
	if pb.Device != nil {
		d := toDevice(*pb.Device)
		snapshot.Device = &d
	}
	if pb.Item != nil {
		item := &models.PlaybackItem{
			ID:         pb.Item.ID,
			URI:        pb.Item.URI,
			Name:       pb.Item.Name,
			Album:      pb.Item.Album.Name,
			DurationMs: pb.Item.DurationMS,
		}
		for _, a := range pb.Item.Artists {
			item.Artists = append(item.Artists, a.Name)
		}
		snapshot.Item = item
	}
	return snapshot, nil
}

// Play starts playback of sourceRef on deviceID. Track URIs are queued directly, anything else is played as a context.
func (s *SpotifyService) Play(ctx context.Context, deviceID, sourceRef string) error {
	body := map[string]any{}
	if strings.HasPrefix(sourceRef, "spotify:track:") {
		body["uris"] = []string{sourceRef}
	} else {
		body["context_uri"] = sourceRef
	}

	_, err := s.doRequest(ctx, http.MethodPut, withDevice("/me/player/play", nil, deviceID), body, nil)
	return err
}

// SetVolume sets the device volume. percent must already be within 0..100.
func (s *SpotifyService) SetVolume(ctx context.Context, deviceID string, percent int) error {
	q := url.Values{"volume_percent": {strconv.Itoa(percent)}}
	_, err := s.doRequest(ctx, http.MethodPut, withDevice("/me/player/volume", q, deviceID), nil, nil)
	return err
}

func (s *SpotifyService) SetShuffle(ctx context.Context, deviceID string, on bool) error {
	q := url.Values{"state": {strconv.FormatBool(on)}}
	_, err := s.doRequest(ctx, http.MethodPut, withDevice("/me/player/shuffle", q, deviceID), nil, nil)
	return err
}

func (s *SpotifyService) SetRepeat(ctx context.Context, deviceID string, mode models.RepeatMode) error {
	q := url.Values{"state": {toSpotifyRepeat(mode)}}
	_, err := s.doRequest(ctx, http.MethodPut, withDevice("/me/player/repeat", q, deviceID), nil, nil)
	return err
}

func withDevice(path string, q url.Values, deviceID string) string {
	if q == nil {
		q = url.Values{}
	}
	if deviceID != "" {
		q.Set("device_id", deviceID)
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func toDevice(d spotifyDevice) models.Device {
	device := models.Device{ID: d.ID, Name: d.Name, Type: d.Type, IsActive: d.IsActive}
	if d.VolumePercent != nil {
		device.VolumePercent = *d.VolumePercent
	}
	return device
}

func toSpotifyRepeat(mode models.RepeatMode) string {
	if mode == models.RepeatSingle {
		return "track"
	}
	return string(mode)
}

func fromSpotifyRepeat(state string) models.RepeatMode {
	switch state {
	case "track":
		return models.RepeatSingle
	case "context":
		return models.RepeatContext
	default:
		return models.RepeatOff
	}
}
