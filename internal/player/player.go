// Package player is the caller-facing spx session.
//
// A [Client] owns one credential store, one authenticator, one polling loop and the Spotify service, so
// independent clients (for example in tests) never share state. Every remote call goes through the
// invoker package.
package player

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/invoker"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/repositories"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
)

// Options configures a [Client].
type Options struct {
	Config     *shared.Config
	Logger     *log.Logger
	Prompt     func(authURL string) // Shows the authorization URL to a human
	HTTPClient *http.Client
	Backend    auth.Backend // Overrides the backend chosen by auth.token_store
}

// Client exposes authenticate, state, devices, profile and sync operations.
type Client struct {
	config        *shared.Config
	store         *auth.Store
	authenticator *auth.Authenticator
	spotify       *services.SpotifyService
	invoker       *invoker.Invoker
	switcher      *tasks.ProfileSwitcher
	sync          *tasks.PlaybackSync
	db            *sql.DB
	logger        *log.Logger
}

// New wires a client from configuration. It makes no network calls.
func New(opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", shared.ErrMissingConfig)
	}
	logger := shared.WithLogger(opts.Logger)

	oauthCfg, err := services.NewOAuthConfig(cfg.Credentials.Spotify, cfg.API)
	if err != nil {
		return nil, err
	}

	c := &Client{config: cfg, logger: logger}

	backend := opts.Backend
	if backend == nil {
		if backend, err = c.openBackend(); err != nil {
			return nil, err
		}
	}

	c.store = auth.NewStore(backend, auth.NewOAuthRefresher(oauthCfg), logger)
	c.spotify = services.NewSpotifyService(services.SpotifyOpts{
		BaseURL:           cfg.API.BaseURL,
		HTTPClient:        opts.HTTPClient,
		Tokens:            c.store,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Logger:            logger,
	})
	c.invoker = invoker.New(c.store, logger)
	c.authenticator = auth.NewAuthenticator(auth.AuthenticatorOpts{
		OAuth:      oauthCfg,
		Store:      c.store,
		Timeout:    cfg.AuthTimeout(),
		Prompt:     opts.Prompt,
		HTTPClient: opts.HTTPClient,
		Logger:     logger,
	})
	c.switcher = tasks.NewProfileSwitcher(c.spotify, c.invoker, c.store, c.authenticator.Authenticate, logger)
	c.sync = tasks.NewPlaybackSync(tasks.PlaybackSyncOpts{
		Fetch: func(ctx context.Context) (*models.PlaybackSnapshot, error) {
			return invoker.Do(ctx, c.invoker, "playback_state", c.spotify.PlaybackState)
		},
		Logger: logger,
	})
	return c, nil
}

func (c *Client) openBackend() (auth.Backend, error) {
	switch c.config.Auth.TokenStore {
	case "", "file":
		return auth.NewFileBackend(c.config.TokenPath()), nil
	case "sqlite":
		db, err := shared.OpenMigrated(c.config.Database)
		if err != nil {
			return nil, err
		}
		c.db = db
		return repositories.NewCredentialRepository(db), nil
	default:
		return nil, fmt.Errorf("%w: unknown token_store %q", shared.ErrInvalidConfig, c.config.Auth.TokenStore)
	}
}

// Load restores stored credentials, verifying them with GET /me. It reports whether the client is authenticated.
func (c *Client) Load(ctx context.Context) bool {
	return c.store.Load(ctx, func(ctx context.Context) error {
		_, err := c.spotify.UserProfile(ctx)
		return err
	})
}

// Authenticate runs the interactive authorization flow.
func (c *Client) Authenticate(ctx context.Context) error {
	return c.authenticator.Authenticate(ctx)
}

func (c *Client) IsAuthenticated() bool {
	return c.store.IsAuthenticated()
}

// Credentials returns the installed credential set.
func (c *Client) Credentials() (models.CredentialSet, bool) {
	return c.store.Credentials()
}

// User fetches the profile of the authorized account.
func (c *Client) User(ctx context.Context) (*services.SpotifyUser, error) {
	return invoker.Do(ctx, c.invoker, "user_profile", c.spotify.UserProfile)
}

// CurrentState fetches one playback snapshot.
func (c *Client) CurrentState(ctx context.Context) (*models.PlaybackSnapshot, error) {
	return invoker.Do(ctx, c.invoker, "playback_state", c.spotify.PlaybackState)
}

// ListTargets lists the playback devices.
func (c *Client) ListTargets(ctx context.Context) ([]models.Device, error) {
	return invoker.Do(ctx, c.invoker, "devices", c.spotify.Devices)
}

// ApplyProfile applies profile under name. See [tasks.ProfileSwitcher.Apply].
func (c *Client) ApplyProfile(ctx context.Context, name string, profile models.Profile, device string, progress chan<- tasks.ProgressUpdate) (*tasks.ApplyResult, error) {
	return c.switcher.Apply(ctx, tasks.ApplyRequest{Name: name, Profile: profile, Device: device}, progress)
}

// ApplyNamedProfile applies a profile from the configuration file.
func (c *Client) ApplyNamedProfile(ctx context.Context, name, device string, progress chan<- tasks.ProgressUpdate) (*tasks.ApplyResult, error) {
	profile, ok := c.config.Profile(name)
	if !ok {
		return nil, fmt.Errorf("%w: no profile named %q", shared.ErrInvalidArgument, name)
	}
	return c.ApplyProfile(ctx, name, profile, device, progress)
}

// StartSync starts polling every interval, falling back to sync.interval when interval is zero.
func (c *Client) StartSync(ctx context.Context, interval time.Duration) error {
	if interval == 0 {
		interval = c.config.SyncInterval()
	}
	return c.sync.Start(ctx, interval)
}

// StopSync stops polling. Safe to call when not running.
func (c *Client) StopSync() {
	c.sync.Stop()
}

// Events returns the sync event channel.
func (c *Client) Events() <-chan tasks.SyncEvent {
	return c.sync.Events()
}

// Latest returns the most recent synced snapshot, or nil.
func (c *Client) Latest() *models.PlaybackSnapshot {
	return c.sync.Latest()
}

// Disconnect stops polling and removes in-memory and persisted credentials.
func (c *Client) Disconnect(ctx context.Context) error {
	c.sync.Stop()
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	c.logger.Info("disconnected")
	return nil
}

// Close stops polling and releases the database, if one was opened.
func (c *Client) Close() error {
	c.sync.Stop()
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
