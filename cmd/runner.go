package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/auth"
	"github.com/desertthunder/spx/internal/player"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	client      *player.Client
	backend     auth.Backend
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	openBrowser func(url string) error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil Config is loaded from the --config flag on first use.
type RunnerOpts struct {
	Config      *shared.Config
	Backend     auth.Backend
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	OpenBrowser func(url string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		backend:     opts.Backend,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playerCommand, profileCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before raises the log level when --verbose is set.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// SetLogger swaps the logger used by commands created after the call.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// loadConfig returns the injected config, else the file named by --config, else the defaults.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	if r.config != nil {
		return r.config
	}

	path := cmd.String("config")
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		r.config = shared.DefaultConfig()
		return r.config
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		config = shared.DefaultConfig()
	}
	r.config = config
	return r.config
}

// session builds the player client once and restores stored credentials.
func (r *Runner) session(ctx context.Context, cmd *cli.Command) (*player.Client, error) {
	if r.client != nil {
		return r.client, nil
	}

	client, err := player.New(player.Options{
		Config:     r.loadConfig(cmd),
		Logger:     r.logger,
		Prompt:     r.prompt(cmd.Bool("open")),
		HTTPClient: r.httpClient,
		Backend:    r.backend,
	})
	if err != nil {
		return nil, err
	}

	client.Load(ctx)
	r.client = client
	return client, nil
}

// authenticated returns a session, running the authorization flow when no credentials could be restored.
func (r *Runner) authenticated(ctx context.Context, cmd *cli.Command) (*player.Client, error) {
	client, err := r.session(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if client.IsAuthenticated() {
		return client, nil
	}

	r.writePlain("→ Not authenticated, starting authorization\n")
	if err := client.Authenticate(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func (r *Runner) close() {
	if r.client == nil {
		return
	}
	if err := r.client.Close(); err != nil {
		r.logger.Warn("failed to close session", "error", err)
	}
	r.client = nil
}

// prompt shows the authorization URL and optionally opens it in the default browser.
func (r *Runner) prompt(open bool) func(string) {
	return func(authURL string) {
		r.writePlainHeader("Spotify Authorization")
		if open {
			err := r.openBrowser(authURL)
			if err == nil {
				r.writePlain("→ Opened your browser. If nothing happened, visit:\n%s\n", authURL)
				r.writePlainln("→ Waiting for authorization...")
				return
			}
			r.logger.Warn("failed to open browser", "error", err)
		}
		r.writePlain("→ Visit this URL to authorize spx:\n%s\n", authURL)
		r.writePlainln("→ Waiting for authorization...")
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
