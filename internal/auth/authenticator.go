package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/server"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds the wait for the human to finish the browser step.
const DefaultTimeout = 2 * time.Minute

// AuthenticatorOpts configures an [Authenticator].
type AuthenticatorOpts struct {
	OAuth      *oauth2.Config
	Store      *Store
	Timeout    time.Duration
	Prompt     func(authURL string) // Receives the URL to visit. Called once per attempt.
	HTTPClient *http.Client         // Used for the token exchange when set.
	Logger     *log.Logger
}

// Authenticator runs the interactive Authorization Code + PKCE handshake.
//
// Only one attempt may be in flight at a time.
type Authenticator struct {
	oauth    *oauth2.Config
	store    *Store
	timeout  time.Duration
	prompt   func(string)
	client   *http.Client
	logger   *log.Logger
	inFlight atomic.Bool
}

func NewAuthenticator(opts AuthenticatorOpts) *Authenticator {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	prompt := opts.Prompt
	if prompt == nil {
		prompt = func(string) {}
	}
	return &Authenticator{
		oauth:   opts.OAuth,
		store:   opts.Store,
		timeout: timeout,
		prompt:  prompt,
		client:  opts.HTTPClient,
		logger:  shared.WithLogger(opts.Logger, "component", "authenticator"),
	}
}

// Authenticate performs one handshake and installs the resulting credentials in the store.
//
// It fails with [shared.ErrAuthInProgress] when another attempt is running, [shared.ErrAuthFailed] when
// the callback reports an error or the exchange fails, and [shared.ErrTimeout] when no callback arrives
// in time. The callback listener is closed before Authenticate returns.
func (a *Authenticator) Authenticate(ctx context.Context) error {
	if !a.inFlight.CompareAndSwap(false, true) {
		return shared.ErrAuthInProgress
	}
	defer a.inFlight.Store(false)

	addr, path, err := callbackAddr(a.oauth.RedirectURL)
	if err != nil {
		return err
	}

	attempt, err := NewAttempt()
	if err != nil {
		return fmt.Errorf("failed to generate authorization attempt: %w", err)
	}

	// The exchange ends with the callback request or with this attempt, whichever is first.
	attemptCtx, cancelAttempt := context.WithCancel(ctx)
	issued := make(chan models.CredentialSet, 1)
	handler := server.NewOAuthHandler(path, attempt.State, func(reqCtx context.Context, code string) error {
		exchangeCtx, cancel := context.WithCancel(reqCtx)
		defer cancel()
		defer context.AfterFunc(attemptCtx, cancel)()

		creds, err := a.exchange(exchangeCtx, code, attempt.Verifier)
		if err != nil {
			return err
		}
		issued <- creds
		return nil
	})

	listener, err := server.Listen(addr, handler, a.logger)
	if err != nil {
		cancelAttempt()
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	defer listener.Close()
	defer cancelAttempt()

	a.prompt(attempt.AuthCodeURL(a.oauth))
	a.logger.Info("waiting for authorization", "timeout", a.timeout)

	timer := time.NewTimer(a.timeout)
	defer timer.Stop()

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return err
		}
		return a.install(ctx, issued)
	case err := <-listener.Errors():
		return fmt.Errorf("%w: callback server stopped: %v", shared.ErrAuthFailed, err)
	case <-timer.C:
		return fmt.Errorf("%w: no authorization callback within %s", shared.ErrTimeout, a.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Authenticator) exchange(ctx context.Context, code, verifier string) (models.CredentialSet, error) {
	if a.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	}

	tok, err := a.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return models.CredentialSet{}, err
	}
	return FromToken(tok), nil
}

// install saves the credentials from a successful callback. Only the attempt that received the callback
// in time reaches it.
func (a *Authenticator) install(ctx context.Context, issued <-chan models.CredentialSet) error {
	select {
	case creds := <-issued:
		if err := a.store.Save(ctx, creds); err != nil && !errors.Is(err, shared.ErrPersistence) {
			return err
		}
	default:
		return fmt.Errorf("%w: callback completed without credentials", shared.ErrAuthFailed)
	}
	a.logger.Info("authorization complete")
	return nil
}

// callbackAddr splits a redirect URL into the listen address and callback path.
func callbackAddr(redirect string) (string, string, error) {
	u, err := url.Parse(redirect)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, redirect)
	}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(u.Hostname(), "80")
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	return host, path, nil
}
