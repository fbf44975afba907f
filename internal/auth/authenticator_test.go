package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/spx/internal/shared"
	tu "github.com/desertthunder/spx/internal/testing"
	"golang.org/x/oauth2"
)

// tokenServer fakes the token endpoint and checks the PKCE verifier against the challenge
// that was sent in the authorization URL.
type tokenServer struct {
	*httptest.Server
	mu        sync.Mutex
	challenge string
	exchanges int
	fail      bool
	delay     time.Duration
}

func newTokenServer(t *testing.T) *tokenServer {
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		ts.mu.Lock()
		ts.exchanges++
		challenge, fail, delay := ts.challenge, ts.fail, ts.delay
		ts.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if fail || oauth2.S256ChallengeFromVerifier(r.Form.Get("code_verifier")) != challenge {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-" + r.Form.Get("code"),
			"refresh_token": "refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) setChallenge(c string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.challenge = c
}

type authFixture struct {
	addr    string
	store   *Store
	backend *memoryBackend
	tokens  *tokenServer
	config  *oauth2.Config
}

func newAuthFixture(t *testing.T) *authFixture {
	tokens := newTokenServer(t)
	addr := tu.FreeAddr(t)
	backend := &memoryBackend{}
	return &authFixture{
		addr:    addr,
		backend: backend,
		tokens:  tokens,
		store:   newTestStore(backend, &fakeRefresher{}),
		config: &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://" + addr + "/callback",
			Scopes:       []string{"user-read-playback-state"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://accounts.example.com/authorize",
				TokenURL:  tokens.URL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// visit plays the human: it follows the authorization URL back to the callback with the given query.
func (f *authFixture) visit(t *testing.T, query func(state string) url.Values) func(string) {
	return func(authURL string) {
		u, err := url.Parse(authURL)
		if err != nil {
			t.Errorf("invalid auth URL: %v", err)
			return
		}
		q := u.Query()
		if q.Get("code_challenge_method") != "S256" {
			t.Errorf("expected S256 challenge method, got %q", q.Get("code_challenge_method"))
		}
		f.tokens.setChallenge(q.Get("code_challenge"))

		go func() {
			resp, err := http.Get(f.config.RedirectURL + "?" + query(q.Get("state")).Encode())
			if err == nil {
				resp.Body.Close()
			}
		}()
	}
}

func (f *authFixture) authenticator(prompt func(string), timeout time.Duration) *Authenticator {
	return NewAuthenticator(AuthenticatorOpts{
		OAuth:   f.config,
		Store:   f.store,
		Timeout: timeout,
		Prompt:  prompt,
		Logger:  shared.NewLogger(io.Discard),
	})
}

func TestAuthenticator(t *testing.T) {
	t.Run("Successful Handshake", func(t *testing.T) {
		f := newAuthFixture(t)
		a := f.authenticator(f.visit(t, func(state string) url.Values {
			return url.Values{"code": {"abc"}, "state": {state}}
		}), 5*time.Second)

		if err := a.Authenticate(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tok, err := f.store.AccessToken()
		if err != nil || tok != "access-abc" {
			t.Errorf("expected access-abc, got %q %v", tok, err)
		}
		if f.backend.creds == nil {
			t.Error("expected credentials to be persisted")
		}
		tu.AssertPortFree(t, f.addr)
	})

	t.Run("Error Parameter", func(t *testing.T) {
		f := newAuthFixture(t)
		a := f.authenticator(f.visit(t, func(state string) url.Values {
			return url.Values{"error": {"access_denied"}, "state": {state}}
		}), 5*time.Second)

		err := a.Authenticate(context.Background())
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
		if f.store.IsAuthenticated() {
			t.Error("store should remain unauthenticated")
		}
		tu.AssertPortFree(t, f.addr)
	})

	t.Run("Exchange Failure", func(t *testing.T) {
		f := newAuthFixture(t)
		f.tokens.fail = true
		a := f.authenticator(f.visit(t, func(state string) url.Values {
			return url.Values{"code": {"abc"}, "state": {state}}
		}), 5*time.Second)

		if err := a.Authenticate(context.Background()); !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
		tu.AssertPortFree(t, f.addr)
	})

	t.Run("Persistence Failure Is Not Fatal", func(t *testing.T) {
		f := newAuthFixture(t)
		f.backend.writeErr = errors.New("read-only filesystem")
		a := f.authenticator(f.visit(t, func(state string) url.Values {
			return url.Values{"code": {"abc"}, "state": {state}}
		}), 5*time.Second)

		if err := a.Authenticate(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !f.store.IsAuthenticated() {
			t.Error("expected in-memory session despite persistence failure")
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		f := newAuthFixture(t)
		a := f.authenticator(nil, 50*time.Millisecond)

		if err := a.Authenticate(context.Background()); !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		tu.AssertPortFree(t, f.addr)
	})

	t.Run("Timeout During Exchange Saves Nothing", func(t *testing.T) {
		f := newAuthFixture(t)
		f.tokens.mu.Lock()
		f.tokens.delay = 300 * time.Millisecond
		f.tokens.mu.Unlock()
		a := f.authenticator(f.visit(t, func(state string) url.Values {
			return url.Values{"code": {"abc"}, "state": {state}}
		}), 100*time.Millisecond)

		if err := a.Authenticate(context.Background()); !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}

		time.Sleep(400 * time.Millisecond)
		if f.store.IsAuthenticated() {
			t.Error("expected no credentials after the attempt timed out")
		}
		f.backend.mu.Lock()
		writes := f.backend.writes
		f.backend.mu.Unlock()
		if writes != 0 {
			t.Errorf("expected nothing persisted, got %d writes", writes)
		}
		tu.AssertPortFree(t, f.addr)
	})

	t.Run("Not Reentrant", func(t *testing.T) {
		f := newAuthFixture(t)
		started := make(chan struct{})
		a := f.authenticator(func(string) { close(started) }, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- a.Authenticate(ctx) }()

		<-started
		if err := a.Authenticate(context.Background()); !errors.Is(err, shared.ErrAuthInProgress) {
			t.Errorf("expected ErrAuthInProgress, got %v", err)
		}

		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("expected first attempt to be canceled, got %v", err)
		}
		tu.AssertPortFree(t, f.addr)
	})

	t.Run("Invalid Redirect URL", func(t *testing.T) {
		f := newAuthFixture(t)
		f.config.RedirectURL = "not a url"
		a := f.authenticator(nil, time.Second)

		if err := a.Authenticate(context.Background()); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestNewAttempt(t *testing.T) {
	a, err := NewAttempt()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Challenge != oauth2.S256ChallengeFromVerifier(a.Verifier) {
		t.Error("challenge should be derived from verifier")
	}

	b, _ := NewAttempt()
	if a.Verifier == b.Verifier || a.State == b.State {
		t.Error("expected fresh secrets per attempt")
	}

	config := &oauth2.Config{ClientID: "c", Endpoint: oauth2.Endpoint{AuthURL: "https://example.com/auth"}}
	u, _ := url.Parse(a.AuthCodeURL(config))
	if u.Query().Get("code_challenge") != a.Challenge || u.Query().Get("state") != a.State {
		t.Errorf("auth URL missing challenge or state: %s", u)
	}
	if u.Query().Get("response_type") != "code" {
		t.Error("expected response_type=code")
	}
}
