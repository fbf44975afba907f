package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/spx/internal/shared"
)

// ExchangeFunc trades an authorization code for credentials. It runs inside the callback request.
type ExchangeFunc func(ctx context.Context, code string) error

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Code string
	err  error
}

func (o OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles the OAuth2 authorization code callback for a single attempt.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	path        string
	state       string
	exchange    ExchangeFunc
	resultChan  chan OAuthResult
	once        sync.Once
	mu          sync.Mutex
	callbackHit bool
}

// NewOAuthHandler creates a handler serving path that expects state and calls exchange with the received code.
// The state token should be cryptographically random for CSRF protection.
func NewOAuthHandler(path, state string, exchange ExchangeFunc) *OAuthHandler {
	if path == "" {
		path = "/callback"
	}
	return &OAuthHandler{
		path:       path,
		state:      state,
		exchange:   exchange,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the OAuth callback request.
//
// An error parameter, a state mismatch, a missing code or a failed exchange produce a failure page and
// an [shared.ErrAuthFailed] result. Only the first request is processed.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		h.Send(OAuthResult{err: fmt.Errorf("%w: %s %s", shared.ErrAuthFailed, errParam, query.Get("error_description"))})
		writeFailurePage(w, http.StatusBadRequest, "The authorization request was denied: "+errParam)
		return
	}

	if query.Get("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		writeFailurePage(w, http.StatusBadRequest, "Invalid state parameter.")
		return
	}

	code := query.Get("code")
	if code == "" {
		h.Send(OAuthResult{err: fmt.Errorf("%w: no authorization code received", shared.ErrAuthFailed)})
		writeFailurePage(w, http.StatusBadRequest, "No authorization code received.")
		return
	}

	if err := h.exchange(r.Context(), code); err != nil {
		h.Send(OAuthResult{Code: code, err: fmt.Errorf("%w: token exchange failed: %v", shared.ErrAuthFailed, err)})
		writeFailurePage(w, http.StatusInternalServerError, "Token exchange failed.")
		return
	}

	h.Send(OAuthResult{Code: code})
	writeSuccessPage(w)
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}
