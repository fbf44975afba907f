package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
	"golang.org/x/sync/singleflight"
)

// ExpirySkew is how early an access token is treated as expired.
const ExpirySkew = 30 * time.Second

// RefreshTimeout bounds one shared refresh request.
const RefreshTimeout = 15 * time.Second

// VerifyFunc performs one lightweight authenticated call with the installed credentials.
type VerifyFunc func(ctx context.Context) error

// Store owns the credential set of one client.
//
// The set is always replaced as a whole under the lock. Every replacement or invalidation advances a
// generation counter, which callers capture before a remote call so a later refresh can tell whether
// someone else already replaced the credentials they used.
type Store struct {
	mu            sync.RWMutex
	creds         models.CredentialSet
	authenticated bool
	generation    uint64

	group     singleflight.Group
	backend   Backend
	refresher Refresher
	logger    *log.Logger
	now       func() time.Time
}

// NewStore creates an unauthenticated [Store].
func NewStore(backend Backend, refresher Refresher, logger *log.Logger) *Store {
	return &Store{
		backend:   backend,
		refresher: refresher,
		logger:    shared.WithLogger(logger, "component", "store"),
		now:       time.Now,
	}
}

// Load installs persisted credentials and checks them with verify.
//
// When verification fails a single refresh is attempted. Any failure leaves the store unauthenticated
// and returns false; a missing record is the normal cold start.
func (s *Store) Load(ctx context.Context, verify VerifyFunc) bool {
	creds, err := s.backend.Read(ctx)
	if err != nil {
		if !errors.Is(err, shared.ErrNoCredentials) {
			s.logger.Warn("could not read stored credentials", "error", err)
		}
		return false
	}

	gen := s.install(*creds)
	s.logger.Debug("loaded stored credentials", "expires_at", creds.ExpiresAt)

	if verify == nil {
		return true
	}

	err = verify(ctx)
	if err == nil {
		return true
	}
	s.logger.Info("stored credentials rejected, refreshing", "error", err)

	if err := s.RefreshIfStale(ctx, gen); err != nil {
		s.logger.Info("refresh of stored credentials failed", "error", err)
		return false
	}
	return true
}

// Save installs creds and persists them.
//
// The in-memory session is updated before the write, so a returned [shared.ErrPersistence] never
// invalidates the working credentials.
func (s *Store) Save(ctx context.Context, creds models.CredentialSet) error {
	s.install(creds)
	return s.persist(ctx, creds)
}

// Clear drops the in-memory and persisted credentials. Safe to call when nothing is stored.
func (s *Store) Clear(ctx context.Context) error {
	s.invalidate()
	if err := s.backend.Remove(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return nil
}

// Refresh refreshes the current credentials unconditionally, sharing the call with concurrent refreshers.
func (s *Store) Refresh(ctx context.Context) error {
	return s.RefreshIfStale(ctx, s.Generation())
}

// RefreshIfStale refreshes the credentials installed at gen.
//
// Concurrent callers share a single refresh request. When the generation has already moved past gen the
// refresh is skipped. The request is detached from ctx and bounded by [RefreshTimeout]; a caller whose ctx
// ends first returns ctx.Err() while the refresh continues for the others. A refresh rejected by the
// server leaves the store unauthenticated, one that was canceled or timed out does not.
func (s *Store) RefreshIfStale(ctx context.Context, gen uint64) error {
	ch := s.group.DoChan("refresh", func() (any, error) {
		return nil, s.refresh(context.WithoutCancel(ctx), gen)
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("shared in-flight refresh")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) refresh(ctx context.Context, gen uint64) error {
	s.mu.RLock()
	current, authed, refreshToken := s.generation, s.authenticated, s.creds.RefreshToken
	s.mu.RUnlock()

	if current != gen {
		if authed {
			return nil
		}
		return shared.ErrNotAuthenticated
	}

	if refreshToken == "" {
		s.invalidate()
		return shared.ErrNoRefreshToken
	}

	ctx, cancel := context.WithTimeout(ctx, RefreshTimeout)
	defer cancel()

	s.logger.Debug("refreshing access token")
	creds, err := s.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("token refresh interrupted, keeping session", "error", err)
		} else {
			s.invalidate()
		}
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if creds.RefreshToken == "" {
		creds.RefreshToken = refreshToken
	}

	s.install(creds)
	if err := s.persist(ctx, creds); err != nil {
		s.logger.Warn("refreshed credentials were not persisted", "error", err)
	}
	s.logger.Info("access token refreshed", "expires_at", creds.ExpiresAt)
	return nil
}

// Generation returns the counter identifying the installed credentials.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// AccessToken returns the current bearer token or [shared.ErrNotAuthenticated].
func (s *Store) AccessToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticated {
		return "", shared.ErrNotAuthenticated
	}
	return s.creds.AccessToken, nil
}

// Credentials returns a copy of the installed set and whether the store is authenticated.
func (s *Store) Credentials() (models.CredentialSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds, s.authenticated
}

// Expired reports whether the installed access token is within [ExpirySkew] of its expiry.
func (s *Store) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated && s.creds.Expired(s.now(), ExpirySkew)
}

func (s *Store) install(creds models.CredentialSet) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	s.authenticated = !creds.IsZero()
	s.generation++
	return s.generation
}

func (s *Store) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = models.CredentialSet{}
	s.authenticated = false
	s.generation++
}

func (s *Store) persist(ctx context.Context, creds models.CredentialSet) error {
	if err := s.backend.Write(ctx, creds); err != nil {
		s.logger.Warn("failed to persist credentials", "error", err)
		return fmt.Errorf("%w: %v", shared.ErrPersistence, err)
	}
	return nil
}
