// Package invoker runs authenticated remote calls, absorbing a single credential expiry per call.
//
// Every remote call in spx goes through [Do]. A call whose error classifies as [OutcomeExpired] causes one
// shared refresh and one retry; anything else is returned unchanged.
package invoker

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/shared"
)

// Outcome tags the result of one remote call.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeExpired
	OutcomeTerminal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeExpired:
		return "expired"
	case OutcomeTerminal:
		return "terminal"
	default:
		return ""
	}
}

// Classify tags err. Expiry is recognised through [shared.ErrTokenExpired] in the error chain.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, shared.ErrTokenExpired):
		return OutcomeExpired
	default:
		return OutcomeTerminal
	}
}

// Session is the credential owner the invoker refreshes through.
type Session interface {
	Generation() uint64
	Expired() bool
	RefreshIfStale(ctx context.Context, gen uint64) error
}

// Invoker wraps remote calls with refresh-and-retry-once.
type Invoker struct {
	session Session
	logger  *log.Logger
}

func New(session Session, logger *log.Logger) *Invoker {
	return &Invoker{session: session, logger: shared.WithLogger(logger, "component", "invoker")}
}

// Do runs op through inv.
//
// A token already past expiry is refreshed before the first attempt. When op reports expiry the credentials
// it used are refreshed (concurrent callers share the refresh) and op runs exactly once more. A failed
// refresh returns the original expiry error; a second expiry is returned without another refresh. At most
// one refresh runs per call, so an expiry right after a proactive refresh is returned as is.
func Do[T any](ctx context.Context, inv *Invoker, name string, op func(ctx context.Context) (T, error)) (T, error) {
	gen := inv.session.Generation()
	refreshed := false
	if inv.session.Expired() {
		inv.logger.Debug("token expired before call, refreshing", "op", name)
		if err := inv.session.RefreshIfStale(ctx, gen); err == nil {
			gen = inv.session.Generation()
			refreshed = true
		}
	}

	result, err := op(ctx)
	if Classify(err) != OutcomeExpired {
		return result, err
	}
	if refreshed {
		inv.logger.Warn("credential expired right after refresh", "op", name)
		return result, err
	}

	inv.logger.Debug("credential expired, refreshing", "op", name)
	if rerr := inv.session.RefreshIfStale(ctx, gen); rerr != nil {
		inv.logger.Warn("refresh failed, session is unauthenticated", "op", name, "error", rerr)
		return result, err
	}

	result, err = op(ctx)
	if Classify(err) == OutcomeExpired {
		inv.logger.Warn("credential expired again after refresh", "op", name)
	}
	return result, err
}

// Exec is [Do] for operations without a result.
func Exec(ctx context.Context, inv *Invoker, name string, op func(ctx context.Context) error) error {
	_, err := Do(ctx, inv, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
