package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/shared"
)

const shutdownTimeout = 5 * time.Second

// CallbackListener is a local HTTP server bound for the lifetime of one authorization attempt.
type CallbackListener struct {
	srv    *http.Server
	ln     net.Listener
	errs   chan error
	done   chan struct{}
	once   sync.Once
	logger *log.Logger
}

// Listen binds addr and starts serving handler in the background.
//
// The port is bound before Listen returns, so a bind failure is reported here rather than later.
func Listen(addr string, handler Handler, logger *log.Logger) (*CallbackListener, error) {
	logger = shared.WithLogger(logger, "component", "callback")

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind callback address %s: %w", addr, err)
	}

	router := NewBasicRouter()
	router.Use(RequestLogger(logger))
	router.Handler(handler)

	l := &CallbackListener{
		srv: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln:     ln,
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
		logger: logger,
	}

	go func() {
		defer close(l.done)
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.errs <- err
		}
	}()

	logger.Info("listening for OAuth callback", "addr", ln.Addr().String())
	return l, nil
}

// Addr returns the bound address.
func (l *CallbackListener) Addr() string {
	return l.ln.Addr().String()
}

// Errors reports a serve failure. It never receives after a clean Close.
func (l *CallbackListener) Errors() <-chan error {
	return l.errs
}

// Close shuts the server down, letting an in-flight callback response finish, and releases the port.
//
// Safe to call more than once.
func (l *CallbackListener) Close() error {
	var err error
	l.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err = l.srv.Shutdown(ctx); err != nil {
			l.logger.Warn("error shutting down callback server", "error", err)
			err = l.srv.Close()
		}
		<-l.done
		l.logger.Debug("callback listener closed", "addr", l.ln.Addr().String())
	})
	return err
}
