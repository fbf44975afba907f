package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// EventKind distinguishes [SyncEvent] payloads.
type EventKind int

const (
	StateChanged EventKind = iota
	SyncError
)

func (k EventKind) String() string {
	switch k {
	case StateChanged:
		return "state_changed"
	case SyncError:
		return "sync_error"
	default:
		return ""
	}
}

// SyncEvent is published once per poll tick.
//
// Snapshot is set for [StateChanged]; Err wraps [shared.ErrSyncTransient] for [SyncError].
type SyncEvent struct {
	Kind     EventKind
	Snapshot *models.PlaybackSnapshot
	Err      error
	At       time.Time
}

// FetchFunc fetches one playback snapshot.
type FetchFunc func(ctx context.Context) (*models.PlaybackSnapshot, error)

// Ticker is the clock driving [PlaybackSync].
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps [time.NewTicker].
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// PlaybackSyncOpts configures a [PlaybackSync].
type PlaybackSyncOpts struct {
	Fetch  FetchFunc
	Logger *log.Logger
	// Event channel capacity, default 16.
	Buffer int
	// Defaults to [NewTimeTicker].
	NewTicker func(time.Duration) Ticker
}

// PlaybackSync mirrors the remote player state as events.
type PlaybackSync struct {
	fetch     FetchFunc
	newTicker func(time.Duration) Ticker
	events    chan SyncEvent
	logger    *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	latestMu sync.RWMutex
	latest   *models.PlaybackSnapshot
}

func NewPlaybackSync(opts PlaybackSyncOpts) *PlaybackSync {
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 16
	}
	newTicker := opts.NewTicker
	if newTicker == nil {
		newTicker = NewTimeTicker
	}
	return &PlaybackSync{
		fetch:     opts.Fetch,
		newTicker: newTicker,
		events:    make(chan SyncEvent, buffer),
		logger:    shared.WithLogger(opts.Logger, "component", "sync"),
	}
}

// Events returns the channel every tick publishes to. It is never closed.
//
// Events are dropped when the channel is full.
func (p *PlaybackSync) Events() <-chan SyncEvent {
	return p.events
}

// Start begins polling every interval, replacing a loop that is already running.
//
// The loop also ends when ctx is canceled.
func (p *PlaybackSync) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: sync interval must be positive, got %s", shared.ErrInvalidArgument, interval)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.logger.Debug("replacing running sync loop")
		p.stopLocked()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := p.newTicker(interval)

	p.cancel = cancel
	p.done = done

	logger := p.logger.With("sync_id", shared.GenerateID())
	go p.run(loopCtx, ticker, done, logger)
	logger.Info("playback sync started", "interval", interval)
	return nil
}

// Stop ends the loop and waits for it to exit. Unread events are discarded and none are published
// after Stop returns.
//
// Calling Stop when nothing is running is a no-op.
func (p *PlaybackSync) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.stopLocked()
	p.logger.Info("playback sync stopped")
}

// Running reports whether a loop is active.
func (p *PlaybackSync) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Latest returns the snapshot of the most recent successful tick, or nil.
func (p *PlaybackSync) Latest() *models.PlaybackSnapshot {
	p.latestMu.RLock()
	defer p.latestMu.RUnlock()
	return p.latest
}

// stopLocked ends the loop and discards events it left in the channel.
func (p *PlaybackSync) stopLocked() {
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil

	for {
		select {
		case <-p.events:
		default:
			return
		}
	}
}

func (p *PlaybackSync) run(ctx context.Context, ticker Ticker, done chan struct{}, logger *log.Logger) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			p.tick(ctx, logger)
		}
	}
}

func (p *PlaybackSync) tick(ctx context.Context, logger *log.Logger) {
	snapshot, err := p.fetch(ctx)
	if ctx.Err() != nil {
		return
	}

	event := SyncEvent{At: time.Now()}
	if err != nil {
		logger.Warn("playback sync tick failed", "error", err)
		event.Kind = SyncError
		event.Err = fmt.Errorf("%w: %w", shared.ErrSyncTransient, err)
	} else {
		p.latestMu.Lock()
		p.latest = snapshot
		p.latestMu.Unlock()

		event.Kind = StateChanged
		event.Snapshot = snapshot
	}

	select {
	case p.events <- event:
	default:
		logger.Debug("sync event dropped, channel full", "kind", event.Kind)
	}
}
