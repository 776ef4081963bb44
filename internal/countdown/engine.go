// Package countdown runs a single countdown timer and publishes the remaining
// time to subscribers once per tick until it reaches zero.
package countdown

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is the tick period used when none is configured.
const DefaultInterval = time.Second

// Scheduler latency is absorbed before the remaining time is split into
// fields, so a tick that fires a fraction late still shows the full second.
const tickSlack = 10 * time.Millisecond

type State int

const (
	Idle State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// Observer receives every snapshot of a run. Observers are called on the tick
// goroutine and must not call Start, Reset or Close.
type Observer func(Snapshot)

// Subscription identifies a registered observer.
type Subscription uint64

type subscriber struct {
	id Subscription
	fn Observer
}

type Option func(*Engine)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// Engine owns one countdown. It is meant for a single owner: concurrent
// Start/Reset calls from several goroutines must be serialized by the caller.
type Engine struct {
	mu sync.Mutex
	// emitMu is held while a tick delivers its snapshot.
	emitMu sync.Mutex
	wg     sync.WaitGroup

	clock    clockwork.Clock
	interval time.Duration
	log      zerolog.Logger

	state     State
	requested Duration
	endAt     time.Time
	last      Snapshot
	hasLast   bool
	run       uint64
	stop      chan struct{}
	closed    bool

	nextSub   Subscription
	observers []subscriber
}

func New(opts ...Option) *Engine {
	e := &Engine{
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
		log:      log.Logger.With().Str("component", "countdown").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Start(hours, minutes, seconds int) error {
	return e.StartDuration(Duration{Hours: hours, Minutes: minutes, Seconds: seconds})
}

// StartDuration begins a run of length d. It is rejected with
// ErrAlreadyRunning while another run is in progress.
func (e *Engine) StartDuration(d Duration) error {
	if err := d.Validate(); err != nil {
		e.log.Debug().Err(err).Str("requested", d.String()).Msg("rejected start")
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.state == Running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}

	e.cancelLocked()
	stop := make(chan struct{})
	e.stop = stop
	id := e.run
	e.requested = d
	e.endAt = e.clock.Now().Add(d.Std())
	e.state = Running
	e.last = Snapshot{}
	e.hasLast = false

	ticker := e.clock.NewTicker(e.interval)
	e.wg.Add(1)
	go e.loop(id, ticker, stop)
	endAt := e.endAt
	e.mu.Unlock()

	e.log.Info().
		Str("requested", d.String()).
		Time("ends_at", endAt).
		Dur("interval", e.interval).
		Uint64("run", id).
		Msg("countdown started")
	return nil
}

func (e *Engine) loop(id uint64, ticker clockwork.Ticker, stop <-chan struct{}) {
	defer e.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if e.tick(id) {
				return
			}
		}
	}
}

// tick emits one snapshot for run id and reports whether the run is over.
func (e *Engine) tick(id uint64) bool {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	if e.run != id || e.state != Running {
		e.mu.Unlock()
		return true
	}

	remaining := e.endAt.Sub(e.clock.Now()).Round(tickSlack)
	snap := FromMillis(remaining.Milliseconds())
	snap.Run = id
	if snap.Remaining <= 0 {
		snap.Finished = true
		e.state = Finished
	}
	e.last = snap
	e.hasLast = true

	observers := make([]Observer, len(e.observers))
	for i, s := range e.observers {
		observers[i] = s.fn
	}
	e.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}

	if snap.Finished {
		e.log.Info().Uint64("run", id).Msg("countdown finished")
	} else {
		e.log.Debug().Uint64("run", id).Str("remaining", snap.String()).Msg("tick")
	}
	return snap.Finished
}

// Reset cancels any pending tick and returns to Idle without emitting. When it
// returns, no snapshot of the cancelled run is being delivered.
func (e *Engine) Reset() {
	e.mu.Lock()
	prev := e.state
	e.cancelLocked()
	e.state = Idle
	e.requested = Duration{}
	e.endAt = time.Time{}
	e.last = Snapshot{}
	e.hasLast = false
	e.mu.Unlock()

	e.emitMu.Lock()
	e.emitMu.Unlock()

	if prev != Idle {
		e.log.Info().Str("from", prev.String()).Msg("countdown reset")
	}
}

// Close stops the engine for good and waits for the tick goroutine to exit.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.cancelLocked()
	if e.state == Running {
		e.state = Idle
	}
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Engine) cancelLocked() {
	e.run++
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

func (e *Engine) Subscribe(fn Observer) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextSub++
	e.observers = append(e.observers, subscriber{id: e.nextSub, fn: fn})
	return e.nextSub
}

// Unsubscribe stops delivery to sub from the next tick on.
func (e *Engine) Unsubscribe(sub Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, s := range e.observers {
		if s.id == sub {
			e.observers = append(e.observers[:i:i], e.observers[i+1:]...)
			return
		}
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Running() bool {
	return e.State() == Running
}

// Remaining is the live remaining time of the current run, zero when no run
// is in progress.
func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Running {
		return 0
	}
	return max(e.endAt.Sub(e.clock.Now()), 0)
}

// Last returns the most recently emitted snapshot of the current run.
func (e *Engine) Last() (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.hasLast
}

func (e *Engine) Requested() Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requested
}

// CurrentRun identifies the latest run. Snapshots carry the run they belong to
// so consumers can drop ones that arrive after a reset.
func (e *Engine) CurrentRun() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run
}

func (e *Engine) Interval() time.Duration {
	return e.interval
}
