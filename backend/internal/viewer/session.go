// Package viewer drives one interactive graph view: it loads data, samples
// it, runs the force layout frame by frame and applies pointer, zoom and
// search interaction. Every piece of session state is owned by a single
// event-loop goroutine; the exported methods only post work to it.
package viewer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blog-graph/backend/internal/layout"
	"blog-graph/backend/internal/models"
	"blog-graph/backend/internal/sampler"
	"blog-graph/backend/pkg/config"
	apperrors "blog-graph/backend/pkg/errors"
	"blog-graph/backend/pkg/logger"
)

// Options configures a Session
type Options struct {
	Sampler        sampler.Options
	Layout         layout.Config
	WarmupTicks    int
	FrameInterval  time.Duration
	SearchDebounce time.Duration
}

// DefaultOptions derives session options from the built-in tuning
func DefaultOptions() Options {
	return OptionsFromTuning(config.DefaultTuning())
}

// OptionsFromTuning derives session options from a tuning file
func OptionsFromTuning(t config.Tuning) Options {
	return Options{
		Sampler:        sampler.FromTuning(t.Sampler),
		Layout:         layout.FromTuning(t.Layout),
		WarmupTicks:    t.Layout.WarmupTicks,
		FrameInterval:  time.Duration(t.Viewer.FrameIntervalMs) * time.Millisecond,
		SearchDebounce: time.Duration(t.Viewer.SearchDebounceMs) * time.Millisecond,
	}
}

// Option customises a Session
type Option func(*Session)

// WithOptions replaces the session options
func WithOptions(opts Options) Option {
	return func(s *Session) { s.opts = opts }
}

// WithNavigator sets where double-clicked blog nodes are opened
func WithNavigator(n Navigator) Option {
	return func(s *Session) { s.navigator = n }
}

// WithOverlay sets the tooltip layer
func WithOverlay(o Overlay) Option {
	return func(s *Session) { s.overlay = o }
}

// WithFrameHook registers fn to receive a snapshot after every frame and
// state change. fn runs on the event loop and must not call back into the
// session synchronously.
func WithFrameHook(fn func(Snapshot)) Option {
	return func(s *Session) { s.onFrame = fn }
}

// WithLogger overrides the session logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session is one viewer instance
type Session struct {
	id        string
	fetcher   Fetcher
	opts      Options
	navigator Navigator
	overlay   Overlay
	onFrame   func(Snapshot)
	logger    *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	events  chan func()
	done    chan struct{}
	dispose sync.Once

	finalMu sync.Mutex
	final   Snapshot

	// owned by the event loop
	state       State
	lastErr     error
	query       Query
	loaded      bool
	token       uint64
	cancelFetch context.CancelFunc
	sim         *layout.Simulation
	sample      sampler.Result
	ticker      *time.Ticker
	transform   Transform
	hovered     string
	focused     string
	search      string
	searchGen   uint64
	debounce    *time.Timer
	panning     bool
	panX, panY  float64
}

// NewSession starts the event loop of a new, idle session
func NewSession(fetcher Fetcher, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        uuid.New().String(),
		fetcher:   fetcher,
		opts:      DefaultOptions(),
		navigator: noopNavigator{},
		overlay:   noopOverlay{},
		logger:    logger.Named("viewer"),
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan func(), 64),
		done:      make(chan struct{}),
		state:     StateIdle,
		transform: Identity(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.opts.FrameInterval <= 0 {
		s.opts.FrameInterval = 16 * time.Millisecond
	}
	s.logger = s.logger.With(zap.String("session_id", s.id))

	go s.loop()
	return s
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Done is closed once the session has been disposed
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) loop() {
	defer close(s.done)
	for {
		var frames <-chan time.Time
		if s.ticker != nil {
			frames = s.ticker.C
		}
		select {
		case fn := <-s.events:
			fn()
		case <-frames:
			s.frame()
		}
		if s.state == StateDisposed {
			return
		}
	}
}

// post queues fn on the event loop; it reports false after disposal
func (s *Session) post(fn func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- fn:
		return true
	case <-s.done:
		return false
	}
}

// call runs fn on the event loop and waits for it
func (s *Session) call(fn func()) bool {
	finished := make(chan struct{})
	if !s.post(func() { fn(); close(finished) }) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-s.done:
		return false
	}
}

// Load fetches q asynchronously. A newer Load supersedes any fetch still in
// flight: its context is cancelled and its result ignored.
func (s *Session) Load(q Query) {
	s.post(func() { s.startLoad(q) })
}

// Retry repeats the last query after an error
func (s *Session) Retry() {
	s.post(func() {
		if s.state == StateError && s.loaded {
			s.startLoad(s.query)
		}
	})
}

func (s *Session) startLoad(q Query) {
	if s.cancelFetch != nil {
		s.cancelFetch()
	}
	s.token++
	token := s.token
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancelFetch = cancel
	s.query = q
	s.loaded = true
	s.lastErr = nil
	s.stopSimulation()
	s.setState(StateLoading)

	s.logger.Debug("Loading graph", zap.String("scope", q.scope()), zap.Uint64("token", token))
	go func() {
		data, err := s.fetcher.Fetch(ctx, q)
		s.post(func() { s.finishLoad(token, q, data, err) })
	}()
}

func (s *Session) finishLoad(token uint64, q Query, data *models.GraphData, err error) {
	if token != s.token {
		s.logger.Debug("Ignoring superseded load", zap.Uint64("token", token), zap.Uint64("current", s.token))
		return
	}
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.lastErr = fetchError(q, err)
		s.logger.Warn("Graph fetch failed", zap.String("scope", q.scope()), zap.Error(err))
		s.setState(StateError)
		return
	}

	if data.IsEmpty() {
		s.lastErr = apperrors.NewEmptyGraphResult(q.scope())
		s.setState(StateEmpty)
		return
	}

	s.sample = sampler.Sample(data.Nodes, data.Relationships, s.opts.Sampler)
	if s.sample.Empty() {
		s.lastErr = apperrors.NewEmptyGraphResult(q.scope())
		s.setState(StateEmpty)
		return
	}

	s.sim = layout.New(s.sample.Nodes, s.sample.Edges, s.opts.Layout)
	s.sim.Warmup(s.opts.WarmupTicks)
	s.hovered, s.focused = "", ""
	s.overlay.HideTooltip()

	s.logger.Info("Graph ready",
		zap.String("scope", q.scope()),
		zap.Int("nodes", len(s.sample.Nodes)),
		zap.Int("links", len(s.sample.Edges)),
		zap.Int("dropped_nodes", s.sample.DroppedNodes),
	)
	s.setState(StateRendering)
	s.startFrames()
}

// stopSimulation guarantees at most one live simulation per session
func (s *Session) stopSimulation() {
	s.stopFrames()
	if s.sim != nil {
		s.sim.Stop()
		s.sim = nil
	}
	s.sample = sampler.Result{}
	s.panning = false
}

func (s *Session) startFrames() {
	if s.ticker == nil {
		s.ticker = time.NewTicker(s.opts.FrameInterval)
	}
}

func (s *Session) stopFrames() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Session) frame() {
	if s.sim == nil {
		s.stopFrames()
		return
	}
	if !s.sim.Tick() {
		if _, held := s.sim.Dragging(); !held {
			s.stopFrames()
		}
	}
	s.emit()
}

func (s *Session) setState(state State) {
	if s.state == state {
		return
	}
	s.logger.Debug("State change", zap.Stringer("from", s.state), zap.Stringer("to", state))
	s.state = state
	s.emit()
}

func (s *Session) emit() {
	if s.onFrame != nil {
		s.onFrame(s.snapshot())
	}
}

// Dispose tears the session down: the simulation, frame ticker, debounce
// timer and in-flight fetch are stopped and the overlay removed. It blocks
// until the event loop exits and is safe to call more than once.
func (s *Session) Dispose() {
	s.dispose.Do(func() {
		s.post(func() {
			s.stopSimulation()
			if s.debounce != nil {
				s.debounce.Stop()
				s.debounce = nil
			}
			if s.cancelFetch != nil {
				s.cancelFetch()
				s.cancelFetch = nil
			}
			s.cancel()
			s.overlay.HideTooltip()
			s.overlay.Remove()
			s.state = StateDisposed
			s.finalMu.Lock()
			s.final = s.snapshot()
			s.finalMu.Unlock()
			s.logger.Debug("Session disposed")
		})
	})
	<-s.done
}

// Snapshot returns a copy of the current view
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	if s.call(func() { snap = s.snapshot() }) {
		return snap
	}
	s.finalMu.Lock()
	defer s.finalMu.Unlock()
	return s.final
}
