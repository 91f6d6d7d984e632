package clicker

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/clicker/go/clients/clicker_client"
	"github.com/mcdev12/clicker/go/internal/clicker/events"
	"github.com/rs/zerolog/log"
)

// ErrStopped is returned by calls made after Run has returned.
var ErrStopped = errors.New("engine stopped")

const queueSize = 256

// API is the authoritative game server as seen by the engine.
type API interface {
	GetStats(ctx context.Context, subjectID string) (*clicker_client.StatsResult, error)
	Click(ctx context.Context, subjectID string, unitAmount int, requestID string) (*clicker_client.ClickResult, error)
	BuyBot(ctx context.Context, subjectID string) (*clicker_client.BuyBotResult, error)
	UpgradeMultiplier(ctx context.Context, subjectID string) (*clicker_client.UpgradeMultiplierResult, error)
	UpgradeBots(ctx context.Context, subjectID string) (*clicker_client.UpgradeBotsResult, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the real clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithMetrics records action and sync outcomes on m.
func WithMetrics(m MetricsCollector) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPublisher forwards engine events to p.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithConfig overrides the default intervals and thresholds.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// Engine keeps one subject's balance and stats in step with the server.
//
// All state is owned by the goroutine running Run. Public methods only post
// events to its queue; remote calls run on their own goroutines and post
// their results back, so nothing below needs a lock.
type Engine struct {
	api       API
	view      View
	clock     clockwork.Clock
	metrics   MetricsCollector
	publisher events.Publisher
	cfg       Config

	queue chan event
	done  chan struct{}

	// owned by the loop
	ctx        context.Context
	session    *Session
	epoch      uint64
	tickTicker clockwork.Ticker
	syncTicker clockwork.Ticker
	notice     *Notice
	noticeSeq  uint64
}

// NewEngine creates an idle engine. Nothing happens until Run is called.
func NewEngine(api API, view View, opts ...Option) *Engine {
	if view == nil {
		view = NopView{}
	}
	e := &Engine{
		api:       api,
		view:      view,
		clock:     clockwork.NewRealClock(),
		metrics:   &NoOpMetricsCollector{},
		publisher: events.NopPublisher{},
		cfg:       DefaultConfig(),
		queue:     make(chan event, queueSize),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run processes events until ctx is cancelled. It must be called once.
func (e *Engine) Run(ctx context.Context) error {
	e.ctx = ctx
	defer close(e.done)

	log.Info().
		Dur("tick_interval", e.cfg.TickInterval).
		Dur("reconcile_interval", e.cfg.ReconcileInterval).
		Msg("clicker engine started")

	for {
		select {
		case <-ctx.Done():
			e.endSession("shutdown")
			log.Info().Msg("clicker engine stopped")
			return nil
		case ev := <-e.queue:
			e.handle(ev)
		case <-tickerChan(e.tickTicker):
			e.onTick()
		case <-tickerChan(e.syncTicker):
			e.reconcile()
		}
	}
}

// Select starts a session for subjectID with the balance the caller last saw
// for it. An empty id ends the current session instead.
func (e *Engine) Select(subjectID string, initialBalance int64) error {
	if subjectID == "" {
		return e.Deselect()
	}
	return e.post(selectEvent{subjectID: subjectID, balance: initialBalance})
}

// Deselect ends the current session, if any.
func (e *Engine) Deselect() error {
	return e.post(deselectEvent{})
}

func (e *Engine) Click() error             { return e.Request(ActionClick) }
func (e *Engine) BuyBot() error            { return e.Request(ActionBuyBot) }
func (e *Engine) UpgradeMultiplier() error { return e.Request(ActionUpgradeMultiplier) }
func (e *Engine) UpgradeBots() error       { return e.Request(ActionUpgradeBots) }

// Request asks for one user action of the given kind. Requests that hit a
// held gate or the click cooldown are dropped silently.
func (e *Engine) Request(kind ActionKind) error {
	return e.post(actionRequested{kind: kind})
}

// Snapshot returns a copy of the current state, taken on the loop goroutine.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case e.queue <- snapshotRequest{reply: reply}:
	case <-e.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-e.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) post(ev event) error {
	select {
	case <-e.done:
		return ErrStopped
	default:
	}

	select {
	case e.queue <- ev:
		return nil
	case <-e.done:
		return ErrStopped
	}
}

func (e *Engine) handle(ev event) {
	switch ev := ev.(type) {
	case selectEvent:
		e.startSession(ev.subjectID, ev.balance)
	case deselectEvent:
		e.endSession("deselected")
	case actionRequested:
		e.onActionRequested(ev.kind)
	case actionResolved:
		e.onActionResolved(ev)
	case statsResolved:
		e.onStatsResolved(ev)
	case noticeExpired:
		e.onNoticeExpired(ev.id)
	case snapshotRequest:
		ev.reply <- e.snapshot()
	default:
		log.Warn().Msgf("unknown engine event %T", ev)
	}
}

func (e *Engine) startSession(subjectID string, balance int64) {
	if e.session != nil {
		e.endSession("switched")
	}

	e.epoch++
	now := e.clock.Now()
	e.session = newSession(subjectID, e.epoch, balance, now)
	e.tickTicker = e.clock.NewTicker(e.cfg.TickInterval)
	e.syncTicker = e.clock.NewTicker(e.cfg.ReconcileInterval)

	log.Info().
		Str("subject_id", subjectID).
		Uint64("epoch", e.epoch).
		Int64("balance", balance).
		Msg("session started")

	e.view.SetControlEnabled(ActionClick, true)
	e.refresh()
	e.publish(events.EventTypeSessionStarted, subjectID, events.SessionStartedPayload{
		Epoch:          e.epoch,
		InitialBalance: balance,
	})

	e.reconcile()
}

// endSession tears down the timers and drops the session state. Calls still in
// flight are left to finish and are discarded when they resolve.
func (e *Engine) endSession(reason string) {
	s := e.session
	if s == nil {
		return
	}

	stopTicker(e.tickTicker)
	stopTicker(e.syncTicker)
	e.tickTicker, e.syncTicker = nil, nil
	e.session = nil

	log.Info().
		Str("subject_id", s.SubjectID).
		Uint64("epoch", s.Epoch).
		Str("reason", reason).
		Msg("session ended")

	e.view.SetControlEnabled(ActionClick, false)
	for _, kind := range PurchaseKinds {
		e.view.SetControlEnabled(kind, false)
	}
	e.publish(events.EventTypeSessionEnded, s.SubjectID, events.SessionEndedPayload{
		Epoch:   s.Epoch,
		Balance: s.Balance,
		Reason:  reason,
	})
}

// refresh pushes balance, stats and control affordability to the view.
func (e *Engine) refresh() {
	s := e.session
	if s == nil {
		return
	}
	e.view.RenderBalance(s.Balance)
	e.view.RenderStats(s.Stats)
	for _, kind := range PurchaseKinds {
		e.view.SetControlEnabled(kind, s.controlEnabled(kind))
	}
}

func (e *Engine) snapshot() Snapshot {
	var snap Snapshot
	if e.session != nil {
		snap = e.session.snapshot()
	}
	snap.Epoch = e.epoch
	if e.notice != nil {
		n := *e.notice
		snap.Notice = &n
	}
	return snap
}

// live reports whether a result tagged with epoch still belongs to the
// current session.
func (e *Engine) live(epoch uint64) (*Session, bool) {
	if e.session == nil || e.session.Epoch != epoch {
		return nil, false
	}
	return e.session, true
}

func (e *Engine) publish(eventType events.EventType, subjectID string, payload any) {
	ev, err := events.New(eventType, subjectID, e.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build engine event")
		return
	}
	if err := e.publisher.Publish(context.WithoutCancel(e.ctx), ev); err != nil {
		log.Warn().Err(err).Str("event_type", string(eventType)).Msg("failed to publish engine event")
	}
}

func tickerChan(t clockwork.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.Chan()
}

func stopTicker(t clockwork.Ticker) {
	if t != nil {
		t.Stop()
	}
}
