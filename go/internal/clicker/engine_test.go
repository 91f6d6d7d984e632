package clicker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/clicker/go/clients/clicker_client"
	"github.com/mcdev12/clicker/go/internal/clicker/events"
	"github.com/mcdev12/clicker/go/internal/models"
)

// fakeAPI serves stats from a per-subject table and delegates actions to
// optional hooks, counting every call.
type fakeAPI struct {
	mu       sync.Mutex
	calls    map[clicker_client.Operation]int
	stats    map[string]clicker_client.StatsResult
	statsErr error
	// GetStats blocks until this is closed, when set
	statsHold chan struct{}

	click             func(subjectID string, amount int, requestID string) (*clicker_client.ClickResult, error)
	buyBot            func(subjectID string) (*clicker_client.BuyBotResult, error)
	upgradeMultiplier func(subjectID string) (*clicker_client.UpgradeMultiplierResult, error)
	upgradeBots       func(subjectID string) (*clicker_client.UpgradeBotsResult, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls: make(map[clicker_client.Operation]int),
		stats: make(map[string]clicker_client.StatsResult),
	}
}

func (f *fakeAPI) setStats(subjectID string, res clicker_client.StatsResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res.Envelope = clicker_client.Succeeded()
	f.stats[subjectID] = res
}

func (f *fakeAPI) setStatsErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsErr = err
}

func (f *fakeAPI) count(op clicker_client.Operation) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) record(op clicker_client.Operation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeAPI) holdStats() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsHold = make(chan struct{})
	return f.statsHold
}

func (f *fakeAPI) GetStats(ctx context.Context, subjectID string) (*clicker_client.StatsResult, error) {
	f.mu.Lock()
	f.calls[clicker_client.OpGetStats]++
	hold := f.statsHold
	f.mu.Unlock()
	if hold != nil {
		<-hold
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	res, ok := f.stats[subjectID]
	if !ok {
		return nil, &clicker_client.RemoteError{Op: clicker_client.OpGetStats, Message: "subject not found"}
	}
	return &res, nil
}

func (f *fakeAPI) Click(ctx context.Context, subjectID string, amount int, requestID string) (*clicker_client.ClickResult, error) {
	f.record(clicker_client.OpClick)
	if f.click == nil {
		return nil, &clicker_client.TransportError{Op: clicker_client.OpClick, Err: errors.New("no click handler")}
	}
	return f.click(subjectID, amount, requestID)
}

func (f *fakeAPI) BuyBot(ctx context.Context, subjectID string) (*clicker_client.BuyBotResult, error) {
	f.record(clicker_client.OpBuyBot)
	if f.buyBot == nil {
		return nil, &clicker_client.TransportError{Op: clicker_client.OpBuyBot, Err: errors.New("no buy-bot handler")}
	}
	return f.buyBot(subjectID)
}

func (f *fakeAPI) UpgradeMultiplier(ctx context.Context, subjectID string) (*clicker_client.UpgradeMultiplierResult, error) {
	f.record(clicker_client.OpUpgradeMultiplier)
	if f.upgradeMultiplier == nil {
		return nil, &clicker_client.TransportError{Op: clicker_client.OpUpgradeMultiplier, Err: errors.New("no handler")}
	}
	return f.upgradeMultiplier(subjectID)
}

func (f *fakeAPI) UpgradeBots(ctx context.Context, subjectID string) (*clicker_client.UpgradeBotsResult, error) {
	f.record(clicker_client.OpUpgradeBots)
	if f.upgradeBots == nil {
		return nil, &clicker_client.TransportError{Op: clicker_client.OpUpgradeBots, Err: errors.New("no handler")}
	}
	return f.upgradeBots(subjectID)
}

type recordingView struct {
	mu       sync.Mutex
	balances []int64
	controls map[ActionKind]bool
	notices  []Notice
	cleared  []uint64
	feedback []int64
}

func newRecordingView() *recordingView {
	return &recordingView{controls: make(map[ActionKind]bool)}
}

func (v *recordingView) RenderBalance(balance int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balances = append(v.balances, balance)
}

func (v *recordingView) RenderStats(models.Stats) {}

func (v *recordingView) SetControlEnabled(kind ActionKind, enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.controls[kind] = enabled
}

func (v *recordingView) ShowNotice(n Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, n)
}

func (v *recordingView) ClearNotice(id uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cleared = append(v.cleared, id)
}

func (v *recordingView) ShowClickFeedback(units int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.feedback = append(v.feedback, units)
}

func (v *recordingView) lastBalance() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.balances) == 0 {
		return -1
	}
	return v.balances[len(v.balances)-1]
}

func (v *recordingView) control(kind ActionKind) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.controls[kind]
}

type recordingMetrics struct {
	mu         sync.Mutex
	actions    map[string]int
	rejections map[string]int
	reconciled int
	syncFailed int
	produced   int64
	stale      int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{actions: make(map[string]int), rejections: make(map[string]int)}
}

func (m *recordingMetrics) RecordAction(kind ActionKind, outcome string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[kind.String()+"/"+outcome]++
}

func (m *recordingMetrics) RecordRejected(kind ActionKind, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections[kind.String()+"/"+reason]++
}

func (m *recordingMetrics) RecordReconciliation(success bool, drift int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.reconciled++
	} else {
		m.syncFailed++
	}
}

func (m *recordingMetrics) RecordProduction(units int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.produced += units
}

func (m *recordingMetrics) RecordStaleDiscard(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stale++
}

func (m *recordingMetrics) get(f func(m *recordingMetrics) int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return f(m)
}

type harness struct {
	engine    *Engine
	api       *fakeAPI
	view      *recordingView
	metrics   *recordingMetrics
	publisher *events.RecordingPublisher
	clock     *clockwork.FakeClock
}

func startEngine(t *testing.T, api *fakeAPI) *harness {
	t.Helper()

	h := &harness{
		api:       api,
		view:      newRecordingView(),
		metrics:   newRecordingMetrics(),
		publisher: &events.RecordingPublisher{},
		clock:     clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	h.engine = NewEngine(api, h.view,
		WithClock(h.clock),
		WithMetrics(h.metrics),
		WithPublisher(h.publisher),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go h.engine.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.engine.Done()
	})
	return h
}

// waitUntil polls cond in real time; the engine's own clock is fake.
func waitUntil(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", desc)
		}
		time.Sleep(time.Millisecond)
	}
}

func (h *harness) snapshot(t *testing.T) Snapshot {
	t.Helper()
	snap, err := h.engine.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap
}

func (h *harness) waitFor(t *testing.T, desc string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	var snap Snapshot
	waitUntil(t, desc, func() bool {
		snap = h.snapshot(t)
		return cond(snap)
	})
	return snap
}

func (h *harness) selectSynced(t *testing.T, subjectID string, balance int64) Snapshot {
	t.Helper()
	if err := h.engine.Select(subjectID, balance); err != nil {
		t.Fatalf("select: %v", err)
	}
	return h.waitFor(t, "first sync", func(s Snapshot) bool {
		return s.SubjectID == subjectID && s.Synced
	})
}

func inFlight(s Snapshot, kind ActionKind) bool {
	for _, k := range s.InFlight {
		if k == kind {
			return true
		}
	}
	return false
}

func TestEngine_SelectSyncsAndBuyBotAppliesServerValues(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{Balance: 120, BotCost: 10, MultiplierCost: 100, BotUpgradeCost: 250, ClickMultiplier: 1})

	release := make(chan struct{})
	api.buyBot = func(subjectID string) (*clicker_client.BuyBotResult, error) {
		<-release
		return &clicker_client.BuyBotResult{
			Envelope:                clicker_client.Succeeded(),
			NewBalance:              110,
			BotCount:                1,
			NextBotCost:             15,
			ProductionRatePerSecond: 0.1,
		}, nil
	}
	h := startEngine(t, api)

	snap := h.selectSynced(t, "s1", 0)
	if snap.Balance != 120 {
		t.Fatalf("Expected balance 120 after sync, got %d", snap.Balance)
	}
	if h.view.lastBalance() != 120 {
		t.Errorf("Expected view to show 120, got %d", h.view.lastBalance())
	}
	if !h.view.control(ActionBuyBot) {
		t.Error("Expected buy_bot enabled with 120 >= 10")
	}

	h.engine.BuyBot()
	snap = h.snapshot(t)
	if !inFlight(snap, ActionBuyBot) {
		t.Fatalf("Expected buy_bot in flight, got %v", snap.InFlight)
	}
	if snap.Balance != 120 {
		t.Errorf("Expected balance untouched while purchase is pending, got %d", snap.Balance)
	}
	if h.view.control(ActionBuyBot) {
		t.Error("Expected buy_bot control disabled while pending")
	}

	close(release)
	snap = h.waitFor(t, "buy_bot resolution", func(s Snapshot) bool { return !inFlight(s, ActionBuyBot) })

	if snap.Balance != 110 || snap.Stats.BotCount != 1 || snap.Stats.BotCost != 15 {
		t.Errorf("Expected balance 110, 1 bot, cost 15; got %d, %d, %d", snap.Balance, snap.Stats.BotCount, snap.Stats.BotCost)
	}
	if h.view.lastBalance() != 110 {
		t.Errorf("Expected view to show 110, got %d", h.view.lastBalance())
	}
	if snap.Notice == nil || snap.Notice.Level != NoticeSuccess {
		t.Errorf("Expected a success notice, got %+v", snap.Notice)
	}
	if n := h.metrics.get(func(m *recordingMetrics) int { return m.actions["buy_bot/success"] }); n != 1 {
		t.Errorf("Expected 1 successful buy_bot, got %d", n)
	}
}

func TestEngine_ClickIsOptimisticThenAuthoritative(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{Balance: 50, ClickMultiplier: 2.0, BotCost: 10, MultiplierCost: 100, BotUpgradeCost: 250})

	release := make(chan struct{})
	var gotAmount int
	var gotRequestID string
	api.click = func(subjectID string, amount int, requestID string) (*clicker_client.ClickResult, error) {
		gotAmount, gotRequestID = amount, requestID
		<-release
		return &clicker_client.ClickResult{Envelope: clicker_client.Succeeded(), NewBalance: 53, UnitsAdded: 2}, nil
	}
	h := startEngine(t, api)
	h.selectSynced(t, "s1", 0)

	h.engine.Click()
	snap := h.snapshot(t)
	if snap.Balance != 52 {
		t.Errorf("Expected optimistic balance 52, got %d", snap.Balance)
	}

	close(release)
	snap = h.waitFor(t, "click resolution", func(s Snapshot) bool { return !inFlight(s, ActionClick) })
	if snap.Balance != 53 {
		t.Errorf("Expected authoritative balance 53, got %d", snap.Balance)
	}
	if gotAmount != 1 || gotRequestID == "" {
		t.Errorf("Expected unit amount 1 and a request id, got %d %q", gotAmount, gotRequestID)
	}

	h.view.mu.Lock()
	feedback := append([]int64(nil), h.view.feedback...)
	h.view.mu.Unlock()
	if len(feedback) != 1 || feedback[0] != 2 {
		t.Errorf("Expected +2 click feedback, got %v", feedback)
	}
}

func TestEngine_UpgradeMultiplierAppliesServerValues(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{
		Balance:         2000,
		MultiplierLevel: 5,
		ClickMultiplier: 2.25,
		BotCost:         10,
		MultiplierCost:  1600,
		BotUpgradeCost:  250,
	})

	release := make(chan struct{})
	api.upgradeMultiplier = func(subjectID string) (*clicker_client.UpgradeMultiplierResult, error) {
		<-release
		return &clicker_client.UpgradeMultiplierResult{
			Envelope:           clicker_client.Succeeded(),
			NewBalance:         400,
			ClickMultiplier:    2.5,
			MultiplierLevel:    6,
			NextMultiplierCost: 3200,
		}, nil
	}
	clickHold := make(chan struct{})
	t.Cleanup(func() { close(clickHold) })
	api.click = func(subjectID string, amount int, requestID string) (*clicker_client.ClickResult, error) {
		<-clickHold
		return &clicker_client.ClickResult{Envelope: clicker_client.Succeeded(), NewBalance: 402, UnitsAdded: 2}, nil
	}
	h := startEngine(t, api)
	h.selectSynced(t, "s1", 0)

	h.engine.UpgradeMultiplier()
	snap := h.snapshot(t)
	if !inFlight(snap, ActionUpgradeMultiplier) {
		t.Fatalf("Expected upgrade_multiplier in flight, got %v", snap.InFlight)
	}
	if h.view.control(ActionUpgradeMultiplier) {
		t.Error("Expected upgrade_multiplier control disabled while pending")
	}

	close(release)
	snap = h.waitFor(t, "upgrade_multiplier resolution", func(s Snapshot) bool { return !inFlight(s, ActionUpgradeMultiplier) })

	if snap.Balance != 400 {
		t.Errorf("Expected balance 400, got %d", snap.Balance)
	}
	if snap.Stats.ClickMultiplier != 2.5 || snap.Stats.MultiplierLevel != 6 || snap.Stats.MultiplierCost != 3200 {
		t.Errorf("Expected multiplier 2.5, level 6, cost 3200; got %v, %d, %d",
			snap.Stats.ClickMultiplier, snap.Stats.MultiplierLevel, snap.Stats.MultiplierCost)
	}
	if snap.Stats.BotCost != 10 || snap.Stats.BotUpgradeCost != 250 {
		t.Errorf("Expected other costs untouched, got bot %d, bot upgrade %d", snap.Stats.BotCost, snap.Stats.BotUpgradeCost)
	}
	if snap.Notice == nil || snap.Notice.Level != NoticeSuccess || snap.Notice.Message != "Click multiplier upgraded to x2.5!" {
		t.Errorf("Expected multiplier success notice, got %+v", snap.Notice)
	}
	if n := h.metrics.get(func(m *recordingMetrics) int { return m.actions["upgrade_multiplier/success"] }); n != 1 {
		t.Errorf("Expected 1 successful upgrade_multiplier, got %d", n)
	}

	h.engine.Click()
	snap = h.waitFor(t, "optimistic click", func(s Snapshot) bool { return inFlight(s, ActionClick) })
	if snap.Balance != 402 {
		t.Errorf("Expected click to add floor(2.5) = 2 for balance 402, got %d", snap.Balance)
	}
}

func TestEngine_UpgradeBotsAppliesServerValues(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{
		Balance:                 1000,
		BotCount:                10,
		ProductionRatePerSecond: 1.0,
		ClickMultiplier:         1,
		BotCost:                 50,
		MultiplierCost:          100,
		BotUpgradeCost:          250,
	})
	api.upgradeBots = func(subjectID string) (*clicker_client.UpgradeBotsResult, error) {
		return &clicker_client.UpgradeBotsResult{
			Envelope:                clicker_client.Succeeded(),
			NewBalance:              750,
			BotLevel:                1,
			ProductionRatePerSecond: 1.5,
			NextBotUpgradeCost:      750,
		}, nil
	}
	h := startEngine(t, api)
	start := h.clock.Now()
	h.selectSynced(t, "s1", 0)

	h.engine.UpgradeBots()
	snap := h.waitFor(t, "upgrade_bots resolution", func(s Snapshot) bool {
		return api.count(clicker_client.OpUpgradeBots) == 1 && !inFlight(s, ActionUpgradeBots)
	})

	if snap.Balance != 750 {
		t.Errorf("Expected balance 750, got %d", snap.Balance)
	}
	if snap.Stats.BotLevel != 1 || snap.Stats.ProductionRatePerSecond != 1.5 || snap.Stats.BotUpgradeCost != 750 {
		t.Errorf("Expected bot level 1, rate 1.5, upgrade cost 750; got %d, %v, %d",
			snap.Stats.BotLevel, snap.Stats.ProductionRatePerSecond, snap.Stats.BotUpgradeCost)
	}
	if snap.Stats.BotCount != 10 || snap.Stats.BotCost != 50 || snap.Stats.MultiplierCost != 100 {
		t.Errorf("Expected other stats untouched, got %d bots, bot cost %d, multiplier cost %d",
			snap.Stats.BotCount, snap.Stats.BotCost, snap.Stats.MultiplierCost)
	}
	if snap.Notice == nil || snap.Notice.Level != NoticeSuccess || snap.Notice.Message != "Bots upgraded to level 1!" {
		t.Errorf("Expected bot upgrade success notice, got %+v", snap.Notice)
	}

	// 2s at the new rate of 1.5/s; the old rate would give 2.
	h.clock.Advance(2 * time.Second)
	snap = h.waitFor(t, "production tick", func(s Snapshot) bool {
		return s.LastTick.Equal(start.Add(2 * time.Second))
	})
	if snap.Balance != 753 {
		t.Errorf("Expected 3 units produced for balance 753, got %d", snap.Balance)
	}
}

func TestEngine_ClickCooldown(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{Balance: 100, ClickMultiplier: 1, BotCost: 10, MultiplierCost: 100, BotUpgradeCost: 250})

	var mu sync.Mutex
	server := int64(100)
	api.click = func(subjectID string, amount int, requestID string) (*clicker_client.ClickResult, error) {
		mu.Lock()
		defer mu.Unlock()
		server += int64(amount)
		return &clicker_client.ClickResult{Envelope: clicker_client.Succeeded(), NewBalance: server, UnitsAdded: 1}, nil
	}
	h := startEngine(t, api)
	h.selectSynced(t, "s1", 0)

	h.engine.Click()
	h.engine.Click()
	h.waitFor(t, "first click to land", func(s Snapshot) bool { return !inFlight(s, ActionClick) && s.Balance == 101 })

	// gate is free again but the cooldown still holds
	h.engine.Click()
	snap := h.snapshot(t)
	if snap.Balance != 101 || inFlight(snap, ActionClick) {
		t.Errorf("Expected click within cooldown to be a no-op, got balance %d in flight %v", snap.Balance, snap.InFlight)
	}
	if n := api.count(clicker_client.OpClick); n != 1 {
		t.Errorf("Expected 1 click call, got %d", n)
	}
	if n := h.metrics.get(func(m *recordingMetrics) int { return m.rejections["click/cooldown"] }); n < 1 {
		t.Errorf("Expected a cooldown rejection, got %d", n)
	}

	h.clock.Advance(300 * time.Millisecond)
	h.engine.Click()
	h.waitFor(t, "second click to land", func(s Snapshot) bool { return !inFlight(s, ActionClick) && s.Balance == 102 })
	if n := api.count(clicker_client.OpClick); n != 2 {
		t.Errorf("Expected 2 click calls, got %d", n)
	}
}

func TestEngine_GateAllowsOneCallPerKind(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{Balance: 1000, ClickMultiplier: 1, BotCost: 10, MultiplierCost: 100, BotUpgradeCost: 250})

	release := make(chan struct{})
	api.buyBot = func(subjectID string) (*clicker_client.BuyBotResult, error) {
		<-release
		return &clicker_client.BuyBotResult{Envelope: clicker_client.Succeeded(), NewBalance: 990, BotCount: 1, NextBotCost: 15}, nil
	}
	api.click = func(subjectID string, amount int, requestID string) (*clicker_client.ClickResult, error) {
		return &clicker_client.ClickResult{Envelope: clicker_client.Succeeded(), NewBalance: 1001, UnitsAdded: 1}, nil
	}
	h := startEngine(t, api)
	h.selectSynced(t, "s1", 0)

	h.engine.BuyBot()
	waitUntil(t, "buy_bot dispatch", func() bool { return api.count(clicker_client.OpBuyBot) == 1 })

	h.engine.BuyBot()
	h.engine.BuyBot()
	h.engine.Click()
	h.snapshot(t)

	if n := h.metrics.get(func(m *recordingMetrics) int { return m.rejections["buy_bot/in_flight"] }); n != 2 {
		t.Errorf("Expected 2 in-flight rejections, got %d", n)
	}
	waitUntil(t, "click alongside purchase", func() bool { return api.count(clicker_client.OpClick) == 1 })
	if n := api.count(clicker_client.OpBuyBot); n != 1 {
		t.Errorf("Expected exactly 1 buy_bot call before resolution, got %d", n)
	}

	close(release)
	h.waitFor(t, "buy_bot resolution", func(s Snapshot) bool { return len(s.InFlight) == 0 })
	if n := api.count(clicker_client.OpBuyBot); n != 1 {
		t.Errorf("Expected exactly 1 buy_bot call, got %d", n)
	}
}

func TestEngine_FailedPurchaseKeepsStatsAndReenablesControl(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{Balance: 120, ClickMultiplier: 1, BotCost: 10, MultiplierCost: 100, BotUpgradeCost: 250})
	api.buyBot = func(subjectID string) (*clicker_client.BuyBotResult, error) {
		return nil, &clicker_client.RemoteError{Op: clicker_client.OpBuyBot, Message: "insufficient balance"}
	}
	h := startEngine(t, api)
	h.selectSynced(t, "s1", 0)

	h.engine.BuyBot()
	snap := h.waitFor(t, "failure notice", func(s Snapshot) bool { return len(s.InFlight) == 0 && s.Notice != nil })

	if snap.Stats.BotCost != 10 || snap.Stats.BotCount != 0 {
		t.Errorf("Expected stats unchanged, got %+v", snap.Stats)
	}
	if snap.Notice.Level != NoticeDanger || snap.Notice.Message != "insufficient balance" {
		t.Errorf("Expected danger notice with server message, got %+v", snap.Notice)
	}
	if !h.view.control(ActionBuyBot) {
		t.Error("Expected buy_bot control re-enabled")
	}
	if n := h.metrics.get(func(m *recordingMetrics) int { return m.actions["buy_bot/remote_error"] }); n != 1 {
		t.Errorf("Expected 1 remote_error outcome, got %d", n)
	}
}

func TestEngine_FailedClickKeepsOptimisticCredit(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{Balance: 10, ClickMultiplier: 1, BotCost: 10, MultiplierCost: 100, BotUpgradeCost: 250})
	h := startEngine(t, api)
	h.selectSynced(t, "s1", 0)

	// no click handler: every click fails at the transport
	h.engine.Click()
	snap := h.waitFor(t, "failure notice", func(s Snapshot) bool { return len(s.InFlight) == 0 && s.Notice != nil })

	if snap.Balance != 11 {
		t.Errorf("Expected optimistic credit to stay, got %d", snap.Balance)
	}
	if snap.Notice.Message != failureMessages[ActionClick] {
		t.Errorf("Expected fixed failure message, got %q", snap.Notice.Message)
	}
	if n := h.metrics.get(func(m *recordingMetrics) int { return m.actions["click/transport_error"] }); n != 1 {
		t.Errorf("Expected 1 transport_error outcome, got %d", n)
	}
}

func TestEngine_ReconciliationSnapsDriftBack(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{
		Balance:                 100,
		BotCount:                25,
		ProductionRatePerSecond: 2.5,
		ClickMultiplier:         1,
		BotCost:                 1000,
		MultiplierCost:          100,
		BotUpgradeCost:          250,
	})
	h := startEngine(t, api)
	start := h.clock.Now()
	h.selectSynced(t, "s1", 0)

	h.clock.Advance(4900 * time.Millisecond)
	snap := h.waitFor(t, "production tick", func(s Snapshot) bool {
		return s.LastTick.Equal(start.Add(4900*time.Millisecond)) && s.Balance == 112
	})
	if snap.Carry < 0.24 || snap.Carry > 0.26 {
		t.Errorf("Expected carry 0.25, got %f", snap.Carry)
	}
	if snap.Notice == nil || snap.Notice.Level != NoticeInfo {
		t.Errorf("Expected an info notice for 12 units in one tick, got %+v", snap.Notice)
	}

	h.clock.Advance(100 * time.Millisecond)
	h.waitFor(t, "reconciliation", func(s Snapshot) bool {
		return api.count(clicker_client.OpGetStats) == 2 && s.Balance == 100 && s.LastTick.Equal(start.Add(5*time.Second))
	})
	waitUntil(t, "second reconciled event", func() bool {
		return len(h.publisher.OfType(events.EventTypeReconciled)) == 2
	})

	reconciled := h.publisher.OfType(events.EventTypeReconciled)
	payload, err := events.ParsePayload(reconciled[1])
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if p := payload.(events.ReconciledPayload); p.Drift != 12 {
		t.Errorf("Expected drift 12, got %d", p.Drift)
	}
}

func TestEngine_RepeatedReconciliationIsIdempotent(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{Balance: 77, BotLevel: 1, MultiplierLevel: 2, ClickMultiplier: 1.5, BotCost: 10, MultiplierCost: 400, BotUpgradeCost: 750})
	h := startEngine(t, api)
	first := h.selectSynced(t, "s1", 0)

	for i := 2; i <= 3; i++ {
		h.clock.Advance(5 * time.Second)
		want := i
		waitUntil(t, "periodic sync", func() bool {
			return h.metrics.get(func(m *recordingMetrics) int { return m.reconciled }) == want
		})
	}

	snap := h.snapshot(t)
	if snap.Balance != first.Balance || snap.Stats != first.Stats {
		t.Errorf("Expected identical state, got %d %+v vs %d %+v", snap.Balance, snap.Stats, first.Balance, first.Stats)
	}
}

func TestEngine_OverlappingReconciliationIsSkipped(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{Balance: 30, ClickMultiplier: 1, BotCost: 10, MultiplierCost: 100, BotUpgradeCost: 250})
	release := api.holdStats()
	h := startEngine(t, api)
	defer func() {
		select {
		case <-release:
		default:
			close(release)
		}
	}()

	if err := h.engine.Select("s1", 0); err != nil {
		t.Fatalf("select: %v", err)
	}
	waitUntil(t, "first fetch", func() bool { return api.count(clicker_client.OpGetStats) == 1 })

	h.clock.Advance(5 * time.Second)
	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		if snap := h.snapshot(t); snap.Synced {
			t.Fatal("Expected no sync while the fetch is held")
		}
		if n := api.count(clicker_client.OpGetStats); n != 1 {
			t.Fatalf("Expected the periodic firing to be skipped, got %d fetches", n)
		}
		time.Sleep(time.Millisecond)
	}

	close(release)
	h.waitFor(t, "held sync", func(s Snapshot) bool { return s.Synced && s.Balance == 30 })

	h.clock.Advance(5 * time.Second)
	waitUntil(t, "next periodic fetch", func() bool { return api.count(clicker_client.OpGetStats) == 2 })
}

func TestEngine_SyncFailureLeavesStateUntouched(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{Balance: 40, ClickMultiplier: 1, BotCost: 10, MultiplierCost: 100, BotUpgradeCost: 250})
	h := startEngine(t, api)
	before := h.selectSynced(t, "s1", 0)

	api.setStatsErr(&clicker_client.TransportError{Op: clicker_client.OpGetStats, Err: errors.New("connection refused")})
	h.clock.Advance(5 * time.Second)
	waitUntil(t, "failed sync", func() bool {
		return h.metrics.get(func(m *recordingMetrics) int { return m.syncFailed }) == 1
	})

	snap := h.snapshot(t)
	if snap.Balance != before.Balance || snap.Stats != before.Stats {
		t.Errorf("Expected state untouched after failed sync, got %d %+v", snap.Balance, snap.Stats)
	}
}

func TestEngine_StaleResponseIsDiscarded(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{Balance: 500, ClickMultiplier: 1, BotCost: 10, MultiplierCost: 100, BotUpgradeCost: 250})
	api.setStats("s2", clicker_client.StatsResult{Balance: 7, ClickMultiplier: 1, BotCost: 10, MultiplierCost: 100, BotUpgradeCost: 250})

	release := make(chan struct{})
	api.buyBot = func(subjectID string) (*clicker_client.BuyBotResult, error) {
		<-release
		return &clicker_client.BuyBotResult{Envelope: clicker_client.Succeeded(), NewBalance: 9999, BotCount: 4, NextBotCost: 33}, nil
	}
	h := startEngine(t, api)
	h.selectSynced(t, "s1", 0)

	h.engine.BuyBot()
	waitUntil(t, "buy_bot dispatch", func() bool { return api.count(clicker_client.OpBuyBot) == 1 })

	h.selectSynced(t, "s2", 7)
	close(release)
	waitUntil(t, "stale discard", func() bool {
		return h.metrics.get(func(m *recordingMetrics) int { return m.stale }) == 1
	})

	snap := h.snapshot(t)
	if snap.SubjectID != "s2" || snap.Balance != 7 || snap.Stats.BotCount != 0 {
		t.Errorf("Expected s2 untouched by the s1 response, got %s %d %+v", snap.SubjectID, snap.Balance, snap.Stats)
	}
	if len(snap.InFlight) != 0 {
		t.Errorf("Expected no gates held in the new session, got %v", snap.InFlight)
	}
	if snap.Epoch != 2 {
		t.Errorf("Expected epoch 2, got %d", snap.Epoch)
	}
}

func TestEngine_NoticeExpiry(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{Balance: 0, ClickMultiplier: 1, BotCost: 10, MultiplierCost: 100, BotUpgradeCost: 250})
	api.buyBot = func(subjectID string) (*clicker_client.BuyBotResult, error) {
		return nil, &clicker_client.RemoteError{Op: clicker_client.OpBuyBot, Message: "insufficient balance"}
	}
	api.upgradeBots = func(subjectID string) (*clicker_client.UpgradeBotsResult, error) {
		return nil, &clicker_client.RemoteError{Op: clicker_client.OpUpgradeBots, Message: "insufficient balance for bot upgrade"}
	}
	h := startEngine(t, api)
	h.selectSynced(t, "s1", 0)

	h.engine.BuyBot()
	first := h.waitFor(t, "first notice", func(s Snapshot) bool { return s.Notice != nil })

	h.clock.Advance(2 * time.Second)
	h.engine.UpgradeBots()
	second := h.waitFor(t, "second notice", func(s Snapshot) bool { return s.Notice != nil && s.Notice.ID != first.Notice.ID })

	// the first notice's timer fires but must not hide the newer one
	h.clock.Advance(time.Second)
	h.snapshot(t)
	snap := h.snapshot(t)
	if snap.Notice == nil || snap.Notice.ID != second.Notice.ID {
		t.Fatalf("Expected second notice still visible, got %+v", snap.Notice)
	}

	h.clock.Advance(2 * time.Second)
	h.waitFor(t, "notice cleared", func(s Snapshot) bool { return s.Notice == nil })

	h.view.mu.Lock()
	cleared := append([]uint64(nil), h.view.cleared...)
	h.view.mu.Unlock()
	if len(cleared) != 1 || cleared[0] != second.Notice.ID {
		t.Errorf("Expected only notice %d cleared, got %v", second.Notice.ID, cleared)
	}
}

func TestEngine_DeselectStopsTimers(t *testing.T) {
	api := newFakeAPI()
	api.setStats("s1", clicker_client.StatsResult{Balance: 5, ProductionRatePerSecond: 10, ClickMultiplier: 1, BotCost: 10, MultiplierCost: 100, BotUpgradeCost: 250})
	h := startEngine(t, api)
	h.selectSynced(t, "s1", 0)

	h.engine.Deselect()
	snap := h.waitFor(t, "session end", func(s Snapshot) bool { return !s.Running })
	if snap.SubjectID != "" || snap.Balance != 0 {
		t.Errorf("Expected empty snapshot after deselect, got %+v", snap)
	}

	h.clock.Advance(time.Minute)
	h.snapshot(t)
	if n := api.count(clicker_client.OpGetStats); n != 1 {
		t.Errorf("Expected no syncs after deselect, got %d calls", n)
	}
	if n := h.metrics.get(func(m *recordingMetrics) int { return int(m.produced) }); n != 0 {
		t.Errorf("Expected no production after deselect, got %d", n)
	}
	if h.view.control(ActionClick) {
		t.Error("Expected click control disabled")
	}

	ended := h.publisher.OfType(events.EventTypeSessionEnded)
	if len(ended) != 1 {
		t.Fatalf("Expected 1 SessionEnded event, got %d", len(ended))
	}

	h.engine.Click()
	h.snapshot(t)
	if n := h.metrics.get(func(m *recordingMetrics) int { return m.rejections["click/no_session"] }); n != 1 {
		t.Errorf("Expected a no_session rejection, got %d", n)
	}
}

func TestEngine_StopsOnCancel(t *testing.T) {
	engine := NewEngine(newFakeAPI(), nil, WithClock(clockwork.NewFakeClock()))
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- engine.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Expected nil error on cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}

	if _, err := engine.Snapshot(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
	if err := engine.Click(); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped from Click, got %v", err)
	}
}
