package clicker

import (
	"math"
	"time"

	"github.com/mcdev12/clicker/go/clients/clicker_client"
	"github.com/mcdev12/clicker/go/internal/models"
)

// Session is the state of one selected subject. It is created when a subject
// is selected and dropped when it is deselected; nothing in it outlives that.
type Session struct {
	SubjectID string
	Epoch     uint64
	Balance   int64
	Stats     models.Stats

	// Synced turns true once the first stats sync has landed
	Synced bool

	carry        ProductionAccumulator
	gate         *ActionGate
	lastTick     time.Time
	clickReadyAt time.Time
	reconciling  bool
}

func newSession(subjectID string, epoch uint64, balance int64, now time.Time) *Session {
	return &Session{
		SubjectID: subjectID,
		Epoch:     epoch,
		Balance:   balance,
		Stats:     models.DefaultStats(),
		gate:      NewActionGate(),
		lastTick:  now,
	}
}

// advance runs the production simulation up to now and credits whole units.
func (s *Session) advance(now time.Time) int64 {
	elapsed := now.Sub(s.lastTick)
	s.lastTick = now

	units := s.carry.Advance(s.Stats.ProductionRatePerSecond, elapsed)
	s.Balance += units
	return units
}

// applyStats replaces stats and balance wholesale with the server's snapshot and
// returns how far the local balance had drifted from it.
func (s *Session) applyStats(res *clicker_client.StatsResult) int64 {
	drift := s.Balance - res.Balance

	s.Balance = res.Balance
	s.Stats = models.Stats{
		BotCount:                res.BotCount,
		BotLevel:                res.BotLevel,
		MultiplierLevel:         res.MultiplierLevel,
		ProductionRatePerSecond: res.ProductionRatePerSecond,
		ClickMultiplier:         res.ClickMultiplier,
		BotCost:                 res.BotCost,
		BotUpgradeCost:          res.BotUpgradeCost,
		MultiplierCost:          res.MultiplierCost,
	}
	s.Synced = true
	return drift
}

// clickValue is the optimistic gain of one click.
func (s *Session) clickValue() int64 {
	m := s.Stats.ClickMultiplier
	if m < 1 || math.IsNaN(m) {
		m = 1
	}
	return int64(math.Floor(m))
}

// cost returns the price of the next purchase of kind.
func (s *Session) cost(kind ActionKind) int64 {
	switch kind {
	case ActionBuyBot:
		return s.Stats.BotCost
	case ActionUpgradeMultiplier:
		return s.Stats.MultiplierCost
	case ActionUpgradeBots:
		return s.Stats.BotUpgradeCost
	default:
		return 0
	}
}

// controlEnabled reports whether the control for kind should accept input.
func (s *Session) controlEnabled(kind ActionKind) bool {
	return !s.gate.Held(kind) && s.Balance >= s.cost(kind)
}

// Snapshot is a point-in-time copy of the engine state.
type Snapshot struct {
	Running   bool
	SubjectID string
	Epoch     uint64
	Balance   int64
	Stats     models.Stats
	Synced    bool
	Carry     float64
	InFlight  []ActionKind
	LastTick  time.Time
	Notice    *Notice
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		Running:   true,
		SubjectID: s.SubjectID,
		Epoch:     s.Epoch,
		Balance:   s.Balance,
		Stats:     s.Stats,
		Synced:    s.Synced,
		Carry:     s.carry.Carry(),
		InFlight:  s.gate.HeldKinds(),
		LastTick:  s.lastTick,
	}
}
