package clicker

// ActionKind identifies a user-triggered mutation. Each kind has its own gate.
type ActionKind int

const (
	ActionClick ActionKind = iota
	ActionBuyBot
	ActionUpgradeMultiplier
	ActionUpgradeBots
)

// PurchaseKinds are the affordability-gated actions.
var PurchaseKinds = []ActionKind{ActionBuyBot, ActionUpgradeMultiplier, ActionUpgradeBots}

var actionNames = map[ActionKind]string{
	ActionClick:             "click",
	ActionBuyBot:            "buy_bot",
	ActionUpgradeMultiplier: "upgrade_multiplier",
	ActionUpgradeBots:       "upgrade_bots",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseActionKind maps a wire name like "buy_bot" back to its kind.
func ParseActionKind(name string) (ActionKind, bool) {
	for kind, n := range actionNames {
		if n == name {
			return kind, true
		}
	}
	return 0, false
}

// ActionGate allows at most one in-flight remote call per action kind.
// It is a plain flag set: only the engine loop goroutine touches it.
type ActionGate struct {
	inFlight map[ActionKind]bool
}

func NewActionGate() *ActionGate {
	return &ActionGate{inFlight: make(map[ActionKind]bool)}
}

// TryAcquire marks kind as in flight. It returns false if it already was.
func (g *ActionGate) TryAcquire(kind ActionKind) bool {
	if g.inFlight[kind] {
		return false
	}
	g.inFlight[kind] = true
	return true
}

// Release clears kind unconditionally.
func (g *ActionGate) Release(kind ActionKind) {
	delete(g.inFlight, kind)
}

func (g *ActionGate) Held(kind ActionKind) bool {
	return g.inFlight[kind]
}

// HeldKinds returns the in-flight kinds in declaration order.
func (g *ActionGate) HeldKinds() []ActionKind {
	var held []ActionKind
	for _, kind := range []ActionKind{ActionClick, ActionBuyBot, ActionUpgradeMultiplier, ActionUpgradeBots} {
		if g.inFlight[kind] {
			held = append(held, kind)
		}
	}
	return held
}
