package display

import (
	"sync"

	"github.com/mcdev12/clicker/go/internal/clicker"
	"github.com/mcdev12/clicker/go/internal/models"
	"github.com/rs/zerolog"
)

// LogView is a headless clicker.View that writes what a screen would show to
// a zerolog logger. Repeated identical renders are suppressed.
type LogView struct {
	logger zerolog.Logger

	mu       sync.Mutex
	balance  int64
	stats    models.Stats
	controls map[clicker.ActionKind]bool
	rendered bool
}

func NewLogView(logger zerolog.Logger) *LogView {
	return &LogView{
		logger:   logger,
		balance:  -1,
		controls: make(map[clicker.ActionKind]bool),
	}
}

func (v *LogView) RenderBalance(balance int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.balance == balance {
		return
	}
	v.balance = balance
	v.logger.Info().Str("balance", FormatUnits(float64(balance))).Msg("balance")
}

func (v *LogView) RenderStats(stats models.Stats) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.rendered && v.stats == stats {
		return
	}
	v.stats, v.rendered = stats, true
	v.logger.Info().
		Int("bots", stats.BotCount).
		Str("production", FormatPerMinute(stats.ProductionRatePerSecond)).
		Str("click_multiplier", FormatMultiplier(stats.ClickMultiplier)).
		Str("bot_cost", FormatUnits(float64(stats.BotCost))).
		Str("multiplier_cost", FormatUnits(float64(stats.MultiplierCost))).
		Str("bot_upgrade_cost", FormatUnits(float64(stats.BotUpgradeCost))).
		Msg("stats")
}

func (v *LogView) SetControlEnabled(kind clicker.ActionKind, enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if prev, ok := v.controls[kind]; ok && prev == enabled {
		return
	}
	v.controls[kind] = enabled
	v.logger.Debug().Str("control", kind.String()).Bool("enabled", enabled).Msg("control")
}

func (v *LogView) ShowNotice(n clicker.Notice) {
	var ev *zerolog.Event
	switch n.Level {
	case clicker.NoticeDanger:
		ev = v.logger.Warn()
	default:
		ev = v.logger.Info()
	}
	ev.Uint64("notice_id", n.ID).Str("notice_level", string(n.Level)).Msg(n.Message)
}

func (v *LogView) ClearNotice(id uint64) {
	v.logger.Debug().Uint64("notice_id", id).Msg("notice cleared")
}

func (v *LogView) ShowClickFeedback(units int64) {
	v.logger.Info().Int64("units", units).Msgf("+%d", units)
}
