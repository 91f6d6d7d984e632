package models

// Stats is the last server-reported snapshot of a subject's derived state.
// Cost fields are the price of the next purchase, never a running total.
type Stats struct {
	BotCount                int     `json:"bot_count"`
	BotLevel                int     `json:"bot_level"`
	MultiplierLevel         int     `json:"multiplier_level"`
	ProductionRatePerSecond float64 `json:"production_rate_per_second"`
	ClickMultiplier         float64 `json:"click_multiplier"`
	BotCost                 int64   `json:"bot_cost"`
	BotUpgradeCost          int64   `json:"bot_upgrade_cost"`
	MultiplierCost          int64   `json:"multiplier_cost"`
}

const (
	BaseBotCost        = 10
	BaseMultiplierCost = 100
	BaseBotUpgradeCost = 250

	BotCostGrowth        = 1.5
	MultiplierCostGrowth = 2.0
	BotUpgradeCostGrowth = 3.0

	// Each multiplier level adds this much to the click multiplier
	MultiplierStep = 0.25

	// Units per second produced by one level-0 bot
	BotBaseRate = 0.1

	// Each bot level adds this fraction of the base rate
	BotLevelBonus = 0.5
)

// DefaultStats is what a session shows before its first server sync lands.
func DefaultStats() Stats {
	return Stats{
		ClickMultiplier: 1.0,
		BotCost:         BaseBotCost,
		MultiplierCost:  BaseMultiplierCost,
		BotUpgradeCost:  BaseBotUpgradeCost,
	}
}
