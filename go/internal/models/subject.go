package models

import (
	"math"
	"time"
)

// Subject is a game entity whose balance and upgrades are tracked server side.
type Subject struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Balance          int64     `json:"balance"`
	BotCount         int       `json:"bot_count"`
	BotLevel         int       `json:"bot_level"`
	MultiplierLevel  int       `json:"multiplier_level"`
	LastProductionAt time.Time `json:"last_production_at"`
}

// BotCost is the price of the next bot.
func (s *Subject) BotCost() int64 {
	return int64(BaseBotCost * math.Pow(BotCostGrowth, float64(s.BotCount)))
}

// MultiplierCost is the price of the next click multiplier level.
func (s *Subject) MultiplierCost() int64 {
	return int64(BaseMultiplierCost * math.Pow(MultiplierCostGrowth, float64(s.MultiplierLevel)))
}

// BotUpgradeCost is the price of the next bot efficiency level.
func (s *Subject) BotUpgradeCost() int64 {
	return int64(BaseBotUpgradeCost * math.Pow(BotUpgradeCostGrowth, float64(s.BotLevel)))
}

func (s *Subject) ClickMultiplier() float64 {
	return 1.0 + float64(s.MultiplierLevel)*MultiplierStep
}

func (s *Subject) ProductionRatePerSecond() float64 {
	return float64(s.BotCount) * BotBaseRate * (1 + float64(s.BotLevel)*BotLevelBonus)
}

// Stats derives the client-facing snapshot.
func (s *Subject) Stats() Stats {
	return Stats{
		BotCount:                s.BotCount,
		BotLevel:                s.BotLevel,
		MultiplierLevel:         s.MultiplierLevel,
		ProductionRatePerSecond: s.ProductionRatePerSecond(),
		ClickMultiplier:         s.ClickMultiplier(),
		BotCost:                 s.BotCost(),
		BotUpgradeCost:          s.BotUpgradeCost(),
		MultiplierCost:          s.MultiplierCost(),
	}
}
