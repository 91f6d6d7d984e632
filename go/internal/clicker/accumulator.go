package clicker

import (
	"math"
	"time"
)

// ProductionAccumulator carries sub-unit production between ticks.
// Invariant: carry stays in [0, 1).
type ProductionAccumulator struct {
	carry float64
}

// Advance adds rate*elapsed to the carry and returns the whole units it releases.
func (a *ProductionAccumulator) Advance(ratePerSecond float64, elapsed time.Duration) int64 {
	if elapsed <= 0 || ratePerSecond <= 0 || math.IsNaN(ratePerSecond) || math.IsInf(ratePerSecond, 0) {
		return 0
	}

	a.carry += ratePerSecond * elapsed.Seconds()
	if a.carry < 1 {
		return 0
	}

	whole := math.Floor(a.carry)
	a.carry -= whole
	return int64(whole)
}

func (a *ProductionAccumulator) Carry() float64 {
	return a.carry
}
