package clicker

import "time"

// Config holds the engine's timing policy.
type Config struct {
	TickInterval      time.Duration
	ReconcileInterval time.Duration
	ClickCooldown     time.Duration
	NoticeDuration    time.Duration

	// A single tick converting at least this many units raises an info notice
	BigHaulThreshold int64

	// Units sent per click; the server applies the multiplier
	ClickUnitAmount int
}

func DefaultConfig() Config {
	return Config{
		TickInterval:      100 * time.Millisecond,
		ReconcileInterval: 5 * time.Second,
		ClickCooldown:     300 * time.Millisecond,
		NoticeDuration:    3 * time.Second,
		BigHaulThreshold:  5,
		ClickUnitAmount:   1,
	}
}
