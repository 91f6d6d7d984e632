package display

import (
	"fmt"
	"math"
	"strconv"
)

// FormatUnits renders a unit count the way the balance and prices are shown:
// 1.2M, 3.4K or a plain integer below a thousand.
func FormatUnits(n float64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", n/1_000)
	default:
		return strconv.FormatInt(int64(math.Floor(n)), 10)
	}
}

// FormatPerMinute renders a per-second production rate as units per minute.
func FormatPerMinute(ratePerSecond float64) string {
	return fmt.Sprintf("%.1f per min", ratePerSecond*60)
}

func FormatMultiplier(m float64) string {
	if m < 1 {
		m = 1
	}
	return fmt.Sprintf("x%.1f", m)
}
