package clicker

import (
	"fmt"

	"github.com/mcdev12/clicker/go/internal/clicker/events"
)

// onTick advances local production by the wall-clock time since the last tick.
func (e *Engine) onTick() {
	s := e.session
	if s == nil {
		return
	}

	units := s.advance(e.clock.Now())
	if units <= 0 {
		return
	}

	e.refresh()
	e.metrics.RecordProduction(units)
	if units >= e.cfg.BigHaulThreshold {
		e.showNotice(NoticeInfo, fmt.Sprintf("Bots collected %d units!", units))
	}
	e.publish(events.EventTypeProductionConverted, s.SubjectID, events.ProductionConvertedPayload{
		Units:   units,
		Balance: s.Balance,
		Rate:    s.Stats.ProductionRatePerSecond,
	})
}
