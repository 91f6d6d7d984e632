package clicker

import (
	"github.com/mcdev12/clicker/go/internal/clicker/events"
	"github.com/rs/zerolog/log"
)

// reconcile fetches authoritative stats for the current session. A firing
// while the previous fetch is still outstanding is skipped.
func (e *Engine) reconcile() {
	s := e.session
	if s == nil {
		return
	}
	if s.reconciling {
		log.Debug().Str("subject_id", s.SubjectID).Msg("stats sync still in flight, skipping")
		return
	}
	s.reconciling = true

	ctx := e.ctx
	epoch, subjectID := s.Epoch, s.SubjectID
	go func() {
		res, err := e.api.GetStats(ctx, subjectID)
		_ = e.post(statsResolved{epoch: epoch, subjectID: subjectID, result: res, err: err})
	}()
}

func (e *Engine) onStatsResolved(ev statsResolved) {
	s, ok := e.live(ev.epoch)
	if !ok {
		e.metrics.RecordStaleDiscard("get_stats")
		log.Debug().
			Str("subject_id", ev.subjectID).
			Uint64("epoch", ev.epoch).
			Msg("discarding stats for ended session")
		return
	}
	s.reconciling = false

	if ev.err != nil {
		e.metrics.RecordReconciliation(false, 0)
		log.Error().Err(ev.err).Str("subject_id", s.SubjectID).Msg("stats sync failed")
		return
	}

	drift := s.applyStats(ev.result)
	e.refresh()

	e.metrics.RecordReconciliation(true, drift)
	if drift != 0 {
		log.Debug().
			Str("subject_id", s.SubjectID).
			Int64("drift", drift).
			Int64("balance", s.Balance).
			Msg("balance corrected from server")
	}
	e.publish(events.EventTypeReconciled, s.SubjectID, events.ReconciledPayload{
		Balance: s.Balance,
		Drift:   drift,
	})
}
