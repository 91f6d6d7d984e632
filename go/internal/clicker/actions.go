package clicker

import (
	"context"
	"fmt"
	"time"

	"github.com/mcdev12/clicker/go/clients/clicker_client"
	"github.com/mcdev12/clicker/go/internal/clicker/events"
	"github.com/rs/zerolog/log"
)

// failureMessages are shown when an action fails without a server message.
var failureMessages = map[ActionKind]string{
	ActionClick:             "Failed to save units",
	ActionBuyBot:            "Failed to buy bot",
	ActionUpgradeMultiplier: "Failed to upgrade multiplier",
	ActionUpgradeBots:       "Failed to upgrade bots",
}

type remoteCall func(ctx context.Context, subjectID string) (any, error)

func (e *Engine) onActionRequested(kind ActionKind) {
	s := e.session
	if s == nil {
		e.reject(kind, RejectNoSession)
		return
	}

	now := e.clock.Now()
	if kind == ActionClick && now.Before(s.clickReadyAt) {
		e.reject(kind, RejectCooldown)
		return
	}
	if !s.gate.TryAcquire(kind) {
		e.reject(kind, RejectInFlight)
		return
	}

	switch kind {
	case ActionClick:
		s.clickReadyAt = now.Add(e.cfg.ClickCooldown)
		s.Balance += s.clickValue()
		e.refresh()

		requestID := NewRequestID(now)
		amount := e.cfg.ClickUnitAmount
		e.dispatch(s, kind, now, func(ctx context.Context, subjectID string) (any, error) {
			return e.api.Click(ctx, subjectID, amount, requestID)
		})
	case ActionBuyBot:
		e.view.SetControlEnabled(kind, false)
		e.dispatch(s, kind, now, func(ctx context.Context, subjectID string) (any, error) {
			return e.api.BuyBot(ctx, subjectID)
		})
	case ActionUpgradeMultiplier:
		e.view.SetControlEnabled(kind, false)
		e.dispatch(s, kind, now, func(ctx context.Context, subjectID string) (any, error) {
			return e.api.UpgradeMultiplier(ctx, subjectID)
		})
	case ActionUpgradeBots:
		e.view.SetControlEnabled(kind, false)
		e.dispatch(s, kind, now, func(ctx context.Context, subjectID string) (any, error) {
			return e.api.UpgradeBots(ctx, subjectID)
		})
	default:
		s.gate.Release(kind)
		log.Warn().Int("kind", int(kind)).Msg("unknown action kind")
	}
}

func (e *Engine) reject(kind ActionKind, reason string) {
	e.metrics.RecordRejected(kind, reason)
	log.Debug().Str("kind", kind.String()).Str("reason", reason).Msg("action rejected")
}

// dispatch runs call off the loop and posts its outcome back, tagged with the
// session it was issued for.
func (e *Engine) dispatch(s *Session, kind ActionKind, started time.Time, call remoteCall) {
	ctx := e.ctx
	epoch, subjectID := s.Epoch, s.SubjectID
	go func() {
		res, err := call(ctx, subjectID)
		_ = e.post(actionResolved{
			kind:      kind,
			epoch:     epoch,
			subjectID: subjectID,
			started:   started,
			result:    res,
			err:       err,
		})
	}()
}

func (e *Engine) onActionResolved(ev actionResolved) {
	duration := e.clock.Since(ev.started)

	s, ok := e.live(ev.epoch)
	if !ok {
		e.metrics.RecordStaleDiscard(ev.kind.String())
		log.Debug().
			Str("kind", ev.kind.String()).
			Str("subject_id", ev.subjectID).
			Uint64("epoch", ev.epoch).
			Msg("discarding response for ended session")
		return
	}

	s.gate.Release(ev.kind)

	if ev.err != nil {
		e.actionFailed(s, ev, duration)
		return
	}

	switch res := ev.result.(type) {
	case *clicker_client.ClickResult:
		s.Balance = res.NewBalance
		if res.UnitsAdded > 1 {
			e.view.ShowClickFeedback(res.UnitsAdded)
		}
	case *clicker_client.BuyBotResult:
		s.Balance = res.NewBalance
		s.Stats.BotCount = res.BotCount
		s.Stats.BotCost = res.NextBotCost
		s.Stats.ProductionRatePerSecond = res.ProductionRatePerSecond
		e.showNotice(NoticeSuccess, fmt.Sprintf("Bot bought! You now have %d bots.", res.BotCount))
	case *clicker_client.UpgradeMultiplierResult:
		s.Balance = res.NewBalance
		s.Stats.ClickMultiplier = res.ClickMultiplier
		s.Stats.MultiplierLevel = res.MultiplierLevel
		s.Stats.MultiplierCost = res.NextMultiplierCost
		e.showNotice(NoticeSuccess, fmt.Sprintf("Click multiplier upgraded to x%.1f!", res.ClickMultiplier))
	case *clicker_client.UpgradeBotsResult:
		s.Balance = res.NewBalance
		s.Stats.BotLevel = res.BotLevel
		s.Stats.ProductionRatePerSecond = res.ProductionRatePerSecond
		s.Stats.BotUpgradeCost = res.NextBotUpgradeCost
		e.showNotice(NoticeSuccess, fmt.Sprintf("Bots upgraded to level %d!", res.BotLevel))
	}
	e.refresh()

	e.metrics.RecordAction(ev.kind, OutcomeSuccess, duration)
	e.publish(events.EventTypeActionResolved, s.SubjectID, events.ActionResolvedPayload{
		Kind:       ev.kind.String(),
		Outcome:    OutcomeSuccess,
		DurationMs: duration.Milliseconds(),
		Balance:    s.Balance,
	})
}

// actionFailed surfaces the failure. The optimistic click credit stays; the
// next reconciliation corrects it.
func (e *Engine) actionFailed(s *Session, ev actionResolved, duration time.Duration) {
	outcome := OutcomeTransportError
	message := failureMessages[ev.kind]

	if msg, ok := clicker_client.RemoteMessage(ev.err); ok {
		outcome = OutcomeRemoteError
		message = msg
		log.Warn().
			Str("kind", ev.kind.String()).
			Str("subject_id", s.SubjectID).
			Str("message", msg).
			Msg("action rejected by server")
	} else {
		log.Error().
			Err(ev.err).
			Str("kind", ev.kind.String()).
			Str("subject_id", s.SubjectID).
			Msg("action call failed")
	}

	e.refresh()
	e.showNotice(NoticeDanger, message)

	e.metrics.RecordAction(ev.kind, outcome, duration)
	e.publish(events.EventTypeActionResolved, s.SubjectID, events.ActionResolvedPayload{
		Kind:       ev.kind.String(),
		Outcome:    outcome,
		DurationMs: duration.Milliseconds(),
		Balance:    s.Balance,
		Error:      message,
	})
}
