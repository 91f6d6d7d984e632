package gateway

import (
	"sync"

	"github.com/mcdev12/clicker/go/internal/clicker"
	"github.com/mcdev12/clicker/go/internal/display"
	"github.com/mcdev12/clicker/go/internal/models"
	"github.com/rs/zerolog/log"
)

// WebSocketView is a clicker.View that broadcasts every update to the
// connected UIs. Unchanged balances, stats and control states are not resent.
type WebSocketView struct {
	manager *ConnectionManager

	mu       sync.Mutex
	balance  *int64
	stats    *models.Stats
	controls map[clicker.ActionKind]bool
}

func NewWebSocketView(manager *ConnectionManager) *WebSocketView {
	return &WebSocketView{
		manager:  manager,
		controls: make(map[clicker.ActionKind]bool),
	}
}

func (v *WebSocketView) RenderBalance(balance int64) {
	v.mu.Lock()
	if v.balance != nil && *v.balance == balance {
		v.mu.Unlock()
		return
	}
	v.balance = &balance
	v.mu.Unlock()

	v.broadcast(MessageTypeBalance, BalanceData{
		Balance:   balance,
		Formatted: display.FormatUnits(float64(balance)),
	})
}

func (v *WebSocketView) RenderStats(stats models.Stats) {
	v.mu.Lock()
	if v.stats != nil && *v.stats == stats {
		v.mu.Unlock()
		return
	}
	v.stats = &stats
	v.mu.Unlock()

	v.broadcast(MessageTypeStats, newStatsData(stats))
}

func (v *WebSocketView) SetControlEnabled(kind clicker.ActionKind, enabled bool) {
	v.mu.Lock()
	if prev, ok := v.controls[kind]; ok && prev == enabled {
		v.mu.Unlock()
		return
	}
	v.controls[kind] = enabled
	v.mu.Unlock()

	v.broadcast(MessageTypeControl, ControlData{Control: kind.String(), Enabled: enabled})
}

func (v *WebSocketView) ShowNotice(n clicker.Notice) {
	v.broadcast(MessageTypeNotice, n)
}

func (v *WebSocketView) ClearNotice(id uint64) {
	v.broadcast(MessageTypeNoticeCleared, NoticeClearedData{ID: id})
}

func (v *WebSocketView) ShowClickFeedback(units int64) {
	v.broadcast(MessageTypeClickFeedback, ClickFeedbackData{Units: units})
}

func (v *WebSocketView) broadcast(messageType MessageType, data any) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		log.Error().Err(err).Msg("failed to build view message")
		return
	}
	v.manager.Broadcast(msg)
}
