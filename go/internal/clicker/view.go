package clicker

import (
	"time"

	"github.com/mcdev12/clicker/go/internal/models"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeDanger  NoticeLevel = "danger"
)

// Notice is a transient user-visible message.
type Notice struct {
	ID        uint64      `json:"id"`
	Level     NoticeLevel `json:"level"`
	Message   string      `json:"message"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// View is the rendering side of the engine. Every method is called from the
// engine loop goroutine and must not block.
type View interface {
	RenderBalance(balance int64)
	RenderStats(stats models.Stats)
	SetControlEnabled(kind ActionKind, enabled bool)
	ShowNotice(n Notice)
	ClearNotice(id uint64)
	ShowClickFeedback(units int64)
}

// NopView discards every update.
type NopView struct{}

func (NopView) RenderBalance(int64)                {}
func (NopView) RenderStats(models.Stats)           {}
func (NopView) SetControlEnabled(ActionKind, bool) {}
func (NopView) ShowNotice(Notice)                  {}
func (NopView) ClearNotice(uint64)                 {}
func (NopView) ShowClickFeedback(int64)            {}

// MultiView fans every update out to several views, in order.
type MultiView []View

func (m MultiView) RenderBalance(balance int64) {
	for _, v := range m {
		v.RenderBalance(balance)
	}
}

func (m MultiView) RenderStats(stats models.Stats) {
	for _, v := range m {
		v.RenderStats(stats)
	}
}

func (m MultiView) SetControlEnabled(kind ActionKind, enabled bool) {
	for _, v := range m {
		v.SetControlEnabled(kind, enabled)
	}
}

func (m MultiView) ShowNotice(n Notice) {
	for _, v := range m {
		v.ShowNotice(n)
	}
}

func (m MultiView) ClearNotice(id uint64) {
	for _, v := range m {
		v.ClearNotice(id)
	}
}

func (m MultiView) ShowClickFeedback(units int64) {
	for _, v := range m {
		v.ShowClickFeedback(units)
	}
}
