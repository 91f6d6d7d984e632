package clicker

// showNotice replaces the current notice and schedules its expiry.
func (e *Engine) showNotice(level NoticeLevel, message string) {
	e.noticeSeq++
	n := Notice{
		ID:        e.noticeSeq,
		Level:     level,
		Message:   message,
		ExpiresAt: e.clock.Now().Add(e.cfg.NoticeDuration),
	}
	e.notice = &n
	e.view.ShowNotice(n)

	id := n.ID
	e.clock.AfterFunc(e.cfg.NoticeDuration, func() {
		_ = e.post(noticeExpired{id: id})
	})
}

// onNoticeExpired hides the notice unless a newer one has replaced it.
func (e *Engine) onNoticeExpired(id uint64) {
	if e.notice == nil || e.notice.ID != id {
		return
	}
	e.notice = nil
	e.view.ClearNotice(id)
}
