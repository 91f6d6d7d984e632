package clicker

import (
	"time"

	"github.com/mcdev12/clicker/go/clients/clicker_client"
)

// event is anything the engine loop consumes from its queue.
type event interface{}

type selectEvent struct {
	subjectID string
	balance   int64
}

type deselectEvent struct{}

type actionRequested struct {
	kind ActionKind
}

// actionResolved carries the outcome of one remote action call, tagged with
// the session it was dispatched for.
type actionResolved struct {
	kind      ActionKind
	epoch     uint64
	subjectID string
	started   time.Time
	result    any
	err       error
}

type statsResolved struct {
	epoch     uint64
	subjectID string
	result    *clicker_client.StatsResult
	err       error
}

type noticeExpired struct {
	id uint64
}

type snapshotRequest struct {
	reply chan Snapshot
}
