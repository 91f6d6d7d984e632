package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcdev12/clicker/go/internal/clicker"
)

// ErrNotBound is returned for commands received before an engine is attached.
var ErrNotBound = errors.New("engine not ready")

// Engine is what the gateway drives. *clicker.Engine satisfies it.
type Engine interface {
	Select(subjectID string, initialBalance int64) error
	Deselect() error
	Request(kind clicker.ActionKind) error
	Snapshot(ctx context.Context) (clicker.Snapshot, error)
}

// CommandHandler applies UI commands and answers snapshot requests.
type CommandHandler interface {
	HandleCommand(ctx context.Context, cmd Command) error
	Snapshot(ctx context.Context) (SnapshotData, error)
}

// EngineBridge turns UI commands into engine calls.
type EngineBridge struct {
	engine Engine
}

func NewEngineBridge(engine Engine) *EngineBridge {
	return &EngineBridge{engine: engine}
}

func (b *EngineBridge) HandleCommand(ctx context.Context, cmd Command) error {
	switch cmd.Command {
	case CommandSelect:
		if cmd.SubjectID == "" {
			return errors.New("subject_id is required")
		}
		return b.engine.Select(cmd.SubjectID, cmd.Balance)
	case CommandDeselect:
		return b.engine.Deselect()
	default:
		kind, ok := clicker.ParseActionKind(string(cmd.Command))
		if !ok {
			return fmt.Errorf("unknown command %q", cmd.Command)
		}
		return b.engine.Request(kind)
	}
}

func (b *EngineBridge) Snapshot(ctx context.Context) (SnapshotData, error) {
	snap, err := b.engine.Snapshot(ctx)
	if err != nil {
		return SnapshotData{}, fmt.Errorf("engine snapshot: %w", err)
	}
	return newSnapshotData(snap), nil
}
