package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/mcdev12/clicker/go/internal/clicker"
	"github.com/mcdev12/clicker/go/internal/display"
	"github.com/mcdev12/clicker/go/internal/models"
)

// MessageType identifies a server-to-UI message.
type MessageType string

const (
	MessageTypeBalance       MessageType = "balance"
	MessageTypeStats         MessageType = "stats"
	MessageTypeControl       MessageType = "control"
	MessageTypeNotice        MessageType = "notice"
	MessageTypeNoticeCleared MessageType = "notice_cleared"
	MessageTypeClickFeedback MessageType = "click_feedback"
	MessageTypeSnapshot      MessageType = "snapshot"
	MessageTypeError         MessageType = "error"
)

// Message is the envelope for everything written to a UI connection.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewMessage wraps data in a Message envelope.
func NewMessage(messageType MessageType, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s message: %w", messageType, err)
	}
	return Message{Type: messageType, Data: raw}, nil
}

type BalanceData struct {
	Balance   int64  `json:"balance"`
	Formatted string `json:"formatted"`
}

// StatsData carries the raw stats plus the strings a UI shows next to them.
type StatsData struct {
	models.Stats
	ProductionText     string `json:"production_text"`
	MultiplierText     string `json:"multiplier_text"`
	BotCostText        string `json:"bot_cost_text"`
	MultiplierCostText string `json:"multiplier_cost_text"`
	BotUpgradeCostText string `json:"bot_upgrade_cost_text"`
}

func newStatsData(stats models.Stats) StatsData {
	return StatsData{
		Stats:              stats,
		ProductionText:     display.FormatPerMinute(stats.ProductionRatePerSecond),
		MultiplierText:     display.FormatMultiplier(stats.ClickMultiplier),
		BotCostText:        display.FormatUnits(float64(stats.BotCost)),
		MultiplierCostText: display.FormatUnits(float64(stats.MultiplierCost)),
		BotUpgradeCostText: display.FormatUnits(float64(stats.BotUpgradeCost)),
	}
}

type ControlData struct {
	Control string `json:"control"`
	Enabled bool   `json:"enabled"`
}

type NoticeClearedData struct {
	ID uint64 `json:"id"`
}

type ClickFeedbackData struct {
	Units int64 `json:"units"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// SnapshotData is sent to a UI right after it connects.
type SnapshotData struct {
	Running   bool            `json:"running"`
	SubjectID string          `json:"subject_id,omitempty"`
	Epoch     uint64          `json:"epoch"`
	Balance   int64           `json:"balance"`
	Stats     StatsData       `json:"stats"`
	Synced    bool            `json:"synced"`
	InFlight  []string        `json:"in_flight"`
	Notice    *clicker.Notice `json:"notice,omitempty"`
}

func newSnapshotData(snap clicker.Snapshot) SnapshotData {
	inFlight := make([]string, 0, len(snap.InFlight))
	for _, kind := range snap.InFlight {
		inFlight = append(inFlight, kind.String())
	}
	return SnapshotData{
		Running:   snap.Running,
		SubjectID: snap.SubjectID,
		Epoch:     snap.Epoch,
		Balance:   snap.Balance,
		Stats:     newStatsData(snap.Stats),
		Synced:    snap.Synced,
		InFlight:  inFlight,
		Notice:    snap.Notice,
	}
}

// CommandName identifies a UI-to-server command.
type CommandName string

const (
	CommandSelect            CommandName = "select"
	CommandDeselect          CommandName = "deselect"
	CommandClick             CommandName = "click"
	CommandBuyBot            CommandName = "buy_bot"
	CommandUpgradeMultiplier CommandName = "upgrade_multiplier"
	CommandUpgradeBots       CommandName = "upgrade_bots"
)

// Command is a message received from a UI connection.
type Command struct {
	Command   CommandName `json:"command"`
	SubjectID string      `json:"subject_id,omitempty"`
	Balance   int64       `json:"balance,omitempty"`
}
