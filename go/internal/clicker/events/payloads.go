package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names an engine event.
type EventType string

const (
	EventTypeSessionStarted      EventType = "SessionStarted"
	EventTypeSessionEnded        EventType = "SessionEnded"
	EventTypeActionResolved      EventType = "ActionResolved"
	EventTypeReconciled          EventType = "Reconciled"
	EventTypeProductionConverted EventType = "ProductionConverted"
)

// Event is the envelope every publisher receives.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	SubjectID string          `json:"subject_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// SessionStartedPayload is the payload for a SessionStarted event
type SessionStartedPayload struct {
	Epoch          uint64 `json:"epoch"`
	InitialBalance int64  `json:"initial_balance"`
}

// SessionEndedPayload is the payload for a SessionEnded event
type SessionEndedPayload struct {
	Epoch   uint64 `json:"epoch"`
	Balance int64  `json:"balance"`
	Reason  string `json:"reason"`
}

// ActionResolvedPayload is the payload for an ActionResolved event
type ActionResolvedPayload struct {
	Kind       string `json:"kind"`
	Outcome    string `json:"outcome"`
	DurationMs int64  `json:"duration_ms"`
	Balance    int64  `json:"balance"`
	Error      string `json:"error,omitempty"`
}

// ReconciledPayload is the payload for a Reconciled event.
// Drift is local minus authoritative balance just before the overwrite.
type ReconciledPayload struct {
	Balance int64 `json:"balance"`
	Drift   int64 `json:"drift"`
}

// ProductionConvertedPayload is the payload for a ProductionConverted event
type ProductionConvertedPayload struct {
	Units   int64   `json:"units"`
	Balance int64   `json:"balance"`
	Rate    float64 `json:"rate"`
}

// New wraps payload in an Event envelope.
func New(eventType EventType, subjectID string, at time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: at,
		Data:      data,
	}, nil
}

// ParsePayload decodes the event data into the payload struct for its type.
func ParsePayload(event Event) (interface{}, error) {
	switch event.Type {
	case EventTypeSessionStarted:
		var payload SessionStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSessionEnded:
		var payload SessionEndedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeActionResolved:
		var payload ActionResolvedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeReconciled:
		var payload ReconciledPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeProductionConverted:
		var payload ProductionConvertedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}
}
