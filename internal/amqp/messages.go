package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"moneymanager/internal/core"
)

// EventMessage is the wire envelope of a budget event.
type EventMessage struct {
	Event     core.BudgetEvent `json:"event"`
	Timestamp time.Time        `json:"timestamp"`
}

func NewEventMessage(ev core.BudgetEvent) *EventMessage {
	return &EventMessage{Event: ev, Timestamp: time.Now().UTC()}
}

func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON decodes a delivery body. Messages without an event id or
// type are rejected since they can be neither deduplicated nor displayed.
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Event.ID == "" {
		return nil, errors.New("event message without id")
	}
	if msg.Event.Type == "" {
		return nil, errors.New("event message without type")
	}
	return &msg, nil
}
