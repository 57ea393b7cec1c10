package engine

import (
	"encoding/json"

	"athena-chat-engine/internal/entity"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// TurnEventsTopic carries everything the rendering side needs to follow a
// turn: state transitions, streamed deltas, the reconciled result and
// failures. The bus is an in-process gochannel.
const TurnEventsTopic = "turn.events"

type TurnEventKind string

const (
	EventStateChanged  TurnEventKind = "state_changed"
	EventDelta         TurnEventKind = "delta"
	EventTurnCommitted TurnEventKind = "turn_committed"
	EventTurnFailed    TurnEventKind = "turn_failed"
)

type TurnEvent struct {
	Kind    TurnEventKind    `json:"kind"`
	ChatId  int64            `json:"chat_id"`
	State   entity.TurnState `json:"state,omitempty"`
	Delta   string           `json:"delta,omitempty"`
	Content string           `json:"content,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func DecodeTurnEvent(msg *message.Message) (TurnEvent, error) {
	var ev TurnEvent
	err := json.Unmarshal(msg.Payload, &ev)
	return ev, err
}

func publishTurnEvent(pub message.Publisher, ev TurnEvent) {
	if pub == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	// Delivery is best-effort; a slow subscriber must not stall the turn.
	_ = pub.Publish(TurnEventsTopic, message.NewMessage(watermill.NewUUID(), payload))
}
