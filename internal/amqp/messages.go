package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"finanzas/internal/core"
)

// ItemEventMessage carries only identifiers; consumers load the item
// from the database.
type ItemEventMessage struct {
	ID           string          `json:"id"`
	Direction    core.Direction  `json:"direction"`
	Action       core.ItemAction `json:"action"`
	ItemID       int64           `json:"item_id"`
	DefinitionID int64           `json:"definition_id"`
	Timestamp    time.Time       `json:"timestamp"`
}

func NewItemEventMessage(ev core.ItemEvent) *ItemEventMessage {
	return &ItemEventMessage{
		ID:           uuid.NewString(),
		Direction:    ev.Direction,
		Action:       ev.Action,
		ItemID:       ev.ItemID,
		DefinitionID: ev.DefinitionID,
		Timestamp:    time.Now().UTC(),
	}
}

func (m *ItemEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *ItemEventMessage) Event() core.ItemEvent {
	return core.ItemEvent{
		Direction:    m.Direction,
		Action:       m.Action,
		ItemID:       m.ItemID,
		DefinitionID: m.DefinitionID,
	}
}

func (m *ItemEventMessage) Validate() error {
	if !m.Direction.Valid() {
		return fmt.Errorf("invalid direction %q", m.Direction)
	}
	if m.ItemID <= 0 {
		return fmt.Errorf("invalid item id %d", m.ItemID)
	}
	return nil
}

// ItemEventMessageFromJSON decodes and validates a message body.
func ItemEventMessageFromJSON(data []byte) (*ItemEventMessage, error) {
	var msg ItemEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
