package amqp

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// EventType names what happened to an entity.
type EventType string

const (
	PlannedExpenseCreated EventType = "planned_expense.created"
	PaymentCreated        EventType = "payment.created"
	PaymentUpdated        EventType = "payment.updated"
)

// Event is the lightweight message published after a write. Consumers load
// the entity by EntityID; Version lets them skip stale work.
type Event struct {
	Type      EventType `json:"type"`
	EntityID  string    `json:"entity_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(t EventType, entityID string, version int64) Event {
	return Event{
		Type:      t,
		EntityID:  entityID,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and rejects messages without a type or
// entity id.
func EventFromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	if e.Type == "" || e.EntityID == "" {
		return Event{}, fmt.Errorf("incomplete event: type=%q entity_id=%q", e.Type, e.EntityID)
	}
	return e, nil
}
