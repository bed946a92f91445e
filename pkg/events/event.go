package events

import "time"

// Event defines the contract for everything that flows over the bus.
type Event interface {
	// EventType returns the unique code for this event (e.g., "GENERATION_CHUNK").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type codes for the generation lifecycle.
const (
	TypeThinkRequested   = "THINK_REQUESTED"
	TypeThinkCancelled   = "THINK_CANCELLED"
	TypeGenerationChunk  = "GENERATION_CHUNK"
	TypeGenerationDone   = "GENERATION_DONE"
	TypeGenerationFailed = "GENERATION_FAILED"
)

// Event type codes for block-level refresh (regenerate a single cell in place).
const (
	TypeBlockRefreshRequested = "BLOCK_REFRESH_REQUESTED"
	TypeBlockRefreshChunk     = "BLOCK_REFRESH_CHUNK"
	TypeBlockRefreshDone      = "BLOCK_REFRESH_DONE"
)

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewEvent builds a BaseEvent stamped with the current time.
func NewEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
