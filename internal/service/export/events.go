package export

import "time"

// EventTypeCommitted tags messages emitted after a batch commit.
const EventTypeCommitted = "export.committed"

// CommittedEvent is published once an export batch is durable.
type CommittedEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	ExportID   int64     `json:"exportacion_id"`
	Date       string    `json:"fecha"`
	UserID     int64     `json:"usuario_id"`
	OrderIDs   []int64   `json:"pedido_ids"`
	OccurredAt time.Time `json:"occurred_at"`
}
