// Package queue defines the ticket lifecycle messages exchanged over the
// broker and the consumer that records them.
package queue

// TicketQueueName is the durable queue that carries TicketEvent messages.
const TicketQueueName = "service_ticket.events"

const (
	EventTicketCreated       = "ticket.created"
	EventTicketStatusChanged = "ticket.status_changed"
)

// TicketEvent is published when a service ticket is opened or changes
// status. It carries enough for downstream consumers to log or notify
// without querying the primary database.
type TicketEvent struct {
	Type           string `json:"type"`
	TicketID       uint64 `json:"ticket_id"`
	VIN            string `json:"vin"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	ActorSubject   string `json:"actor_subject"`
	ActorRole      string `json:"actor_role"`
	OccurredAt     string `json:"occurred_at"`
}
