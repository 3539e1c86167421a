package model

import (
	"fmt"
	"time"
)

// TicketStatus is the lifecycle state of a service ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

// ParseTicketStatus validates a status supplied by a client.
func ParseTicketStatus(s string) (TicketStatus, error) {
	switch st := TicketStatus(s); st {
	case TicketOpen, TicketInProgress, TicketClosed:
		return st, nil
	}
	return "", fmt.Errorf("invalid status %q (want open, in_progress or closed)", s)
}

// ServiceTicket is a unit of repair work on one vehicle.
//
// Fields:
//
//	ID          – primary key.
//	VIN         – vehicle being serviced.
//	DateIn      – when the ticket was opened.
//	DateOut     – set when the ticket is closed.
//	Status      – open, in_progress or closed.
//	TotalCost   – sum of price*quantity over the attached parts.
//	MechanicIDs – mechanics assigned via service_assignments.
//	Parts       – inventory attached via ticket_parts.
type ServiceTicket struct {
	ID          uint64       `json:"id"`
	VIN         string       `json:"vin"`
	DateIn      time.Time    `json:"date_in"`
	DateOut     *time.Time   `json:"date_out,omitempty"`
	Description string       `json:"description"`
	Status      TicketStatus `json:"status"`
	TotalCost   float64      `json:"total_cost"`
	MechanicIDs []uint64     `json:"mechanic_ids"`
	Parts       []TicketPart `json:"parts"`
}

// ServiceAssignment links a mechanic to a ticket.
type ServiceAssignment struct {
	TicketID    uint64  `json:"ticket_id"`
	MechanicID  uint64  `json:"mechanic_id"`
	HoursWorked float64 `json:"hours_worked"`
}

// TicketPart is an inventory line on a ticket.
type TicketPart struct {
	InventoryID uint64  `json:"inventory_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}
