package entities

import (
	"time"
)

type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusValidated TicketStatus = "validated"
	TicketStatusUsed      TicketStatus = "used"
	// TicketStatusExpired is reserved: no transition produces it yet,
	// but it is representable and counted in stats.
	TicketStatusExpired TicketStatus = "expired"
)

// Ticket is one admission unit tied to one order line-item unit.
// Status, ValidatedAt, ValidatedBy and UsedAt are owned by the ticket
// store; every other component treats a created ticket as read-only.
type Ticket struct {
	ID            string       `json:"id"`
	OrderID       int64        `json:"order_id"`
	OrderNumber   int64        `json:"order_number"`
	TicketID      string       `json:"ticket_id"`
	CustomerEmail string       `json:"customer_email"`
	TicketTitle   string       `json:"ticket_title"`
	Quantity      int          `json:"quantity"`
	Price         Money        `json:"price"`
	Status        TicketStatus `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	ValidatedAt   *time.Time   `json:"validated_at,omitempty"`
	UsedAt        *time.Time   `json:"used_at,omitempty"`
	ValidatedBy   *string      `json:"validated_by,omitempty"`
}

// Validation is the append-only audit record of a successful
// pending -> validated transition. It is never mutated or consulted
// for authorization; the ticket's own status is authoritative.
type Validation struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	ValidatedBy string    `json:"validated_by"`
	ValidatedAt time.Time `json:"validated_at"`
	Notes       *string   `json:"notes,omitempty"`
}

type TicketStats struct {
	Total            int `json:"total"`
	Pending          int `json:"pending"`
	Validated        int `json:"validated"`
	Used             int `json:"used"`
	Expired          int `json:"expired"`
	TotalValidations int `json:"totalValidations"`
}

// TicketFilter narrows Search results. Zero-valued fields are not
// applied; set fields are AND-combined.
type TicketFilter struct {
	Status        TicketStatus
	CustomerEmail string
	OrderNumber   int64
	DateFrom      *time.Time
	DateTo        *time.Time
}

// TransitionResult is the outcome of a validate or mark-used call.
// A false Success is an ordinary business outcome (late scan of an
// already-validated ticket), not an error.
type TransitionResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}
