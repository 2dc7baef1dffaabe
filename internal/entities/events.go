package entities

type Event interface {
	IsInternal() bool
}

// OrderPaid_v1 is published by the webhook intake for every verified
// "order paid" delivery. Redeliveries reuse the same idempotency key,
// so consumers may see it more than once for the same order.
type OrderPaid_v1 struct {
	Header        EventHeader `json:"header"`
	OrderID       int64       `json:"order_id"`
	OrderNumber   int64       `json:"order_number"`
	CustomerEmail string      `json:"customer_email"`
	Currency      string      `json:"currency"`
	LineItems     []LineItem  `json:"line_items"`
}

func (o OrderPaid_v1) IsInternal() bool {
	return false
}

// TicketsGenerated_v1 is published once the orchestrator has minted
// (or re-adopted) the full ticket set for an order.
type TicketsGenerated_v1 struct {
	Header        EventHeader `json:"header"`
	OrderNumber   int64       `json:"order_number"`
	CustomerEmail string      `json:"customer_email"`
	Tickets       []TicketRef `json:"tickets"`
}

func (t TicketsGenerated_v1) IsInternal() bool {
	return false
}

// TicketRef is the slice of a ticket that downstream consumers (email
// delivery) need; the store remains the source of truth.
type TicketRef struct {
	TicketID    string `json:"ticket_id"`
	TicketTitle string `json:"ticket_title"`
	Price       Money  `json:"price"`
}
