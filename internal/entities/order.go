package entities

// LineItem is one purchased position of a Shopify order. Price is the
// per-unit price as Shopify reports it.
type LineItem struct {
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// Order is the subset of a Shopify "order paid" webhook payload the
// ticket pipeline cares about.
type Order struct {
	ID              int64      `json:"id"`
	OrderNumber     int64      `json:"order_number"`
	TotalPrice      string     `json:"total_price"`
	Currency        string     `json:"currency"`
	FinancialStatus string     `json:"financial_status"`
	Customer        Customer   `json:"customer"`
	LineItems       []LineItem `json:"line_items"`
}

type Customer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (o Order) IsPaid() bool {
	return o.FinancialStatus == "paid"
}
