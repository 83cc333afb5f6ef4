package invoices

import "time"

// Status enumerates invoice payment states.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusPaid
}

// Invoice is a single receivable row. Amounts are stored as integer cents
// so currency never touches binary floating point.
type Invoice struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	AmountCents int64     `json:"amount_cents"`
	Status      Status    `json:"status"`
	Date        time.Time `json:"date"`
}

// InvoiceWithCustomer joins the customer display columns for listings.
type InvoiceWithCustomer struct {
	Invoice
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

// ListRequest carries listing filters.
type ListRequest struct {
	Search string
	Status Status
	Limit  int
	Offset int
}
