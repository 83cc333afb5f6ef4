package customers

// Customer is the read-side customer record. Customer writes are owned by
// an upstream system; this application only lists and references them.
type Customer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	ImageURL string `json:"image_url"`
}

// Summary extends Customer with invoice aggregates for the customers page.
type Summary struct {
	Customer
	TotalInvoices     int   `json:"total_invoices"`
	TotalPendingCents int64 `json:"total_pending_cents"`
	TotalPaidCents    int64 `json:"total_paid_cents"`
}

// ListRequest carries listing filters.
type ListRequest struct {
	Search string
	Limit  int
	Offset int
}
