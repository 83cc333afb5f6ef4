package invoices

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// WriteError is the failure half of a write result. The message is safe to
// show to the user; the underlying storage fault is logged, not propagated.
type WriteError struct {
	Message string
}

func (e *WriteError) Error() string {
	return e.Message
}

// Confirmation is the success payload of a delete.
type Confirmation struct {
	Message string
}

// Service orchestrates invoice writes. Each operation issues exactly one
// statement; there are no retries and no cross-statement transactions.
type Service struct {
	logger *slog.Logger
	repo   Repository
	newID  func() string
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo Repository) *Service {
	return &Service{
		logger: logger,
		repo:   repo,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// Create inserts a new invoice from a validated draft. The row id is
// generated server-side and the date is fixed to the current calendar date,
// regardless of anything in the submitted form.
func (s *Service) Create(ctx context.Context, draft Draft) error {
	inv := Invoice{
		ID:          s.newID(),
		CustomerID:  draft.CustomerID,
		AmountCents: draft.AmountCents,
		Status:      draft.Status,
		Date:        s.now().UTC().Truncate(24 * time.Hour),
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		s.logger.Error("create invoice failed", "error", err, "customerID", draft.CustomerID)
		return &WriteError{Message: "Database Error: Failed to Create Invoice"}
	}
	return nil
}

// Update rewrites the mutable columns of an existing invoice. The id and
// date columns never change.
func (s *Service) Update(ctx context.Context, id string, draft Draft) error {
	if err := s.repo.Update(ctx, id, draft.CustomerID, draft.AmountCents, draft.Status); err != nil {
		s.logger.Error("update invoice failed", "error", err, "id", id)
		return &WriteError{Message: "Database Error: Failed to Update Invoice"}
	}
	return nil
}

// Delete removes an invoice row. Deleting an id that no longer exists is
// still a successful delete.
func (s *Service) Delete(ctx context.Context, id string) (*Confirmation, error) {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("delete invoice failed", "error", err, "id", id)
		return nil, &WriteError{Message: "Database Error: Failed to Delete Invoice."}
	}
	return &Confirmation{Message: "Deleted Invoice."}, nil
}

// Get loads one invoice for the edit form.
func (s *Service) Get(ctx context.Context, id string) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of invoices joined with customer display columns.
func (s *Service) List(ctx context.Context, req ListRequest) ([]InvoiceWithCustomer, int, error) {
	return s.repo.List(ctx, req)
}
