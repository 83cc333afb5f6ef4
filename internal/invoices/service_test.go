package invoices

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryInvoiceRepo struct {
	rows    map[string]Invoice
	failing bool
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{rows: make(map[string]Invoice)}
}

var errStorageDown = errors.New("connection refused")

func (r *memoryInvoiceRepo) Create(ctx context.Context, inv Invoice) error {
	if r.failing {
		return errStorageDown
	}
	r.rows[inv.ID] = inv
	return nil
}

func (r *memoryInvoiceRepo) Update(ctx context.Context, id, customerID string, amountCents int64, status Status) error {
	if r.failing {
		return errStorageDown
	}
	inv, ok := r.rows[id]
	if !ok {
		return nil
	}
	inv.CustomerID = customerID
	inv.AmountCents = amountCents
	inv.Status = status
	r.rows[id] = inv
	return nil
}

func (r *memoryInvoiceRepo) Delete(ctx context.Context, id string) error {
	if r.failing {
		return errStorageDown
	}
	delete(r.rows, id)
	return nil
}

func (r *memoryInvoiceRepo) Get(ctx context.Context, id string) (*Invoice, error) {
	inv, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &inv, nil
}

func (r *memoryInvoiceRepo) List(ctx context.Context, req ListRequest) ([]InvoiceWithCustomer, int, error) {
	if r.failing {
		return nil, 0, errStorageDown
	}
	var out []InvoiceWithCustomer
	for _, inv := range r.rows {
		out = append(out, InvoiceWithCustomer{Invoice: inv})
	}
	return out, len(out), nil
}

func newTestService(repo Repository) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo)
}

func TestCreateGeneratesIDAndDate(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	err := svc.Create(context.Background(), Draft{CustomerID: "c1", AmountCents: 4250, Status: StatusPaid})
	require.NoError(t, err)
	require.Len(t, repo.rows, 1)

	for id, inv := range repo.rows {
		assert.NotEmpty(t, id)
		assert.NotEqual(t, "c1", id, "invoice id must not reuse the customer reference")
		assert.Equal(t, "c1", inv.CustomerID)
		assert.Equal(t, int64(4250), inv.AmountCents)
		assert.Equal(t, StatusPaid, inv.Status)

		today := time.Now().UTC().Truncate(24 * time.Hour)
		assert.Equal(t, today, inv.Date)
	}
}

func TestCreateDistinctIDsPerCall(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	draft := Draft{CustomerID: "c1", AmountCents: 100, Status: StatusPending}
	require.NoError(t, svc.Create(context.Background(), draft))
	require.NoError(t, svc.Create(context.Background(), draft))

	assert.Len(t, repo.rows, 2, "identical submissions produce two rows")
}

func TestCreateStorageFailure(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.failing = true
	svc := newTestService(repo)

	err := svc.Create(context.Background(), Draft{CustomerID: "c1", AmountCents: 100, Status: StatusPaid})
	require.Error(t, err)

	var werr *WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "Database Error: Failed to Create Invoice", werr.Message)
	assert.Empty(t, repo.rows)
}

func TestUpdateKeepsIDAndDate(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	repo.rows["inv1"] = Invoice{ID: "inv1", CustomerID: "c1", AmountCents: 1000, Status: StatusPending, Date: date}
	svc := newTestService(repo)

	err := svc.Update(context.Background(), "inv1", Draft{CustomerID: "c2", AmountCents: 500, Status: StatusPending})
	require.NoError(t, err)

	got := repo.rows["inv1"]
	assert.Equal(t, "inv1", got.ID)
	assert.Equal(t, "c2", got.CustomerID)
	assert.Equal(t, int64(500), got.AmountCents)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, date, got.Date, "date is immutable under update")
}

func TestUpdateStorageFailure(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.failing = true
	svc := newTestService(repo)

	err := svc.Update(context.Background(), "inv1", Draft{CustomerID: "c1", AmountCents: 100, Status: StatusPaid})
	var werr *WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "Database Error: Failed to Update Invoice", werr.Message)
}

func TestDeleteReturnsConfirmation(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.rows["inv1"] = Invoice{ID: "inv1"}
	svc := newTestService(repo)

	confirmation, err := svc.Delete(context.Background(), "inv1")
	require.NoError(t, err)
	assert.Equal(t, "Deleted Invoice.", confirmation.Message)
	assert.Empty(t, repo.rows)

	// Deleting an id that no longer exists still succeeds.
	confirmation, err = svc.Delete(context.Background(), "inv1")
	require.NoError(t, err)
	assert.Equal(t, "Deleted Invoice.", confirmation.Message)
}

func TestDeleteStorageFailure(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.failing = true
	svc := newTestService(repo)

	confirmation, err := svc.Delete(context.Background(), "inv1")
	require.Nil(t, confirmation)

	var werr *WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "Database Error: Failed to Delete Invoice.", werr.Message)
}
