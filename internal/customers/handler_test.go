package customers_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerboard/ledgerboard/internal/customers"
	"github.com/ledgerboard/ledgerboard/internal/shared"
	"github.com/ledgerboard/ledgerboard/internal/view"
	_ "github.com/ledgerboard/ledgerboard/testing"
)

type stubCustomerRepo struct {
	summaries []customers.Summary
	lastReq   customers.ListRequest
	faulty    bool
}

func (s *stubCustomerRepo) All(ctx context.Context) ([]customers.Customer, error) {
	var out []customers.Customer
	for _, sum := range s.summaries {
		out = append(out, sum.Customer)
	}
	return out, nil
}

func (s *stubCustomerRepo) List(ctx context.Context, req customers.ListRequest) ([]customers.Summary, int, error) {
	if s.faulty {
		return nil, 0, errors.New("connection refused")
	}
	s.lastReq = req
	return s.summaries, len(s.summaries), nil
}

func newCustomersHandler(t *testing.T) (*customers.Handler, *stubCustomerRepo) {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)

	repo := &stubCustomerRepo{summaries: []customers.Summary{
		{
			Customer:          customers.Customer{ID: "c1", Name: "Acme Corp", Email: "billing@acme.test"},
			TotalInvoices:     3,
			TotalPendingCents: 1250,
			TotalPaidCents:    99900,
		},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := customers.NewHandler(logger, customers.NewService(repo), templates, shared.NewCSRFManager("csrfsecret"))
	return handler, repo
}

func listRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	sess, err := sm.Load(req.Context(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestListRendersAggregates(t *testing.T) {
	handler, _ := newCustomersHandler(t)

	res := httptest.NewRecorder()
	handler.List(res, listRequest(t, "/customers"))

	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Acme Corp")
	assert.Contains(t, body, "$12.50")
	assert.Contains(t, body, "$999.00")
}

func TestListPassesSearchAndPaging(t *testing.T) {
	handler, repo := newCustomersHandler(t)

	res := httptest.NewRecorder()
	handler.List(res, listRequest(t, "/customers?query=acme&page=2"))

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "acme", repo.lastReq.Search)
	assert.Equal(t, 10, repo.lastReq.Limit)
	assert.Equal(t, 10, repo.lastReq.Offset)
}

func TestListStorageFault(t *testing.T) {
	handler, repo := newCustomersHandler(t)
	repo.faulty = true

	res := httptest.NewRecorder()
	handler.List(res, listRequest(t, "/customers"))

	assert.Equal(t, http.StatusInternalServerError, res.Code)
}
