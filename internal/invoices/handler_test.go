package invoices_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerboard/ledgerboard/internal/customers"
	"github.com/ledgerboard/ledgerboard/internal/invoices"
	"github.com/ledgerboard/ledgerboard/internal/shared"
	"github.com/ledgerboard/ledgerboard/internal/view"
	_ "github.com/ledgerboard/ledgerboard/testing"
)

const invoicesVersionKey = "view:ver:/dashboard/invoices"

type stubInvoiceRepo struct {
	rows    map[string]invoices.Invoice
	failing bool
	lastReq invoices.ListRequest
}

func (s *stubInvoiceRepo) Create(ctx context.Context, inv invoices.Invoice) error {
	if s.failing {
		return errors.New("connection refused")
	}
	s.rows[inv.ID] = inv
	return nil
}

func (s *stubInvoiceRepo) Update(ctx context.Context, id, customerID string, amountCents int64, status invoices.Status) error {
	if s.failing {
		return errors.New("connection refused")
	}
	inv := s.rows[id]
	inv.ID = id
	inv.CustomerID = customerID
	inv.AmountCents = amountCents
	inv.Status = status
	s.rows[id] = inv
	return nil
}

func (s *stubInvoiceRepo) Delete(ctx context.Context, id string) error {
	if s.failing {
		return errors.New("connection refused")
	}
	delete(s.rows, id)
	return nil
}

func (s *stubInvoiceRepo) Get(ctx context.Context, id string) (*invoices.Invoice, error) {
	inv, ok := s.rows[id]
	if !ok {
		return nil, invoices.ErrNotFound
	}
	return &inv, nil
}

func (s *stubInvoiceRepo) List(ctx context.Context, req invoices.ListRequest) ([]invoices.InvoiceWithCustomer, int, error) {
	if s.failing {
		return nil, 0, errors.New("connection refused")
	}
	s.lastReq = req
	var out []invoices.InvoiceWithCustomer
	for _, inv := range s.rows {
		out = append(out, invoices.InvoiceWithCustomer{Invoice: inv, CustomerName: "Test Customer"})
	}
	return out, len(out), nil
}

type stubDirectory struct{}

func (stubDirectory) All(ctx context.Context) ([]customers.Customer, error) {
	return []customers.Customer{
		{ID: "c1", Name: "Acme Corp", Email: "billing@acme.test"},
		{ID: "c2", Name: "Globex", Email: "ap@globex.test"},
	}, nil
}

type handlerFixture struct {
	handler *invoices.Handler
	repo    *stubInvoiceRepo
	redis   *miniredis.Miniredis
	pages   *view.PageCache
	router  chi.Router
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	templates, err := view.NewEngine()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := &stubInvoiceRepo{rows: make(map[string]invoices.Invoice)}
	service := invoices.NewService(logger, repo)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	pageCache := view.NewPageCache(redisClient, time.Minute)

	handler := invoices.NewHandler(logger, service, invoices.NewValidator(), stubDirectory{}, templates, csrfManager, pageCache)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
			sess, err := sessionManager.Load(r.Context(), r)
			require.NoError(t, err)
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
		})
	})
	handler.MountRoutes(router)

	return &handlerFixture{handler: handler, repo: repo, redis: mr, pages: pageCache, router: router}
}

func postForm(t *testing.T, router chi.Router, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestCreateRedirectsAndInvalidates(t *testing.T) {
	fx := newHandlerFixture(t)

	values := url.Values{}
	values.Set("customerId", "c1")
	values.Set("amount", "42.5")
	values.Set("status", "paid")

	res := postForm(t, fx.router, "/invoices", values)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard/invoices", res.Header().Get("Location"))

	require.Len(t, fx.repo.rows, 1)
	for _, inv := range fx.repo.rows {
		assert.Equal(t, "c1", inv.CustomerID)
		assert.Equal(t, int64(4250), inv.AmountCents)
		assert.Equal(t, invoices.StatusPaid, inv.Status)
	}

	assert.True(t, fx.redis.Exists(invoicesVersionKey), "listing must be marked stale after a successful create")
}

func TestCreateValidationFailureRerendersForm(t *testing.T) {
	fx := newHandlerFixture(t)

	values := url.Values{}
	values.Set("customerId", "")
	values.Set("amount", "10")
	values.Set("status", "paid")

	res := postForm(t, fx.router, "/invoices", values)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Please select a customer.")
	assert.Contains(t, body, "Missing Fields. Failed to Create Invoice.")

	assert.Empty(t, fx.repo.rows, "no write may happen on validation failure")
	assert.False(t, fx.redis.Exists(invoicesVersionKey), "no invalidation on validation failure")
}

func TestCreateWriteFailureShowsMessage(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.repo.failing = true

	values := url.Values{}
	values.Set("customerId", "c1")
	values.Set("amount", "10")
	values.Set("status", "paid")

	res := postForm(t, fx.router, "/invoices", values)

	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Contains(t, res.Body.String(), "Database Error: Failed to Create Invoice")
	assert.False(t, fx.redis.Exists(invoicesVersionKey), "no invalidation on write failure")
}

func TestUpdateRewritesRow(t *testing.T) {
	fx := newHandlerFixture(t)
	date := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	fx.repo.rows["inv1"] = invoices.Invoice{ID: "inv1", CustomerID: "c1", AmountCents: 1000, Status: invoices.StatusPaid, Date: date}

	values := url.Values{}
	values.Set("customerId", "c2")
	values.Set("amount", "5")
	values.Set("status", "pending")

	res := postForm(t, fx.router, "/invoices/inv1/edit", values)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard/invoices", res.Header().Get("Location"))

	got := fx.repo.rows["inv1"]
	assert.Equal(t, "c2", got.CustomerID)
	assert.Equal(t, int64(500), got.AmountCents)
	assert.Equal(t, invoices.StatusPending, got.Status)
	assert.Equal(t, date, got.Date)
	assert.True(t, fx.redis.Exists(invoicesVersionKey))
}

func TestDeleteFailureSkipsInvalidation(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.repo.failing = true

	res := postForm(t, fx.router, "/invoices/inv1/delete", url.Values{})

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard/invoices", res.Header().Get("Location"))
	assert.False(t, fx.redis.Exists(invoicesVersionKey), "no invalidation when the delete statement failed")
}

func TestDeleteSuccessInvalidates(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.repo.rows["inv1"] = invoices.Invoice{ID: "inv1"}

	res := postForm(t, fx.router, "/invoices/inv1/delete", url.Values{})

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Empty(t, fx.repo.rows)
	assert.True(t, fx.redis.Exists(invoicesVersionKey))
}

func TestListStatusFilter(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.repo.rows["inv1"] = invoices.Invoice{ID: "inv1", CustomerID: "c1", AmountCents: 1200, Status: invoices.StatusPaid, Date: time.Now()}

	res := httptest.NewRecorder()
	fx.router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/invoices?status=paid", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, invoices.StatusPaid, fx.repo.lastReq.Status)

	res = httptest.NewRecorder()
	fx.router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/invoices?status=overdue", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Empty(t, fx.repo.lastReq.Status, "unknown status values fall back to the unfiltered listing")
}

func TestListServesFromCacheUntilInvalidated(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.repo.rows["inv1"] = invoices.Invoice{ID: "inv1", CustomerID: "c1", AmountCents: 1200, Status: invoices.StatusPending, Date: time.Now()}

	req := httptest.NewRequest(http.MethodGet, "/invoices", nil)
	res := httptest.NewRecorder()
	fx.router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "$12.00")

	// A second row appears, but the cached listing is still served.
	fx.repo.rows["inv2"] = invoices.Invoice{ID: "inv2", CustomerID: "c1", AmountCents: 9900, Status: invoices.StatusPaid, Date: time.Now()}

	res = httptest.NewRecorder()
	fx.router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/invoices", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotContains(t, res.Body.String(), "$99.00")

	// After invalidation the next render re-fetches from storage.
	require.NoError(t, fx.pages.Invalidate(context.Background(), "/dashboard/invoices"))

	res = httptest.NewRecorder()
	fx.router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/invoices", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "$99.00")
}
