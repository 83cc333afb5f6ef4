package invoices

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerboard/ledgerboard/internal/customers"
	"github.com/ledgerboard/ledgerboard/internal/shared"
	"github.com/ledgerboard/ledgerboard/internal/view"
)

const (
	listingRoute = "/dashboard/invoices"
	perPage      = 10
)

// CustomerDirectory supplies the customer choices for the invoice form.
type CustomerDirectory interface {
	All(ctx context.Context) ([]customers.Customer, error)
}

// Handler wires HTTP endpoints for invoice pages and form actions.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	forms     *Validator
	directory CustomerDirectory
	templates *view.Engine
	csrf      *shared.CSRFManager
	pages     *view.PageCache
}

// NewHandler constructs a Handler instance.
func NewHandler(
	logger *slog.Logger,
	service *Service,
	forms *Validator,
	directory CustomerDirectory,
	templates *view.Engine,
	csrf *shared.CSRFManager,
	pages *view.PageCache,
) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		forms:     forms,
		directory: directory,
		templates: templates,
		csrf:      csrf,
		pages:     pages,
	}
}

type listingPayload struct {
	Rows  []InvoiceWithCustomer `json:"rows"`
	Total int                   `json:"total"`
}

// List renders the invoices listing, served from the page cache until a
// write marks the route stale.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("query")
	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	// Unknown status values fall back to the unfiltered listing.
	var status Status
	if s := Status(r.URL.Query().Get("status")); s.Valid() {
		status = s
	}

	pagination := shared.NewPagination(page, perPage, 0)
	req := ListRequest{Search: search, Status: status, Limit: pagination.PerPage, Offset: pagination.Offset()}

	listing, err := h.fetchListing(r.Context(), req)
	if err != nil {
		h.logger.Error("list invoices failed", "error", err)
		http.Error(w, "Failed to load invoices", http.StatusInternalServerError)
		return
	}
	pagination = shared.NewPagination(page, perPage, listing.Total)

	h.render(w, r, "pages/invoices_list.html", map[string]any{
		"Invoices":   listing.Rows,
		"Search":     search,
		"Status":     status,
		"Pagination": pagination,
	}, http.StatusOK)
}

func (h *Handler) fetchListing(ctx context.Context, req ListRequest) (*listingPayload, error) {
	key, err := h.pages.Key(ctx, listingRoute, req.Search, string(req.Status), strconv.Itoa(req.Offset))
	if err != nil {
		h.logger.Warn("page cache key", "error", err)
		rows, total, err := h.service.List(ctx, req)
		if err != nil {
			return nil, err
		}
		return &listingPayload{Rows: rows, Total: total}, nil
	}

	var listing listingPayload
	err = h.pages.Fetch(ctx, key, &listing, func(ctx context.Context) (any, error) {
		rows, total, err := h.service.List(ctx, req)
		if err != nil {
			return nil, err
		}
		return listingPayload{Rows: rows, Total: total}, nil
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// ShowCreateForm renders an empty invoice form.
func (h *Handler) ShowCreateForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, formPage{Values: url.Values{}}, http.StatusOK)
}

// Create validates the submitted form, writes the invoice, invalidates the
// listing and redirects there. Validation or write failure re-renders the
// form in place instead of navigating away.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	draft, ferr := h.forms.ParseCreate(r.PostForm)
	if ferr != nil {
		h.renderForm(w, r, formPage{Values: r.PostForm, Errors: ferr, Message: ferr.Message}, http.StatusBadRequest)
		return
	}

	if err := h.service.Create(r.Context(), *draft); err != nil {
		h.renderForm(w, r, formPage{Values: r.PostForm, Message: writeMessage(err)}, http.StatusInternalServerError)
		return
	}

	h.invalidateListing(r.Context())
	http.Redirect(w, r, listingRoute, http.StatusSeeOther)
}

// ShowEditForm renders the form pre-filled from the stored invoice.
func (h *Handler) ShowEditForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "Invoice not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get invoice failed", "error", err, "id", id)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	values := url.Values{}
	values.Set(FieldCustomerID, inv.CustomerID)
	values.Set(FieldAmount, strconv.FormatFloat(float64(inv.AmountCents)/100, 'f', 2, 64))
	values.Set(FieldStatus, string(inv.Status))
	h.renderForm(w, r, formPage{Invoice: inv, Values: values}, http.StatusOK)
}

// Update validates the submitted form and rewrites the invoice row. The id
// comes from the URL, never from the form.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	inv, err := h.service.Get(r.Context(), id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		h.logger.Error("get invoice failed", "error", err, "id", id)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	draft, ferr := h.forms.ParseUpdate(r.PostForm)
	if ferr != nil {
		h.renderForm(w, r, formPage{Invoice: inv, Values: r.PostForm, Errors: ferr, Message: ferr.Message}, http.StatusBadRequest)
		return
	}

	if err := h.service.Update(r.Context(), id, *draft); err != nil {
		h.renderForm(w, r, formPage{Invoice: inv, Values: r.PostForm, Message: writeMessage(err)}, http.StatusInternalServerError)
		return
	}

	h.invalidateListing(r.Context())
	http.Redirect(w, r, listingRoute, http.StatusSeeOther)
}

// Delete removes the invoice and flashes the outcome on the listing. The
// listing is only invalidated when the delete statement succeeded.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := shared.SessionFromContext(r.Context())

	confirmation, err := h.service.Delete(r.Context(), id)
	if err != nil {
		if sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: "error", Message: writeMessage(err)})
		}
		http.Redirect(w, r, listingRoute, http.StatusSeeOther)
		return
	}

	h.invalidateListing(r.Context())
	if sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: confirmation.Message})
	}
	http.Redirect(w, r, listingRoute, http.StatusSeeOther)
}

func (h *Handler) invalidateListing(ctx context.Context) {
	if err := h.pages.Invalidate(ctx, listingRoute); err != nil {
		h.logger.Warn("invalidate invoice listing", "error", err)
	}
}

type formPage struct {
	Invoice *Invoice
	Values  url.Values
	Errors  *FieldErrors
	Message string
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, page formPage, status int) {
	choices, err := h.directory.All(r.Context())
	if err != nil {
		h.logger.Error("load customers for form", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	fieldErrors := map[string][]string{}
	if page.Errors != nil {
		fieldErrors = page.Errors.Fields
	}

	h.render(w, r, "pages/invoice_form.html", map[string]any{
		"Invoice":   page.Invoice,
		"Customers": choices,
		"Values":    page.Values,
		"Errors":    fieldErrors,
		"Message":   page.Message,
	}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)

	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}

	viewData := view.TemplateData{
		Title:       "Invoices",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}

	w.WriteHeader(status)
	if err := h.templates.Render(w, tmpl, viewData); err != nil {
		h.logger.Error("template render failed", "error", err, "template", tmpl)
	}
}

func writeMessage(err error) string {
	var werr *WriteError
	if errors.As(err, &werr) {
		return werr.Message
	}
	return "Something went wrong."
}
