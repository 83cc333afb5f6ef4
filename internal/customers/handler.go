package customers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ledgerboard/ledgerboard/internal/shared"
	"github.com/ledgerboard/ledgerboard/internal/view"
)

const perPage = 10

// Handler wires HTTP endpoints for the customers pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
	}
}

// List renders the customers page with invoice aggregates.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("query")
	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}

	pagination := shared.NewPagination(page, perPage, 0)
	summaries, total, err := h.service.List(r.Context(), ListRequest{
		Search: search,
		Limit:  pagination.PerPage,
		Offset: pagination.Offset(),
	})
	if err != nil {
		h.logger.Error("list customers failed", "error", err)
		http.Error(w, "Failed to load customers", http.StatusInternalServerError)
		return
	}
	pagination = shared.NewPagination(page, perPage, total)

	h.render(w, r, "pages/customers_list.html", map[string]any{
		"Customers":  summaries,
		"Search":     search,
		"Pagination": pagination,
	}, http.StatusOK)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)

	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}

	viewData := view.TemplateData{
		Title:       "Customers",
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
