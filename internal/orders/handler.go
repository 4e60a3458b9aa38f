package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
	"github.com/papyrus-commerce/papyrus-admin/internal/view"
)

// Handler serves the order management pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	onChange  func()
}

// NewHandler constructs a Handler. onChange runs after a status change;
// it may be nil.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, onChange func()) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, onChange: onChange}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.Post("/{id}/status", h.changeStatus)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := shared.PageParam(q)
	filters := ListFilters{
		Status: q.Get("status"),
		Search: q.Get("search"),
		Page:   page,
	}
	list, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		http.Error(w, "Failed to load orders", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/orders_list.html", "Orders", map[string]any{
		"Orders":     list,
		"Status":     filters.Status,
		"Search":     filters.Search,
		"Statuses":   []string{StatusPlaced, StatusApproved, StatusShipped, StatusDelivered, StatusDeclined, StatusCancelled},
		"Pagination": pagination,
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("load order", slog.Any("error", err))
		http.Error(w, "Failed to load order", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/order_show.html", "Order "+order.Reference, map[string]any{
		"Order":        order,
		"NextStatuses": NextStatuses(order.Status),
	})
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	to := r.PostFormValue("status")

	err = h.service.ChangeStatus(r.Context(), sessionUserID(sess), id, to)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		h.flash(sess, "error", "Order not found.")
	case errors.Is(err, ErrIllegalTransition):
		h.flash(sess, "error", "That status change is not allowed.")
	case err != nil:
		h.logger.Error("change order status", slog.Any("error", err))
		h.flash(sess, "error", "Failed to update order.")
	default:
		if h.onChange != nil {
			h.onChange()
		}
		h.flash(sess, "success", "Order marked as "+to+".")
	}
	http.Redirect(w, r, "/orders/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, title string, data map[string]any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render orders", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) flash(sess *shared.Session, kind, message string) {
	if sess == nil {
		return
	}
	sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
}

func sessionUserID(sess *shared.Session) int64 {
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.User(), 10, 64)
	return id
}
