package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
	"github.com/papyrus-commerce/papyrus-admin/internal/view"
)

// Handler serves the user management pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers user management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/{id}/role", h.changeRole)
	r.Post("/{id}/deactivate", h.deactivate)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := shared.PageParam(r.URL.Query())
	filters := ListFilters{
		Search: r.URL.Query().Get("search"),
		Role:   r.URL.Query().Get("role"),
		Page:   page,
	}
	list, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		http.Error(w, "Failed to load users", http.StatusInternalServerError)
		return
	}
	h.render(w, r, map[string]any{
		"Users":      list,
		"Search":     filters.Search,
		"Pagination": pagination,
	})
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	actorID := sessionUserID(sess)
	role := r.PostFormValue("role")

	err = h.service.ChangeRole(r.Context(), actorID, userID, role)
	switch {
	case errors.Is(err, ErrSelfDemotion):
		h.flash(sess, "error", "You cannot change your own role.")
	case errors.Is(err, shared.ErrNotFound):
		h.flash(sess, "error", "User not found.")
	case err != nil:
		h.logger.Error("change role", slog.Any("error", err))
		h.flash(sess, "error", "Failed to update role.")
	default:
		h.flash(sess, "success", "Role updated.")
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	actorID := sessionUserID(sess)

	err = h.service.Deactivate(r.Context(), actorID, userID)
	switch {
	case errors.Is(err, ErrSelfDemotion):
		h.flash(sess, "error", "You cannot deactivate your own account.")
	case err != nil:
		h.logger.Error("deactivate user", slog.Any("error", err))
		h.flash(sess, "error", "Failed to deactivate user.")
	default:
		h.flash(sess, "success", "User deactivated.")
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data map[string]any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Users",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.Render(w, "pages/users_list.html", viewData); err != nil {
		h.logger.Error("render users", slog.Any("error", err))
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
