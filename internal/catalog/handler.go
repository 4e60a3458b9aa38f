package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
	"github.com/papyrus-commerce/papyrus-admin/internal/view"
)

// Handler serves the product management pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	validate  *validator.Validate
	onChange  func()
}

// NewHandler constructs a Handler. onChange runs after any mutation, for
// cache invalidation; it may be nil.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, onChange func()) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		validate:  validator.New(),
		onChange:  onChange,
	}
}

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/new", h.newForm)
	r.Post("/", h.create)
	r.Get("/{id}/edit", h.editForm)
	r.Post("/{id}", h.update)
	r.Post("/{id}/delete", h.delete)
	r.Post("/bulk/restock", h.bulkRestock)
	r.Post("/bulk/add-stock", h.bulkAddStock)
	r.Post("/bulk/delete", h.bulkDelete)
	r.Get("/slug-check", h.slugCheck)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := shared.PageParam(q)
	filters := ListFilters{
		Search:  q.Get("search"),
		Stock:   q.Get("stock"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
		Page:    page,
	}
	products, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		http.Error(w, "Failed to load products", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/products_list.html", "Products", map[string]any{
		"Products":   products,
		"Search":     filters.Search,
		"Stock":      filters.Stock,
		"SortBy":     filters.SortBy,
		"SortDir":    filters.SortDir,
		"Pagination": pagination,
	})
}

func (h *Handler) newForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/product_form.html", "New product", map[string]any{
		"Product": Product{IsActive: true},
		"IsNew":   true,
	})
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("load product", slog.Any("error", err))
		http.Error(w, "Failed to load product", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/product_form.html", "Edit product", map[string]any{
		"Product": p,
		"Tags":    strings.Join(p.Tags, ", "),
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	form, errs := h.parseForm(r)
	if len(errs) > 0 {
		h.renderFormErrors(w, r, "New product", form.ToProduct(), true, errs)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	_, err := h.service.Create(r.Context(), sessionUserID(sess), form.ToProduct())
	if errors.Is(err, ErrDuplicateSlug) {
		h.renderFormErrors(w, r, "New product", form.ToProduct(), true, []string{"Slug or SKU is already in use."})
		return
	}
	if err != nil {
		h.logger.Error("create product", slog.Any("error", err))
		h.flash(sess, "error", "Failed to create product.")
		http.Redirect(w, r, "/products/new", http.StatusSeeOther)
		return
	}
	h.changed()
	h.flash(sess, "success", "Product created.")
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	form, errs := h.parseForm(r)
	if len(errs) > 0 {
		p := form.ToProduct()
		p.ID = id
		h.renderFormErrors(w, r, "Edit product", p, false, errs)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	err = h.service.Update(r.Context(), sessionUserID(sess), id, form.ToProduct())
	switch {
	case errors.Is(err, ErrDuplicateSlug):
		p := form.ToProduct()
		p.ID = id
		h.renderFormErrors(w, r, "Edit product", p, false, []string{"Slug or SKU is already in use."})
		return
	case errors.Is(err, shared.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		h.logger.Error("update product", slog.Any("error", err))
		h.flash(sess, "error", "Failed to update product.")
	default:
		h.changed()
		h.flash(sess, "success", "Product updated.")
	}
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	err = h.service.Delete(r.Context(), sessionUserID(sess), id)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		h.flash(sess, "error", "Product not found.")
	case err != nil:
		h.logger.Error("delete product", slog.Any("error", err))
		h.flash(sess, "error", "Failed to delete product.")
	default:
		h.changed()
		h.flash(sess, "success", "Product deleted.")
	}
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

func (h *Handler) bulkRestock(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, func(actorID int64, ids []int64) (int64, error) {
		level, _ := strconv.Atoi(r.PostFormValue("level"))
		return h.service.BulkRestock(r.Context(), actorID, ids, level)
	}, "restocked")
}

func (h *Handler) bulkAddStock(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, func(actorID int64, ids []int64) (int64, error) {
		delta, _ := strconv.Atoi(r.PostFormValue("delta"))
		return h.service.BulkAddStock(r.Context(), actorID, ids, delta)
	}, "adjusted")
}

func (h *Handler) bulkDelete(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, func(actorID int64, ids []int64) (int64, error) {
		return h.service.BulkDelete(r.Context(), actorID, ids)
	}, "deleted")
}

func (h *Handler) bulk(w http.ResponseWriter, r *http.Request, op func(int64, []int64) (int64, error), verb string) {
	sess := shared.SessionFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	ids := parseIDs(r.PostForm["ids"])
	n, err := op(sessionUserID(sess), ids)
	if err != nil {
		h.logger.Error("bulk product operation", slog.Any("error", err))
		h.flash(sess, "error", "Bulk operation failed.")
	} else {
		h.changed()
		h.flash(sess, "success", strconv.FormatInt(n, 10)+" products "+verb+".")
	}
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

// slugCheck answers the inline availability probe from the product form.
func (h *Handler) slugCheck(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	excludeID, _ := strconv.ParseInt(r.URL.Query().Get("exclude"), 10, 64)
	available, err := h.service.SlugAvailable(r.Context(), slug, excludeID)
	if err != nil {
		http.Error(w, "Check failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if available {
		_, _ = w.Write([]byte(`{"available":true}`))
		return
	}
	_, _ = w.Write([]byte(`{"available":false}`))
}

func (h *Handler) parseForm(r *http.Request) (ProductForm, []string) {
	if err := r.ParseForm(); err != nil {
		return ProductForm{}, []string{"Invalid form submission."}
	}
	mrp, _ := strconv.ParseFloat(r.PostFormValue("mrp"), 64)
	price, _ := strconv.ParseFloat(r.PostFormValue("selling_price"), 64)
	stock, _ := strconv.Atoi(r.PostFormValue("stock"))
	form := ProductForm{
		Name:         r.PostFormValue("name"),
		SKU:          r.PostFormValue("sku"),
		Slug:         strings.ToLower(strings.TrimSpace(r.PostFormValue("slug"))),
		Brand:        r.PostFormValue("brand"),
		Category:     r.PostFormValue("category"),
		Description:  r.PostFormValue("description"),
		MRP:          mrp,
		SellingPrice: price,
		Stock:        stock,
		Image:        r.PostFormValue("image"),
		Tags:         r.PostFormValue("tags"),
		ShowOnHome:   r.PostFormValue("show_on_home") == "on",
		IsActive:     r.PostFormValue("is_active") == "on",
	}
	if err := h.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, formMessage(fe))
			}
			return form, msgs
		}
		return form, []string{"Invalid form submission."}
	}
	return form, nil
}

func formMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Name":
		return "Name is required."
	case "SKU":
		return "SKU is required."
	case "Slug":
		return "Slug is required and must be lowercase."
	case "SellingPrice":
		return "Selling price must be greater than zero."
	case "Stock":
		return "Stock must not be negative."
	case "Image":
		return "Image must be a valid URL."
	default:
		return "Please check the " + fe.Field() + " field."
	}
}

func (h *Handler) renderFormErrors(w http.ResponseWriter, r *http.Request, title string, p Product, isNew bool, errs []string) {
	h.render(w, r, "pages/product_form.html", title, map[string]any{
		"Product": p,
		"Tags":    strings.Join(p.Tags, ", "),
		"IsNew":   isNew,
		"Errors":  errs,
	})
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
		h.logger.Error("render products", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) flash(sess *shared.Session, kind, message string) {
	if sess == nil {
		return
	}
	sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
}

func (h *Handler) changed() {
	if h.onChange != nil {
		h.onChange()
	}
}

func parseIDs(raw []string) []int64 {
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		id, err := strconv.ParseInt(v, 10, 64)
		if err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func sessionUserID(sess *shared.Session) int64 {
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.User(), 10, 64)
	return id
}
