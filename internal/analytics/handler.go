package analytics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
	"github.com/papyrus-commerce/papyrus-admin/internal/view"
)

// Handler serves the dashboard page and the CSV export endpoints.
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

// MountExportRoutes registers the CSV export endpoints.
func (h *Handler) MountExportRoutes(r chi.Router) {
	r.Get("/export/kpis.csv", h.exportSummary)
	r.Get("/export/revenue.csv", h.exportRevenue)
	r.Get("/export/top-products.csv", h.exportTopProducts)
}

// Home renders the dashboard.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("load dashboard", slog.Any("error", err))
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	name := ""
	if sess != nil {
		flash = sess.PopFlash()
		name = sess.Claim().Name
	}
	viewData := view.TemplateData{
		Title:       "Dashboard",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data: map[string]any{
			"Dashboard": dashboard,
			"AdminName": name,
		},
	}
	if err := h.templates.Render(w, "pages/home.html", viewData); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) exportSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.SummaryMetrics(r.Context())
	if err != nil {
		h.logger.Error("export summary", slog.Any("error", err))
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}
	setCSVHeaders(w, "kpis")
	if err := WriteSummaryCSV(w, summary); err != nil {
		h.logger.Error("write summary csv", slog.Any("error", err))
	}
}

func (h *Handler) exportRevenue(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.RevenueTrend(r.Context())
	if err != nil {
		h.logger.Error("export revenue", slog.Any("error", err))
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}
	setCSVHeaders(w, "revenue")
	if err := WriteRevenueCSV(w, points); err != nil {
		h.logger.Error("write revenue csv", slog.Any("error", err))
	}
}

func (h *Handler) exportTopProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.TopProducts(r.Context())
	if err != nil {
		h.logger.Error("export top products", slog.Any("error", err))
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}
	setCSVHeaders(w, "top-products")
	if err := WriteTopProductsCSV(w, products); err != nil {
		h.logger.Error("write top products csv", slog.Any("error", err))
	}
}

func setCSVHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`-`+time.Now().Format("2006-01-02")+`.csv"`)
}
