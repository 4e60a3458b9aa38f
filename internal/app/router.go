package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/papyrus-commerce/papyrus-admin/internal/analytics"
	"github.com/papyrus-commerce/papyrus-admin/internal/auth"
	"github.com/papyrus-commerce/papyrus-admin/internal/catalog"
	"github.com/papyrus-commerce/papyrus-admin/internal/guard"
	"github.com/papyrus-commerce/papyrus-admin/internal/orders"
	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
	"github.com/papyrus-commerce/papyrus-admin/internal/users"
	"github.com/papyrus-commerce/papyrus-admin/internal/view"
	"github.com/papyrus-commerce/papyrus-admin/jobs"
	"github.com/papyrus-commerce/papyrus-admin/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Templates        *view.Engine
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	CatalogHandler   *catalog.Handler
	OrdersHandler    *orders.Handler
	UsersHandler     *users.Handler
	AnalyticsHandler *analytics.Handler
	JobHandler       *jobs.Handler
	Guard            *guard.Middleware
}

// NewRouter constructs the chi.Router for the console.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Landing page for unauthenticated visitors.
	r.Get("/welcome", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		data := view.TemplateData{
			Title:     "Papyrus Admin",
			CSRFToken: csrfToken,
			Flash:     flash,
		}
		if err := params.Templates.Render(w, "pages/landing.html", data); err != nil {
			params.Logger.Error("render landing", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Everything below is admin-only and sits behind the access gate.
	r.Group(func(r chi.Router) {
		r.Use(params.Guard.Protect)

		r.Get("/", params.AnalyticsHandler.Home)
		r.Route("/products", params.CatalogHandler.MountRoutes)
		r.Route("/orders", params.OrdersHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/analytics", params.AnalyticsHandler.MountExportRoutes)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
