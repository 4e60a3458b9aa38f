package guard

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
	"github.com/papyrus-commerce/papyrus-admin/internal/view"
)

// Middleware adapts the evaluator to chi. Every request into the
// protected subtree is one navigation: it is evaluated against the
// authoritative record and rendered as allow, deny or error. The guard
// fails closed; protected content is never written on ambiguity.
type Middleware struct {
	Logger     *slog.Logger
	Templates  *view.Engine
	Registry   *Registry
	LoginRoute string
}

func (m *Middleware) log() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// Protect wraps a handler subtree behind the access gate.
func (m *Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			m.renderError(w, r, reasonSessionLoad, http.StatusInternalServerError)
			return
		}
		if sess.User() == "" {
			m.redirectToLogin(w, r)
			return
		}

		ev := m.Registry.ForSession(sess.ID, r.URL.Path)
		if ev == nil {
			m.renderError(w, r, reasonSessionLoad, http.StatusServiceUnavailable)
			return
		}

		claim := sess.Claim()
		principal := &Principal{
			ID:    sess.User(),
			Email: claim.Email,
			Name:  claim.Name,
		}
		decision := ev.Evaluate(r.Context(), Inputs{
			Principal:  principal,
			CachedRole: claim.Role,
			Route:      r.URL.Path,
		})

		switch decision.State {
		case StateAllowed:
			if err := ev.EnsureMirror(r.Context(), principal); err != nil {
				m.log().Warn("guard: ensure mirror", slog.Any("error", err))
			}
			next.ServeHTTP(w, r)
		case StateUnauthenticated:
			m.redirectToLogin(w, r)
		case StateDenied:
			m.renderDenied(w, r, principal, decision)
		case StateLoading:
			m.renderVerifying(w, r)
		default:
			status := http.StatusServiceUnavailable
			if decision.Reason == reasonSessionLoad {
				status = http.StatusInternalServerError
			}
			m.renderError(w, r, decision.Reason, status)
		}
	})
}

func (m *Middleware) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	login := m.LoginRoute
	if login == "" {
		login = "/auth/login"
	}
	from := r.URL.Path
	if r.URL.RawQuery != "" {
		from += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, login+"?from="+url.QueryEscape(from), http.StatusSeeOther)
}

func (m *Middleware) renderDenied(w http.ResponseWriter, r *http.Request, p *Principal, d Decision) {
	w.WriteHeader(http.StatusForbidden)
	data := view.TemplateData{
		Title:       "Access Denied",
		CurrentPath: r.URL.Path,
		Data: map[string]any{
			"Email":        p.Email,
			"ObservedRole": d.ObservedRole,
			"Warning":      d.Warning,
		},
	}
	if err := m.Templates.Render(w, "pages/denied.html", data); err != nil {
		m.log().Error("guard: render denied", slog.Any("error", err))
	}
}

func (m *Middleware) renderError(w http.ResponseWriter, r *http.Request, reason string, status int) {
	w.WriteHeader(status)
	data := view.TemplateData{
		Title:       "Security Error",
		CurrentPath: r.URL.Path,
		Data:        map[string]any{"Reason": reason},
	}
	if err := m.Templates.Render(w, "pages/guard_error.html", data); err != nil {
		m.log().Error("guard: render error page", slog.Any("error", err))
	}
}

func (m *Middleware) renderVerifying(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	data := view.TemplateData{
		Title:       "Verifying permissions",
		CurrentPath: r.URL.Path,
	}
	if err := m.Templates.Render(w, "pages/verifying.html", data); err != nil {
		m.log().Error("guard: render verifying", slog.Any("error", err))
	}
}
