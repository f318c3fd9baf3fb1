package handler

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pavelanni/mentor/internal/handler/views"
	appI18n "github.com/pavelanni/mentor/internal/i18n"
	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/page"
	"github.com/pavelanni/mentor/internal/router"
	"github.com/pavelanni/mentor/internal/store"
)

// Handler serves the single-learner UI around one router.
type Handler struct {
	router *router.Router
	store  *store.Store
	live   http.Handler
	config model.AppConfig

	// mu serializes route changes and actions; the mount holds one page.
	mu sync.Mutex

	carryMu sync.Mutex
	carry   []string // alerts raised just before a navigation
}

// holder is implemented by live handlers that can suppress refresh signals.
type holder interface {
	Hold() (release func())
}

// New creates a new Handler. live may be nil to disable push refreshes.
func New(r *router.Router, s *store.Store, live http.Handler, cfg model.AppConfig) (*Handler, error) {
	return &Handler{router: r, store: s, live: live, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)
		r.Get("/login", h.handleLoginPage)
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)

		r.Group(func(r chi.Router) {
			if h.config.RequireLogin {
				r.Use(h.requireAuth)
			}
			r.Get("/", h.handleIndex)
			r.Get("/p/{page}", h.handlePage)
			r.Get("/region", h.handleRegion)
			r.Post("/p/{page}/action/{action}", h.handleAction)
			if h.live != nil {
				r.Handle("/ws", h.live)
			}
		})
	})
}

// BasePathMiddleware stores the configured URL prefix in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	name, _ := h.router.Current()
	if name == "" {
		h.router.Init(r.Context())
		name, _ = h.router.Current()
	}
	h.mu.Unlock()
	if name == "" {
		name = router.DefaultRoute
	}
	http.Redirect(w, r, h.path("/p/"+name), http.StatusSeeOther)
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "page")
	h.mu.Lock()
	h.router.HandleRoute(r.Context(), name)
	l := h.layout(r.Context())
	h.mu.Unlock()

	if r.Header.Get("HX-Request") == "true" {
		h.render(w, r, views.Region(l))
		return
	}
	h.render(w, r, views.Page(l))
}

// handleRegion re-renders the mounted page's committed content. The live
// socket asks for it after every change.
func (h *Handler) handleRegion(w http.ResponseWriter, r *http.Request) {
	if name, _ := h.router.Current(); name == "" {
		h.mu.Lock()
		h.router.Init(r.Context())
		h.mu.Unlock()
	}
	h.render(w, r, views.Region(h.layout(r.Context())))
}

// handleAction dispatches an action to the mounted page. A destructive
// action asks for confirmation by answering with a banner that reposts the
// same form with confirm=yes. A quiet action (quiet=1) sends no live refresh,
// so a field being typed into is not swapped out from under the learner.
func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "page")
	action := chi.URLParam(r, "action")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	var prompt string
	confirmed := r.PostForm.Get("confirm") == "yes"
	ctx := page.WithConfirmer(r.Context(), func(msg string) bool {
		if confirmed {
			return true
		}
		prompt = msg
		return false
	})

	h.mu.Lock()
	if current, _ := h.router.Current(); current != name {
		h.router.HandleRoute(ctx, name)
	}
	release := func() {}
	if hl, ok := h.live.(holder); ok && r.PostForm.Get("quiet") == "1" {
		release = hl.Hold()
	}
	err := h.router.Dispatch(ctx, action, r.PostForm)
	release()
	if err != nil {
		slog.Warn("action failed", "page", name, "action", action, "error", err)
		h.router.Mount().Alert(appI18n.T(ctx, "ActionFailed"))
	}
	if next, ok := h.router.TakeNavigation(); ok {
		h.keepAlerts(h.router.Mount().TakeAlerts())
		h.mu.Unlock()
		w.Header().Set("HX-Redirect", h.path("/p/"+url.PathEscape(next)))
		w.WriteHeader(http.StatusOK)
		return
	}
	l := h.layout(ctx)
	h.mu.Unlock()

	if prompt != "" {
		h.render(w, r, templ.Join(
			views.ConfirmBanner(views.Confirm{
				Message: prompt,
				Action:  "/p/" + name + "/action/" + action,
				Fields:  confirmFields(r.PostForm),
			}),
			views.Region(l),
		))
		return
	}
	h.render(w, r, views.Region(l))
}

func confirmFields(form url.Values) map[string]string {
	out := make(map[string]string, len(form))
	for k, v := range form {
		if k == "confirm" || k == "csrf_token" || k == "quiet" || len(v) == 0 {
			continue
		}
		out[k] = v[0]
	}
	return out
}

func (h *Handler) keepAlerts(alerts []string) {
	h.carryMu.Lock()
	h.carry = append(h.carry, alerts...)
	h.carryMu.Unlock()
}

func (h *Handler) takeCarried() []string {
	h.carryMu.Lock()
	defer h.carryMu.Unlock()
	a := h.carry
	h.carry = nil
	return a
}

// layout snapshots the mount into the shell. Alerts are drained.
func (h *Handler) layout(ctx context.Context) views.Layout {
	route, _ := h.router.Current()
	l := views.Layout{
		Title: "AppTitle",
		Route: route,
		Live:  h.live != nil,
		Auth:  h.config.RequireLogin,
	}
	for _, n := range h.router.Nav() {
		item := views.NavItem{Route: n.Route, LabelID: n.LabelID, Active: n.Active}
		if n.Active {
			l.Title = n.LabelID
		}
		l.Nav = append(l.Nav, item)
	}
	m := h.router.Mount()
	l.Alerts = append(h.takeCarried(), m.TakeAlerts()...)
	l.Content = template.HTML(m.HTML())
	return l
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
