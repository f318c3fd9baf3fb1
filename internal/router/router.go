// Package router maps route names to page controllers and drives their
// lifecycle inside the single content mount.
package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	appI18n "github.com/pavelanni/mentor/internal/i18n"
	"github.com/pavelanni/mentor/internal/page"
	"github.com/pavelanni/mentor/internal/state"
)

// DefaultRoute is mounted when no route is given.
const DefaultRoute = "onboarding"

var routeRenders = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mentor_route_renders_total",
	Help: "Total route mounts by route and outcome",
}, []string{"route", "outcome"})

// NavItem is one navigation affordance.
type NavItem struct {
	Route   string
	LabelID string
	Active  bool
}

// Router owns the content mount and the currently mounted page.
type Router struct {
	store *state.Manager
	mount *page.Mount

	// routeMu serializes transitions.
	routeMu sync.Mutex

	mu      sync.Mutex
	routes  map[string]page.Page
	nav     []NavItem
	current string
	mounted page.Page
	pending string
}

// New creates a router rendering into mount.
func New(store *state.Manager, mount *page.Mount) *Router {
	return &Router{
		store:  store,
		mount:  mount,
		routes: make(map[string]page.Page),
	}
}

// Mount returns the content region.
func (r *Router) Mount() *page.Mount {
	return r.mount
}

// AddRoute registers p under name. The last registration for a name wins.
func (r *Router) AddRoute(name string, p page.Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[name] = p
}

// AddNav appends a navigation affordance for route.
func (r *Router) AddNav(route, labelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nav = append(r.nav, NavItem{Route: route, LabelID: labelID})
}

// Nav returns the navigation affordances with exactly the current route active.
func (r *Router) Nav() []NavItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NavItem, len(r.nav))
	for i, n := range r.nav {
		n.Active = n.Route == r.current
		out[i] = n
	}
	return out
}

// Current returns the mounted route name and page.
func (r *Router) Current() (string, page.Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.mounted
}

// NavigateTo requests a transition to name. It does not render; the
// transition happens when the pending navigation is taken and routed.
func (r *Router) NavigateTo(name string) {
	r.mu.Lock()
	r.pending = name
	r.mu.Unlock()
	slog.Debug("navigation requested", "route", name)
}

// TakeNavigation returns and clears the pending navigation.
func (r *Router) TakeNavigation() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := r.pending
	r.pending = ""
	return name, name != ""
}

// Init mounts the route recorded in the snapshot, or the default route.
func (r *Router) Init(ctx context.Context) {
	r.HandleRoute(ctx, r.store.GetState().SelectedPage)
}

// HandleRoute clears the mount and mounts the page registered for fragment.
// Unknown routes and failing pages render a placeholder; the region is never
// left half-rendered.
func (r *Router) HandleRoute(ctx context.Context, fragment string) {
	r.routeMu.Lock()
	defer r.routeMu.Unlock()

	name := strings.Trim(strings.TrimPrefix(fragment, "#"), "/")
	if name == "" {
		name = DefaultRoute
	}

	r.mu.Lock()
	prev := r.mounted
	p, ok := r.routes[name]
	r.mu.Unlock()

	gen := r.mount.Clear()
	if u, isUnmounter := prev.(page.Unmounter); isUnmounter {
		u.Unmount()
	}

	if !ok {
		r.mu.Lock()
		r.mounted = nil
		r.mu.Unlock()
		routeRenders.WithLabelValues(name, "not_found").Inc()
		_ = r.mount.Show(ctx, gen, placeholder("PageNotFound"))
		return
	}

	r.mu.Lock()
	r.mounted = p
	r.mu.Unlock()

	if err := mountPage(ctx, p, r.mount); err != nil {
		slog.Error("error rendering page", "route", name, "error", err)
		routeRenders.WithLabelValues(name, "error").Inc()
		if u, isUnmounter := p.(page.Unmounter); isUnmounter {
			u.Unmount()
		}
		r.mu.Lock()
		r.mounted = nil
		r.mu.Unlock()
		_ = r.mount.Show(ctx, r.mount.Generation(), placeholder("ErrorLoadingPage"))
		return
	}
	routeRenders.WithLabelValues(name, "ok").Inc()

	r.store.SetState(state.Patch{SelectedPage: state.Ptr(name)})
	r.mu.Lock()
	r.current = name
	r.mu.Unlock()
}

func mountPage(ctx context.Context, p page.Page, m *page.Mount) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	if err := p.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := p.Render(ctx, m); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// Dispatch routes an action to the mounted page.
func (r *Router) Dispatch(ctx context.Context, action string, form url.Values) error {
	_, p := r.Current()
	h, ok := p.(page.ActionHandler)
	if !ok {
		return fmt.Errorf("page does not handle actions: %q", action)
	}
	return h.HandleAction(ctx, action, form)
}

func placeholder(msgID string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div class="error">`+templ.EscapeString(appI18n.T(ctx, msgID))+`</div>`)
		return err
	})
}
