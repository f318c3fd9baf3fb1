// Package page defines the contract between the router and page controllers.
package page

import (
	"context"
	"net/url"
)

// Page is a controller mounted by the router. Initialize rederives per-visit
// data from the state manager; Render draws the controller into the mount.
type Page interface {
	Initialize(ctx context.Context) error
	Render(ctx context.Context, m *Mount) error
}

// ActionHandler is implemented by pages that react to user actions.
type ActionHandler interface {
	HandleAction(ctx context.Context, action string, form url.Values) error
}

// Unmounter is implemented by pages that own background work which must stop
// when the router mounts another page.
type Unmounter interface {
	Unmount()
}

// Navigator triggers a route transition.
type Navigator interface {
	NavigateTo(name string)
}

// Confirmer asks the learner to confirm a destructive action.
type Confirmer func(msg string) bool

type confirmerCtxKey struct{}

// WithConfirmer stores a confirmer in ctx.
func WithConfirmer(ctx context.Context, c Confirmer) context.Context {
	return context.WithValue(ctx, confirmerCtxKey{}, c)
}

// Confirm asks the confirmer in ctx. Without one, nothing is confirmed.
func Confirm(ctx context.Context, msg string) bool {
	c, ok := ctx.Value(confirmerCtxKey{}).(Confirmer)
	if !ok || c == nil {
		return false
	}
	return c(msg)
}
