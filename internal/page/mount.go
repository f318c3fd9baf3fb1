package page

import (
	"bytes"
	"context"
	"sync"

	"github.com/a-h/templ"
)

// Mount is the content region pages render into. Every Clear starts a new
// generation; content and alerts from an older generation are dropped, so a
// late completion cannot write into a page that is no longer mounted.
type Mount struct {
	mu       sync.Mutex
	gen      uint64
	html     string
	alerts   []string
	onChange func()
}

// NewMount returns an empty region.
func NewMount() *Mount {
	return &Mount{}
}

// OnChange registers fn to run after the region content changes.
func (m *Mount) OnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Generation returns the current generation.
func (m *Mount) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// Alive reports whether gen is still the mounted generation.
func (m *Mount) Alive(gen uint64) bool {
	return m.Generation() == gen
}

// Clear empties the region and starts a new generation.
func (m *Mount) Clear() uint64 {
	m.mu.Lock()
	m.gen++
	m.html = ""
	m.alerts = nil
	gen := m.gen
	m.mu.Unlock()
	return gen
}

// Show renders c off-screen and swaps it in only when rendering succeeded and
// gen is still current.
func (m *Mount) Show(ctx context.Context, gen uint64, c templ.Component) error {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return err
	}
	m.swap(gen, buf.String())
	return nil
}

func (m *Mount) swap(gen uint64, html string) bool {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return false
	}
	m.html = html
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true
}

// HTML returns the committed region content.
func (m *Mount) HTML() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.html
}

// Alert queues a blocking message for the learner.
func (m *Mount) Alert(msg string) {
	m.mu.Lock()
	m.alerts = append(m.alerts, msg)
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// TakeAlerts drains queued alerts.
func (m *Mount) TakeAlerts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.alerts
	m.alerts = nil
	return a
}
