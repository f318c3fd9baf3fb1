// Package state holds the single client-side snapshot shared by the router
// and every page controller. Writes are shallow merges of a Patch into the
// current snapshot; each write notifies subscribers and is then persisted.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pavelanni/mentor/internal/model"
)

const (
	// SnapshotKey is the storage key of the serialized snapshot.
	SnapshotKey = "appState"
	// OnboardingKey is the storage key of the onboarding draft.
	OnboardingKey = "gm.onboarding"
)

// Storage is durable key/value storage. *store.Store satisfies it.
type Storage interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// Listener is called with the merged snapshot after every write.
type Listener func(model.Snapshot)

// Manager owns the snapshot.
type Manager struct {
	storage Storage

	mu   sync.RWMutex
	snap model.Snapshot

	// persistMu orders storage writes so the last one always carries the newest snapshot.
	persistMu sync.Mutex

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// New creates a manager holding the default snapshot. Call Load to restore
// durable state.
func New(storage Storage) *Manager {
	return &Manager{
		storage:   storage,
		snap:      model.DefaultSnapshot(),
		listeners: make(map[int]Listener),
	}
}

// GetState returns the current snapshot. Maps and slices are shared; treat
// them as read-only.
func (m *Manager) GetState() model.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// SetState merges p into the snapshot, notifies subscribers, then persists.
func (m *Manager) SetState(p Patch) {
	m.mu.Lock()
	p.apply(&m.snap)
	snap := m.snap
	m.mu.Unlock()

	writesTotal.Inc()
	m.notify(snap)
	m.Persist()
}

// Update applies the patch fn derives from the current snapshot while holding
// the write lock, so concurrent read-merge-write cycles do not interleave.
func (m *Manager) Update(fn func(model.Snapshot) Patch) {
	m.mu.Lock()
	p := fn(m.snap)
	if p.IsEmpty() {
		m.mu.Unlock()
		return
	}
	p.apply(&m.snap)
	snap := m.snap
	m.mu.Unlock()

	writesTotal.Inc()
	m.notify(snap)
	m.Persist()
}

// Subscribe registers l and returns a function that removes it.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	m.listenersMu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersMu.Lock()
			delete(m.listeners, id)
			m.listenersMu.Unlock()
		})
	}
}

func (m *Manager) notify(snap model.Snapshot) {
	m.listenersMu.Lock()
	ls := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		ls = append(ls, l)
	}
	m.listenersMu.Unlock()

	for _, l := range ls {
		m.callListener(l, snap)
	}
}

// callListener isolates a panicking subscriber from the rest of the notify loop.
func (m *Manager) callListener(l Listener, snap model.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			listenerPanics.Inc()
			slog.Error("state listener panicked", "panic", r)
		}
	}()
	l(snap)
}

// Persist writes the full snapshot to storage. Failures are logged and
// counted, never returned.
func (m *Manager) Persist() {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	data, err := json.Marshal(m.GetState())
	if err != nil {
		persistFailures.WithLabelValues("marshal").Inc()
		slog.Error("failed to serialize state", "error", err)
		return
	}
	if err := m.storage.Put(SnapshotKey, data); err != nil {
		persistFailures.WithLabelValues("write").Inc()
		slog.Error("failed to persist state", "error", err)
	}
}

// Load merges durable state into the default snapshot and notifies
// subscribers. Missing or corrupt data leaves the defaults in place.
func (m *Manager) Load() {
	snap := model.DefaultSnapshot()
	data, err := m.storage.Get(SnapshotKey)
	switch {
	case err != nil:
		slog.Error("failed to read persisted state", "error", err)
	case data != nil:
		loaded := model.DefaultSnapshot()
		if err := json.Unmarshal(data, &loaded); err != nil {
			slog.Warn("discarding corrupt persisted state", "error", err)
		} else {
			snap = normalize(loaded)
		}
	}

	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()
	m.notify(snap)
}

// Reset restores the default snapshot and deletes durable state.
func (m *Manager) Reset() error {
	m.mu.Lock()
	m.snap = model.DefaultSnapshot()
	snap := m.snap
	m.mu.Unlock()

	m.persistMu.Lock()
	var errs []error
	for _, key := range []string{SnapshotKey, OnboardingKey} {
		if err := m.storage.Delete(key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	m.persistMu.Unlock()

	m.notify(snap)
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// normalize replaces null collections left by an old or partial snapshot.
func normalize(s model.Snapshot) model.Snapshot {
	if s.Goals == nil {
		s.Goals = []model.Goal{}
	}
	if s.DocumentCaches == nil {
		s.DocumentCaches = map[string]model.LearningContent{}
	}
	if s.SessionLearningTimes == nil {
		s.SessionLearningTimes = map[string]model.SessionLearningMeta{}
	}
	if s.KnowledgeSessionState == nil {
		s.KnowledgeSessionState = map[string]model.KnowledgeSessionState{}
	}
	if s.AgentStatus == nil {
		s.AgentStatus = map[string]string{}
	}
	if s.SelectedPage == "" {
		s.SelectedPage = "onboarding"
	}
	return s
}
