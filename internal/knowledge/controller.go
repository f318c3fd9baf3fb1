// Package knowledge implements the resume-learning page: generation,
// presentation and interactive assessment of one session's learning material.
//
// The controller is a single instance reused across route visits. Every visit
// rehydrates it from the state manager. Work that waits on the backend runs in
// goroutines that capture the session UID they were started for; completions
// write to that session's persisted state and touch the mounted region only if
// the same session is still mounted.
package knowledge

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/pavelanni/mentor/internal/gateway"
	appI18n "github.com/pavelanni/mentor/internal/i18n"
	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/page"
	"github.com/pavelanni/mentor/internal/state"
)

// Route is the route name the controller is registered under.
const Route = "resume-learning"

// DefaultMotivationInterval is how long a learner studies between motivation toasts.
const DefaultMotivationInterval = 3 * time.Minute

// Phase is the render state of the controller, in priority order.
type Phase string

const (
	PhaseError          Phase = "error"
	PhaseMissingGoal    Phase = "missing-goal"
	PhaseMissingSession Phase = "missing-session"
	PhaseGenerating     Phase = "generating"
	PhaseReady          Phase = "ready"
)

// Controller is the knowledge-document page controller.
type Controller struct {
	store    *state.Manager
	backend  gateway.Backend
	nav      page.Navigator
	now      func() time.Time
	interval time.Duration
	counts   gateway.QuizCounts

	// wg tracks backend calls and pipeline runs; tickerWG tracks the
	// motivation ticker, which runs until Unmount.
	wg       sync.WaitGroup
	tickerWG sync.WaitGroup

	// drawMu orders renders so a later state is never overwritten by an
	// earlier one.
	drawMu sync.Mutex

	mu      sync.Mutex
	mount   *page.Mount
	gen     uint64
	mounted bool

	goal         *model.Goal
	session      *model.Session
	sessionIndex int
	uid          string
	learnerInfo  model.LearnerInfo
	pathPayload  json.RawMessage

	content   *model.LearningContent
	sections  []Section
	quizItems []model.QuizItem
	ks        model.KnowledgeSessionState
	meta      *model.SessionLearningMeta

	// inflight holds the session UIDs with a running pipeline.
	inflight map[string]int
	stage    int
	errUID   string
	err      error

	assessmentBootstrapped bool
	tickerStop             chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithMotivationInterval sets the time between motivation toasts.
func WithMotivationInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithQuizCounts sets the number of quiz questions requested per type.
func WithQuizCounts(q gateway.QuizCounts) Option {
	return func(c *Controller) { c.counts = q }
}

// New creates the controller.
func New(store *state.Manager, backend gateway.Backend, nav page.Navigator, opts ...Option) *Controller {
	c := &Controller{
		store:    store,
		backend:  backend,
		nav:      nav,
		now:      time.Now,
		interval: DefaultMotivationInterval,
		counts:   gateway.DefaultQuizCounts,
		inflight: make(map[string]int),
		ks:       emptySessionState(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Initialize rehydrates the controller for the selected goal and session.
func (c *Controller) Initialize(ctx context.Context) error {
	c.hydrate()
	c.ensureAssessmentBootstrap(ctx)

	c.mu.Lock()
	ready := c.content != nil
	if ready {
		c.deriveArtifactsLocked()
	}
	c.mu.Unlock()
	if ready {
		c.ensureSessionLearningMeta()
	}
	return nil
}

func (c *Controller) hydrate() {
	snap := c.store.GetState()
	var fix state.Patch

	goalID := snap.SelectedGoalID
	if snap.GoalIndex(goalID) < 0 && len(snap.Goals) > 0 {
		goalID = snap.Goals[0].ID
		fix.SelectedGoalID = state.Ptr(goalID)
	}
	var goal *model.Goal
	if i := snap.GoalIndex(goalID); i >= 0 {
		g := snap.Goals[i]
		goal = &g
	}

	total := 0
	if goal != nil {
		total = len(goal.LearningPath)
	}
	index := min(max(snap.SelectedSessionIndex, 0), max(total-1, 0))
	if index != snap.SelectedSessionIndex {
		fix.SelectedSessionIndex = state.Ptr(index)
	}
	if !fix.IsEmpty() {
		c.store.SetState(fix)
	}

	var session *model.Session
	uid := ""
	if goal != nil && index < total {
		s := goal.LearningPath[index]
		session = &s
		uid = model.SessionUID(goal.ID, s, index)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.goal = goal
	c.session = session
	c.sessionIndex = index
	c.uid = uid
	c.learnerInfo = snap.LearnerInformation
	c.pathPayload = learningPathPayload(snap, goal)
	c.sections = nil
	c.quizItems = nil
	c.content = nil
	c.meta = nil
	c.ks = emptySessionState()
	if uid == "" {
		return
	}
	if lc, ok := snap.DocumentCaches[uid]; ok {
		c.content = &lc
	}
	if ks, ok := snap.KnowledgeSessionState[uid]; ok {
		c.ks = normalizeSessionState(ks)
	}
	if meta, ok := snap.SessionLearningTimes[uid]; ok {
		c.meta = &meta
	}
}

// Render draws the controller into m, starting the pipeline or the motivation
// timer when the render state calls for it.
func (c *Controller) Render(ctx context.Context, m *page.Mount) error {
	c.mu.Lock()
	c.mount = m
	c.gen = m.Generation()
	c.mounted = true
	c.mu.Unlock()
	return c.refresh(ctx)
}

// Unmount stops the motivation timer, waits for it to exit and detaches the
// controller from the region.
func (c *Controller) Unmount() {
	c.mu.Lock()
	c.mounted = false
	if c.tickerStop != nil {
		close(c.tickerStop)
		c.tickerStop = nil
	}
	c.mu.Unlock()
	c.tickerWG.Wait()
}

// Wait blocks until in-flight backend calls and pipeline runs have finished.
// The motivation ticker is not waited for; Unmount stops it.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Phase returns the current render state.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phaseLocked()
}

func (c *Controller) phaseLocked() Phase {
	switch {
	case c.err != nil && c.errUID == c.uid:
		return PhaseError
	case c.goal == nil:
		return PhaseMissingGoal
	case c.session == nil:
		return PhaseMissingSession
	case c.content == nil:
		return PhaseGenerating
	default:
		return PhaseReady
	}
}

// refresh advances the render state machine and redraws the mounted region.
func (c *Controller) refresh(ctx context.Context) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return nil
	}
	m, gen := c.mount, c.gen
	bg := context.WithoutCancel(ctx)
	switch c.phaseLocked() {
	case PhaseGenerating:
		if c.inflight[c.uid] == 0 {
			c.startPipelineLocked(bg)
		}
	case PhaseReady:
		// The session clock must exist before the first tick can compare
		// against it.
		c.ensureSessionLearningMetaLocked()
		if c.tickerStop == nil {
			c.startTickerLocked(bg)
		}
	}
	c.mu.Unlock()

	c.drawMu.Lock()
	defer c.drawMu.Unlock()
	v := c.view(ctx)
	return m.Show(ctx, gen, render(v))
}

// rerender redraws the region if uid is still the mounted session.
func (c *Controller) rerender(ctx context.Context, uid string) {
	c.mu.Lock()
	live := c.mounted && c.uid == uid
	c.mu.Unlock()
	if !live {
		return
	}
	if err := c.refresh(ctx); err != nil {
		slog.Error("failed to render knowledge document", "session_uid", uid, "error", err)
	}
}

// alert queues the localized message msgID for the learner if uid is still
// mounted.
func (c *Controller) alert(ctx context.Context, uid, msgID string) {
	c.mu.Lock()
	m := c.mount
	live := c.mounted && c.uid == uid
	c.mu.Unlock()
	if live && m != nil {
		m.Alert(appI18n.T(ctx, msgID))
	}
}

// modify applies fn to the interaction state of session uid and persists the
// result. While uid is the hydrated session the in-memory copy is the source of
// truth; otherwise the stored copy is. fn returns false to leave the state
// untouched, in which case nothing is written.
func (c *Controller) modify(ctx context.Context, uid string, fn func(*model.KnowledgeSessionState) bool) bool {
	if uid == "" {
		return false
	}
	c.mu.Lock()
	if c.uid == uid {
		ks := cloneSessionState(c.ks)
		if !fn(&ks) {
			c.mu.Unlock()
			return false
		}
		c.ks = ks
		c.store.Update(func(s model.Snapshot) state.Patch {
			return state.Patch{KnowledgeSessionState: state.Ptr(state.WithEntry(s.KnowledgeSessionState, uid, ks))}
		})
		c.mu.Unlock()
		c.rerender(ctx, uid)
		return true
	}
	c.mu.Unlock()

	changed := false
	c.store.Update(func(s model.Snapshot) state.Patch {
		ks := cloneSessionState(normalizeSessionState(s.KnowledgeSessionState[uid]))
		if !fn(&ks) {
			return state.Patch{}
		}
		changed = true
		return state.Patch{KnowledgeSessionState: state.Ptr(state.WithEntry(s.KnowledgeSessionState, uid, ks))}
	})
	return changed
}

// current returns the hydrated session UID.
func (c *Controller) current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uid
}

func emptySessionState() model.KnowledgeSessionState {
	return model.KnowledgeSessionState{
		SidebarTab:      model.SidebarTutor,
		QuizState:       map[string]model.QuizAnswerState{},
		TutorMessages:   []model.ChatMessage{},
		AssessmentState: emptyAssessment(),
		ToastMessages:   []model.Toast{},
	}
}

func normalizeSessionState(ks model.KnowledgeSessionState) model.KnowledgeSessionState {
	if ks.SidebarTab == "" {
		ks.SidebarTab = model.SidebarTutor
	}
	if ks.QuizState == nil {
		ks.QuizState = map[string]model.QuizAnswerState{}
	}
	if ks.TutorMessages == nil {
		ks.TutorMessages = []model.ChatMessage{}
	}
	if ks.AssessmentState.Messages == nil {
		ks.AssessmentState.Messages = []model.ChatMessage{}
	}
	if ks.ToastMessages == nil {
		ks.ToastMessages = []model.Toast{}
	}
	return ks
}

// cloneSessionState copies the quiz map. Slices are never appended to in
// place, so sharing them is safe.
func cloneSessionState(ks model.KnowledgeSessionState) model.KnowledgeSessionState {
	ks.QuizState = maps.Clone(ks.QuizState)
	if ks.QuizState == nil {
		ks.QuizState = map[string]model.QuizAnswerState{}
	}
	return ks
}

// appendMessage returns a new slice; the input may be shared with a snapshot.
func appendMessage(msgs []model.ChatMessage, m model.ChatMessage) []model.ChatMessage {
	out := make([]model.ChatMessage, len(msgs), len(msgs)+1)
	copy(out, msgs)
	return append(out, m)
}

// learningPathPayload is what the pipeline sends as the learning path: the
// working path in the snapshot, else the goal's verbatim payload, else the
// goal's normalized sessions.
func learningPathPayload(snap model.Snapshot, goal *model.Goal) json.RawMessage {
	if len(snap.LearningPath) > 0 {
		if data, err := json.Marshal(snap.LearningPath); err == nil {
			return data
		}
	}
	if goal == nil {
		return json.RawMessage(`{"learning_path":[]}`)
	}
	if len(goal.LearningPathRaw) > 0 {
		return goal.LearningPathRaw
	}
	sessions := goal.LearningPath
	if sessions == nil {
		sessions = []model.Session{}
	}
	data, err := json.Marshal(map[string]any{"learning_path": sessions})
	if err != nil {
		return json.RawMessage(`{"learning_path":[]}`)
	}
	return data
}

// sessionPayload picks the session from the learning path payload by index,
// falling back to the normalized session.
func sessionPayload(path json.RawMessage, index int, s model.Session) json.RawMessage {
	items := gateway.SessionList(path)
	if index >= 0 && index < len(items) {
		return items[index]
	}
	data, err := json.Marshal(s)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
