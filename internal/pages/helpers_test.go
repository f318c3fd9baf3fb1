package pages

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pavelanni/mentor/internal/gateway"
	appI18n "github.com/pavelanni/mentor/internal/i18n"
	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/page"
	"github.com/pavelanni/mentor/internal/state"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var (
	errBackend = errors.New("backend down")
	fixedNow   = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

// fakeBackend answers the goal-planning calls. The document calls are not
// used by these pages and panic through the nil embedded interface.
type fakeBackend struct {
	gateway.Backend

	mu        sync.Mutex
	calls     []string
	refined   string
	refineErr error
	gaps      []model.SkillGap
	gapsErr   error
	profile   json.RawMessage
	path      []model.Session
	pathErr   error
	sessions  []int
	feedback  []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		refined: "Learn Raft well enough to implement it",
		gaps: []model.SkillGap{
			{Name: "Consensus", RequiredLevel: "advanced", CurrentLevel: "beginner", IsGap: true},
			{Name: "Go", RequiredLevel: "intermediate", CurrentLevel: "advanced"},
		},
		profile: json.RawMessage(`{"learner":"x"}`),
		path: []model.Session{
			{ID: "s1", Title: "Terms"},
			{ID: "s2", Title: "Elections"},
		},
	}
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) RefineLearningGoal(context.Context, string, model.LearnerInfo) (string, error) {
	f.record("refine")
	return f.refined, f.refineErr
}

func (f *fakeBackend) IdentifySkillGaps(context.Context, string, model.LearnerInfo) ([]model.SkillGap, json.RawMessage, error) {
	f.record("gaps")
	if f.gapsErr != nil {
		return nil, nil, f.gapsErr
	}
	return f.gaps, json.RawMessage(`{"skill_gaps":[]}`), nil
}

func (f *fakeBackend) CreateLearnerProfile(context.Context, model.LearnerInfo, string, json.RawMessage) (json.RawMessage, error) {
	f.record("profile")
	return f.profile, nil
}

func (f *fakeBackend) ScheduleLearningPath(_ context.Context, _ json.RawMessage, n int) (gateway.LearningPath, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "schedule")
	f.sessions = append(f.sessions, n)
	f.mu.Unlock()
	if f.pathErr != nil {
		return gateway.LearningPath{}, f.pathErr
	}
	return gateway.LearningPath{Sessions: f.path, Raw: json.RawMessage(`{"learning_path":[]}`)}, nil
}

func (f *fakeBackend) RescheduleLearningPath(_ context.Context, _, _ json.RawMessage, n int, feedback string) (gateway.LearningPath, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "reschedule")
	f.sessions = append(f.sessions, n)
	f.feedback = append(f.feedback, feedback)
	f.mu.Unlock()
	if f.pathErr != nil {
		return gateway.LearningPath{}, f.pathErr
	}
	return gateway.LearningPath{Sessions: f.path, Raw: json.RawMessage(`{"learning_path":["new"]}`)}, nil
}

type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *memStorage) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memStorage) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

type fakeNav struct {
	mu     sync.Mutex
	routes []string
}

func (n *fakeNav) NavigateTo(name string) {
	n.mu.Lock()
	n.routes = append(n.routes, name)
	n.mu.Unlock()
}

func (n *fakeNav) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.routes) == 0 {
		return ""
	}
	return n.routes[len(n.routes)-1]
}

type fixture struct {
	store   *state.Manager
	backend *fakeBackend
	nav     *fakeNav
	mount   *page.Mount
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		store:   state.New(&memStorage{data: map[string][]byte{}}),
		backend: newFakeBackend(),
		nav:     &fakeNav{},
		mount:   page.NewMount(),
	}
}

func (f *fixture) deps() Deps {
	return Deps{Store: f.store, Backend: f.backend, Nav: f.nav, Now: func() time.Time { return fixedNow }}
}

// open mounts p the way the router does.
func (f *fixture) open(t *testing.T, p page.Page) {
	t.Helper()
	f.mount.Clear()
	if err := p.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := p.Render(context.Background(), f.mount); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

// withGoals stores goals and selects the first.
func (f *fixture) withGoals(goals ...model.Goal) {
	id := ""
	if len(goals) > 0 {
		id = goals[0].ID
	}
	f.store.SetState(state.Patch{Goals: &goals, SelectedGoalID: &id})
}

func testGoal(id string, learned ...bool) model.Goal {
	g := model.Goal{ID: id, LearningGoal: "Goal " + id, CreatedAt: fixedNow}
	for i, l := range learned {
		g.LearningPath = append(g.LearningPath, model.Session{ID: id + "-s" + string(rune('a'+i)), Title: "Session", IfLearned: l})
	}
	return g
}

func confirmed(ok bool) context.Context {
	return page.WithConfirmer(context.Background(), func(string) bool { return ok })
}
