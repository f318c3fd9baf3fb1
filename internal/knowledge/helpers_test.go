package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
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

var errBackend = errors.New("backend down")

// fakeBackend records calls in order and answers from its fields.
type fakeBackend struct {
	mu     sync.Mutex
	calls  []string
	topics []string

	points   []json.RawMessage
	drafts   []json.RawMessage
	document string
	quizzes  json.RawMessage

	reply      string
	assessErr  error
	tutorErr   error
	profileErr error
	updates    []gateway.ProfileUpdate
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		points:   []json.RawMessage{json.RawMessage(`{"name":"Leader election","summary":"How a leader is chosen"}`)},
		drafts:   []json.RawMessage{json.RawMessage(`{"title":"Elections","content":"Terms and votes"}`)},
		document: "Raft keeps a replicated log.\n\n## Terms\nEach term has at most one leader.\n\n## Elections\nCandidates request votes.",
		quizzes:  json.RawMessage(`{"single_choice_questions":[{"question":"Pick B","options":["A","B","C"],"correct_option":1}]}`),
		reply:    "What makes a leader legitimate?",
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

// pipelineCalls returns the content pipeline calls only.
func (f *fakeBackend) pipelineCalls() []string {
	var out []string
	for _, c := range f.Calls() {
		switch c {
		case "explore", "draft", "integrate", "quiz":
			out = append(out, c)
		}
	}
	return out
}

// coachCalls counts Socratic calls made for quiz items.
func (f *fakeBackend) coachCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.topics {
		if strings.HasPrefix(t, "Question: ") || strings.HasPrefix(t, "You are a Socratic tutor") {
			n++
		}
	}
	return n
}

func (f *fakeBackend) RefineLearningGoal(context.Context, string, model.LearnerInfo) (string, error) {
	f.record("refine")
	return "", nil
}

func (f *fakeBackend) IdentifySkillGaps(context.Context, string, model.LearnerInfo) ([]model.SkillGap, json.RawMessage, error) {
	f.record("gaps")
	return nil, nil, nil
}

func (f *fakeBackend) CreateLearnerProfile(context.Context, model.LearnerInfo, string, json.RawMessage) (json.RawMessage, error) {
	f.record("profile")
	return nil, nil
}

func (f *fakeBackend) ScheduleLearningPath(context.Context, json.RawMessage, int) (gateway.LearningPath, error) {
	f.record("schedule")
	return gateway.LearningPath{}, nil
}

func (f *fakeBackend) RescheduleLearningPath(context.Context, json.RawMessage, json.RawMessage, int, string) (gateway.LearningPath, error) {
	f.record("reschedule")
	return gateway.LearningPath{}, nil
}

func (f *fakeBackend) ExploreKnowledgePoints(context.Context, gateway.SessionRequest) ([]json.RawMessage, error) {
	f.record("explore")
	return f.points, nil
}

func (f *fakeBackend) DraftKnowledgePoints(context.Context, gateway.SessionRequest, []json.RawMessage) ([]json.RawMessage, error) {
	f.record("draft")
	return f.drafts, nil
}

func (f *fakeBackend) IntegrateLearningDocument(context.Context, gateway.SessionRequest, []json.RawMessage, []json.RawMessage) (string, error) {
	f.record("integrate")
	return f.document, nil
}

func (f *fakeBackend) GenerateDocumentQuizzes(context.Context, json.RawMessage, string, gateway.QuizCounts) (json.RawMessage, error) {
	f.record("quiz")
	return f.quizzes, nil
}

func (f *fakeBackend) ChatWithTutor(context.Context, []model.ChatMessage, json.RawMessage) (string, error) {
	f.record("tutor")
	if f.tutorErr != nil {
		return "", f.tutorErr
	}
	return "Tutor says hi", nil
}

func (f *fakeBackend) AssessWithSocraticTutor(_ context.Context, topic string, _ []model.ChatMessage) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "assess")
	f.topics = append(f.topics, topic)
	err, reply := f.assessErr, f.reply
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (f *fakeBackend) UpdateLearnerProfile(_ context.Context, req gateway.ProfileUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update-profile")
	if f.profileErr != nil {
		return f.profileErr
	}
	f.updates = append(f.updates, req)
	return nil
}

// countingStorage is in-memory storage that counts writes.
type countingStorage struct {
	mu   sync.Mutex
	data map[string][]byte
	puts int
}

func (s *countingStorage) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *countingStorage) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.puts++
	return nil
}

func (s *countingStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *countingStorage) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

type fakeNav struct {
	mu    sync.Mutex
	route string
}

func (n *fakeNav) NavigateTo(name string) {
	n.mu.Lock()
	n.route = name
	n.mu.Unlock()
}

func (n *fakeNav) Route() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}

var testNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

const testGoalID = "goal-1"

func raftGoal() model.Goal {
	return model.Goal{
		ID:             testGoalID,
		LearningGoal:   "Learn distributed consensus algorithms",
		LearnerProfile: json.RawMessage(`{"style":"visual"}`),
		LearningPath:   []model.Session{{ID: "s1", Title: "Raft Basics"}},
	}
}

func raftUID() string {
	return model.SessionUID(testGoalID, model.Session{ID: "s1", Title: "Raft Basics"}, 0)
}

type fixture struct {
	c       *Controller
	store   *state.Manager
	storage *countingStorage
	backend *fakeBackend
	nav     *fakeNav
	mount   *page.Mount
}

// newFixture seeds the store with the raft goal, applies extra, and creates a
// controller with a fixed clock.
func newFixture(t *testing.T, b *fakeBackend, extra state.Patch, opts ...Option) *fixture {
	t.Helper()
	storage := &countingStorage{data: make(map[string][]byte)}
	store := state.New(storage)
	store.SetState(state.Patch{
		Goals:          state.Ptr([]model.Goal{raftGoal()}),
		SelectedGoalID: state.Ptr(testGoalID),
	})
	if !extra.IsEmpty() {
		store.SetState(extra)
	}
	nav := &fakeNav{}
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	f := &fixture{
		c:       New(store, b, nav, opts...),
		store:   store,
		storage: storage,
		backend: b,
		nav:     nav,
		mount:   page.NewMount(),
	}
	t.Cleanup(f.stop)
	return f
}

// withStartedAssessment keeps the assessment bootstrap from calling the backend.
func withStartedAssessment(ks model.KnowledgeSessionState) model.KnowledgeSessionState {
	ks.AssessmentState = model.AssessmentState{Topic: "Raft Basics", Messages: []model.ChatMessage{{Role: model.RoleAssistant, Content: "What is a term?"}}, QuestionCount: 1}
	return ks
}

// cachedPatch seeds cached content and interaction state for the raft session.
func cachedPatch(b *fakeBackend, ks model.KnowledgeSessionState) state.Patch {
	uid := raftUID()
	return state.Patch{
		DocumentCaches: state.Ptr(map[string]model.LearningContent{uid: {
			Document:        b.document,
			KnowledgePoints: b.points,
			KnowledgeDrafts: b.drafts,
			Quizzes:         b.quizzes,
			GeneratedAt:     testNow.Add(-time.Hour),
		}}),
		KnowledgeSessionState: state.Ptr(map[string]model.KnowledgeSessionState{uid: ks}),
	}
}

func (f *fixture) init(t *testing.T) {
	t.Helper()
	if err := f.c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

func (f *fixture) render(t *testing.T) {
	t.Helper()
	if err := f.c.Render(context.Background(), f.mount); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

// stop unmounts the controller and waits for background work.
func (f *fixture) stop() {
	f.c.Unmount()
	f.c.Wait()
}

func (f *fixture) sessionState() model.KnowledgeSessionState {
	return f.store.GetState().KnowledgeSessionState[raftUID()]
}

// en is the English text of message id.
func en(id string) string {
	return appI18n.T(context.Background(), id)
}

func confirmed() context.Context {
	return page.WithConfirmer(context.Background(), func(string) bool { return true })
}
