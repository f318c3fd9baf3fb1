package state

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pavelanni/mentor/internal/model"
)

type memStorage struct {
	mu      sync.Mutex
	data    map[string][]byte
	failPut bool
	failGet bool
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string][]byte)}
}

func (s *memStorage) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return nil, errors.New("disk unavailable")
	}
	return s.data[key], nil
}

func (s *memStorage) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut {
		return errors.New("quota exceeded")
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *memStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func TestSetStateShallowMerge(t *testing.T) {
	tests := []struct {
		name    string
		patches []Patch
		want    func(s *model.Snapshot)
	}{
		{
			name:    "disjoint keys",
			patches: []Patch{{SelectedPage: Ptr("skill-gap")}, {LearnerOccupation: Ptr("nurse")}},
			want: func(s *model.Snapshot) {
				s.SelectedPage = "skill-gap"
				s.LearnerOccupation = "nurse"
			},
		},
		{
			name:    "last writer wins per key",
			patches: []Patch{{SelectedGoalID: Ptr("a"), SelectedSessionIndex: Ptr(2)}, {SelectedGoalID: Ptr("b")}},
			want: func(s *model.Snapshot) {
				s.SelectedGoalID = "b"
				s.SelectedSessionIndex = 2
			},
		},
		{
			name:    "zero value is a real write",
			patches: []Patch{{CompletedOnboarding: Ptr(true)}, {CompletedOnboarding: Ptr(false)}},
			want:    func(s *model.Snapshot) {},
		},
		{
			name: "maps replaced wholesale",
			patches: []Patch{
				{AgentStatus: Ptr(map[string]string{"explore": "done"})},
				{AgentStatus: Ptr(map[string]string{"draft": "running"})},
			},
			want: func(s *model.Snapshot) {
				s.AgentStatus = map[string]string{"draft": "running"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(newMemStorage())
			for _, p := range tt.patches {
				m.SetState(p)
			}
			want := model.DefaultSnapshot()
			tt.want(&want)
			if diff := cmp.Diff(want, m.GetState()); diff != "" {
				t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetStatePersistsEveryWrite(t *testing.T) {
	st := newMemStorage()
	m := New(st)
	m.SetState(Patch{SelectedPage: Ptr("dashboard")})

	reloaded := New(st)
	reloaded.Load()
	if got := reloaded.GetState().SelectedPage; got != "dashboard" {
		t.Errorf("reloaded SelectedPage = %q, want dashboard", got)
	}
}

func TestSubscribe(t *testing.T) {
	m := New(newMemStorage())

	var got []string
	unsubscribe := m.Subscribe(func(s model.Snapshot) {
		got = append(got, s.SelectedPage)
	})
	// A panicking subscriber must not stop the others.
	m.Subscribe(func(model.Snapshot) { panic("boom") })

	m.SetState(Patch{SelectedPage: Ptr("a")})
	m.SetState(Patch{SelectedPage: Ptr("b")})
	unsubscribe()
	unsubscribe()
	m.SetState(Patch{SelectedPage: Ptr("c")})

	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		failGet  bool
		wantPage string
		wantGoal int
	}{
		{"absent", "", false, "onboarding", 0},
		{"corrupt", "{not json", false, "onboarding", 0},
		{"storage error", "", true, "onboarding", 0},
		{"partial merges into defaults", `{"selectedPage":"dashboard"}`, false, "dashboard", 0},
		{"null collections", `{"goals":null,"documentCaches":null}`, false, "onboarding", 0},
		{"goals", `{"goals":[{"id":"g1","learningGoal":"Go"}],"selectedPage":"learning-path"}`, false, "learning-path", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newMemStorage()
			if tt.stored != "" {
				st.data[SnapshotKey] = []byte(tt.stored)
			}
			st.failGet = tt.failGet

			m := New(st)
			notified := 0
			m.Subscribe(func(model.Snapshot) { notified++ })
			m.Load()

			s := m.GetState()
			if s.SelectedPage != tt.wantPage {
				t.Errorf("SelectedPage = %q, want %q", s.SelectedPage, tt.wantPage)
			}
			if len(s.Goals) != tt.wantGoal {
				t.Errorf("len(Goals) = %d, want %d", len(s.Goals), tt.wantGoal)
			}
			if s.DocumentCaches == nil || s.KnowledgeSessionState == nil || s.SessionLearningTimes == nil {
				t.Error("collections must never be nil after Load")
			}
			if notified != 1 {
				t.Errorf("Load notified %d times, want 1", notified)
			}
		})
	}
}

func TestPersistFailureIsCountedNotReturned(t *testing.T) {
	st := newMemStorage()
	st.failPut = true
	m := New(st)

	before := testutil.ToFloat64(persistFailures.WithLabelValues("write"))
	m.SetState(Patch{SelectedPage: Ptr("dashboard")})
	after := testutil.ToFloat64(persistFailures.WithLabelValues("write"))

	if after-before != 1 {
		t.Errorf("persist failures delta = %v, want 1", after-before)
	}
	// The in-memory write still happened.
	if got := m.GetState().SelectedPage; got != "dashboard" {
		t.Errorf("SelectedPage = %q, want dashboard", got)
	}
}

func TestReset(t *testing.T) {
	st := newMemStorage()
	m := New(st)
	m.SetState(Patch{SelectedGoalID: Ptr("g1"), CompletedOnboarding: Ptr(true)})
	m.SaveOnboarding(model.OnboardingDraft{Step: 2, LearningGoal: "Learn Rust"})

	if err := m.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if diff := cmp.Diff(model.DefaultSnapshot(), m.GetState()); diff != "" {
		t.Errorf("snapshot after reset (-want +got):\n%s", diff)
	}
	if _, ok := st.data[SnapshotKey]; ok {
		t.Error("snapshot key still stored after Reset")
	}
	if d := m.LoadOnboarding(); d.LearningGoal != "" {
		t.Errorf("onboarding draft survived Reset: %+v", d)
	}
}

func TestUpdateIsAtomic(t *testing.T) {
	m := New(newMemStorage())

	const n = 40
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Update(func(s model.Snapshot) Patch {
				g := model.Goal{ID: fmt.Sprintf("g%d", i)}
				return Patch{Goals: Ptr(UpsertGoal(s.Goals, g))}
			})
		}()
	}
	wg.Wait()

	if got := len(m.GetState().Goals); got != n {
		t.Errorf("len(Goals) = %d, want %d", got, n)
	}
}

func TestUpdateEmptyPatchSkipsWrite(t *testing.T) {
	m := New(newMemStorage())
	notified := 0
	m.Subscribe(func(model.Snapshot) { notified++ })
	m.Update(func(model.Snapshot) Patch { return Patch{} })
	if notified != 0 {
		t.Errorf("empty Update notified %d times", notified)
	}
}

func TestOnboardingDraft(t *testing.T) {
	st := newMemStorage()
	m := New(st)

	if d := m.LoadOnboarding(); d != (model.OnboardingDraft{}) {
		t.Errorf("expected empty draft, got %+v", d)
	}

	want := model.OnboardingDraft{Step: 1, LearningGoal: "Learn distributed consensus algorithms", Occupation: "engineer"}
	m.SaveOnboarding(want)
	if got := m.LoadOnboarding(); got != want {
		t.Errorf("LoadOnboarding = %+v, want %+v", got, want)
	}

	// The draft is independent of the snapshot.
	m.SetState(Patch{SelectedPage: Ptr("skill-gap")})
	if got := m.LoadOnboarding(); got != want {
		t.Errorf("draft changed by SetState: %+v", got)
	}

	st.data[OnboardingKey] = []byte("garbage")
	if d := m.LoadOnboarding(); d != (model.OnboardingDraft{}) {
		t.Errorf("corrupt draft should load empty, got %+v", d)
	}

	m.ClearOnboarding()
	if _, ok := st.data[OnboardingKey]; ok {
		t.Error("draft still stored after ClearOnboarding")
	}
}

func TestCopyOnWriteHelpers(t *testing.T) {
	orig := map[string]int{"a": 1}
	with := WithEntry(orig, "b", 2)
	without := WithoutEntry(with, "a")

	if len(orig) != 1 {
		t.Errorf("WithEntry mutated its input: %v", orig)
	}
	if diff := cmp.Diff(map[string]int{"a": 1, "b": 2}, with); diff != "" {
		t.Errorf("WithEntry (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"b": 2}, without); diff != "" {
		t.Errorf("WithoutEntry (-want +got):\n%s", diff)
	}

	goals := []model.Goal{{ID: "a", LearningGoal: "old"}, {ID: "b"}}
	updated := UpsertGoal(goals, model.Goal{ID: "a", LearningGoal: "new"})
	if goals[0].LearningGoal != "old" {
		t.Error("UpsertGoal mutated its input")
	}
	if len(updated) != 2 || updated[0].LearningGoal != "new" {
		t.Errorf("UpsertGoal in place = %+v", updated)
	}
	appended := UpsertGoal(goals, model.Goal{ID: "c"})
	if len(appended) != 3 || appended[2].ID != "c" {
		t.Errorf("UpsertGoal append = %+v", appended)
	}
}
