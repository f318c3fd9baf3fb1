package pages

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/state"
)

func TestSkillGapIdentifyAndSchedule(t *testing.T) {
	f := newFixture(t)
	f.store.SetState(state.Patch{ToAddGoal: state.Ptr("Learn Raft"), CompletedOnboarding: state.Ptr(true)})
	p := NewSkillGap(f.deps())
	f.open(t, p)

	if err := p.HandleAction(t.Context(), "schedule", nil); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{alertIdentifyFirst}, f.mount.TakeAlerts()); diff != "" {
		t.Errorf("schedule before identify alerts (-want +got):\n%s", diff)
	}

	if err := p.HandleAction(t.Context(), "identify", nil); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f.backend.gaps, f.store.GetState().SkillGaps); diff != "" {
		t.Errorf("stored gaps (-want +got):\n%s", diff)
	}

	if err := p.HandleAction(t.Context(), "schedule", nil); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"gaps", "profile", "schedule"}, f.backend.Calls()); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{SessionCountFor(2)}, f.backend.sessions); diff != "" {
		t.Errorf("session counts (-want +got):\n%s", diff)
	}

	snap := f.store.GetState()
	if len(snap.Goals) != 1 {
		t.Fatalf("goals = %d, want 1", len(snap.Goals))
	}
	g := snap.Goals[0]
	if g.ID == "" || snap.SelectedGoalID != g.ID {
		t.Errorf("goal id %q, selected %q", g.ID, snap.SelectedGoalID)
	}
	if g.LearningGoal != "Learn Raft" || !g.CreatedAt.Equal(fixedNow) {
		t.Errorf("goal = %+v", g)
	}
	if diff := cmp.Diff(f.backend.path, g.LearningPath); diff != "" {
		t.Errorf("learning path (-want +got):\n%s", diff)
	}
	if snap.ToAddGoal != "" {
		t.Errorf("ToAddGoal = %q, want cleared", snap.ToAddGoal)
	}
	if f.nav.Last() != RouteLearningPath {
		t.Errorf("navigated to %q", f.nav.Last())
	}
}

func TestSkillGapFailures(t *testing.T) {
	t.Run("no pending goal", func(t *testing.T) {
		f := newFixture(t)
		p := NewSkillGap(f.deps())
		f.open(t, p)
		if err := p.HandleAction(t.Context(), "identify", nil); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{alertNoPendingGoal}, f.mount.TakeAlerts()); diff != "" {
			t.Errorf("alerts (-want +got):\n%s", diff)
		}
	})
	t.Run("identify fails", func(t *testing.T) {
		f := newFixture(t)
		f.backend.gapsErr = errBackend
		f.store.SetState(state.Patch{ToAddGoal: state.Ptr("Learn Raft")})
		p := NewSkillGap(f.deps())
		f.open(t, p)
		if err := p.HandleAction(t.Context(), "identify", nil); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{alertIdentifyFailed}, f.mount.TakeAlerts()); diff != "" {
			t.Errorf("alerts (-want +got):\n%s", diff)
		}
	})
	t.Run("schedule fails without creating a goal", func(t *testing.T) {
		f := newFixture(t)
		f.backend.pathErr = errBackend
		f.store.SetState(state.Patch{ToAddGoal: state.Ptr("Learn Raft")})
		p := NewSkillGap(f.deps())
		f.open(t, p)
		_ = p.HandleAction(t.Context(), "identify", nil)
		if err := p.HandleAction(t.Context(), "schedule", nil); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{alertScheduleFailed}, f.mount.TakeAlerts()); diff != "" {
			t.Errorf("alerts (-want +got):\n%s", diff)
		}
		if n := len(f.store.GetState().Goals); n != 0 {
			t.Errorf("goals = %d, want 0", n)
		}
		if f.nav.Last() != "" {
			t.Errorf("navigated to %q", f.nav.Last())
		}
	})
}

func TestLearningPathFallsBackToFirstGoal(t *testing.T) {
	f := newFixture(t)
	f.withGoals(testGoal("g1", false), testGoal("g2", false))
	f.store.SetState(state.Patch{SelectedGoalID: state.Ptr("deleted")})

	p := NewLearningPath(f.deps())
	f.open(t, p)
	if got := f.store.GetState().SelectedGoalID; got != "g1" {
		t.Errorf("SelectedGoalID = %q, want g1", got)
	}
}

func TestLearningPathStartSession(t *testing.T) {
	f := newFixture(t)
	g := testGoal("g1", true, false)
	g.LearnerProfile = []byte(`{"p":1}`)
	f.withGoals(g)
	p := NewLearningPath(f.deps())
	f.open(t, p)

	if err := p.HandleAction(t.Context(), "start-session", url.Values{"index": {"1"}}); err != nil {
		t.Fatal(err)
	}
	snap := f.store.GetState()
	if snap.SelectedSessionIndex != 1 {
		t.Errorf("SelectedSessionIndex = %d", snap.SelectedSessionIndex)
	}
	if diff := cmp.Diff(g.LearningPath, snap.LearningPath); diff != "" {
		t.Errorf("LearningPath (-want +got):\n%s", diff)
	}
	if f.nav.Last() != RouteResumeLearning {
		t.Errorf("navigated to %q", f.nav.Last())
	}

	for _, idx := range []string{"2", "-1", "x"} {
		if err := p.HandleAction(t.Context(), "start-session", url.Values{"index": {idx}}); err == nil {
			t.Errorf("index %q accepted", idx)
		}
	}
}

func TestLearningPathToggleComplete(t *testing.T) {
	f := newFixture(t)
	f.withGoals(testGoal("g1", false, false))
	p := NewLearningPath(f.deps())
	f.open(t, p)

	if err := p.HandleAction(t.Context(), "toggle-complete", url.Values{"index": {"0"}, "checked": {"true"}}); err != nil {
		t.Fatal(err)
	}
	done, total, pct := f.store.GetState().Goals[0].Progress()
	if done != 1 || total != 2 || pct != 50 {
		t.Errorf("progress = %d/%d %d%%", done, total, pct)
	}
	if err := p.HandleAction(t.Context(), "toggle-complete", url.Values{"index": {"0"}, "checked": {"false"}}); err != nil {
		t.Fatal(err)
	}
	if done, _, _ := f.store.GetState().Goals[0].Progress(); done != 0 {
		t.Errorf("completed = %d after unchecking", done)
	}
}

func TestLearningPathReschedule(t *testing.T) {
	t.Run("success replaces the path", func(t *testing.T) {
		f := newFixture(t)
		f.withGoals(testGoal("g1", true))
		p := NewLearningPath(f.deps())
		f.open(t, p)

		form := url.Values{"sessions": {"42"}, "feedback": {"  shorter please "}}
		if err := p.HandleAction(t.Context(), "reschedule", form); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]int{MaxSessions}, f.backend.sessions); diff != "" {
			t.Errorf("session counts (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"shorter please"}, f.backend.feedback); diff != "" {
			t.Errorf("feedback (-want +got):\n%s", diff)
		}
		g := f.store.GetState().Goals[0]
		if diff := cmp.Diff(f.backend.path, g.LearningPath); diff != "" {
			t.Errorf("path (-want +got):\n%s", diff)
		}
		if !g.UpdatedAt.Equal(fixedNow) {
			t.Errorf("UpdatedAt = %v", g.UpdatedAt)
		}
		if diff := cmp.Diff([]string{alertRescheduled}, f.mount.TakeAlerts()); diff != "" {
			t.Errorf("alerts (-want +got):\n%s", diff)
		}
	})
	t.Run("failure keeps the path", func(t *testing.T) {
		f := newFixture(t)
		f.backend.pathErr = errBackend
		orig := testGoal("g1", true)
		f.withGoals(orig)
		p := NewLearningPath(f.deps())
		f.open(t, p)

		if err := p.HandleAction(t.Context(), "reschedule", url.Values{"sessions": {"3"}}); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(orig.LearningPath, f.store.GetState().Goals[0].LearningPath); diff != "" {
			t.Errorf("path changed (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{alertRescheduleFailed}, f.mount.TakeAlerts()); diff != "" {
			t.Errorf("alerts (-want +got):\n%s", diff)
		}
	})
}

func TestGoalsDelete(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *Goals) {
		f := newFixture(t)
		f.withGoals(testGoal("g1", false), testGoal("g2", false))
		f.store.SetState(state.Patch{
			DocumentCaches: state.Ptr(map[string]model.LearningContent{
				"g1::g1-sa": {Document: "one"},
				"g2::g2-sa": {Document: "two"},
			}),
			KnowledgeSessionState: state.Ptr(map[string]model.KnowledgeSessionState{"g1::g1-sa": {}}),
		})
		p := NewGoals(f.deps())
		f.open(t, p)
		return f, p
	}

	t.Run("declined", func(t *testing.T) {
		f, p := setup(t)
		if err := p.HandleAction(confirmed(false), "delete", url.Values{"goal": {"g1"}}); err != nil {
			t.Fatal(err)
		}
		if n := len(f.store.GetState().Goals); n != 2 {
			t.Errorf("goals = %d, want 2", n)
		}
	})
	t.Run("no confirmer", func(t *testing.T) {
		f, p := setup(t)
		if err := p.HandleAction(context.Background(), "delete", url.Values{"goal": {"g1"}}); err != nil {
			t.Fatal(err)
		}
		if n := len(f.store.GetState().Goals); n != 2 {
			t.Errorf("goals = %d, want 2", n)
		}
	})
	t.Run("confirmed", func(t *testing.T) {
		f, p := setup(t)
		if err := p.HandleAction(confirmed(true), "delete", url.Values{"goal": {"g1"}}); err != nil {
			t.Fatal(err)
		}
		snap := f.store.GetState()
		if len(snap.Goals) != 1 || snap.Goals[0].ID != "g2" {
			t.Fatalf("goals = %+v", snap.Goals)
		}
		if snap.SelectedGoalID != "g2" {
			t.Errorf("SelectedGoalID = %q, want g2", snap.SelectedGoalID)
		}
		if _, ok := snap.DocumentCaches["g1::g1-sa"]; ok {
			t.Error("cache of the deleted goal kept")
		}
		if _, ok := snap.DocumentCaches["g2::g2-sa"]; !ok {
			t.Error("cache of the other goal dropped")
		}
		if len(snap.KnowledgeSessionState) != 0 {
			t.Errorf("session state = %v", snap.KnowledgeSessionState)
		}
	})
}

func TestGoalsEditAndAdd(t *testing.T) {
	f := newFixture(t)
	f.withGoals(testGoal("g1", false))
	p := NewGoals(f.deps())
	f.open(t, p)

	if err := p.HandleAction(t.Context(), "edit", url.Values{"goal": {"g1"}}); err != nil {
		t.Fatal(err)
	}
	if err := p.HandleAction(t.Context(), "save", url.Values{"goal": {"g1"}, "text": {"abc"}}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ValidationGoal"}, p.errors); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
	if err := p.HandleAction(t.Context(), "save", url.Values{"goal": {"g1"}, "text": {" Learn Paxos "}}); err != nil {
		t.Fatal(err)
	}
	g := f.store.GetState().Goals[0]
	if g.LearningGoal != "Learn Paxos" || !g.UpdatedAt.Equal(fixedNow) {
		t.Errorf("goal = %+v", g)
	}
	if p.editing != "" {
		t.Errorf("still editing %q", p.editing)
	}

	if err := p.HandleAction(t.Context(), "add", url.Values{"text": {"Learn Go generics"}}); err != nil {
		t.Fatal(err)
	}
	if got := f.store.GetState().ToAddGoal; got != "Learn Go generics" {
		t.Errorf("ToAddGoal = %q", got)
	}
	if f.nav.Last() != RouteSkillGap {
		t.Errorf("navigated to %q", f.nav.Last())
	}
}

func TestProfileSave(t *testing.T) {
	f := newFixture(t)
	f.store.SetState(state.Patch{LearnerOccupation: state.Ptr("Student")})
	p := NewProfile(f.deps())
	f.open(t, p)

	if err := p.HandleAction(t.Context(), "save", url.Values{"occupation": {" "}}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ValidationOccupation"}, p.errors); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
	if got := f.store.GetState().LearnerOccupation; got != "Student" {
		t.Errorf("occupation changed to %q", got)
	}

	form := url.Values{"occupation": {"Engineer"}, "learningStyle": {"Videos"}, "text": {"Ten years of C"}}
	if err := p.HandleAction(t.Context(), "save", form); err != nil {
		t.Fatal(err)
	}
	want := model.LearnerInfo{Occupation: "Engineer", LearningStyle: "Videos", Text: "Ten years of C"}
	if diff := cmp.Diff(want, f.store.GetState().LearnerInformation); diff != "" {
		t.Errorf("learner info (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{alertProfileSaved}, f.mount.TakeAlerts()); diff != "" {
		t.Errorf("alerts (-want +got):\n%s", diff)
	}
}

func TestPrettyJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"object", `{"a":1}`, "{\n  \"a\": 1\n}"},
		{"invalid", `{oops`, `{oops`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := prettyJSON([]byte(tt.raw)); got != tt.want {
				t.Errorf("prettyJSON(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
