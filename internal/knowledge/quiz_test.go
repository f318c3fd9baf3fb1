package knowledge

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/state"
)

func TestGrade(t *testing.T) {
	single := model.QuizItem{Type: model.QuizSingleChoice, Options: []string{"A", "B", "C"}, CorrectOption: 1}
	multi := model.QuizItem{Type: model.QuizMultipleChoice, Options: []string{"A", "B", "C"}, CorrectOptions: []int{0, 2}}
	tf := model.QuizItem{Type: model.QuizTrueFalse, CorrectAnswer: false}
	short := model.QuizItem{Type: model.QuizShortAnswer, ExpectedAnswer: " Quorum "}
	noExpected := model.QuizItem{Type: model.QuizShortAnswer}

	tests := []struct {
		name string
		item model.QuizItem
		st   model.QuizAnswerState
		want bool
	}{
		{"single correct", single, model.QuizAnswerState{SelectedOption: state.Ptr(1)}, true},
		{"single wrong", single, model.QuizAnswerState{SelectedOption: state.Ptr(0)}, false},
		{"single unanswered", single, model.QuizAnswerState{}, false},
		{"multi exact", multi, model.QuizAnswerState{SelectedOptions: []int{2, 0}}, true},
		{"multi subset", multi, model.QuizAnswerState{SelectedOptions: []int{0}}, false},
		{"multi superset", multi, model.QuizAnswerState{SelectedOptions: []int{0, 1, 2}}, false},
		{"multi empty", multi, model.QuizAnswerState{SelectedOptions: []int{}}, false},
		{"true/false correct", tf, model.QuizAnswerState{SelectedBool: state.Ptr(false)}, true},
		{"true/false wrong", tf, model.QuizAnswerState{SelectedBool: state.Ptr(true)}, false},
		{"true/false unanswered", tf, model.QuizAnswerState{}, false},
		{"short case and space", short, model.QuizAnswerState{Draft: "  QUORUM"}, true},
		{"short wrong", short, model.QuizAnswerState{Draft: "majority"}, false},
		{"short no expected answer", noExpected, model.QuizAnswerState{Draft: ""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Grade(tt.item, tt.st); got != tt.want {
				t.Errorf("Grade() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuizItems(t *testing.T) {
	raw := json.RawMessage(`"{\"document_quiz\":{\"single_choice_questions\":[{\"question\":\"Q1\",\"options\":[\"a\",\"b\"],\"correct_option\":\"1\"}],\"multiple_choice_questions\":[{\"question\":\"\",\"options\":[\"x\",\"y\"],\"correct_options\":[0,\"1\"]}],\"true_false_questions\":[{\"question\":\"T?\"}],\"short_answer_questions\":[{\"question\":\"S?\",\"expected_answer\":\"raft\"}]}}"`)
	got := QuizItems(raw)
	want := []model.QuizItem{
		{ID: "single_choice-1", Type: model.QuizSingleChoice, Question: "Q1", Options: []string{"a", "b"}, CorrectOption: 1},
		{ID: "multiple_choice-1", Type: model.QuizMultipleChoice, Question: "Multiple choice question 1", Options: []string{"x", "y"}, CorrectOptions: []int{0, 1}},
		{ID: "true_false-1", Type: model.QuizTrueFalse, Question: "T?", CorrectAnswer: true},
		{ID: "short_answer-1", Type: model.QuizShortAnswer, Question: "S?", ExpectedAnswer: "raft"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("QuizItems (-want +got):\n%s", diff)
	}

	if items := QuizItems(json.RawMessage(`{not json`)); items != nil {
		t.Errorf("malformed payload = %v, want nil", items)
	}
	if items := QuizItems(nil); len(items) != 0 {
		t.Errorf("empty payload = %v, want none", items)
	}
}

func readyFixture(t *testing.T, b *fakeBackend, ks model.KnowledgeSessionState) *fixture {
	t.Helper()
	f := newFixture(t, b, cachedPatch(b, withStartedAssessment(ks)))
	f.init(t)
	return f
}

func TestScenarioSingleChoiceActivatesCoach(t *testing.T) {
	b := newFakeBackend()
	f := readyFixture(t, b, model.KnowledgeSessionState{})
	ctx := context.Background()

	if err := f.c.HandleAction(ctx, "answer-single", url.Values{"item": {"single_choice-1"}, "option": {"1"}}); err != nil {
		t.Fatal(err)
	}
	f.c.Wait()
	st := f.sessionState().QuizState["single_choice-1"]
	if st.Status != model.StatusCorrect {
		t.Errorf("status = %q, want correct", st.Status)
	}
	if !st.Coach.Active || len(st.Coach.Messages) != 1 || st.Coach.Messages[0].Content != b.reply {
		t.Errorf("coach = %+v", st.Coach)
	}
	if got := b.coachCalls(); got != 1 {
		t.Errorf("coach calls = %d, want 1", got)
	}

	if err := f.c.HandleAction(ctx, "answer-single", url.Values{"item": {"single_choice-1"}, "option": {"0"}}); err != nil {
		t.Fatal(err)
	}
	f.c.Wait()
	st = f.sessionState().QuizState["single_choice-1"]
	if st.Status != model.StatusIncorrect {
		t.Errorf("status = %q, want incorrect", st.Status)
	}
	if !st.Coach.Active {
		t.Error("coach should stay active after an incorrect answer")
	}
	if got := b.coachCalls(); got != 2 {
		t.Errorf("coach calls = %d, want 2", got)
	}
	b.mu.Lock()
	last := b.topics[len(b.topics)-1]
	b.mu.Unlock()
	if want := coachIntro("Pick B", false); last != want {
		t.Errorf("intro = %q, want %q", last, want)
	}
}

func TestQuizActionsRejectWrongType(t *testing.T) {
	f := readyFixture(t, newFakeBackend(), model.KnowledgeSessionState{})
	err := f.c.HandleAction(context.Background(), "submit-multiple", url.Values{"item": {"single_choice-1"}})
	if err == nil {
		t.Error("expected error for mismatched item type")
	}
	err = f.c.HandleAction(context.Background(), "answer-single", url.Values{"item": {"nope"}, "option": {"0"}})
	if err == nil {
		t.Error("expected error for unknown item")
	}
}

const mixedQuiz = `{
	"multiple_choice_questions":[{"question":"Pick A and C","options":["A","B","C"],"correct_options":[0,2]}],
	"short_answer_questions":[{"question":"Name the algorithm","expected_answer":"Raft"}]
}`

func TestMultipleChoiceTogglesWithoutGrading(t *testing.T) {
	b := newFakeBackend()
	b.quizzes = json.RawMessage(mixedQuiz)
	f := readyFixture(t, b, model.KnowledgeSessionState{})
	ctx := context.Background()
	id := "multiple_choice-1"

	for _, opt := range []string{"0", "1", "2"} {
		if err := f.c.HandleAction(ctx, "toggle-multiple", url.Values{"item": {id}, "option": {opt}, "checked": {"true"}}); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.c.HandleAction(ctx, "toggle-multiple", url.Values{"item": {id}, "option": {"1"}, "checked": {"false"}}); err != nil {
		t.Fatal(err)
	}
	st := f.sessionState().QuizState[id]
	if st.Status != model.StatusUnanswered {
		t.Errorf("status = %q, want unanswered before submit", st.Status)
	}
	if diff := cmp.Diff([]int{0, 2}, st.SelectedOptions); diff != "" {
		t.Errorf("selection (-want +got):\n%s", diff)
	}
	if got := b.coachCalls(); got != 0 {
		t.Errorf("toggling called the coach %d times", got)
	}

	if err := f.c.HandleAction(ctx, "submit-multiple", url.Values{"item": {id}}); err != nil {
		t.Fatal(err)
	}
	f.c.Wait()
	if got := f.sessionState().QuizState[id].Status; got != model.StatusCorrect {
		t.Errorf("status = %q, want correct", got)
	}
}

func TestShortAnswer(t *testing.T) {
	b := newFakeBackend()
	b.quizzes = json.RawMessage(mixedQuiz)
	f := readyFixture(t, b, model.KnowledgeSessionState{})
	f.render(t)
	ctx := context.Background()
	id := "short_answer-1"

	if err := f.c.HandleAction(ctx, "submit-short", url.Values{"item": {id}}); err != nil {
		t.Fatal(err)
	}
	if alerts := f.mount.TakeAlerts(); len(alerts) != 1 || alerts[0] != en(alertEmptyAnswer) {
		t.Errorf("alerts = %v, want empty-answer alert", alerts)
	}
	if got := f.sessionState().QuizState[id].Status; got == model.StatusCorrect || got == model.StatusIncorrect {
		t.Errorf("empty submission graded: %q", got)
	}

	puts := f.storage.Puts()
	if err := f.c.HandleAction(ctx, "draft-short", url.Values{"item": {id}, "answer": {"  raft "}}); err != nil {
		t.Fatal(err)
	}
	if f.storage.Puts() == puts {
		t.Error("draft not persisted")
	}
	if got := f.sessionState().QuizState[id].Status; got != model.StatusUnanswered {
		t.Errorf("draft changed status to %q", got)
	}
	if err := f.c.HandleAction(ctx, "submit-short", url.Values{"item": {id}}); err != nil {
		t.Fatal(err)
	}
	f.c.Wait()
	if got := f.sessionState().QuizState[id].Status; got != model.StatusCorrect {
		t.Errorf("status = %q, want correct", got)
	}
}

func TestResetQuizIsIdempotent(t *testing.T) {
	b := newFakeBackend()
	f := readyFixture(t, b, model.KnowledgeSessionState{})
	ctx := context.Background()
	if err := f.c.HandleAction(ctx, "answer-single", url.Values{"item": {"single_choice-1"}, "option": {"2"}}); err != nil {
		t.Fatal(err)
	}
	f.c.Wait()
	cacheBefore := f.store.GetState().DocumentCaches

	// Without confirmation nothing happens.
	if err := f.c.HandleAction(ctx, "reset-quiz", url.Values{}); err != nil {
		t.Fatal(err)
	}
	if got := f.sessionState().QuizState["single_choice-1"].Status; got != model.StatusIncorrect {
		t.Fatalf("unconfirmed reset changed status to %q", got)
	}

	if err := f.c.HandleAction(confirmed(), "reset-quiz", url.Values{}); err != nil {
		t.Fatal(err)
	}
	once := f.sessionState().QuizState
	if err := f.c.HandleAction(confirmed(), "reset-quiz", url.Values{}); err != nil {
		t.Fatal(err)
	}
	twice := f.sessionState().QuizState

	want := map[string]model.QuizAnswerState{
		"single_choice-1": {Type: model.QuizSingleChoice, Status: model.StatusUnanswered},
	}
	if diff := cmp.Diff(want, once); diff != "" {
		t.Errorf("after one reset (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second reset differs (-once +twice):\n%s", diff)
	}
	if diff := cmp.Diff(cacheBefore, f.store.GetState().DocumentCaches); diff != "" {
		t.Errorf("reset touched cached content (-before +after):\n%s", diff)
	}
}
