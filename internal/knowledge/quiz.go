package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	appI18n "github.com/pavelanni/mentor/internal/i18n"
	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/page"
)

const (
	confirmResetQuiz = "ConfirmResetQuiz"
	alertEmptyAnswer = "AlertEmptyAnswer"
)

// QuizItems flattens a raw quiz payload into items ordered single choice,
// multiple choice, true/false, short answer. IDs are the type and the 1-based
// position within the type, so answer state survives a regeneration that
// returns a similar quiz set.
func QuizItems(raw json.RawMessage) []model.QuizItem {
	p, err := model.ParseQuizPayload(raw)
	if err != nil {
		slog.Warn("discarding malformed quiz payload", "error", err)
		return nil
	}
	items := make([]model.QuizItem, 0, p.Len())
	id := func(t model.QuizType, i int) string { return fmt.Sprintf("%s-%d", t, i+1) }
	text := func(q string, fallback string, i int) string {
		if q = strings.TrimSpace(q); q != "" {
			return q
		}
		return fmt.Sprintf("%s %d", fallback, i+1)
	}

	for i, q := range p.SingleChoice {
		items = append(items, model.QuizItem{
			ID:            id(model.QuizSingleChoice, i),
			Type:          model.QuizSingleChoice,
			Question:      text(q.Question, "Single choice question", i),
			Explanation:   q.Explanation,
			Options:       nonNilStrings(q.Options),
			CorrectOption: int(q.CorrectOption),
		})
	}
	for i, q := range p.MultipleChoice {
		correct := make([]int, 0, len(q.CorrectOptions))
		for _, o := range q.CorrectOptions {
			correct = append(correct, int(o))
		}
		items = append(items, model.QuizItem{
			ID:             id(model.QuizMultipleChoice, i),
			Type:           model.QuizMultipleChoice,
			Question:       text(q.Question, "Multiple choice question", i),
			Explanation:    q.Explanation,
			Options:        nonNilStrings(q.Options),
			CorrectOptions: correct,
		})
	}
	for i, q := range p.TrueFalse {
		answer := true
		if q.CorrectAnswer != nil {
			answer = bool(*q.CorrectAnswer)
		}
		items = append(items, model.QuizItem{
			ID:            id(model.QuizTrueFalse, i),
			Type:          model.QuizTrueFalse,
			Question:      text(q.Question, "True/False question", i),
			Explanation:   q.Explanation,
			CorrectAnswer: answer,
		})
	}
	for i, q := range p.ShortAnswer {
		items = append(items, model.QuizItem{
			ID:             id(model.QuizShortAnswer, i),
			Type:           model.QuizShortAnswer,
			Question:       text(q.Question, "Short answer question", i),
			Explanation:    q.Explanation,
			ExpectedAnswer: q.ExpectedAnswer,
		})
	}
	return items
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Grade reports whether the answer recorded in st is correct for item.
func Grade(item model.QuizItem, st model.QuizAnswerState) bool {
	switch item.Type {
	case model.QuizSingleChoice:
		return st.SelectedOption != nil && *st.SelectedOption == item.CorrectOption
	case model.QuizMultipleChoice:
		return sameSet(st.SelectedOptions, item.CorrectOptions)
	case model.QuizTrueFalse:
		return st.SelectedBool != nil && *st.SelectedBool == item.CorrectAnswer
	case model.QuizShortAnswer:
		expected := strings.ToLower(strings.TrimSpace(item.ExpectedAnswer))
		return expected != "" && strings.ToLower(strings.TrimSpace(st.Draft)) == expected
	}
	return false
}

func sameSet(a, b []int) bool {
	x := slices.Compact(slices.Sorted(slices.Values(a)))
	y := slices.Compact(slices.Sorted(slices.Values(b)))
	return slices.Equal(x, y)
}

func (c *Controller) item(id string) (model.QuizItem, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.quizItems {
		if it.ID == id {
			return it, c.uid, true
		}
	}
	return model.QuizItem{}, c.uid, false
}

func (c *Controller) lookup(id string, want model.QuizType) (model.QuizItem, string, error) {
	it, uid, ok := c.item(id)
	if !ok {
		return model.QuizItem{}, "", fmt.Errorf("unknown quiz item %q", id)
	}
	if want != "" && it.Type != want {
		return model.QuizItem{}, "", fmt.Errorf("quiz item %q is %s, not %s", id, it.Type, want)
	}
	return it, uid, nil
}

// answerSingle grades a single choice selection and starts the coach.
func (c *Controller) answerSingle(ctx context.Context, id string, option int) error {
	it, uid, err := c.lookup(id, model.QuizSingleChoice)
	if err != nil {
		return err
	}
	c.grade(ctx, uid, it, func(st *model.QuizAnswerState) { st.SelectedOption = &option })
	return nil
}

// answerTrueFalse grades a true/false selection and starts the coach.
func (c *Controller) answerTrueFalse(ctx context.Context, id string, value bool) error {
	it, uid, err := c.lookup(id, model.QuizTrueFalse)
	if err != nil {
		return err
	}
	c.grade(ctx, uid, it, func(st *model.QuizAnswerState) { st.SelectedBool = &value })
	return nil
}

// toggleMultiple changes the pending selection of a multiple choice item
// without grading it.
func (c *Controller) toggleMultiple(ctx context.Context, id string, option int, checked bool) error {
	it, uid, err := c.lookup(id, model.QuizMultipleChoice)
	if err != nil {
		return err
	}
	c.modify(ctx, uid, func(ks *model.KnowledgeSessionState) bool {
		st := ks.QuizState[it.ID]
		selected := slices.Clone(st.SelectedOptions)
		i := slices.Index(selected, option)
		switch {
		case checked && i < 0:
			selected = append(selected, option)
		case !checked && i >= 0:
			selected = slices.Delete(selected, i, i+1)
		default:
			return false
		}
		if selected == nil {
			selected = []int{}
		}
		st.Type = it.Type
		st.SelectedOptions = selected
		st.Status = model.StatusUnanswered
		ks.QuizState[it.ID] = st
		return true
	})
	return nil
}

// submitMultiple grades the pending selection and starts the coach.
func (c *Controller) submitMultiple(ctx context.Context, id string) error {
	it, uid, err := c.lookup(id, model.QuizMultipleChoice)
	if err != nil {
		return err
	}
	c.grade(ctx, uid, it, func(*model.QuizAnswerState) {})
	return nil
}

// saveShortDraft records the typed answer without grading it.
func (c *Controller) saveShortDraft(ctx context.Context, id, text string) error {
	it, uid, err := c.lookup(id, model.QuizShortAnswer)
	if err != nil {
		return err
	}
	c.modify(ctx, uid, func(ks *model.KnowledgeSessionState) bool {
		st := ks.QuizState[it.ID]
		if st.Draft == text {
			return false
		}
		st.Type = it.Type
		st.Draft = text
		if st.Status == "" {
			st.Status = model.StatusUnanswered
		}
		ks.QuizState[it.ID] = st
		return true
	})
	return nil
}

// submitShort grades the draft. An empty draft is rejected with an alert.
func (c *Controller) submitShort(ctx context.Context, id string) error {
	it, uid, err := c.lookup(id, model.QuizShortAnswer)
	if err != nil {
		return err
	}
	c.mu.Lock()
	draft := c.ks.QuizState[it.ID].Draft
	c.mu.Unlock()
	if strings.TrimSpace(draft) == "" {
		c.alert(ctx, uid, alertEmptyAnswer)
		return nil
	}
	c.grade(ctx, uid, it, func(*model.QuizAnswerState) {})
	return nil
}

// grade applies set to the item's answer, grades it, activates the coach and
// asks the coach for its opening turn.
func (c *Controller) grade(ctx context.Context, uid string, it model.QuizItem, set func(*model.QuizAnswerState)) {
	var correct bool
	ok := c.modify(ctx, uid, func(ks *model.KnowledgeSessionState) bool {
		st, ok := ks.QuizState[it.ID]
		if !ok {
			st = model.NewQuizAnswerState(it.Type)
		}
		st.Type = it.Type
		set(&st)
		correct = Grade(it, st)
		st.Status = model.StatusIncorrect
		if correct {
			st.Status = model.StatusCorrect
		}
		st.Coach = activateCoach(st.Coach)
		ks.QuizState[it.ID] = st
		return true
	})
	if !ok {
		return
	}
	status := model.StatusIncorrect
	if correct {
		status = model.StatusCorrect
	}
	quizGrades.WithLabelValues(string(it.Type), string(status)).Inc()
	c.startCoach(ctx, uid, it, correct)
}

// resetQuiz clears every answer and coach of the mounted session after
// confirmation. Cached content is untouched.
func (c *Controller) resetQuiz(ctx context.Context) {
	if !page.Confirm(ctx, appI18n.T(ctx, confirmResetQuiz)) {
		return
	}
	c.mu.Lock()
	uid := c.uid
	items := c.quizItems
	c.mu.Unlock()
	c.modify(ctx, uid, func(ks *model.KnowledgeSessionState) bool {
		ks.QuizState = withQuizDefaults(items, nil)
		return true
	})
}
