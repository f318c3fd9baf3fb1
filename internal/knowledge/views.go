package knowledge

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/a-h/templ"

	"github.com/pavelanni/mentor/internal/gateway"
	"github.com/pavelanni/mentor/internal/handler/views"
	appI18n "github.com/pavelanni/mentor/internal/i18n"
	"github.com/pavelanni/mentor/internal/model"
)

const (
	maxPointHighlights = 6
	maxDraftHighlights = 3
)

// view snapshots the controller for rendering.
func (c *Controller) view(ctx context.Context) views.Knowledge {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := views.Knowledge{Phase: string(c.phaseLocked())}
	if v.Phase == string(PhaseError) {
		v.Error = errorText(ctx, c.err)
		return v
	}
	if c.goal != nil {
		v.GoalTitle = c.goal.DisplayGoal()
		v.SessionCount = len(c.goal.LearningPath)
	}
	if c.session != nil {
		v.SessionTitle = c.session.Title
		v.SessionNo = c.sessionIndex + 1
	}
	if v.Phase == string(PhaseGenerating) {
		v.Stages = stages(ctx, c.stage)
		return v
	}
	if v.Phase != string(PhaseReady) {
		return v
	}

	v.GeneratedAt = c.content.GeneratedAt.Local().Format("2006-01-02 15:04")
	for i, s := range c.sections {
		v.Sections = append(v.Sections, views.Section{Index: i, Title: s.Title, Anchor: s.Anchor, Content: s.Content})
	}
	if i := c.ks.CurrentSectionIndex; i >= 0 && i < len(v.Sections) {
		v.Current = v.Sections[i]
		v.HasPrev = i > 0
		v.HasNext = i < len(v.Sections)-1
	}
	v.Points = highlights(c.content.KnowledgePoints, maxPointHighlights)
	v.Drafts = highlights(c.content.KnowledgeDrafts, maxDraftHighlights)

	v.ShowQuizzes = c.ks.ShowQuizzes
	v.QuizPending = len(c.quizItems) == 0
	for i, it := range c.quizItems {
		v.Quizzes = append(v.Quizzes, quizView(i+1, it, c.ks.QuizState[it.ID]))
	}

	for _, t := range c.ks.ToastMessages {
		v.Toasts = append(v.Toasts, t.Message)
	}
	v.SidebarTab = c.ks.SidebarTab
	v.Tutor = views.Messages(c.ks.TutorMessages)

	a := c.ks.AssessmentState
	v.Assessment = views.Assessment{
		Topics:         AssessmentTopics(c.goal),
		Topic:          a.Topic,
		Messages:       views.Messages(a.Messages),
		QuestionCount:  a.QuestionCount,
		IncorrectCount: a.IncorrectCount,
		IsLoading:      a.IsLoading,
		Performance:    performanceText(ctx, a),
		Warning:        a.IncorrectCount >= 2,
	}

	f := c.ks.FeedbackDraft
	v.Feedback = views.Feedback{
		Clarity:    f.Clarity,
		Relevance:  f.Relevance,
		Depth:      f.Depth,
		Engagement: f.Engagement,
		Comments:   f.Comments,
	}
	for _, e := range EngagementLevels {
		v.Feedback.Engagements = append(v.Feedback.Engagements, views.Choice{Value: e.Value, Label: e.Face})
	}
	return v
}

func performanceText(ctx context.Context, a model.AssessmentState) string {
	id := Performance(a)
	if id == "" {
		return ""
	}
	return appI18n.T(ctx, id)
}

func render(v views.Knowledge) templ.Component {
	return views.KnowledgePage(v)
}

func stages(ctx context.Context, current int) []views.Stage {
	out := make([]views.Stage, 0, StageCount)
	for i := 1; i <= StageCount; i++ {
		status := "pending"
		switch {
		case i < current:
			status = "completed"
		case i == current:
			status = "active"
		}
		out = append(out, views.Stage{Label: appI18n.T(ctx, stageLabels[i]), Status: status})
	}
	return out
}

func highlights(items []json.RawMessage, n int) []views.Highlight {
	out := make([]views.Highlight, 0, min(len(items), n))
	for i, raw := range items {
		if i == n {
			break
		}
		title, summary := gateway.PointLabel(raw)
		if title == "" {
			title = "#" + strconv.Itoa(i+1)
		}
		out = append(out, views.Highlight{Title: title, Summary: summary})
	}
	return out
}

func quizView(n int, it model.QuizItem, st model.QuizAnswerState) views.Quiz {
	q := views.Quiz{
		ID:          it.ID,
		Type:        string(it.Type),
		Number:      n,
		Question:    it.Question,
		Explanation: it.Explanation,
		Status:      string(st.Status),
		Draft:       st.Draft,
		Coach: views.Coach{
			Messages:     views.Messages(st.Coach.Messages),
			Active:       st.Coach.Active,
			Completed:    st.Coach.Completed,
			Exchanges:    st.Coach.Exchanges,
			MaxExchanges: MaxCoachExchanges,
		},
	}
	if q.Status == "" {
		q.Status = string(model.StatusUnanswered)
	}
	q.Graded = st.Status == model.StatusCorrect || st.Status == model.StatusIncorrect
	q.Correct = st.Status == model.StatusCorrect
	if st.SelectedBool != nil {
		q.TrueChosen = *st.SelectedBool
		q.FalseChosen = !*st.SelectedBool
	}
	for i, text := range it.Options {
		selected := false
		switch it.Type {
		case model.QuizSingleChoice:
			selected = st.SelectedOption != nil && *st.SelectedOption == i
		case model.QuizMultipleChoice:
			for _, o := range st.SelectedOptions {
				if o == i {
					selected = true
				}
			}
		}
		q.Options = append(q.Options, views.Option{Index: i, Text: text, Selected: selected})
	}
	return q
}
