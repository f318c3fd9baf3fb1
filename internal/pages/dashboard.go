package pages

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/pavelanni/mentor/internal/handler/views"
	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/page"
	"github.com/pavelanni/mentor/internal/state"
)

// Dashboard summarizes progress across every goal.
type Dashboard struct {
	base

	mu sync.Mutex
	v  views.Dashboard
}

// NewDashboard creates the dashboard page.
func NewDashboard(d Deps) *Dashboard {
	return &Dashboard{base: base{Deps: d}}
}

// Initialize aggregates the snapshot.
func (p *Dashboard) Initialize(context.Context) error {
	v := Summarize(model.BuildExport(p.Store.GetState(), p.now()))
	p.mu.Lock()
	p.v = v
	p.mu.Unlock()
	return nil
}

// Summarize turns an export into dashboard totals.
func Summarize(e model.ProgressExport) views.Dashboard {
	var v views.Dashboard
	for _, g := range e.Goals {
		title := g.RefinedGoal
		if title == "" {
			title = g.LearningGoal
		}
		dg := views.DashboardGoal{ID: g.ID, Title: title, Completed: g.SessionsCompleted, Total: g.SessionsTotal}
		if g.SessionsTotal > 0 {
			dg.Percent = g.SessionsCompleted * 100 / g.SessionsTotal
		}
		for _, s := range g.Sessions {
			dg.Sessions = append(dg.Sessions, views.DashboardSession{
				Title:         s.Title,
				Learned:       s.Learned,
				HasDocument:   s.HasDocument,
				QuizCorrect:   s.QuizCorrect,
				QuizAnswered:  s.QuizAnswered,
				AssessmentQs:  s.AssessmentQs,
				TutorMessages: s.TutorMessages,
			})
			if s.HasDocument {
				v.Documents++
			}
			v.QuizAnswered += s.QuizAnswered
			v.QuizCorrect += s.QuizCorrect
		}
		v.TotalSessions += g.SessionsTotal
		v.LearnedSessions += g.SessionsCompleted
		v.Goals = append(v.Goals, dg)
	}
	if v.QuizAnswered > 0 {
		v.Accuracy = v.QuizCorrect * 100 / v.QuizAnswered
	}
	return v
}

// Render draws the dashboard.
func (p *Dashboard) Render(ctx context.Context, m *page.Mount) error {
	p.attach(m)
	p.mu.Lock()
	v := p.v
	p.mu.Unlock()
	return p.show(ctx, views.DashboardPage(v))
}

// HandleAction opens a goal's learning path.
func (p *Dashboard) HandleAction(_ context.Context, action string, form url.Values) error {
	if action != "open-goal" {
		return fmt.Errorf("unknown action %q", action)
	}
	id := form.Get("goal")
	if p.Store.GetState().GoalIndex(id) < 0 {
		return fmt.Errorf("unknown goal %q", id)
	}
	p.Store.SetState(state.Patch{SelectedGoalID: state.Ptr(id), SelectedSessionIndex: state.Ptr(0)})
	p.Nav.NavigateTo(RouteLearningPath)
	return nil
}
