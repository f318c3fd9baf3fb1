package pages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/pavelanni/mentor/internal/handler/views"
	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/page"
	"github.com/pavelanni/mentor/internal/state"
)

const (
	alertRescheduleFailed = "Failed to re-schedule the learning path. Please try again."
	alertRescheduled      = "Learning path re-scheduled."
)

// LearningPath lists the sessions of the selected goal and starts them.
type LearningPath struct {
	base

	mu   sync.Mutex
	goal *model.Goal
	snap model.Snapshot
}

// NewLearningPath creates the learning-path page.
func NewLearningPath(d Deps) *LearningPath {
	return &LearningPath{base: base{Deps: d}}
}

// Initialize selects the first goal when the selection is stale.
func (p *LearningPath) Initialize(context.Context) error {
	snap := p.Store.GetState()
	g, ok := selectedGoal(snap)
	if ok && g.ID != snap.SelectedGoalID {
		p.Store.SetState(state.Patch{SelectedGoalID: state.Ptr(g.ID)})
		snap = p.Store.GetState()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = snap
	p.goal = nil
	if ok {
		p.goal = &g
	}
	return nil
}

// Render draws the sessions.
func (p *LearningPath) Render(ctx context.Context, m *page.Mount) error {
	p.attach(m)
	return p.refresh(ctx)
}

func (p *LearningPath) refresh(ctx context.Context) error {
	p.mu.Lock()
	v := views.LearningPath{MinSessions: MinSessions, MaxSessions: MaxSessions}
	for _, g := range p.snap.Goals {
		v.Goals = append(v.Goals, views.GoalOption{ID: g.ID, Title: g.DisplayGoal(), Selected: p.goal != nil && g.ID == p.goal.ID})
	}
	if g := p.goal; g != nil {
		v.GoalTitle = g.DisplayGoal()
		v.Completed, v.Total, v.Percent = g.Progress()
		v.SessionCount = v.Total
		if v.SessionCount == 0 {
			v.SessionCount = SessionCountFor(len(g.SkillGaps))
		}
		for i, s := range g.LearningPath {
			_, cached := p.snap.DocumentCaches[model.SessionUID(g.ID, s, i)]
			v.Sessions = append(v.Sessions, views.PathSession{
				Index:       i,
				Title:       s.Title,
				Abstract:    s.Abstract,
				Outcomes:    s.DesiredOutcomes,
				Skills:      s.AssociatedSkills,
				Learned:     s.IfLearned,
				HasDocument: cached,
				Current:     g.ID == p.snap.SelectedGoalID && i == p.snap.SelectedSessionIndex,
			})
		}
	}
	p.mu.Unlock()
	return p.show(ctx, views.LearningPathPage(v))
}

// HandleAction applies a learning-path action.
func (p *LearningPath) HandleAction(ctx context.Context, action string, form url.Values) error {
	switch action {
	case "select-goal":
		id := form.Get("goal")
		if p.Store.GetState().GoalIndex(id) < 0 {
			return fmt.Errorf("unknown goal %q", id)
		}
		p.Store.SetState(state.Patch{SelectedGoalID: state.Ptr(id), SelectedSessionIndex: state.Ptr(0)})
	case "start-session":
		i, err := strconv.Atoi(form.Get("index"))
		if err != nil {
			return fmt.Errorf("invalid index %q: %w", form.Get("index"), err)
		}
		return p.startSession(i)
	case "toggle-complete":
		i, err := strconv.Atoi(form.Get("index"))
		if err != nil {
			return fmt.Errorf("invalid index %q: %w", form.Get("index"), err)
		}
		if err := p.toggleComplete(i, form.Get("checked") == "true"); err != nil {
			return err
		}
	case "reschedule":
		n, err := strconv.Atoi(form.Get("sessions"))
		if err != nil {
			return fmt.Errorf("invalid session count %q: %w", form.Get("sessions"), err)
		}
		p.reschedule(ctx, ClampSessions(n), strings.TrimSpace(form.Get("feedback")))
	case "go-skill-gap":
		p.Nav.NavigateTo(RouteSkillGap)
		return nil
	case "go-goals":
		p.Nav.NavigateTo(RouteGoals)
		return nil
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	if err := p.Initialize(ctx); err != nil {
		return err
	}
	return p.refresh(ctx)
}

func (p *LearningPath) current() (model.Goal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.goal == nil {
		return model.Goal{}, fmt.Errorf("no goal selected")
	}
	return *p.goal, nil
}

// startSession selects session i and opens the learning document.
func (p *LearningPath) startSession(i int) error {
	g, err := p.current()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(g.LearningPath) {
		return fmt.Errorf("session index %d out of range", i)
	}
	p.Store.SetState(state.Patch{
		SelectedGoalID:       state.Ptr(g.ID),
		SelectedSessionIndex: state.Ptr(i),
		LearningPath:         state.Ptr(g.LearningPath),
		LearnerProfile:       state.Ptr(g.LearnerProfile),
		SkillGaps:            state.Ptr(g.SkillGaps),
	})
	slog.Debug("session started", "goal_id", g.ID, "index", i)
	p.Nav.NavigateTo(RouteResumeLearning)
	return nil
}

func (p *LearningPath) toggleComplete(i int, learned bool) error {
	g, err := p.current()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(g.LearningPath) {
		return fmt.Errorf("session index %d out of range", i)
	}
	updateGoal(p.Store, g.ID, func(g *model.Goal) {
		if i < len(g.LearningPath) {
			g.LearningPath[i].IfLearned = learned
		}
	})
	return nil
}

// reschedule asks the backend for a fresh plan of n sessions. Progress of
// sessions keyed by the old path stays in the caches.
func (p *LearningPath) reschedule(ctx context.Context, n int, feedback string) {
	g, err := p.current()
	if err != nil {
		p.alert(alertRescheduleFailed)
		return
	}
	current := g.LearningPathRaw
	if len(current) == 0 {
		data, err := json.Marshal(g.LearningPath)
		if err != nil {
			slog.Error("failed to serialize learning path", "error", err)
			p.alert(alertRescheduleFailed)
			return
		}
		current = data
	}
	path, err := p.Backend.RescheduleLearningPath(ctx, g.LearnerProfile, current, n, feedback)
	if err != nil {
		slog.Error("failed to reschedule learning path", "goal_id", g.ID, "error", err)
		p.alert(alertRescheduleFailed)
		return
	}
	now := p.now()
	updateGoal(p.Store, g.ID, func(g *model.Goal) {
		g.LearningPath = path.Sessions
		g.LearningPathRaw = path.Raw
		g.UpdatedAt = now
	})
	p.Store.SetState(state.Patch{SelectedSessionIndex: state.Ptr(0)})
	p.alert(alertRescheduled)
}
