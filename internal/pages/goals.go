package pages

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/pavelanni/mentor/internal/handler/views"
	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/page"
	"github.com/pavelanni/mentor/internal/state"
)

const confirmDeleteGoal = "Are you sure you want to delete this goal?"

type goalForm struct {
	Goal string `validate:"required,min=5,max=500"`
}

var goalErrors = map[string]string{"Goal": "ValidationGoal"}

// Goals lists, edits, selects and deletes goals, and starts new ones.
type Goals struct {
	base

	mu      sync.Mutex
	goals   []model.Goal
	current string
	editing string
	errors  []string
}

// NewGoals creates the goal management page.
func NewGoals(d Deps) *Goals {
	return &Goals{base: base{Deps: d}}
}

// Initialize reads the goal list.
func (p *Goals) Initialize(context.Context) error {
	snap := p.Store.GetState()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.goals = snap.Goals
	p.current = snap.SelectedGoalID
	if snap.GoalIndex(p.editing) < 0 {
		p.editing = ""
	}
	return nil
}

// Render draws the goals.
func (p *Goals) Render(ctx context.Context, m *page.Mount) error {
	p.attach(m)
	return p.refresh(ctx)
}

func (p *Goals) refresh(ctx context.Context) error {
	p.mu.Lock()
	v := views.Goals{Errors: p.errors}
	for _, g := range p.goals {
		done, total, pct := g.Progress()
		v.Goals = append(v.Goals, views.GoalCard{
			ID:          g.ID,
			Title:       g.LearningGoal,
			RefinedGoal: g.RefinedGoal,
			CreatedAt:   g.CreatedAt.Local().Format("2006-01-02"),
			Completed:   done,
			Total:       total,
			Percent:     pct,
			Selected:    g.ID == p.current,
			Editing:     g.ID == p.editing,
		})
	}
	p.mu.Unlock()
	return p.show(ctx, views.GoalsPage(v))
}

// HandleAction applies a goal management action.
func (p *Goals) HandleAction(ctx context.Context, action string, form url.Values) error {
	id := form.Get("goal")
	p.mu.Lock()
	p.errors = nil
	p.mu.Unlock()

	switch action {
	case "select":
		if p.Store.GetState().GoalIndex(id) < 0 {
			return fmt.Errorf("unknown goal %q", id)
		}
		p.Store.SetState(state.Patch{SelectedGoalID: state.Ptr(id), SelectedSessionIndex: state.Ptr(0)})
		p.Nav.NavigateTo(RouteLearningPath)
		return nil
	case "edit":
		p.mu.Lock()
		p.editing = id
		p.mu.Unlock()
	case "cancel-edit":
		p.mu.Lock()
		p.editing = ""
		p.mu.Unlock()
	case "save":
		p.save(id, form.Get("text"))
	case "delete":
		p.delete(ctx, id)
	case "add":
		text := strings.TrimSpace(form.Get("text"))
		if err := validate.Struct(goalForm{Goal: text}); err != nil {
			p.mu.Lock()
			p.errors = validationIDs(err, goalErrors)
			p.mu.Unlock()
			break
		}
		p.Store.SetState(state.Patch{ToAddGoal: state.Ptr(text), SkillGaps: state.Ptr([]model.SkillGap{})})
		p.Nav.NavigateTo(RouteSkillGap)
		return nil
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	if err := p.Initialize(ctx); err != nil {
		return err
	}
	return p.refresh(ctx)
}

func (p *Goals) save(id, text string) {
	text = strings.TrimSpace(text)
	if err := validate.Struct(goalForm{Goal: text}); err != nil {
		p.mu.Lock()
		p.errors = validationIDs(err, goalErrors)
		p.mu.Unlock()
		return
	}
	now := p.now()
	updateGoal(p.Store, id, func(g *model.Goal) {
		if g.RefinedGoal == g.LearningGoal {
			g.RefinedGoal = text
		}
		g.LearningGoal = text
		g.UpdatedAt = now
	})
	p.mu.Lock()
	p.editing = ""
	p.mu.Unlock()
}

// delete removes a goal and every per-session entry keyed by it.
func (p *Goals) delete(ctx context.Context, id string) {
	if !page.Confirm(ctx, confirmDeleteGoal) {
		return
	}
	prefix := id + "::"
	p.Store.Update(func(s model.Snapshot) state.Patch {
		i := s.GoalIndex(id)
		if i < 0 {
			return state.Patch{}
		}
		goals := append(append([]model.Goal(nil), s.Goals[:i]...), s.Goals[i+1:]...)
		patch := state.Patch{
			Goals:                 &goals,
			DocumentCaches:        state.Ptr(withoutPrefix(s.DocumentCaches, prefix)),
			SessionLearningTimes:  state.Ptr(withoutPrefix(s.SessionLearningTimes, prefix)),
			KnowledgeSessionState: state.Ptr(withoutPrefix(s.KnowledgeSessionState, prefix)),
		}
		if s.SelectedGoalID == id {
			next := ""
			if len(goals) > 0 {
				next = goals[0].ID
			}
			patch.SelectedGoalID = state.Ptr(next)
			patch.SelectedSessionIndex = state.Ptr(0)
		}
		return patch
	})
	slog.Info("goal deleted", "goal_id", id)
}

func withoutPrefix[V any](m map[string]V, prefix string) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		if !strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}
