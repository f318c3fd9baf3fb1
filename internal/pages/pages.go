// Package pages holds the route controllers around the learning document:
// onboarding, skill gaps, learning path, goal management, learner profile and
// the dashboard. They read the snapshot, call the backend synchronously and
// write results back as patches.
package pages

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/mentor/internal/gateway"
	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/page"
	"github.com/pavelanni/mentor/internal/state"
)

// Route names.
const (
	RouteOnboarding     = "onboarding"
	RouteSkillGap       = "skill-gap"
	RouteLearningPath   = "learning-path"
	RouteResumeLearning = "resume-learning"
	RouteMyProfile      = "my-profile"
	RouteGoals          = "goal-management"
	RouteDashboard      = "dashboard"
)

// Session counts accepted by the scheduler.
const (
	MinSessions = 1
	MaxSessions = 10
)

// Deps are the collaborators shared by every page.
type Deps struct {
	Store   *state.Manager
	Backend gateway.Backend
	Nav     page.Navigator
	Now     func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// base tracks the mount a page was last rendered into.
type base struct {
	Deps

	mountMu sync.Mutex
	mount   *page.Mount
	gen     uint64
}

func (b *base) attach(m *page.Mount) {
	b.mountMu.Lock()
	b.mount = m
	b.gen = m.Generation()
	b.mountMu.Unlock()
}

// show swaps c into the region unless another page was mounted since.
func (b *base) show(ctx context.Context, c templ.Component) error {
	b.mountMu.Lock()
	m, gen := b.mount, b.gen
	b.mountMu.Unlock()
	if m == nil {
		return nil
	}
	return m.Show(ctx, gen, c)
}

func (b *base) alert(msg string) {
	b.mountMu.Lock()
	m, gen := b.mount, b.gen
	b.mountMu.Unlock()
	if m != nil && m.Alive(gen) {
		m.Alert(msg)
	}
}

// SessionCountFor returns the number of sessions to schedule for a fresh
// goal with gaps skill gaps.
func SessionCountFor(gaps int) int {
	if gaps == 0 {
		gaps = 6
	}
	return min(max(gaps, 4), MaxSessions)
}

// ClampSessions clamps a requested session count into the scheduler's range.
func ClampSessions(n int) int {
	return min(max(n, MinSessions), MaxSessions)
}

// updateGoal applies fn to the goal with id using a read-merge-write of the
// goal list. It reports whether the goal exists.
func updateGoal(store *state.Manager, id string, fn func(*model.Goal)) bool {
	found := false
	store.Update(func(s model.Snapshot) state.Patch {
		i := s.GoalIndex(id)
		if i < 0 {
			return state.Patch{}
		}
		found = true
		goals := append([]model.Goal(nil), s.Goals...)
		g := goals[i]
		g.LearningPath = append([]model.Session(nil), g.LearningPath...)
		fn(&g)
		goals[i] = g
		return state.Patch{Goals: &goals}
	})
	return found
}

// selectedGoal returns the selected goal, falling back to the first one.
func selectedGoal(s model.Snapshot) (model.Goal, bool) {
	if g, ok := s.SelectedGoal(); ok {
		return g, true
	}
	if len(s.Goals) > 0 {
		return s.Goals[0], true
	}
	return model.Goal{}, false
}

// learnerInfo returns what onboarding recorded, filling the occupation from
// the legacy scalar when the structured copy is empty.
func learnerInfo(s model.Snapshot) model.LearnerInfo {
	info := s.LearnerInformation
	if info.Occupation == "" {
		info.Occupation = s.LearnerOccupation
	}
	if info.Text == "" {
		info.Text = s.LearnerInformationText
	}
	return info
}

// validationIDs maps failed fields to message IDs.
func validationIDs(err error, ids map[string]string) []string {
	var out []string
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if id, ok := ids[fe.Field()]; ok {
				out = append(out, id)
			}
		}
	}
	if len(out) == 0 {
		out = append(out, "ValidationFailed")
	}
	return out
}
