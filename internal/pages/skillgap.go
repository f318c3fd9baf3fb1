package pages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/pavelanni/mentor/internal/handler/views"
	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/page"
	"github.com/pavelanni/mentor/internal/state"
)

const (
	alertNoPendingGoal    = "Complete onboarding to add a learning goal first."
	alertIdentifyFailed   = "Failed to identify skill gaps. Please try again."
	alertScheduleFailed   = "Failed to save and continue. Please try again."
	alertIdentifyFirst    = "Identify your skill gaps before scheduling a learning path."
	alertLearningPathSent = "Learning path created."
)

// SkillGap analyses the pending goal and turns it into a scheduled goal.
type SkillGap struct {
	base

	mu   sync.Mutex
	goal string
	gaps []model.SkillGap
	raw  json.RawMessage
}

// NewSkillGap creates the skill-gap page.
func NewSkillGap(d Deps) *SkillGap {
	return &SkillGap{base: base{Deps: d}}
}

// Initialize reads the goal waiting to be added and any gaps found for it.
func (p *SkillGap) Initialize(context.Context) error {
	snap := p.Store.GetState()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.goal != snap.ToAddGoal {
		p.raw = nil
	}
	p.goal = snap.ToAddGoal
	p.gaps = nil
	if p.goal != "" {
		p.gaps = snap.SkillGaps
	}
	return nil
}

// Render draws the analysis.
func (p *SkillGap) Render(ctx context.Context, m *page.Mount) error {
	p.attach(m)
	return p.refresh(ctx)
}

func (p *SkillGap) refresh(ctx context.Context) error {
	p.mu.Lock()
	v := views.SkillGaps{
		Goal:         p.goal,
		Gaps:         skillGapViews(p.gaps),
		Identified:   len(p.gaps) > 0,
		SessionCount: SessionCountFor(len(p.gaps)),
	}
	p.mu.Unlock()
	return p.show(ctx, views.SkillGapPage(v))
}

func skillGapViews(gaps []model.SkillGap) []views.SkillGap {
	out := make([]views.SkillGap, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, views.SkillGap{
			Name:            g.Name,
			Required:        g.RequiredLevel,
			Current:         g.CurrentLevel,
			Analysis:        g.Analysis,
			Recommendations: g.Recommendations,
			IsGap:           g.IsGap,
		})
	}
	return out
}

// HandleAction runs the analysis or schedules the learning path.
func (p *SkillGap) HandleAction(ctx context.Context, action string, _ url.Values) error {
	switch action {
	case "identify":
		p.identify(ctx)
	case "schedule":
		p.schedule(ctx)
	case "go-onboarding":
		p.Nav.NavigateTo(RouteOnboarding)
		return nil
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return p.refresh(ctx)
}

func (p *SkillGap) identify(ctx context.Context) {
	p.mu.Lock()
	goal := p.goal
	p.mu.Unlock()
	if goal == "" {
		p.alert(alertNoPendingGoal)
		return
	}

	gaps, raw, err := p.Backend.IdentifySkillGaps(ctx, goal, learnerInfo(p.Store.GetState()))
	if err != nil {
		slog.Error("failed to identify skill gaps", "error", err)
		p.alert(alertIdentifyFailed)
		return
	}
	slog.Info("skill gaps identified", "skills", len(gaps))

	p.mu.Lock()
	p.gaps = gaps
	p.raw = raw
	p.mu.Unlock()
	p.Store.SetState(state.Patch{SkillGaps: state.Ptr(gaps)})
}

// schedule creates the learner profile, schedules the path and records the
// new goal as selected.
func (p *SkillGap) schedule(ctx context.Context) {
	p.mu.Lock()
	goal, gaps, raw := p.goal, p.gaps, p.raw
	p.mu.Unlock()
	if goal == "" {
		p.alert(alertNoPendingGoal)
		return
	}
	if len(gaps) == 0 {
		p.alert(alertIdentifyFirst)
		return
	}
	if raw == nil {
		data, err := json.Marshal(gaps)
		if err != nil {
			slog.Error("failed to serialize skill gaps", "error", err)
			p.alert(alertScheduleFailed)
			return
		}
		raw = data
	}

	snap := p.Store.GetState()
	info := learnerInfo(snap)
	profile, err := p.Backend.CreateLearnerProfile(ctx, info, goal, raw)
	if err != nil {
		slog.Error("failed to create learner profile", "error", err)
		p.alert(alertScheduleFailed)
		return
	}
	path, err := p.Backend.ScheduleLearningPath(ctx, profile, SessionCountFor(len(gaps)))
	if err != nil {
		slog.Error("failed to schedule learning path", "error", err)
		p.alert(alertScheduleFailed)
		return
	}

	now := p.now()
	g := model.Goal{
		ID:              uuid.NewString(),
		LearningGoal:    goal,
		RefinedGoal:     goal,
		SkillGaps:       gaps,
		LearnerProfile:  profile,
		LearningPath:    path.Sessions,
		LearningPathRaw: path.Raw,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if d := p.Store.LoadOnboarding(); d.RefinedGoal == goal && d.LearningGoal != "" {
		g.LearningGoal = d.LearningGoal
	}
	p.Store.Update(func(s model.Snapshot) state.Patch {
		goals := append(append([]model.Goal(nil), s.Goals...), g)
		return state.Patch{
			Goals:                &goals,
			SelectedGoalID:       state.Ptr(g.ID),
			SelectedSessionIndex: state.Ptr(0),
			ToAddGoal:            state.Ptr(""),
			LearnerProfile:       state.Ptr(profile),
			LearningPath:         state.Ptr(path.Sessions),
			SkillGaps:            state.Ptr(gaps),
		}
	})
	slog.Info("goal created", "goal_id", g.ID, "sessions", len(path.Sessions))

	p.mu.Lock()
	p.goal = ""
	p.gaps = nil
	p.raw = nil
	p.mu.Unlock()
	p.alert(alertLearningPathSent)
	p.Nav.NavigateTo(RouteLearningPath)
}
