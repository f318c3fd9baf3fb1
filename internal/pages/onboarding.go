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

const (
	otherOccupation    = "Other"
	alertGoalMissing   = "Please enter a learning goal before refining."
	alertRefined       = "Learning goal refined successfully."
	alertRefineFailed  = "Failed to refine learning goal. Try again later."
	alertOnboardingSet = "Onboarding complete. Skill gap analysis will start using your provided data."
)

// Occupations offered by the onboarding form.
var Occupations = []string{
	"Student",
	"Software Engineer",
	"Data Scientist",
	"Designer",
	"Product Manager",
	"Researcher",
	"Teacher",
	otherOccupation,
}

type onboardingForm struct {
	LearningGoal    string `validate:"required,min=5"`
	Occupation      string `validate:"required"`
	OtherOccupation string `validate:"required_if=Occupation Other"`
}

var onboardingErrors = map[string]string{
	"LearningGoal":    "ValidationGoal",
	"Occupation":      "ValidationOccupation",
	"OtherOccupation": "ValidationOtherOccupation",
}

// Onboarding collects the learning goal and learner information. The form is
// saved as a draft on every change, apart from the snapshot.
type Onboarding struct {
	base

	mu     sync.Mutex
	draft  model.OnboardingDraft
	errors []string
}

// NewOnboarding creates the onboarding page.
func NewOnboarding(d Deps) *Onboarding {
	return &Onboarding{base: base{Deps: d}}
}

// Initialize loads the saved draft.
func (p *Onboarding) Initialize(context.Context) error {
	d := p.Store.LoadOnboarding()
	if d.Occupation == "" {
		d.Occupation = p.Store.GetState().LearnerOccupation
	}
	p.mu.Lock()
	p.draft = d
	p.errors = nil
	p.mu.Unlock()
	return nil
}

// Render draws the form.
func (p *Onboarding) Render(ctx context.Context, m *page.Mount) error {
	p.attach(m)
	return p.refresh(ctx)
}

func (p *Onboarding) refresh(ctx context.Context) error {
	p.mu.Lock()
	d := p.draft
	v := views.Onboarding{
		LearningGoal:       d.LearningGoal,
		RefinedGoal:        d.RefinedGoal,
		Occupation:         d.Occupation,
		OtherOccupation:    d.OtherOccupation,
		LearningPreference: d.LearningPreference,
		Occupations:        Occupations,
		Errors:             p.errors,
	}
	p.mu.Unlock()
	return p.show(ctx, views.OnboardingPage(v))
}

// HandleAction applies a form action.
func (p *Onboarding) HandleAction(ctx context.Context, action string, form url.Values) error {
	switch action {
	case "field":
		name, value := form.Get("field"), form.Get("value")
		if !form.Has("value") {
			value = form.Get(name)
		}
		if err := p.setField(name, value); err != nil {
			return err
		}
	case "refine":
		p.absorb(form)
		p.refine(ctx)
	case "submit":
		p.absorb(form)
		p.submit()
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return p.refresh(ctx)
}

func (p *Onboarding) setField(name, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch name {
	case "learningGoal":
		if strings.TrimSpace(value) != strings.TrimSpace(p.draft.LearningGoal) {
			p.draft.RefinedGoal = ""
		}
		p.draft.LearningGoal = value
	case "occupation":
		p.draft.Occupation = value
	case "otherOccupation":
		p.draft.OtherOccupation = value
	case "learningPreference":
		p.draft.LearningPreference = value
	default:
		return fmt.Errorf("unknown onboarding field %q", name)
	}
	p.Store.SaveOnboarding(p.draft)
	return nil
}

// absorb copies every form field that was posted into the draft.
func (p *Onboarding) absorb(form url.Values) {
	for _, name := range []string{"learningGoal", "occupation", "otherOccupation", "learningPreference"} {
		if form.Has(name) {
			_ = p.setField(name, form.Get(name))
		}
	}
}

func (p *Onboarding) refine(ctx context.Context) {
	p.mu.Lock()
	goal := strings.TrimSpace(p.draft.LearningGoal)
	p.mu.Unlock()
	if goal == "" {
		p.alert(alertGoalMissing)
		return
	}

	refined, err := p.Backend.RefineLearningGoal(ctx, goal, learnerInfo(p.Store.GetState()))
	if err != nil {
		slog.Error("failed to refine learning goal", "error", err)
		p.alert(alertRefineFailed)
		return
	}
	if refined == "" {
		refined = goal + " (refined)"
	}

	p.mu.Lock()
	p.draft.LearningGoal = goal
	p.draft.RefinedGoal = refined
	p.Store.SaveOnboarding(p.draft)
	p.mu.Unlock()
	p.alert(alertRefined)
}

func (p *Onboarding) submit() {
	p.mu.Lock()
	d := p.draft
	f := onboardingForm{
		LearningGoal:    strings.TrimSpace(d.LearningGoal),
		Occupation:      d.Occupation,
		OtherOccupation: strings.TrimSpace(d.OtherOccupation),
	}
	if err := validate.Struct(f); err != nil {
		p.errors = validationIDs(err, onboardingErrors)
		p.mu.Unlock()
		return
	}
	p.errors = nil
	d.OnboardingComplete = true
	p.draft = d
	p.Store.SaveOnboarding(d)
	p.mu.Unlock()

	occupation := f.Occupation
	if occupation == otherOccupation {
		occupation = f.OtherOccupation
	}
	goal := d.RefinedGoal
	if goal == "" {
		goal = f.LearningGoal
	}
	info := model.LearnerInfo{
		Occupation:    occupation,
		LearningStyle: strings.TrimSpace(d.LearningPreference),
		Text:          strings.TrimSpace(d.LearningPreference),
	}
	p.Store.SetState(state.Patch{
		LearnerOccupation:      state.Ptr(occupation),
		LearnerInformationText: state.Ptr(info.Text),
		LearnerInformation:     state.Ptr(info),
		CompletedOnboarding:    state.Ptr(true),
		ToAddGoal:              state.Ptr(goal),
		SkillGaps:              state.Ptr([]model.SkillGap{}),
	})
	slog.Info("onboarding completed", "occupation", occupation)
	p.alert(alertOnboardingSet)
	p.Nav.NavigateTo(RouteSkillGap)
}
