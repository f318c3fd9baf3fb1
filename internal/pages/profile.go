package pages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/pavelanni/mentor/internal/handler/views"
	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/page"
	"github.com/pavelanni/mentor/internal/state"
)

const alertProfileSaved = "Profile saved."

type profileForm struct {
	Occupation    string `validate:"required,max=200"`
	LearningStyle string `validate:"max=2000"`
	Text          string `validate:"max=4000"`
}

var profileErrors = map[string]string{
	"Occupation":    "ValidationOccupation",
	"LearningStyle": "ValidationTooLong",
	"Text":          "ValidationTooLong",
}

// Profile shows what the learner told onboarding and the backend's learner
// profile for the selected goal.
type Profile struct {
	base

	mu     sync.Mutex
	snap   model.Snapshot
	errors []string
}

// NewProfile creates the learner profile page.
func NewProfile(d Deps) *Profile {
	return &Profile{base: base{Deps: d}}
}

// Initialize reads the snapshot.
func (p *Profile) Initialize(context.Context) error {
	snap := p.Store.GetState()
	p.mu.Lock()
	p.snap = snap
	p.mu.Unlock()
	return nil
}

// Render draws the profile.
func (p *Profile) Render(ctx context.Context, m *page.Mount) error {
	p.attach(m)
	return p.refresh(ctx)
}

func (p *Profile) refresh(ctx context.Context) error {
	p.mu.Lock()
	info := learnerInfo(p.snap)
	v := views.Profile{
		Occupation:      info.Occupation,
		LearningStyle:   info.LearningStyle,
		InformationText: info.Text,
		Errors:          p.errors,
	}
	profile := p.snap.LearnerProfile
	gaps := p.snap.SkillGaps
	if g, ok := selectedGoal(p.snap); ok {
		v.GoalTitle = g.DisplayGoal()
		profile = g.LearnerProfile
		gaps = g.SkillGaps
	}
	p.mu.Unlock()

	v.ProfileJSON = prettyJSON(profile)
	v.Gaps = skillGapViews(gaps)
	return p.show(ctx, views.ProfilePage(v))
}

func prettyJSON(raw json.RawMessage) string {
	raw = model.UnquoteJSON(raw)
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// HandleAction saves the learner information.
func (p *Profile) HandleAction(ctx context.Context, action string, form url.Values) error {
	if action != "save" {
		return fmt.Errorf("unknown action %q", action)
	}
	f := profileForm{
		Occupation:    strings.TrimSpace(form.Get("occupation")),
		LearningStyle: strings.TrimSpace(form.Get("learningStyle")),
		Text:          strings.TrimSpace(form.Get("text")),
	}
	if err := validate.Struct(f); err != nil {
		p.mu.Lock()
		p.errors = validationIDs(err, profileErrors)
		p.mu.Unlock()
		return p.refresh(ctx)
	}
	info := model.LearnerInfo{Occupation: f.Occupation, LearningStyle: f.LearningStyle, Text: f.Text}
	p.Store.SetState(state.Patch{
		LearnerOccupation:      state.Ptr(f.Occupation),
		LearnerInformationText: state.Ptr(f.Text),
		LearnerInformation:     state.Ptr(info),
	})
	p.mu.Lock()
	p.errors = nil
	p.mu.Unlock()
	p.alert(alertProfileSaved)
	if err := p.Initialize(ctx); err != nil {
		return err
	}
	return p.refresh(ctx)
}
