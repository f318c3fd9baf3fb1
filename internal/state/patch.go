package state

import (
	"encoding/json"

	"github.com/pavelanni/mentor/internal/model"
)

// Patch is a partial snapshot. Every non-nil field replaces the matching
// snapshot field wholesale; nil fields are left alone.
type Patch struct {
	OnboardingCardIndex    *int
	IsRefiningLearningGoal *bool
	LearnerOccupation      *string
	LearnerInformationText *string
	LearnerInformation     *model.LearnerInfo
	ToAddGoal              *string
	CompletedOnboarding    *bool
	Goals                  *[]model.Goal
	SelectedGoalID         *string
	SelectedSessionIndex   *int
	LearningPath           *[]model.Session
	SkillGaps              *[]model.SkillGap
	LearnerProfile         *json.RawMessage
	DocumentCaches         *map[string]model.LearningContent
	SessionLearningTimes   *map[string]model.SessionLearningMeta
	KnowledgeSessionState  *map[string]model.KnowledgeSessionState
	AgentStatus            *map[string]string
	SelectedPage           *string
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}

func (p Patch) apply(s *model.Snapshot) {
	if p.OnboardingCardIndex != nil {
		s.OnboardingCardIndex = *p.OnboardingCardIndex
	}
	if p.IsRefiningLearningGoal != nil {
		s.IsRefiningLearningGoal = *p.IsRefiningLearningGoal
	}
	if p.LearnerOccupation != nil {
		s.LearnerOccupation = *p.LearnerOccupation
	}
	if p.LearnerInformationText != nil {
		s.LearnerInformationText = *p.LearnerInformationText
	}
	if p.LearnerInformation != nil {
		s.LearnerInformation = *p.LearnerInformation
	}
	if p.ToAddGoal != nil {
		s.ToAddGoal = *p.ToAddGoal
	}
	if p.CompletedOnboarding != nil {
		s.CompletedOnboarding = *p.CompletedOnboarding
	}
	if p.Goals != nil {
		s.Goals = *p.Goals
	}
	if p.SelectedGoalID != nil {
		s.SelectedGoalID = *p.SelectedGoalID
	}
	if p.SelectedSessionIndex != nil {
		s.SelectedSessionIndex = *p.SelectedSessionIndex
	}
	if p.LearningPath != nil {
		s.LearningPath = *p.LearningPath
	}
	if p.SkillGaps != nil {
		s.SkillGaps = *p.SkillGaps
	}
	if p.LearnerProfile != nil {
		s.LearnerProfile = *p.LearnerProfile
	}
	if p.DocumentCaches != nil {
		s.DocumentCaches = *p.DocumentCaches
	}
	if p.SessionLearningTimes != nil {
		s.SessionLearningTimes = *p.SessionLearningTimes
	}
	if p.KnowledgeSessionState != nil {
		s.KnowledgeSessionState = *p.KnowledgeSessionState
	}
	if p.AgentStatus != nil {
		s.AgentStatus = *p.AgentStatus
	}
	if p.SelectedPage != nil {
		s.SelectedPage = *p.SelectedPage
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// WithEntry returns a copy of m with key set to v.
func WithEntry[V any](m map[string]V, key string, v V) map[string]V {
	out := make(map[string]V, len(m)+1)
	for k, old := range m {
		out[k] = old
	}
	out[key] = v
	return out
}

// WithoutEntry returns a copy of m without key.
func WithoutEntry[V any](m map[string]V, key string) map[string]V {
	out := make(map[string]V, len(m))
	for k, old := range m {
		if k != key {
			out[k] = old
		}
	}
	return out
}

// UpsertGoal returns a copy of goals with g replacing the goal of the same id,
// or appended when no such goal exists.
func UpsertGoal(goals []model.Goal, g model.Goal) []model.Goal {
	out := make([]model.Goal, 0, len(goals)+1)
	found := false
	for _, old := range goals {
		if old.ID == g.ID {
			out = append(out, g)
			found = true
			continue
		}
		out = append(out, old)
	}
	if !found {
		out = append(out, g)
	}
	return out
}
