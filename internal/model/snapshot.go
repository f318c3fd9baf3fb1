package model

import "encoding/json"

// Snapshot is the whole durable client state. Maps and slices are shared
// between snapshots handed out by the state manager; writers replace them
// instead of mutating in place.
type Snapshot struct {
	OnboardingCardIndex    int                              `json:"onboardingCardIndex"`
	IsRefiningLearningGoal bool                             `json:"isRefiningLearningGoal"`
	LearnerOccupation      string                           `json:"learnerOccupation"`
	LearnerInformationText string                           `json:"learnerInformationText"`
	LearnerInformation     LearnerInfo                      `json:"learnerInformation"`
	ToAddGoal              string                           `json:"toAddGoal"`
	CompletedOnboarding    bool                             `json:"completedOnboarding"`
	Goals                  []Goal                           `json:"goals"`
	SelectedGoalID         string                           `json:"selectedGoalId"`
	SelectedSessionIndex   int                              `json:"selectedSessionIndex"`
	LearningPath           []Session                        `json:"learningPath"`
	SkillGaps              []SkillGap                       `json:"skillGaps"`
	LearnerProfile         json.RawMessage                  `json:"learnerProfile,omitempty"`
	DocumentCaches         map[string]LearningContent       `json:"documentCaches"`
	SessionLearningTimes   map[string]SessionLearningMeta   `json:"sessionLearningTimes"`
	KnowledgeSessionState  map[string]KnowledgeSessionState `json:"knowledgeSessionState"`
	AgentStatus            map[string]string                `json:"agentStatus"`
	SelectedPage           string                           `json:"selectedPage"`
}

// DefaultSnapshot returns the state of a learner who has never used the app.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Goals:                 []Goal{},
		DocumentCaches:        map[string]LearningContent{},
		SessionLearningTimes:  map[string]SessionLearningMeta{},
		KnowledgeSessionState: map[string]KnowledgeSessionState{},
		AgentStatus:           map[string]string{},
		SelectedPage:          "onboarding",
	}
}

// GoalIndex returns the position of the goal with the given id, or -1.
func (s Snapshot) GoalIndex(id string) int {
	for i, g := range s.Goals {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// SelectedGoal returns the selected goal, if any.
func (s Snapshot) SelectedGoal() (Goal, bool) {
	if i := s.GoalIndex(s.SelectedGoalID); i >= 0 {
		return s.Goals[i], true
	}
	return Goal{}, false
}
