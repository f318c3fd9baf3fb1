package model

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// AuthSession represents an authentication session for the optional access gate.
type AuthSession struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// Role represents a chat message role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one turn of a tutor, coach or assessment dialogue.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LastMessages returns at most n trailing messages.
func LastMessages(msgs []ChatMessage, n int) []ChatMessage {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

// Skill levels in ascending order.
const (
	LevelUnlearned    = "unlearned"
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// LevelRank returns the ordinal of a normalized skill level.
func LevelRank(level string) int {
	switch level {
	case LevelUnlearned:
		return 0
	case LevelBeginner:
		return 1
	case LevelIntermediate:
		return 2
	case LevelAdvanced:
		return 3
	}
	return 0
}

// SkillGap is one skill assessed against the learning goal.
type SkillGap struct {
	Name            string   `json:"name"`
	RequiredLevel   string   `json:"required_level"`
	CurrentLevel    string   `json:"current_level"`
	Analysis        string   `json:"analysis,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
	IsGap           bool     `json:"is_gap"`
}

// Session is one element of a goal's learning path.
type Session struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Abstract         string   `json:"abstract"`
	IfLearned        bool     `json:"if_learned"`
	DesiredOutcomes  []string `json:"desired_outcome_when_completed"`
	AssociatedSkills []string `json:"associated_skills"`
}

// Goal is a learner goal with its skill gaps and scheduled learning path.
type Goal struct {
	ID              string          `json:"id"`
	LearningGoal    string          `json:"learningGoal"`
	RefinedGoal     string          `json:"refinedGoal"`
	SkillGaps       []SkillGap      `json:"skillGaps"`
	LearnerProfile  json.RawMessage `json:"learnerProfile,omitempty"`
	LearningPath    []Session       `json:"learningPath"`
	LearningPathRaw json.RawMessage `json:"learningPathRaw,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// DisplayGoal returns the refined goal when present, else the original text.
func (g Goal) DisplayGoal() string {
	if g.RefinedGoal != "" {
		return g.RefinedGoal
	}
	return g.LearningGoal
}

// Progress counts learned sessions in the goal's learning path.
func (g Goal) Progress() (completed, total, percent int) {
	total = len(g.LearningPath)
	for _, s := range g.LearningPath {
		if s.IfLearned {
			completed++
		}
	}
	if total > 0 {
		percent = completed * 100 / total
	}
	return completed, total, percent
}

// SessionUID derives the key shared by the document cache, timing metadata and
// per-session interaction state. It is empty when no goal is selected.
func SessionUID(goalID string, s Session, index int) string {
	if goalID == "" {
		return ""
	}
	sid := s.ID
	if sid == "" {
		sid = strconv.Itoa(index)
	}
	return goalID + "::" + sid
}

// LearnerInfo is what onboarding captures about the learner.
type LearnerInfo struct {
	Occupation    string `json:"occupation"`
	LearningStyle string `json:"learning_style"`
	Text          string `json:"text,omitempty"`
}

// OnboardingDraft is the in-progress onboarding form, stored apart from the snapshot.
type OnboardingDraft struct {
	Step               int    `json:"step"`
	LearningGoal       string `json:"learningGoal"`
	RefinedGoal        string `json:"refinedGoal"`
	Occupation         string `json:"occupation"`
	OtherOccupation    string `json:"otherOccupation"`
	LearningPreference string `json:"learningPreference"`
	ResumeFileName     string `json:"resumeFileName"`
	OnboardingComplete bool   `json:"onboardingComplete"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	BasePath      string // URL prefix for sub-path deployments
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	RequireLogin  bool   // an access password is configured
	Lang          string
}
