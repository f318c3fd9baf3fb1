package model

import (
	"encoding/json"
	"time"
)

// LearningContent is the generated material cached for one session.
type LearningContent struct {
	Document        string            `json:"document"`
	KnowledgePoints []json.RawMessage `json:"knowledgePoints"`
	KnowledgeDrafts []json.RawMessage `json:"knowledgeDrafts"`
	Quizzes         json.RawMessage   `json:"quizzes,omitempty"`
	GeneratedAt     time.Time         `json:"generatedAt"`
}

// AnswerStatus is the grading outcome of one quiz item.
type AnswerStatus string

const (
	StatusUnanswered AnswerStatus = "unanswered"
	StatusCorrect    AnswerStatus = "correct"
	StatusIncorrect  AnswerStatus = "incorrect"
)

// CoachState is the per-quiz-item Socratic dialogue.
type CoachState struct {
	Messages       []ChatMessage `json:"messages"`
	Active         bool          `json:"active"`
	Exchanges      int           `json:"exchanges"`
	IncorrectCount int           `json:"incorrectCount"`
	Completed      bool          `json:"completed"`
}

// QuizAnswerState is the learner's answer to one quiz item. Exactly one of the
// Selected fields is meaningful, depending on Type.
type QuizAnswerState struct {
	Type            QuizType     `json:"type"`
	Status          AnswerStatus `json:"status"`
	SelectedOption  *int         `json:"selectedOption,omitempty"`
	SelectedOptions []int        `json:"selectedOptions,omitempty"`
	SelectedBool    *bool        `json:"selectedBool,omitempty"`
	Draft           string       `json:"draft,omitempty"`
	Coach           CoachState   `json:"coach"`
}

// NewQuizAnswerState returns the unanswered default for an item.
func NewQuizAnswerState(t QuizType) QuizAnswerState {
	st := QuizAnswerState{Type: t, Status: StatusUnanswered}
	if t == QuizMultipleChoice {
		st.SelectedOptions = []int{}
	}
	return st
}

// AssessmentState is the session-wide Socratic assessment dialogue.
type AssessmentState struct {
	Topic          string        `json:"topic"`
	Messages       []ChatMessage `json:"messages"`
	QuestionCount  int           `json:"questionCount"`
	IncorrectCount int           `json:"incorrectCount"`
	Completed      bool          `json:"completed"`
	IsLoading      bool          `json:"isLoading"`
}

// FeedbackDraft holds the session feedback form. Ratings are "" or "1".."5".
type FeedbackDraft struct {
	Clarity    string `json:"clarity"`
	Relevance  string `json:"relevance"`
	Depth      string `json:"depth"`
	Engagement string `json:"engagement"`
	Comments   string `json:"comments"`
}

// IsEmpty reports whether no field has been filled in.
func (f FeedbackDraft) IsEmpty() bool {
	return f == FeedbackDraft{}
}

// Toast is one motivation message shown to the learner.
type Toast struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// SessionLearningMeta tracks time spent in a session and motivation triggers.
type SessionLearningMeta struct {
	StartTime       time.Time   `json:"startTime"`
	LastTriggerTime time.Time   `json:"lastTriggerTime"`
	TriggerHistory  []time.Time `json:"triggerHistory"`
}

// Sidebar tabs.
const (
	SidebarTutor      = "tutor"
	SidebarAssessment = "assessment"
)

// KnowledgeSessionState is the persisted interaction state of one session.
type KnowledgeSessionState struct {
	CurrentSectionIndex int                        `json:"currentSectionIndex"`
	ShowQuizzes         bool                       `json:"showQuizzes"`
	SidebarTab          string                     `json:"sidebarTab"`
	QuizState           map[string]QuizAnswerState `json:"quizState"`
	TutorMessages       []ChatMessage              `json:"tutorMessages"`
	AssessmentState     AssessmentState            `json:"assessmentState"`
	FeedbackDraft       FeedbackDraft              `json:"feedbackDraft"`
	ToastMessages       []Toast                    `json:"toastMessages"`
}
