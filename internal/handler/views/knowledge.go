package views

import (
	"github.com/a-h/templ"
)

// Stage is one step of the content pipeline indicator.
type Stage struct {
	Label  string
	Status string // completed, active or pending
}

// Section is one page of the learning document.
type Section struct {
	Index   int
	Title   string
	Anchor  string
	Content string
}

// Highlight is a knowledge point or draft summary shown above the document.
type Highlight struct {
	Title   string
	Summary string
}

// Option is one choice of a quiz item.
type Option struct {
	Index    int
	Text     string
	Selected bool
}

// Coach is the per-item Socratic dialogue.
type Coach struct {
	Messages     []Message
	Active       bool
	Completed    bool
	Exchanges    int
	MaxExchanges int
}

// Quiz is one quiz item with the learner's answer.
type Quiz struct {
	ID          string
	Type        string
	Number      int
	Question    string
	Explanation string
	Options     []Option
	Status      string
	Graded      bool
	Correct     bool
	TrueChosen  bool
	FalseChosen bool
	Draft       string
	Coach       Coach
}

// Assessment is the session-wide Socratic assessment.
type Assessment struct {
	Topics         []string
	Topic          string
	Messages       []Message
	QuestionCount  int
	IncorrectCount int
	IsLoading      bool
	Performance    string
	Warning        bool
}

// Choice is a labelled radio value.
type Choice struct {
	Value string
	Label string
}

// Feedback is the session feedback form.
type Feedback struct {
	Clarity     string
	Relevance   string
	Depth       string
	Engagement  string
	Comments    string
	Engagements []Choice
}

// Knowledge is the view of the resume-learning page.
type Knowledge struct {
	Phase string
	Error string

	GoalTitle    string
	SessionTitle string
	SessionNo    int
	SessionCount int

	Stages []Stage

	Sections    []Section
	Current     Section
	HasPrev     bool
	HasNext     bool
	GeneratedAt string
	Points      []Highlight
	Drafts      []Highlight

	ShowQuizzes bool
	QuizPending bool
	Quizzes     []Quiz

	Toasts     []string
	SidebarTab string
	Tutor      []Message
	Assessment Assessment
	Feedback   Feedback
}

// KnowledgePage renders the resume-learning page in any phase.
func KnowledgePage(k Knowledge) templ.Component {
	return component("knowledge", k)
}
