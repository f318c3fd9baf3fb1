package views

import "github.com/a-h/templ"

// Onboarding is the learner information form.
type Onboarding struct {
	LearningGoal       string
	RefinedGoal        string
	Occupation         string
	OtherOccupation    string
	LearningPreference string
	Occupations        []string
	Errors             []string // message IDs
}

// OnboardingPage renders the onboarding form.
func OnboardingPage(v Onboarding) templ.Component {
	return component("onboarding", v)
}

// SkillGap is one assessed skill.
type SkillGap struct {
	Name            string
	Required        string
	Current         string
	Analysis        string
	Recommendations []string
	IsGap           bool
}

// SkillGaps is the skill-gap analysis page.
type SkillGaps struct {
	Goal         string
	Gaps         []SkillGap
	Identified   bool
	SessionCount int
}

// SkillGapPage renders the skill-gap analysis.
func SkillGapPage(v SkillGaps) templ.Component {
	return component("skill-gap", v)
}

// GoalOption is one entry of a goal selector.
type GoalOption struct {
	ID       string
	Title    string
	Selected bool
}

// PathSession is one session card of the learning path.
type PathSession struct {
	Index       int
	Title       string
	Abstract    string
	Outcomes    []string
	Skills      []string
	Learned     bool
	HasDocument bool
	Current     bool
}

// LearningPath is the learning path page of the selected goal.
type LearningPath struct {
	GoalTitle    string
	Goals        []GoalOption
	Sessions     []PathSession
	Completed    int
	Total        int
	Percent      int
	SessionCount int
	MinSessions  int
	MaxSessions  int
}

// LearningPathPage renders the learning path.
func LearningPathPage(v LearningPath) templ.Component {
	return component("learning-path", v)
}

// GoalCard is one goal on the goal management page.
type GoalCard struct {
	ID          string
	Title       string
	RefinedGoal string
	CreatedAt   string
	Completed   int
	Total       int
	Percent     int
	Selected    bool
	Editing     bool
}

// Goals is the goal management page.
type Goals struct {
	Goals  []GoalCard
	Errors []string // message IDs
}

// GoalsPage renders goal management.
func GoalsPage(v Goals) templ.Component {
	return component("goals", v)
}

// Profile is the learner profile page.
type Profile struct {
	Occupation      string
	LearningStyle   string
	InformationText string
	GoalTitle       string
	ProfileJSON     string
	Gaps            []SkillGap
	Errors          []string // message IDs
}

// ProfilePage renders the learner profile.
func ProfilePage(v Profile) templ.Component {
	return component("profile", v)
}

// DashboardSession is one row of a goal's progress table.
type DashboardSession struct {
	Title         string
	Learned       bool
	HasDocument   bool
	QuizCorrect   int
	QuizAnswered  int
	AssessmentQs  int
	TutorMessages int
}

// DashboardGoal is one goal's progress.
type DashboardGoal struct {
	ID        string
	Title     string
	Completed int
	Total     int
	Percent   int
	Sessions  []DashboardSession
}

// Dashboard summarizes learning progress across goals.
type Dashboard struct {
	Goals           []DashboardGoal
	TotalSessions   int
	LearnedSessions int
	Documents       int
	QuizAnswered    int
	QuizCorrect     int
	Accuracy        int
}

// DashboardPage renders the dashboard.
func DashboardPage(v Dashboard) templ.Component {
	return component("dashboard", v)
}
