package model

import "time"

// ProgressExport is the top-level JSON structure written by the export command.
type ProgressExport struct {
	ExportedAt          time.Time      `json:"exported_at"`
	LearnerOccupation   string         `json:"learner_occupation,omitempty"`
	CompletedOnboarding bool           `json:"completed_onboarding"`
	SelectedGoalID      string         `json:"selected_goal_id,omitempty"`
	Goals               []GoalProgress `json:"goals"`
}

// GoalProgress holds one goal's learning progress for export.
type GoalProgress struct {
	ID                string            `json:"id"`
	LearningGoal      string            `json:"learning_goal"`
	RefinedGoal       string            `json:"refined_goal,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	SessionsCompleted int               `json:"sessions_completed"`
	SessionsTotal     int               `json:"sessions_total"`
	Sessions          []SessionProgress `json:"sessions"`
}

// SessionProgress holds per-session data for export.
type SessionProgress struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Learned       bool       `json:"learned"`
	HasDocument   bool       `json:"has_document"`
	GeneratedAt   *time.Time `json:"generated_at,omitempty"`
	QuizCorrect   int        `json:"quiz_correct"`
	QuizAnswered  int        `json:"quiz_answered"`
	AssessmentQs  int        `json:"assessment_questions"`
	TutorMessages int        `json:"tutor_messages"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
}

// BuildExport summarises a snapshot's goals and per-session progress.
func BuildExport(s Snapshot, now time.Time) ProgressExport {
	out := ProgressExport{
		ExportedAt:          now,
		LearnerOccupation:   s.LearnerOccupation,
		CompletedOnboarding: s.CompletedOnboarding,
		SelectedGoalID:      s.SelectedGoalID,
		Goals:               make([]GoalProgress, 0, len(s.Goals)),
	}
	for _, g := range s.Goals {
		done, total, _ := g.Progress()
		gp := GoalProgress{
			ID:                g.ID,
			LearningGoal:      g.LearningGoal,
			RefinedGoal:       g.RefinedGoal,
			CreatedAt:         g.CreatedAt,
			SessionsCompleted: done,
			SessionsTotal:     total,
		}
		for i, sess := range g.LearningPath {
			uid := SessionUID(g.ID, sess, i)
			sp := SessionProgress{ID: sess.ID, Title: sess.Title, Learned: sess.IfLearned}
			if c, ok := s.DocumentCaches[uid]; ok {
				sp.HasDocument = true
				at := c.GeneratedAt
				sp.GeneratedAt = &at
			}
			if ks, ok := s.KnowledgeSessionState[uid]; ok {
				for _, q := range ks.QuizState {
					if q.Status == StatusUnanswered {
						continue
					}
					sp.QuizAnswered++
					if q.Status == StatusCorrect {
						sp.QuizCorrect++
					}
				}
				sp.AssessmentQs = ks.AssessmentState.QuestionCount
				sp.TutorMessages = len(ks.TutorMessages)
			}
			if m, ok := s.SessionLearningTimes[uid]; ok && !m.StartTime.IsZero() {
				at := m.StartTime
				sp.StartedAt = &at
			}
			gp.Sessions = append(gp.Sessions, sp)
		}
		out.Goals = append(out.Goals, gp)
	}
	return out
}
