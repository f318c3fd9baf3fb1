package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pavelanni/mentor/internal/gateway"
	"github.com/pavelanni/mentor/internal/model"
)

const (
	alertAssessmentStart = "AlertAssessmentStart"
	alertAssessmentReply = "AlertAssessmentReply"
)

var incorrectRe = regexp.MustCompile(`(?i)incorrect|wrong|not quite|not right|틀렸|잘못|try again|think again|다시 생각|재고|clarify|명확히`)

func emptyAssessment() model.AssessmentState {
	return model.AssessmentState{Messages: []model.ChatMessage{}}
}

// Performance label message IDs.
const (
	PerformanceNeedsPractice = "PerformanceNeedsPractice"
	PerformanceGoodEffort    = "PerformanceGoodEffort"
	PerformanceExcellent     = "PerformanceExcellent"
)

// Performance returns the message ID labelling the learner's assessment so
// far. It is empty until the learner has answered at least once.
func Performance(a model.AssessmentState) string {
	answers := 0
	for _, m := range a.Messages {
		if m.Role == model.RoleUser {
			answers++
		}
	}
	if answers == 0 {
		return ""
	}
	ratio := float64(a.IncorrectCount) / float64(answers)
	switch {
	case a.IncorrectCount >= 2 || ratio >= 0.5:
		return PerformanceNeedsPractice
	case ratio >= 0.3:
		return PerformanceGoodEffort
	default:
		return PerformanceExcellent
	}
}

// AssessmentTopics lists the session titles of a goal's learning path.
func AssessmentTopics(g *model.Goal) []string {
	if g == nil {
		return nil
	}
	raw := gateway.SessionList(g.LearningPathRaw)
	topics := make([]string, 0, max(len(raw), len(g.LearningPath)))
	if len(raw) > 0 {
		for i, item := range raw {
			var s struct {
				Title string `json:"title"`
				Topic string `json:"topic"`
			}
			_ = json.Unmarshal(item, &s)
			topics = append(topics, firstNonEmpty(s.Title, s.Topic, fmt.Sprintf("Session %d", i+1)))
		}
		return topics
	}
	for i, s := range g.LearningPath {
		topics = append(topics, firstNonEmpty(s.Title, fmt.Sprintf("Session %d", i+1)))
	}
	return topics
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ensureAssessmentBootstrap selects the first topic once per controller
// lifetime when the session has no assessment yet.
func (c *Controller) ensureAssessmentBootstrap(ctx context.Context) {
	c.mu.Lock()
	if c.assessmentBootstrapped {
		c.mu.Unlock()
		return
	}
	c.assessmentBootstrapped = true
	a := c.ks.AssessmentState
	topics := AssessmentTopics(c.goal)
	uid := c.uid
	c.mu.Unlock()

	if uid == "" || a.Topic != "" || len(a.Messages) > 0 || len(topics) == 0 {
		return
	}
	c.selectTopic(ctx, topics[0], true)
}

// selectTopic restarts the assessment on topic and asks the first question. An
// empty topic cancels the assessment.
func (c *Controller) selectTopic(ctx context.Context, topic string, bootstrap bool) {
	uid := c.current()
	topic = strings.TrimSpace(topic)
	if topic == "" {
		c.modify(ctx, uid, func(ks *model.KnowledgeSessionState) bool {
			ks.AssessmentState = emptyAssessment()
			return true
		})
		return
	}
	if !c.modify(ctx, uid, func(ks *model.KnowledgeSessionState) bool {
		ks.AssessmentState = model.AssessmentState{Topic: topic, Messages: []model.ChatMessage{}, IsLoading: true}
		return true
	}) {
		return
	}

	bg := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		reply, err := c.backend.AssessWithSocraticTutor(bg, topic, []model.ChatMessage{})
		if err != nil {
			slog.Error("failed to start assessment", "session_uid", uid, "topic", topic, "error", err)
			c.modify(bg, uid, func(ks *model.KnowledgeSessionState) bool {
				if ks.AssessmentState.Topic != topic || len(ks.AssessmentState.Messages) > 0 {
					return false
				}
				if bootstrap {
					// Leave no topic behind so the next hydration tries again.
					ks.AssessmentState = emptyAssessment()
				} else {
					ks.AssessmentState.IsLoading = false
				}
				return true
			})
			if bootstrap {
				c.mu.Lock()
				c.assessmentBootstrapped = false
				c.mu.Unlock()
				return
			}
			c.alert(bg, uid, alertAssessmentStart)
			return
		}
		c.modify(bg, uid, func(ks *model.KnowledgeSessionState) bool {
			a := ks.AssessmentState
			if a.Topic != topic || len(a.Messages) > 0 {
				return false
			}
			a.Messages = []model.ChatMessage{{Role: model.RoleAssistant, Content: reply}}
			a.QuestionCount = 1
			a.IsLoading = false
			ks.AssessmentState = a
			return true
		})
	}()
}

// sendAssessment appends the learner's answer and asks for the next question.
func (c *Controller) sendAssessment(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	uid := c.current()
	var topic string
	var history []model.ChatMessage
	if !c.modify(ctx, uid, func(ks *model.KnowledgeSessionState) bool {
		a := ks.AssessmentState
		if a.Topic == "" {
			return false
		}
		a.Messages = appendMessage(a.Messages, model.ChatMessage{Role: model.RoleUser, Content: text})
		a.IsLoading = true
		ks.AssessmentState = a
		topic = a.Topic
		history = model.LastMessages(a.Messages, 10)
		return true
	}) {
		return
	}

	bg := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		reply, err := c.backend.AssessWithSocraticTutor(bg, topic, history)
		if err != nil {
			slog.Error("assessment response failed", "session_uid", uid, "error", err)
			c.modify(bg, uid, func(ks *model.KnowledgeSessionState) bool {
				ks.AssessmentState.IsLoading = false
				return true
			})
			c.alert(bg, uid, alertAssessmentReply)
			return
		}
		c.modify(bg, uid, func(ks *model.KnowledgeSessionState) bool {
			a := ks.AssessmentState
			if a.Topic != topic {
				return false
			}
			a.Messages = appendMessage(a.Messages, model.ChatMessage{Role: model.RoleAssistant, Content: reply})
			a.QuestionCount++
			if incorrectRe.MatchString(reply) {
				a.IncorrectCount++
			}
			// The dialogue continues until the learner restarts it.
			a.Completed = false
			a.IsLoading = false
			ks.AssessmentState = a
			return true
		})
	}()
}

// restartAssessment clears the assessment without confirmation.
func (c *Controller) restartAssessment(ctx context.Context) {
	c.modify(ctx, c.current(), func(ks *model.KnowledgeSessionState) bool {
		ks.AssessmentState = emptyAssessment()
		return true
	})
}
