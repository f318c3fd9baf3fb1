package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	appI18n "github.com/pavelanni/mentor/internal/i18n"
	"github.com/pavelanni/mentor/internal/model"
)

// MaxCoachExchanges caps the coach's question counter.
const MaxCoachExchanges = 3

const (
	coachFallback   = "CoachFallback"
	alertCoachReply = "AlertCoachReply"
)

var coachDoneRe = regexp.MustCompile(`(?i)great work|you've got it|excellent understanding|완벽|잘 이해`)

func coachIntro(question string, correct bool) string {
	instruction := "The learner answered incorrectly. Guide them Socratically without revealing the answer."
	if correct {
		instruction = "The learner answered correctly. Provide a deeper Socratic question to reinforce understanding."
	}
	return fmt.Sprintf("Question: %s\n\n%s", question, instruction)
}

func coachContext(question string) string {
	return strings.Join([]string{
		"You are a Socratic tutor guiding a learner through quiz questions.",
		"Question: " + question,
		"Ask probing questions, avoid giving direct answers unless necessary.",
		"Keep responses concise and focused on one concept.",
	}, "\n\n")
}

// activateCoach keeps the dialogue so far and reopens it.
func activateCoach(c model.CoachState) model.CoachState {
	if c.Messages == nil {
		c.Messages = []model.ChatMessage{}
	}
	c.Active = true
	c.Completed = false
	return c
}

// withCoachReply appends an assistant turn, advancing the question counter and
// detecting completion.
func withCoachReply(c model.CoachState, reply string) model.CoachState {
	c.Messages = appendMessage(c.Messages, model.ChatMessage{Role: model.RoleAssistant, Content: reply})
	if strings.Contains(reply, "?") {
		c.Exchanges = min(c.Exchanges+1, MaxCoachExchanges)
	}
	c.Completed = c.Completed || coachDoneRe.MatchString(reply)
	c.Active = !c.Completed
	return c
}

// startCoach asks for the coach's opening turn in the background. When the
// backend is unavailable a canned opener is used instead.
func (c *Controller) startCoach(ctx context.Context, uid string, it model.QuizItem, correct bool) {
	bg := context.WithoutCancel(ctx)
	intro := coachIntro(it.Question, correct)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		reply, err := c.backend.AssessWithSocraticTutor(bg, intro, []model.ChatMessage{})
		if err != nil {
			slog.Warn("unable to start coach session", "session_uid", uid, "item", it.ID, "error", err)
			reply = appI18n.T(bg, coachFallback)
		}
		c.appendCoachReply(bg, uid, it.ID, reply)
	}()
}

func (c *Controller) appendCoachReply(ctx context.Context, uid, id, reply string) {
	c.modify(ctx, uid, func(ks *model.KnowledgeSessionState) bool {
		st, ok := ks.QuizState[id]
		if !ok || !st.Coach.Active {
			return false
		}
		st.Coach = withCoachReply(st.Coach, reply)
		ks.QuizState[id] = st
		return true
	})
}

// sendCoach appends the learner's message and asks the coach to continue.
func (c *Controller) sendCoach(ctx context.Context, id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	it, uid, err := c.lookup(id, "")
	if err != nil {
		return err
	}
	var history []model.ChatMessage
	ok := c.modify(ctx, uid, func(ks *model.KnowledgeSessionState) bool {
		st, ok := ks.QuizState[id]
		if !ok || !st.Coach.Active {
			return false
		}
		st.Coach.Messages = appendMessage(st.Coach.Messages, model.ChatMessage{Role: model.RoleUser, Content: text})
		ks.QuizState[id] = st
		history = model.LastMessages(st.Coach.Messages, 10)
		return true
	})
	if !ok {
		return nil
	}

	bg := context.WithoutCancel(ctx)
	topic := coachContext(it.Question)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		reply, err := c.backend.AssessWithSocraticTutor(bg, topic, history)
		if err != nil {
			slog.Error("failed to get coach response", "session_uid", uid, "item", id, "error", err)
			c.alert(bg, uid, alertCoachReply)
			return
		}
		c.appendCoachReply(bg, uid, id, reply)
	}()
	return nil
}

// resetCoach clears one item's dialogue without touching its graded answer.
func (c *Controller) resetCoach(ctx context.Context, id string) error {
	_, uid, err := c.lookup(id, "")
	if err != nil {
		return err
	}
	c.modify(ctx, uid, func(ks *model.KnowledgeSessionState) bool {
		st, ok := ks.QuizState[id]
		if !ok {
			return false
		}
		st.Coach = model.CoachState{Messages: []model.ChatMessage{}}
		ks.QuizState[id] = st
		return true
	})
	return nil
}
