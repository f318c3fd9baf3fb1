package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/mentor/internal/model"
)

const alertTutor = "AlertTutorUnavailable"

// sendTutor appends the learner's message to the session chat and asks the
// tutor to reply with the last 20 messages and the learner profile.
func (c *Controller) sendTutor(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	c.mu.Lock()
	uid := c.uid
	var profile []byte
	if c.goal != nil {
		profile = c.goal.LearnerProfile
	}
	c.mu.Unlock()

	var history []model.ChatMessage
	if !c.modify(ctx, uid, func(ks *model.KnowledgeSessionState) bool {
		ks.TutorMessages = appendMessage(ks.TutorMessages, model.ChatMessage{Role: model.RoleUser, Content: text})
		history = model.LastMessages(ks.TutorMessages, 20)
		return true
	}) {
		return
	}

	bg := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		reply, err := c.backend.ChatWithTutor(bg, history, profile)
		if err != nil {
			slog.Error("tutor chat failed", "session_uid", uid, "error", err)
			c.alert(bg, uid, alertTutor)
			return
		}
		c.modify(bg, uid, func(ks *model.KnowledgeSessionState) bool {
			ks.TutorMessages = appendMessage(ks.TutorMessages, model.ChatMessage{Role: model.RoleAssistant, Content: reply})
			return true
		})
	}()
}

// setSidebarTab switches the sidebar between the tutor chat and the assessment.
func (c *Controller) setSidebarTab(ctx context.Context, tab string) error {
	if tab != model.SidebarTutor && tab != model.SidebarAssessment {
		return fmt.Errorf("unknown sidebar tab %q", tab)
	}
	c.modify(ctx, c.current(), func(ks *model.KnowledgeSessionState) bool {
		if ks.SidebarTab == tab {
			return false
		}
		ks.SidebarTab = tab
		return true
	})
	return nil
}
