package knowledge

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// HandleAction dispatches a learner action posted from the rendered page.
func (c *Controller) HandleAction(ctx context.Context, action string, form url.Values) error {
	id := form.Get("item")
	switch action {
	case "retry":
		c.retry(ctx)
	case "regenerate":
		c.regenerate(ctx)

	case "next-section":
		c.nextSection(ctx)
	case "prev-section":
		c.prevSection(ctx)
	case "jump-section":
		i, err := intField(form, "index")
		if err != nil {
			return err
		}
		c.goToSection(ctx, i)
	case "unlock-quizzes":
		c.unlockQuizzes(ctx)

	case "answer-single":
		opt, err := intField(form, "option")
		if err != nil {
			return err
		}
		return c.answerSingle(ctx, id, opt)
	case "toggle-multiple":
		opt, err := intField(form, "option")
		if err != nil {
			return err
		}
		return c.toggleMultiple(ctx, id, opt, form.Get("checked") == "true")
	case "submit-multiple":
		return c.submitMultiple(ctx, id)
	case "answer-true-false":
		v, err := strconv.ParseBool(form.Get("value"))
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", form.Get("value"), err)
		}
		return c.answerTrueFalse(ctx, id, v)
	case "draft-short":
		return c.saveShortDraft(ctx, id, form.Get("answer"))
	case "submit-short":
		if form.Has("answer") {
			if err := c.saveShortDraft(ctx, id, form.Get("answer")); err != nil {
				return err
			}
		}
		return c.submitShort(ctx, id)
	case "reset-quiz":
		c.resetQuiz(ctx)

	case "coach-send":
		return c.sendCoach(ctx, id, form.Get("message"))
	case "coach-reset":
		return c.resetCoach(ctx, id)

	case "assessment-select":
		c.selectTopic(ctx, form.Get("topic"), false)
	case "assessment-send":
		c.sendAssessment(ctx, form.Get("message"))
	case "assessment-restart":
		c.restartAssessment(ctx)

	case "sidebar-tab":
		return c.setSidebarTab(ctx, form.Get("tab"))
	case "tutor-send":
		c.sendTutor(ctx, form.Get("message"))

	case "feedback-field":
		return c.setFeedbackField(ctx, form.Get("field"), form.Get("value"))
	case "feedback-submit":
		c.submitFeedback(ctx)
	case "complete-session":
		c.completeSession(ctx)

	case "go-learning-path":
		c.nav.NavigateTo(learningPathRoute)
	case "go-onboarding":
		c.nav.NavigateTo("onboarding")

	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}

func intField(form url.Values, name string) (int, error) {
	n, err := strconv.Atoi(form.Get(name))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, form.Get(name), err)
	}
	return n, nil
}

// retry leaves the error state and runs the pipeline again. Nothing was cached
// for the failed run, so no confirmation is asked.
func (c *Controller) retry(ctx context.Context) {
	c.mu.Lock()
	uid := c.uid
	if c.errUID != uid || c.err == nil {
		c.mu.Unlock()
		return
	}
	c.err = nil
	c.errUID = ""
	c.mu.Unlock()
	c.rerender(ctx, uid)
}
