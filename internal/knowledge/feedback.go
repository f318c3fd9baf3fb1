package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/mentor/internal/gateway"
	appI18n "github.com/pavelanni/mentor/internal/i18n"
	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/page"
)

const (
	alertFeedbackSent     = "AlertFeedbackSent"
	alertFeedbackFailed   = "AlertFeedbackFailed"
	confirmComplete       = "ConfirmCompleteSession"
	alertCompleted        = "AlertSessionCompleted"
	alertCompleteFailed   = "AlertCompleteFailed"
	learningPathRoute     = "learning-path"
	sessionCompletedNotes = "Session completed"
)

// Engagement is a face rating; the form shows the emoji.
type Engagement struct {
	Value string
	Face  string
}

// EngagementLevels lists the engagement choices in display order.
var EngagementLevels = []Engagement{
	{"sad", "😟"},
	{"neutral", "😐"},
	{"happy", "😊"},
	{"excited", "🤩"},
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// feedbackField is one form field update, validated before it is stored.
type feedbackField struct {
	Name  string `validate:"oneof=clarity relevance depth engagement comments"`
	Value string `validate:"max=4000"`
}

type feedbackRating struct {
	Value string `validate:"omitempty,oneof=1 2 3 4 5"`
}

type feedbackEngagement struct {
	Value string `validate:"omitempty,oneof=sad neutral happy excited"`
}

// setFeedbackField stores one feedback field for the hydrated session.
func (c *Controller) setFeedbackField(ctx context.Context, name, value string) error {
	f := feedbackField{Name: name, Value: value}
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid feedback field %q: %w", name, err)
	}
	switch name {
	case "clarity", "relevance", "depth":
		if err := validate.Struct(feedbackRating{Value: value}); err != nil {
			return fmt.Errorf("invalid rating for %s: %w", name, err)
		}
	case "engagement":
		if err := validate.Struct(feedbackEngagement{Value: value}); err != nil {
			return fmt.Errorf("invalid engagement: %w", err)
		}
	}
	c.modify(ctx, c.current(), func(ks *model.KnowledgeSessionState) bool {
		d := ks.FeedbackDraft
		switch name {
		case "clarity":
			d.Clarity = value
		case "relevance":
			d.Relevance = value
		case "depth":
			d.Depth = value
		case "engagement":
			d.Engagement = value
		case "comments":
			d.Comments = value
		}
		if d == ks.FeedbackDraft {
			return false
		}
		ks.FeedbackDraft = d
		return true
	})
	return nil
}

// feedbackPayload is the interactions object sent with submitted feedback.
type feedbackPayload struct {
	Clarity            *int    `json:"clarity"`
	Relevance          *int    `json:"relevance"`
	Depth              *int    `json:"depth"`
	Engagement         *string `json:"engagement"`
	AdditionalComments string  `json:"additional_comments"`
}

func rating(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func newFeedbackPayload(d model.FeedbackDraft) feedbackPayload {
	p := feedbackPayload{
		Clarity:            rating(d.Clarity),
		Relevance:          rating(d.Relevance),
		Depth:              rating(d.Depth),
		AdditionalComments: strings.TrimSpace(d.Comments),
	}
	if d.Engagement != "" {
		e := d.Engagement
		p.Engagement = &e
	}
	return p
}

// profileUpdate builds the learner-profile update for the hydrated session,
// marking the session learned.
func (c *Controller) profileUpdate(interactions any) (gateway.ProfileUpdate, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.goal == nil || c.session == nil {
		return gateway.ProfileUpdate{}, c.uid, false
	}
	s := *c.session
	s.IfLearned = true
	return gateway.ProfileUpdate{
		LearnerProfile:     c.goal.LearnerProfile,
		Interactions:       interactions,
		LearnerInformation: c.learnerInfo,
		Session:            s,
	}, c.uid, true
}

// submitFeedback sends the draft and clears it. A failed submission keeps the
// draft.
func (c *Controller) submitFeedback(ctx context.Context) {
	c.mu.Lock()
	draft := c.ks.FeedbackDraft
	c.mu.Unlock()

	req, uid, ok := c.profileUpdate(newFeedbackPayload(draft))
	if !ok {
		return
	}
	if err := c.backend.UpdateLearnerProfile(ctx, req); err != nil {
		slog.Error("failed to submit feedback", "session_uid", uid, "error", err)
		c.alert(ctx, uid, alertFeedbackFailed)
		return
	}
	c.alert(ctx, uid, alertFeedbackSent)
	c.modify(ctx, uid, func(ks *model.KnowledgeSessionState) bool {
		ks.FeedbackDraft = model.FeedbackDraft{}
		return true
	})
}

// completeSession marks the session learned on the backend and returns to the
// learning path. Nothing is written locally; the learning path refetches.
func (c *Controller) completeSession(ctx context.Context) {
	if !page.Confirm(ctx, appI18n.T(ctx, confirmComplete)) {
		return
	}
	req, uid, ok := c.profileUpdate(map[string]string{"notes": sessionCompletedNotes})
	if !ok {
		return
	}
	if err := c.backend.UpdateLearnerProfile(ctx, req); err != nil {
		slog.Error("failed to complete session", "session_uid", uid, "error", err)
		c.alert(ctx, uid, alertCompleteFailed)
		return
	}
	slog.Info("session completed", "session_uid", uid)
	c.alert(ctx, uid, alertCompleted)
	c.nav.NavigateTo(learningPathRoute)
}
