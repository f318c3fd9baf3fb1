package gateway

import (
	"context"
	"encoding/json"

	"github.com/pavelanni/mentor/internal/model"
)

var _ Backend = (*Client)(nil)

// RefineLearningGoal asks the backend to sharpen a goal. An empty refinement
// is returned as "".
func (c *Client) RefineLearningGoal(ctx context.Context, goal string, info model.LearnerInfo) (string, error) {
	raw, err := c.post(ctx, "refine_goal", "/refine-learning-goal", map[string]any{
		"learning_goal":       goal,
		"learner_information": jsonString(info),
		"model_provider":      c.content.Provider,
		"model_name":          c.content.Name,
	})
	if err != nil {
		return "", err
	}
	return RefinedGoal(raw), nil
}

// IdentifySkillGaps returns normalized skill gaps and the raw gap list.
func (c *Client) IdentifySkillGaps(ctx context.Context, goal string, info model.LearnerInfo) ([]model.SkillGap, json.RawMessage, error) {
	raw, err := c.post(ctx, "identify_skill_gaps", "/identify-skill-gap-with-info", map[string]any{
		"learning_goal":       goal,
		"learner_information": jsonString(info),
		"skill_requirements":  nil,
		"model_provider":      c.content.Provider,
		"model_name":          c.content.Name,
	})
	if err != nil {
		return nil, nil, err
	}
	gaps := field(raw, "skill_gaps")
	if gaps == nil {
		gaps = json.RawMessage("[]")
	}
	return SkillGaps(gaps), gaps, nil
}

// CreateLearnerProfile returns the opaque learner profile.
func (c *Client) CreateLearnerProfile(ctx context.Context, info model.LearnerInfo, goal string, rawGaps json.RawMessage) (json.RawMessage, error) {
	raw, err := c.post(ctx, "create_profile", "/create-learner-profile-with-info", map[string]any{
		"learner_information": jsonString(info),
		"learning_goal":       goal,
		"skill_gaps":          jsonString(rawGaps),
		"model_provider":      c.content.Provider,
		"model_name":          c.content.Name,
	})
	if err != nil {
		return nil, err
	}
	return LearnerProfile(raw), nil
}

// ScheduleLearningPath schedules sessionCount sessions for profile.
func (c *Client) ScheduleLearningPath(ctx context.Context, profile json.RawMessage, sessionCount int) (LearningPath, error) {
	raw, err := c.post(ctx, "schedule_path", "/schedule-learning-path", map[string]any{
		"learner_profile": jsonString(profile),
		"session_count":   sessionCount,
		"model_provider":  c.content.Provider,
		"model_name":      c.content.Name,
	})
	if err != nil {
		return LearningPath{}, err
	}
	return ParseLearningPath(raw), nil
}

// RescheduleLearningPath reschedules an existing path with optional feedback.
func (c *Client) RescheduleLearningPath(ctx context.Context, profile, path json.RawMessage, sessionCount int, feedback string) (LearningPath, error) {
	var other any
	if feedback != "" {
		other = feedback
	}
	raw, err := c.post(ctx, "reschedule_path", "/reschedule-learning-path", map[string]any{
		"learner_profile": jsonString(profile),
		"learning_path":   jsonString(path),
		"session_count":   sessionCount,
		"other_feedback":  other,
		"model_provider":  c.content.Provider,
		"model_name":      c.content.Name,
	})
	if err != nil {
		return LearningPath{}, err
	}
	return ParseLearningPath(raw), nil
}

// ExploreKnowledgePoints returns the knowledge points of a session.
func (c *Client) ExploreKnowledgePoints(ctx context.Context, req SessionRequest) ([]json.RawMessage, error) {
	raw, err := c.post(ctx, "explore", "/explore-knowledge-points", map[string]any{
		"learner_profile":  jsonString(req.LearnerProfile),
		"learning_path":    jsonString(req.LearningPath),
		"learning_session": jsonString(req.Session),
	})
	if err != nil {
		return nil, err
	}
	return KnowledgePoints(raw), nil
}

// DraftKnowledgePoints drafts every explored point.
func (c *Client) DraftKnowledgePoints(ctx context.Context, req SessionRequest, points []json.RawMessage) ([]json.RawMessage, error) {
	raw, err := c.post(ctx, "draft", "/draft-knowledge-points", map[string]any{
		"learner_profile":  jsonString(req.LearnerProfile),
		"learning_path":    jsonString(req.LearningPath),
		"learning_session": jsonString(req.Session),
		"knowledge_points": jsonString(points),
		"use_search":       true,
		"allow_parallel":   true,
	})
	if err != nil {
		return nil, err
	}
	return KnowledgeDrafts(raw), nil
}

// IntegrateLearningDocument merges drafts into one markdown document.
func (c *Client) IntegrateLearningDocument(ctx context.Context, req SessionRequest, points, drafts []json.RawMessage) (string, error) {
	raw, err := c.post(ctx, "integrate", "/integrate-learning-document", map[string]any{
		"learner_profile":  jsonString(req.LearnerProfile),
		"learning_path":    jsonString(req.LearningPath),
		"learning_session": jsonString(req.Session),
		"knowledge_points": jsonString(points),
		"knowledge_drafts": jsonString(drafts),
		"output_markdown":  true,
	})
	if err != nil {
		return "", err
	}
	return Document(raw), nil
}

// GenerateDocumentQuizzes returns the raw quiz payload for a document.
func (c *Client) GenerateDocumentQuizzes(ctx context.Context, profile json.RawMessage, document string, counts QuizCounts) (json.RawMessage, error) {
	raw, err := c.post(ctx, "quiz", "/generate-document-quizzes", map[string]any{
		"learner_profile":       jsonString(profile),
		"learning_document":     document,
		"single_choice_count":   counts.SingleChoice,
		"multiple_choice_count": counts.MultipleChoice,
		"true_false_count":      counts.TrueFalse,
		"short_answer_count":    counts.ShortAnswer,
	})
	if err != nil {
		return nil, err
	}
	return QuizPayload(raw), nil
}

// ChatWithTutor returns the tutor's reply to the conversation.
func (c *Client) ChatWithTutor(ctx context.Context, messages []model.ChatMessage, profile json.RawMessage) (string, error) {
	raw, err := c.post(ctx, "chat_tutor", "/chat-with-tutor", map[string]any{
		"messages":        jsonString(nonNil(messages)),
		"learner_profile": jsonString(profile),
		"model_provider":  c.dialogue.Provider,
		"model_name":      c.dialogue.Name,
	})
	if err != nil {
		return "", err
	}
	return Reply(raw), nil
}

// AssessWithSocraticTutor returns the Socratic tutor's next turn on topic.
func (c *Client) AssessWithSocraticTutor(ctx context.Context, topic string, messages []model.ChatMessage) (string, error) {
	raw, err := c.post(ctx, "socratic", "/assess-with-socratic-tutor", map[string]any{
		"learning_topic": topic,
		"messages":       jsonString(nonNil(messages)),
		"model_provider": c.dialogue.Provider,
		"model_name":     c.dialogue.Name,
	})
	if err != nil {
		return "", err
	}
	return Reply(raw), nil
}

// UpdateLearnerProfile records interactions and session outcomes.
func (c *Client) UpdateLearnerProfile(ctx context.Context, req ProfileUpdate) error {
	_, err := c.post(ctx, "update_profile", "/update-learner-profile", map[string]any{
		"learner_profile":      jsonString(req.LearnerProfile),
		"learner_interactions": jsonString(req.Interactions),
		"learner_information":  jsonString(req.LearnerInformation),
		"session_information":  jsonString(req.Session),
		"model_provider":       c.content.Provider,
		"model_name":           c.content.Name,
	})
	return err
}

func nonNil(msgs []model.ChatMessage) []model.ChatMessage {
	if msgs == nil {
		return []model.ChatMessage{}
	}
	return msgs
}
