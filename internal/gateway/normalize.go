package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pavelanni/mentor/internal/model"
)

// asString decodes raw as a JSON string.
func asString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// field returns the first present, non-null member of an object, unwrapping
// JSON-encoded strings first.
func field(raw json.RawMessage, names ...string) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(model.UnquoteJSON(raw), &obj); err != nil {
		return nil
	}
	for _, n := range names {
		v, ok := obj[n]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}
		return v
	}
	return nil
}

// array decodes raw as a JSON array, unwrapping a JSON-encoded string.
func array(raw json.RawMessage) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(model.UnquoteJSON(raw), &items); err != nil {
		return nil, false
	}
	return items, true
}

// text renders a scalar or object as display text.
func text(raw json.RawMessage) string {
	if s, ok := asString(raw); ok {
		return s
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	switch raw[0] {
	case '{':
		if v := field(raw, "name", "title", "description", "content"); v != nil {
			return text(v)
		}
	case '[':
		return strings.Join(stringList(raw), "; ")
	}
	return string(raw)
}

func stringList(raw json.RawMessage) []string {
	if raw == nil {
		return []string{}
	}
	items, ok := array(raw)
	if !ok {
		if s := text(raw); s != "" {
			return []string{s}
		}
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := text(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// RefinedGoal extracts the refined goal from a refine reply.
func RefinedGoal(raw json.RawMessage) string {
	if s, ok := asString(raw); ok {
		return strings.TrimSpace(s)
	}
	if v := field(raw, "refinedGoal", "refined_goal"); v != nil {
		return strings.TrimSpace(text(v))
	}
	return ""
}

var nonLetters = regexp.MustCompile(`[^a-z]`)

// NormalizeLevel maps a numeric or textual level onto the four known levels.
func NormalizeLevel(raw json.RawMessage, fallback string) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fallback
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		levels := []string{model.LevelUnlearned, model.LevelBeginner, model.LevelIntermediate, model.LevelAdvanced}
		return levels[min(max(int(n), 0), 3)]
	}
	s := nonLetters.ReplaceAllString(strings.ToLower(text(raw)), "")
	switch s {
	case model.LevelUnlearned, model.LevelBeginner, model.LevelIntermediate, model.LevelAdvanced:
		return s
	case "novice":
		return model.LevelBeginner
	case "expert":
		return model.LevelAdvanced
	}
	return model.LevelBeginner
}

// SkillGaps normalizes a raw skill list.
func SkillGaps(raw json.RawMessage) []model.SkillGap {
	items, ok := array(raw)
	if !ok {
		return []model.SkillGap{}
	}
	out := make([]model.SkillGap, 0, len(items))
	for i, it := range items {
		g := model.SkillGap{
			Name:          text(field(it, "name", "skill_name")),
			RequiredLevel: NormalizeLevel(field(it, "required_level", "requiredLevel"), model.LevelIntermediate),
			CurrentLevel:  NormalizeLevel(field(it, "current_level", "currentLevel"), model.LevelBeginner),
			Analysis:      text(field(it, "analysis", "details", "summary")),
		}
		if g.Name == "" {
			g.Name = fmt.Sprintf("Skill %d", i+1)
		}
		if rec := field(it, "recommendations", "improvement_points", "suggestions"); rec != nil {
			g.Recommendations = stringList(rec)
		}
		var isGap bool
		if v := field(it, "is_gap"); v != nil && json.Unmarshal(v, &isGap) == nil {
			g.IsGap = isGap
		} else {
			g.IsGap = model.LevelRank(g.CurrentLevel) < model.LevelRank(g.RequiredLevel)
		}
		out = append(out, g)
	}
	return out
}

// CountGaps returns how many skills are flagged as gaps.
func CountGaps(gaps []model.SkillGap) int {
	n := 0
	for _, g := range gaps {
		if g.IsGap {
			n++
		}
	}
	return n
}

// LearnerProfile unwraps {"learner_profile": ...} and string-encoded profiles.
func LearnerProfile(raw json.RawMessage) json.RawMessage {
	if v := field(raw, "learner_profile"); v != nil {
		raw = v
	}
	raw = model.UnquoteJSON(raw)
	if s, ok := asString(raw); ok {
		wrapped, _ := json.Marshal(map[string]string{"raw": s})
		return wrapped
	}
	return raw
}

// SessionList returns the session array of a learning path payload, which may
// be an array or an object keyed by learning_path, sessions or steps.
func SessionList(raw json.RawMessage) []json.RawMessage {
	if items, ok := array(raw); ok {
		return items
	}
	if v := field(raw, "learning_path", "sessions", "steps"); v != nil {
		return SessionList(v)
	}
	return nil
}

// ParseLearningPath normalizes a schedule reply.
func ParseLearningPath(raw json.RawMessage) LearningPath {
	pathRaw := raw
	if v := field(raw, "learning_path"); v != nil {
		pathRaw = v
	}
	items := SessionList(pathRaw)
	sessions := make([]model.Session, 0, len(items))
	for i, it := range items {
		sessions = append(sessions, NormalizeSession(it, i))
	}
	return LearningPath{Sessions: sessions, Raw: model.UnquoteJSON(pathRaw)}
}

// NormalizeSession fills a session's defaults from its position.
func NormalizeSession(raw json.RawMessage, index int) model.Session {
	fallback := fmt.Sprintf("Session %d", index+1)
	s := model.Session{
		ID:               text(field(raw, "id")),
		Title:            text(field(raw, "title", "name")),
		Abstract:         text(field(raw, "abstract", "description")),
		DesiredOutcomes:  stringList(field(raw, "desired_outcome_when_completed")),
		AssociatedSkills: stringList(field(raw, "associated_skills")),
	}
	if s.ID == "" {
		s.ID = fallback
	}
	if s.Title == "" {
		s.Title = fallback
	}
	var learned bool
	if v := field(raw, "if_learned"); v != nil && json.Unmarshal(v, &learned) == nil {
		s.IfLearned = learned
	}
	return s
}

// KnowledgePoints accepts an array, {"knowledge_points": [...]} or a JSON string of either.
func KnowledgePoints(raw json.RawMessage) []json.RawMessage {
	if items, ok := array(raw); ok {
		return items
	}
	if v := field(raw, "knowledge_points"); v != nil {
		if items, ok := array(v); ok {
			return items
		}
	}
	return nil
}

// KnowledgeDrafts accepts an array or {"knowledge_drafts": [...]}.
func KnowledgeDrafts(raw json.RawMessage) []json.RawMessage {
	if items, ok := array(raw); ok {
		return items
	}
	if v := field(raw, "knowledge_drafts"); v != nil {
		if items, ok := array(v); ok {
			return items
		}
	}
	return nil
}

// Document extracts markdown from a string or {"learning_document"|"document": ...}.
func Document(raw json.RawMessage) string {
	if v := field(raw, "learning_document", "document"); v != nil {
		return Document(v)
	}
	if s, ok := asString(raw); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// QuizPayload unwraps {"document_quiz": ...} and string-encoded payloads.
func QuizPayload(raw json.RawMessage) json.RawMessage {
	if v := field(raw, "document_quiz"); v != nil {
		return model.UnquoteJSON(v)
	}
	return model.UnquoteJSON(raw)
}

// Reply extracts reply text from a string or {"response"|"message"|"result": ...}.
func Reply(raw json.RawMessage) string {
	if s, ok := asString(raw); ok {
		return s
	}
	if v := field(raw, "response", "message", "result"); v != nil {
		if s, ok := asString(v); ok {
			return s
		}
		return string(bytes.TrimSpace(v))
	}
	return string(bytes.TrimSpace(raw))
}

// PointLabel returns display text for a knowledge point or draft.
func PointLabel(raw json.RawMessage) (title, summary string) {
	if s, ok := asString(raw); ok {
		return s, ""
	}
	title = text(field(raw, "name", "title"))
	summary = text(field(raw, "summary", "description", "takeaways", "content"))
	return title, summary
}
