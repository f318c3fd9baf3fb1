package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// QuizType identifies one of the four quiz item variants.
type QuizType string

const (
	QuizSingleChoice   QuizType = "single_choice"
	QuizMultipleChoice QuizType = "multiple_choice"
	QuizTrueFalse      QuizType = "true_false"
	QuizShortAnswer    QuizType = "short_answer"
)

// QuizItem is one question derived from the quiz payload.
type QuizItem struct {
	ID          string
	Type        QuizType
	Question    string
	Explanation string

	Options        []string // single and multiple choice
	CorrectOption  int      // single choice
	CorrectOptions []int    // multiple choice
	CorrectAnswer  bool     // true/false
	ExpectedAnswer string   // short answer
}

// QuizPayload is the backend's quiz document. Numeric and boolean fields may
// arrive as pre-serialized strings.
type QuizPayload struct {
	SingleChoice   []ChoiceQuestion    `json:"single_choice_questions"`
	MultipleChoice []ChoiceQuestion    `json:"multiple_choice_questions"`
	TrueFalse      []TrueFalseQuestion `json:"true_false_questions"`
	ShortAnswer    []ShortQuestion     `json:"short_answer_questions"`
}

// Len returns the number of questions across all buckets.
func (p QuizPayload) Len() int {
	return len(p.SingleChoice) + len(p.MultipleChoice) + len(p.TrueFalse) + len(p.ShortAnswer)
}

// ChoiceQuestion is a single or multiple choice question.
type ChoiceQuestion struct {
	Question       string    `json:"question"`
	Options        []string  `json:"options"`
	CorrectOption  FlexInt   `json:"correct_option"`
	CorrectOptions []FlexInt `json:"correct_options"`
	Explanation    string    `json:"explanation"`
}

// TrueFalseQuestion is a true/false question. CorrectAnswer is nil when absent.
type TrueFalseQuestion struct {
	Question      string    `json:"question"`
	CorrectAnswer *FlexBool `json:"correct_answer"`
	Explanation   string    `json:"explanation"`
}

// ShortQuestion is a short answer question.
type ShortQuestion struct {
	Question       string `json:"question"`
	ExpectedAnswer string `json:"expected_answer"`
	Explanation    string `json:"explanation"`
}

// ParseQuizPayload decodes a raw quiz payload. The payload may be wrapped in
// {"document_quiz": ...} and either level may be a JSON-encoded string.
func ParseQuizPayload(raw json.RawMessage) (QuizPayload, error) {
	var p QuizPayload
	raw = UnquoteJSON(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return p, nil
	}
	var wrapper struct {
		DocumentQuiz json.RawMessage `json:"document_quiz"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.DocumentQuiz) > 0 {
		raw = UnquoteJSON(wrapper.DocumentQuiz)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return QuizPayload{}, err
	}
	return p, nil
}

// UnquoteJSON unwraps a JSON string whose content is itself JSON.
func UnquoteJSON(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return trimmed
	}
	inner := strings.TrimSpace(s)
	if inner == "" || (inner[0] != '{' && inner[0] != '[') {
		return trimmed
	}
	if !json.Valid([]byte(inner)) {
		return trimmed
	}
	return json.RawMessage(inner)
}

// FlexInt decodes a JSON number or numeric string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(n)
	return nil
}

// FlexBool decodes a JSON boolean or a "true"/"false" string.
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(b []byte) error {
	s := strings.ToLower(strings.Trim(string(bytes.TrimSpace(b)), `"`))
	*f = FlexBool(s == "true" || s == "1")
	return nil
}
