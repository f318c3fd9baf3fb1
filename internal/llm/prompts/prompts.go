package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/mentor/internal/model"
)

// Templates holds the built-in prompt templates.
//
//go:embed templates/*.txt
var Templates embed.FS

var (
	learnerProfileRegex     = regexp.MustCompile(`(?i)</?\s*learner-profile\b[^>]*>`)
	learningTopicRegex      = regexp.MustCompile(`(?i)</?\s*learning-topic\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxMessageRunes = 10000

var templateNames = []string{"tutor_system", "tutor_task", "socratic_system", "socratic_task"}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[string]*template.Template
)

// TutorData holds template data for tutor chat prompts.
type TutorData struct {
	LearnerProfile string
	History        string
	Language       string
}

// SocraticData holds template data for Socratic assessment prompts.
type SocraticData struct {
	Topic    string
	History  string
	Language string
}

// Load loads prompt templates from fsys.
// It uses sync.Once to ensure templates are loaded only once.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		templates = make(map[string]*template.Template)
		for _, name := range templateNames {
			file := "templates/" + name + ".txt"
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = errors.New("failed to read prompt file " + file + ": " + err.Error())
				return
			}
			tmpl, err := template.New(name).Parse(string(content))
			if err != nil {
				loadErr = errors.New("failed to parse prompt template " + file + ": " + err.Error())
				return
			}
			templates[name] = tmpl
		}
	})
	return loadErr
}

func execute(name string, data any) (string, error) {
	if templates == nil {
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := templates[name]
	if !ok {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("unknown prompt template: " + name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// BuildTutorPrompts renders the system and task prompts for tutor chat.
func BuildTutorPrompts(profile string, messages []model.ChatMessage, language string) (system, task string, err error) {
	profile = sanitize(profile, learnerProfileRegex)
	if profile == "" {
		profile = "[Not provided]"
	}
	data := TutorData{
		LearnerProfile: profile,
		History:        FormatHistory(messages),
		Language:       language,
	}
	if system, err = execute("tutor_system", data); err != nil {
		return "", "", err
	}
	if task, err = execute("tutor_task", data); err != nil {
		return "", "", err
	}
	return system, task, nil
}

// BuildSocraticPrompts renders the system and task prompts for a Socratic turn.
func BuildSocraticPrompts(topic string, messages []model.ChatMessage, language string) (system, task string, err error) {
	data := SocraticData{
		Topic:    sanitize(topic, learningTopicRegex),
		History:  FormatHistory(messages),
		Language: language,
	}
	if system, err = execute("socratic_system", data); err != nil {
		return "", "", err
	}
	if task, err = execute("socratic_task", data); err != nil {
		return "", "", err
	}
	return system, task, nil
}

// FormatHistory renders a conversation as a plain transcript.
func FormatHistory(messages []model.ChatMessage) string {
	if len(messages) == 0 {
		return "[No messages yet]"
	}
	var sb strings.Builder
	for _, m := range messages {
		role := "Learner"
		if m.Role == model.RoleAssistant {
			role = "Tutor"
		}
		content := sanitize(m.Content, nil)
		if content == "" {
			content = "[Empty message]"
		}
		sb.WriteString(role + ": " + content + "\n\n")
	}
	return strings.TrimSpace(sb.String())
}

// sanitize strips tags that could close a prompt section and bounds the length.
func sanitize(s string, section *regexp.Regexp) string {
	if section != nil {
		s = section.ReplaceAllString(s, "")
	}
	s = systemInstructionsRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) > maxMessageRunes {
		runes := []rune(s)
		s = string(runes[:maxMessageRunes]) + "\n\n[Message truncated due to length]"
	}
	return s
}
