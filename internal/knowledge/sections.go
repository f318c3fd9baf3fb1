package knowledge

import (
	"regexp"
	"strings"

	"github.com/pavelanni/mentor/internal/markdown"
	"github.com/pavelanni/mentor/internal/model"
)

// Section is one page of the learning document.
type Section struct {
	Title   string
	Content string
	Anchor  string
}

var headingRe = regexp.MustCompile(`(?m)^##[ \t]+(.+)$`)

// SplitSections splits a markdown document on second-level headings. Content
// before the first heading becomes a section titled with the session title.
// Empty chunks are dropped. A document without headings, or an empty one,
// yields a single section holding the whole document.
func SplitSections(doc, sessionTitle string) []Section {
	title := sessionTitle
	if title == "" {
		title = "Overview"
	}

	var sections []Section
	add := func(title, body string) {
		body = strings.TrimSpace(body)
		if body == "" {
			return
		}
		sections = append(sections, Section{Title: title, Content: body, Anchor: markdown.Slugify(title)})
	}

	last := 0
	for _, m := range headingRe.FindAllStringSubmatchIndex(doc, -1) {
		add(title, doc[last:m[0]])
		title = strings.TrimSpace(doc[m[2]:m[3]])
		last = m[1]
	}
	add(title, doc[last:])

	if len(sections) == 0 {
		fallback := sessionTitle
		if fallback == "" {
			fallback = "Session Document"
		}
		sections = []Section{{Title: fallback, Content: doc, Anchor: "session-document"}}
	}
	return sections
}

// deriveArtifactsLocked rebuilds sections, quiz items and quiz answer defaults
// from the cached content. Callers hold c.mu.
func (c *Controller) deriveArtifactsLocked() {
	if c.content == nil {
		return
	}
	title := ""
	if c.session != nil {
		title = c.session.Title
	}
	c.sections = SplitSections(c.content.Document, title)
	c.ks.CurrentSectionIndex = min(max(c.ks.CurrentSectionIndex, 0), len(c.sections)-1)

	c.quizItems = QuizItems(c.content.Quizzes)
	c.ks.QuizState = withQuizDefaults(c.quizItems, c.ks.QuizState)
}

// withQuizDefaults keeps the stored state of every current item and creates
// the unanswered default for the rest. State of items no longer present is
// dropped.
func withQuizDefaults(items []model.QuizItem, prior map[string]model.QuizAnswerState) map[string]model.QuizAnswerState {
	out := make(map[string]model.QuizAnswerState, len(items))
	for _, it := range items {
		st, ok := prior[it.ID]
		if !ok {
			st = model.NewQuizAnswerState(it.Type)
		}
		st.Type = it.Type
		if st.Status == "" {
			st.Status = model.StatusUnanswered
		}
		out[it.ID] = st
	}
	return out
}
