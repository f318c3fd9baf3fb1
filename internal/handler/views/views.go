// Package views renders the HTML of the shell and every page. Templates are
// embedded html/template files; each render binds translation, URL and CSRF
// helpers to the request context and is exposed as a templ.Component.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/mentor/internal/i18n"
	"github.com/pavelanni/mentor/internal/markdown"
	"github.com/pavelanni/mentor/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var base = template.Must(template.New("views").Funcs(template.FuncMap{
	"T":    func(string) string { return "" },
	"Tn":   func(string, int) string { return "" },
	"Td":   func(string, ...any) string { return "" },
	"url":  func(string) string { return "" },
	"csrf": func() string { return "" },
	"add":  func(a, b int) int { return a + b },
	"seq": func(n int) []int {
		s := make([]int, n)
		for i := range s {
			s[i] = i + 1
		}
		return s
	},
	"md": Markdown,
	"rating": func(field, value string) map[string]string {
		return map[string]string{
			"Field":   field,
			"Value":   value,
			"LabelID": "Feedback" + strings.ToUpper(field[:1]) + field[1:],
		}
	},
}).ParseFS(templateFS, "templates/*.html"))

// funcs binds the request-scoped helpers.
func funcs(ctx context.Context) template.FuncMap {
	bp := model.BasePathFromContext(ctx)
	return template.FuncMap{
		"T":  func(id string) string { return appI18n.T(ctx, id) },
		"Tn": func(id string, n int) string { return appI18n.Tp(ctx, id, n) },
		"Td": func(id string, kv ...any) string {
			data := make(map[string]any, len(kv)/2)
			for i := 0; i+1 < len(kv); i += 2 {
				if k, ok := kv[i].(string); ok {
					data[k] = kv[i+1]
				}
			}
			return appI18n.Td(ctx, id, data)
		},
		"url":  func(p string) string { return bp + p },
		"csrf": func() string { return model.CSRFTokenFromContext(ctx) },
	}
}

// component executes the named template with data.
func component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := base.Clone()
		if err != nil {
			return fmt.Errorf("clone templates: %w", err)
		}
		if err := t.Funcs(funcs(ctx)).ExecuteTemplate(w, name, data); err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
		return nil
	})
}

// Markdown renders sanitized markdown. A rendering failure shows the escaped
// source instead.
func Markdown(src string) template.HTML {
	out, err := markdown.Render(src)
	if err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(out)
}

// Message is one rendered chat turn.
type Message struct {
	Role    string
	Content string
}

// Messages converts chat history for display.
func Messages(msgs []model.ChatMessage) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// Placeholder renders a translated message in place of a page.
func Placeholder(msgID string) templ.Component {
	return component("placeholder", msgID)
}

// Flash renders alerts queued by the mounted page.
func Flash(alerts []string) templ.Component {
	return component("flash", alerts)
}

// Confirm asks the learner to confirm a pending action by reposting it with
// confirm=yes.
type Confirm struct {
	Message string
	Action  string
	Fields  map[string]string
}

// ConfirmBanner renders a confirmation prompt.
func ConfirmBanner(c Confirm) templ.Component {
	return component("confirm", c)
}

// Layout is the shell around the content region.
type Layout struct {
	Title   string
	Route   string
	Nav     []NavItem
	Content template.HTML
	Alerts  []string
	Live    bool
	Auth    bool
}

// NavItem is one navigation link.
type NavItem struct {
	Route   string
	LabelID string
	Active  bool
}

// Page renders the full document.
func Page(l Layout) templ.Component {
	return component("layout", l)
}

// Region renders only the content region and any alerts, for htmx swaps.
func Region(l Layout) templ.Component {
	return component("region", l)
}

// LoginPage renders the access password form.
func LoginPage(errMsg string) templ.Component {
	return component("login", errMsg)
}
