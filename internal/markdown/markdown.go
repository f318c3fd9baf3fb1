// Package markdown renders generated learning documents to sanitized HTML.
package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	md = goldmark.New(goldmark.WithExtensions(extension.GFM))

	// Backend documents are untrusted.
	policy = bluemonday.UGCPolicy()

	nonSlug = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// Render converts markdown to HTML safe to embed in a page.
func Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}

// Slugify turns a heading into an anchor id.
func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
