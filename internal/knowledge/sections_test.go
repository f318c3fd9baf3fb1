package knowledge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitSections(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		title string
		want  []Section
	}{
		{
			name:  "intro and headings",
			doc:   "Intro text.\n\n## Terms\nOne leader.\n\n## Elections\nVotes.",
			title: "Raft Basics",
			want: []Section{
				{Title: "Raft Basics", Content: "Intro text.", Anchor: "raft-basics"},
				{Title: "Terms", Content: "One leader.", Anchor: "terms"},
				{Title: "Elections", Content: "Votes.", Anchor: "elections"},
			},
		},
		{
			name:  "empty chunks dropped",
			doc:   "## Empty\n\n## Full\nBody",
			title: "S",
			want:  []Section{{Title: "Full", Content: "Body", Anchor: "full"}},
		},
		{
			name:  "no headings",
			doc:   "Just a paragraph.",
			title: "Raft Basics",
			want:  []Section{{Title: "Raft Basics", Content: "Just a paragraph.", Anchor: "raft-basics"}},
		},
		{
			name:  "third-level headings stay in the body",
			doc:   "## Top\n### Sub\ntext",
			title: "S",
			want:  []Section{{Title: "Top", Content: "### Sub\ntext", Anchor: "top"}},
		},
		{
			name:  "bare marker does not take the next line as a title",
			doc:   "Intro.\n##\nStill intro.\n## Real\nBody",
			title: "S",
			want: []Section{
				{Title: "S", Content: "Intro.\n##\nStill intro.", Anchor: "s"},
				{Title: "Real", Content: "Body", Anchor: "real"},
			},
		},
		{
			name: "empty document",
			doc:  "",
			want: []Section{{Title: "Session Document", Content: "", Anchor: "session-document"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSections(tt.doc, tt.title)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SplitSections (-want +got):\n%s", diff)
			}
		})
	}
}
