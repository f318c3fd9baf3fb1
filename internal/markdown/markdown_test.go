package markdown

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    []string
		notWant []string
	}{
		{
			name: "heading and emphasis",
			src:  "## Leader election\n\nA *term* is a logical clock.",
			want: []string{"<h2", "Leader election</h2>", "<em>term</em>"},
		},
		{
			name: "table",
			src:  "| a | b |\n|---|---|\n| 1 | 2 |",
			want: []string{"<table>", "<td>1</td>"},
		},
		{
			name:    "script stripped",
			src:     "hello <script>alert(1)</script>",
			want:    []string{"hello"},
			notWant: []string{"<script"},
		},
		{
			name:    "javascript link stripped",
			src:     "[x](javascript:alert(1))",
			notWant: []string{"javascript:"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.src)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q:\n%s", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("output contains %q:\n%s", w, got)
				}
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Leader Election", "leader-election"},
		{"  Log replication: safety!  ", "log-replication-safety"},
		{"리더 선출", "리더-선출"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
