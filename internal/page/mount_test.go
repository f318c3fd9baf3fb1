package page

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/a-h/templ"
)

func text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func TestMountGenerations(t *testing.T) {
	ctx := context.Background()
	m := NewMount()
	changes := 0
	m.OnChange(func() { changes++ })

	gen := m.Clear()
	if err := m.Show(ctx, gen, text("<p>one</p>")); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if m.HTML() != "<p>one</p>" {
		t.Errorf("HTML = %q", m.HTML())
	}

	stale := gen
	gen = m.Clear()
	if m.HTML() != "" {
		t.Errorf("Clear left content %q", m.HTML())
	}
	if m.Alive(stale) {
		t.Error("old generation reported alive")
	}
	if err := m.Show(ctx, stale, text("<p>late</p>")); err != nil {
		t.Fatalf("Show stale: %v", err)
	}
	if m.HTML() != "" {
		t.Errorf("stale render committed: %q", m.HTML())
	}
	if !m.Alive(gen) {
		t.Error("current generation not alive")
	}
	if changes != 1 {
		t.Errorf("changes = %d, want 1", changes)
	}
}

func TestMountFailedRenderKeepsPreviousContent(t *testing.T) {
	ctx := context.Background()
	m := NewMount()
	gen := m.Clear()
	_ = m.Show(ctx, gen, text("<p>ok</p>"))

	broken := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, "<div><p>half")
		return errors.New("template exploded")
	})
	if err := m.Show(ctx, gen, broken); err == nil {
		t.Fatal("expected render error")
	}
	if m.HTML() != "<p>ok</p>" {
		t.Errorf("half-rendered content leaked: %q", m.HTML())
	}
}

func TestMountAlerts(t *testing.T) {
	m := NewMount()
	m.Alert("first")
	m.Alert("second")
	got := m.TakeAlerts()
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("TakeAlerts = %v", got)
	}
	if len(m.TakeAlerts()) != 0 {
		t.Error("alerts not drained")
	}
	m.Alert("dropped")
	m.Clear()
	if len(m.TakeAlerts()) != 0 {
		t.Error("Clear should drop queued alerts")
	}
}

func TestConfirm(t *testing.T) {
	if Confirm(context.Background(), "sure?") {
		t.Error("Confirm without confirmer should be false")
	}
	var asked string
	ctx := WithConfirmer(context.Background(), func(msg string) bool {
		asked = msg
		return true
	})
	if !Confirm(ctx, "Reset all quiz answers and coach sessions?") {
		t.Error("Confirm should return confirmer's answer")
	}
	if asked != "Reset all quiz answers and coach sessions?" {
		t.Errorf("confirmer saw %q", asked)
	}
}
