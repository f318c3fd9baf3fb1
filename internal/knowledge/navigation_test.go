package knowledge

import (
	"context"
	"net/url"
	"testing"

	"github.com/pavelanni/mentor/internal/model"
)

func TestSectionNavigation(t *testing.T) {
	b := newFakeBackend()
	f := readyFixture(t, b, model.KnowledgeSessionState{})
	ctx := context.Background()

	puts := f.storage.Puts()
	if err := f.c.HandleAction(ctx, "prev-section", url.Values{}); err != nil {
		t.Fatal(err)
	}
	if f.storage.Puts() != puts {
		t.Error("prev at the first section wrote state")
	}

	if err := f.c.HandleAction(ctx, "next-section", url.Values{}); err != nil {
		t.Fatal(err)
	}
	ks := f.sessionState()
	if ks.CurrentSectionIndex != 1 || ks.ShowQuizzes {
		t.Errorf("after next: index=%d showQuizzes=%v", ks.CurrentSectionIndex, ks.ShowQuizzes)
	}

	if err := f.c.HandleAction(ctx, "jump-section", url.Values{"index": {"2"}}); err != nil {
		t.Fatal(err)
	}
	ks = f.sessionState()
	if ks.CurrentSectionIndex != 2 || !ks.ShowQuizzes {
		t.Errorf("at last section: index=%d showQuizzes=%v", ks.CurrentSectionIndex, ks.ShowQuizzes)
	}

	puts = f.storage.Puts()
	for _, form := range []url.Values{{"index": {"3"}}, {"index": {"-1"}}, {"index": {"2"}}} {
		if err := f.c.HandleAction(ctx, "jump-section", form); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.c.HandleAction(ctx, "next-section", url.Values{}); err != nil {
		t.Fatal(err)
	}
	if f.storage.Puts() != puts {
		t.Error("no-op moves wrote state")
	}

	// Going back keeps the quizzes revealed.
	if err := f.c.HandleAction(ctx, "jump-section", url.Values{"index": {"0"}}); err != nil {
		t.Fatal(err)
	}
	if ks = f.sessionState(); ks.CurrentSectionIndex != 0 || !ks.ShowQuizzes {
		t.Errorf("after going back: index=%d showQuizzes=%v", ks.CurrentSectionIndex, ks.ShowQuizzes)
	}

	if err := f.c.HandleAction(ctx, "jump-section", url.Values{"index": {"x"}}); err == nil {
		t.Error("expected error for a non-numeric index")
	}
}

func TestUnlockQuizzes(t *testing.T) {
	f := readyFixture(t, newFakeBackend(), model.KnowledgeSessionState{})
	ctx := context.Background()

	if err := f.c.HandleAction(ctx, "unlock-quizzes", url.Values{}); err != nil {
		t.Fatal(err)
	}
	if !f.sessionState().ShowQuizzes {
		t.Fatal("quizzes not revealed")
	}
	puts := f.storage.Puts()
	if err := f.c.HandleAction(ctx, "unlock-quizzes", url.Values{}); err != nil {
		t.Fatal(err)
	}
	if f.storage.Puts() != puts {
		t.Error("second unlock wrote state")
	}
	if f.sessionState().CurrentSectionIndex != 0 {
		t.Error("unlocking moved the current section")
	}
}
