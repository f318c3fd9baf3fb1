package knowledge

import (
	"context"

	"github.com/pavelanni/mentor/internal/model"
)

// goToSection moves to section index. Out-of-range moves and moves to the
// current section write nothing. Reaching the last section reveals the quizzes.
func (c *Controller) goToSection(ctx context.Context, index int) {
	c.mu.Lock()
	uid := c.uid
	count := len(c.sections)
	c.mu.Unlock()
	if index < 0 || index >= count {
		return
	}
	c.modify(ctx, uid, func(ks *model.KnowledgeSessionState) bool {
		if ks.CurrentSectionIndex == index {
			return false
		}
		ks.CurrentSectionIndex = index
		if index == count-1 {
			ks.ShowQuizzes = true
		}
		return true
	})
}

func (c *Controller) nextSection(ctx context.Context) {
	c.goToSection(ctx, c.sectionIndex()+1)
}

func (c *Controller) prevSection(ctx context.Context) {
	c.goToSection(ctx, c.sectionIndex()-1)
}

func (c *Controller) sectionIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ks.CurrentSectionIndex
}

// unlockQuizzes reveals the quizzes before the last section is reached.
func (c *Controller) unlockQuizzes(ctx context.Context) {
	c.modify(ctx, c.current(), func(ks *model.KnowledgeSessionState) bool {
		if ks.ShowQuizzes {
			return false
		}
		ks.ShowQuizzes = true
		return true
	})
}
