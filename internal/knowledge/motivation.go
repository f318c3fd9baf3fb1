package knowledge

import (
	"context"
	"log/slog"
	"slices"
	"time"

	appI18n "github.com/pavelanni/mentor/internal/i18n"
	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/state"
)

// MaxToasts is how many motivation toasts a session keeps.
const MaxToasts = 3

// motivationMessages are message IDs; toasts store the localized text.
var motivationMessages = [2]string{"MotivationHealth", "MotivationKeepGoing"}

// ensureSessionLearningMeta starts the session clock the first time content is
// shown for the hydrated session.
func (c *Controller) ensureSessionLearningMeta() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureSessionLearningMetaLocked()
}

func (c *Controller) ensureSessionLearningMetaLocked() {
	if c.uid == "" || c.meta != nil {
		return
	}
	now := c.now()
	meta := model.SessionLearningMeta{StartTime: now, LastTriggerTime: now, TriggerHistory: []time.Time{now}}
	c.meta = &meta
	uid := c.uid
	c.store.Update(func(s model.Snapshot) state.Patch {
		return state.Patch{SessionLearningTimes: state.Ptr(state.WithEntry(s.SessionLearningTimes, uid, meta))}
	})
}

// startTickerLocked runs checkMotivation every interval until Unmount. Callers
// hold c.mu.
func (c *Controller) startTickerLocked(ctx context.Context) {
	stop := make(chan struct{})
	c.tickerStop = stop
	interval := c.interval

	c.tickerWG.Add(1)
	go func() {
		defer c.tickerWG.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				c.checkMotivation(ctx)
			}
		}
	}()
}

// checkMotivation shows the next motivation toast when a full interval has
// passed since the last one. It reports whether a toast was added.
func (c *Controller) checkMotivation(ctx context.Context) bool {
	c.mu.Lock()
	if c.uid == "" || c.meta == nil || c.content == nil {
		c.mu.Unlock()
		return false
	}
	now := c.now()
	meta := *c.meta
	if now.Sub(meta.LastTriggerTime) < c.interval {
		c.mu.Unlock()
		return false
	}

	id := motivationMessages[1]
	if len(meta.TriggerHistory)%2 == 0 {
		id = motivationMessages[0]
	}
	msg := appI18n.T(ctx, id)
	meta.LastTriggerTime = now
	meta.TriggerHistory = append(slices.Clone(meta.TriggerHistory), now)

	ks := cloneSessionState(c.ks)
	toasts := append(slices.Clone(ks.ToastMessages), model.Toast{Message: msg, At: now})
	if len(toasts) > MaxToasts {
		toasts = toasts[len(toasts)-MaxToasts:]
	}
	ks.ToastMessages = toasts

	uid := c.uid
	c.meta = &meta
	c.ks = ks
	c.store.Update(func(s model.Snapshot) state.Patch {
		return state.Patch{
			SessionLearningTimes:  state.Ptr(state.WithEntry(s.SessionLearningTimes, uid, meta)),
			KnowledgeSessionState: state.Ptr(state.WithEntry(s.KnowledgeSessionState, uid, ks)),
		}
	})
	c.mu.Unlock()

	motivationToasts.Inc()
	slog.Debug("motivation toast", "session_uid", uid, "count", len(meta.TriggerHistory))
	c.rerender(ctx, uid)
	return true
}
