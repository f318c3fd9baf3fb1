package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/mentor/internal/gateway"
	appI18n "github.com/pavelanni/mentor/internal/i18n"
	"github.com/pavelanni/mentor/internal/model"
	"github.com/pavelanni/mentor/internal/page"
	"github.com/pavelanni/mentor/internal/state"
)

// Stage label message IDs, indexed from 1.
var stageLabels = [...]string{"", "Stage1", "Stage2", "Stage3", "Stage4"}

// StageCount is the number of pipeline stages.
const StageCount = 4

// stageError is a pipeline failure shown to the learner as the message with
// this ID.
type stageError string

func (e stageError) Error() string { return string(e) }

const (
	errNoPoints   stageError = "ErrorNoKnowledgePoints"
	errNoDrafts   stageError = "ErrorNoKnowledgeDrafts"
	errNoDocument stageError = "ErrorEmptyDocument"
)

const confirmRegenerate = "ConfirmRegenerate"

// errorText localizes a pipeline failure.
func errorText(ctx context.Context, err error) string {
	var se stageError
	if errors.As(err, &se) {
		return appI18n.T(ctx, string(se))
	}
	return appI18n.Td(ctx, "ErrorContentFailed", map[string]any{"Detail": err.Error()})
}

type pipelineInput struct {
	uid     string
	profile json.RawMessage
	req     gateway.SessionRequest
}

// startPipelineLocked marks the mounted session as generating and runs the
// four stages in the background. Callers hold c.mu.
func (c *Controller) startPipelineLocked(ctx context.Context) {
	if c.goal == nil || c.session == nil || c.uid == "" {
		return
	}
	in := pipelineInput{
		uid:     c.uid,
		profile: c.goal.LearnerProfile,
		req: gateway.SessionRequest{
			LearnerProfile: c.goal.LearnerProfile,
			LearningPath:   c.pathPayload,
			Session:        sessionPayload(c.pathPayload, c.sessionIndex, *c.session),
		},
	}
	c.inflight[in.uid]++
	c.stage = 1

	c.wg.Add(1)
	go c.runPipeline(ctx, in)
}

func (c *Controller) runPipeline(ctx context.Context, in pipelineInput) {
	defer c.wg.Done()
	start := time.Now()
	content, err := c.generate(ctx, in)
	pipelineDuration.Observe(time.Since(start).Seconds())

	c.mu.Lock()
	c.inflight[in.uid]--
	if c.inflight[in.uid] <= 0 {
		delete(c.inflight, in.uid)
	}
	live := c.uid == in.uid
	if live {
		c.stage = 0
	}
	if err != nil {
		pipelineRuns.WithLabelValues("error").Inc()
		slog.Error("failed to prepare learning content", "session_uid", in.uid, "error", err)
		if live {
			c.err = err
			c.errUID = in.uid
		}
		c.mu.Unlock()
		c.rerender(ctx, in.uid)
		return
	}
	pipelineRuns.WithLabelValues("ok").Inc()

	c.store.Update(func(s model.Snapshot) state.Patch {
		return state.Patch{DocumentCaches: state.Ptr(state.WithEntry(s.DocumentCaches, in.uid, content))}
	})
	if !live {
		c.mu.Unlock()
		return
	}
	c.content = &content
	c.deriveArtifactsLocked()
	c.ensureSessionLearningMetaLocked()
	showQuizzes := len(c.sections) <= 1
	section := c.ks.CurrentSectionIndex
	c.mu.Unlock()

	c.modify(ctx, in.uid, func(ks *model.KnowledgeSessionState) bool {
		ks.CurrentSectionIndex = section
		ks.ShowQuizzes = showQuizzes
		return true
	})
}

// generate runs explore, draft, integrate and quiz generation in order. The
// first three must produce content; an empty quiz set is accepted.
func (c *Controller) generate(ctx context.Context, in pipelineInput) (model.LearningContent, error) {
	c.setStage(ctx, in.uid, 1)
	points, err := c.backend.ExploreKnowledgePoints(ctx, in.req)
	if err != nil {
		return model.LearningContent{}, fmt.Errorf("explore knowledge points: %w", err)
	}
	if len(points) == 0 {
		return model.LearningContent{}, errNoPoints
	}

	c.setStage(ctx, in.uid, 2)
	drafts, err := c.backend.DraftKnowledgePoints(ctx, in.req, points)
	if err != nil {
		return model.LearningContent{}, fmt.Errorf("draft knowledge points: %w", err)
	}
	if len(drafts) == 0 {
		return model.LearningContent{}, errNoDrafts
	}

	c.setStage(ctx, in.uid, 3)
	document, err := c.backend.IntegrateLearningDocument(ctx, in.req, points, drafts)
	if err != nil {
		return model.LearningContent{}, fmt.Errorf("integrate learning document: %w", err)
	}
	if document == "" {
		return model.LearningContent{}, errNoDocument
	}

	c.setStage(ctx, in.uid, 4)
	quizzes, err := c.backend.GenerateDocumentQuizzes(ctx, in.profile, document, c.counts)
	if err != nil {
		return model.LearningContent{}, fmt.Errorf("generate document quizzes: %w", err)
	}

	return model.LearningContent{
		Document:        document,
		KnowledgePoints: points,
		KnowledgeDrafts: drafts,
		Quizzes:         quizzes,
		GeneratedAt:     c.now(),
	}, nil
}

func (c *Controller) setStage(ctx context.Context, uid string, step int) {
	c.mu.Lock()
	if c.uid == uid {
		c.stage = step
	}
	c.mu.Unlock()
	slog.Debug("pipeline stage", "session_uid", uid, "stage", stageLabels[step])
	c.rerender(ctx, uid)
}

// regenerate drops the cached content, quiz answers and toasts of the mounted
// session and runs the pipeline again.
func (c *Controller) regenerate(ctx context.Context) {
	if !page.Confirm(ctx, appI18n.T(ctx, confirmRegenerate)) {
		return
	}
	c.mu.Lock()
	uid := c.uid
	if uid == "" || c.inflight[uid] > 0 {
		c.mu.Unlock()
		return
	}
	c.content = nil
	c.sections = nil
	c.quizItems = nil
	c.err = nil
	c.errUID = ""
	ks := cloneSessionState(c.ks)
	ks.QuizState = map[string]model.QuizAnswerState{}
	ks.ToastMessages = []model.Toast{}
	c.ks = ks
	c.store.Update(func(s model.Snapshot) state.Patch {
		return state.Patch{
			DocumentCaches:        state.Ptr(state.WithoutEntry(s.DocumentCaches, uid)),
			KnowledgeSessionState: state.Ptr(state.WithEntry(s.KnowledgeSessionState, uid, ks)),
		}
	})
	c.mu.Unlock()

	slog.Info("regenerating learning content", "session_uid", uid)
	c.rerender(ctx, uid)
}
