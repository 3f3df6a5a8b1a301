package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsPoster/internal/domain"
	"NewsPoster/internal/filter"
	"NewsPoster/internal/ports"
	"NewsPoster/internal/schedule"
	"NewsPoster/internal/strategy"
)

// Cycle states, logged as the orchestrator advances.
const (
	stateWindowCheck     = "window_check"
	stateQuotaCheck      = "quota_check"
	stateCandidateSelect = "candidate_select"
	stateContentGenerate = "content_generate"
	statePublishing      = "publishing"
	stateRecording       = "recording"
)

// OrchestratorDeps wires all collaborators into the publication driver.
type OrchestratorDeps struct {
	Source    ports.FeedSource
	Filter    *filter.Filter
	Selector  *strategy.Selector
	Gate      *schedule.Gate
	Quota     ports.QuotaTracker
	Recorder  ports.Recorder
	TextGen   ports.TextGenerator
	ImageGen  ports.ImageGenerator
	Publisher ports.Publisher
	Extractor ports.ContentExtractor
	Clock     func() time.Time
	Logger    *slog.Logger
}

// Orchestrator runs one publication cycle at a time: consult the gate and
// quota, pick a candidate, generate content, publish, and record with
// all-or-nothing accounting. A failed cycle writes nothing, so the candidate
// stays eligible and the window stays unfired.
type Orchestrator struct {
	deps OrchestratorDeps

	// mu serializes cycles; overlapping ticks are coalesced, not queued.
	mu sync.Mutex
}

// NewOrchestrator constructs the driver. A nil Clock defaults to time.Now.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Orchestrator{deps: deps}
}

// RunCycle executes one full cycle. If a cycle is already in flight the
// tick is skipped and RunCycle returns nil.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	if !o.mu.TryLock() {
		o.debug("cycle already running, tick skipped")
		return nil
	}
	defer o.mu.Unlock()

	now := o.deps.Clock()

	o.debug("cycle state", "state", stateWindowCheck)
	window, err := o.deps.Gate.ShouldFire(ctx, now)
	if err != nil {
		return fmt.Errorf("window check: %w", err)
	}
	if window == nil {
		return nil
	}

	o.debug("cycle state", "state", stateQuotaCheck, "window", window.TimeOfDay)
	remaining, err := o.deps.Quota.RemainingToday(ctx, now)
	if err != nil {
		return fmt.Errorf("quota check: %w", err)
	}
	if remaining == 0 {
		// Quota is per-day, so retrying this window later today could never
		// succeed: burn it.
		o.info("daily quota exhausted, no post this cycle", "window", window.TimeOfDay)
		return o.deps.Gate.MarkFired(ctx, *window, now)
	}

	o.debug("cycle state", "state", stateCandidateSelect)
	candidate, ok, err := o.selectCandidate(ctx, now)
	if err != nil {
		return err
	}
	if !ok {
		// Nothing to post is a successful outcome, not a failure.
		o.info("no eligible candidates, window fired empty", "window", window.TimeOfDay)
		return o.deps.Gate.MarkFired(ctx, *window, now)
	}

	o.debug("cycle state", "state", stateContentGenerate, "url", candidate.URL)
	plan, texts, mediaHandle, err := o.generate(ctx, candidate)
	if err != nil {
		return fmt.Errorf("cycle aborted for %s: %w", candidate.URL, err)
	}

	o.debug("cycle state", "state", statePublishing, "shape", plan.Shape, "segments", len(texts))
	postIDs, err := o.publish(ctx, texts, mediaHandle)
	if err != nil {
		// Already-published segments stay live but nothing is recorded, so
		// the candidate remains eligible next cycle (at-least-once).
		return fmt.Errorf("cycle aborted for %s after %d segments: %w", candidate.URL, len(postIDs), err)
	}

	o.debug("cycle state", "state", stateRecording)
	rec := domain.PublicationRecord{
		URL:      candidate.URL,
		PostedAt: now,
		Shape:    plan.Shape,
		PostIDs:  postIDs,
	}
	if err := o.deps.Recorder.CommitPublication(ctx, rec, now); err != nil {
		if errors.Is(err, domain.ErrDuplicateURL) {
			// Benign race with another recorder: the URL is already owned.
			o.warn("duplicate url during recording, skipping", "url", candidate.URL)
			return o.deps.Gate.MarkFired(ctx, *window, now)
		}
		return fmt.Errorf("recording %s: %w", candidate.URL, err)
	}

	o.info("published", "url", candidate.URL, "shape", plan.Shape, "posts", len(postIDs))
	return o.deps.Gate.MarkFired(ctx, *window, now)
}

func (o *Orchestrator) selectCandidate(ctx context.Context, now time.Time) (domain.CandidateItem, bool, error) {
	items, err := o.deps.Source.Fetch(ctx, now)
	if err != nil {
		return domain.CandidateItem{}, false, fmt.Errorf("fetch candidates: %w", err)
	}

	eligible, err := o.deps.Filter.Filter(ctx, items, now)
	if err != nil {
		return domain.CandidateItem{}, false, fmt.Errorf("filter candidates: %w", err)
	}
	if len(eligible) == 0 {
		return domain.CandidateItem{}, false, nil
	}

	candidate := eligible[0]
	if candidate.BodyText == "" && o.deps.Extractor != nil {
		body, err := o.deps.Extractor.Extract(ctx, candidate.URL)
		if err != nil {
			o.warn("readable extraction failed, using title", "url", candidate.URL, "error", err)
		} else {
			candidate.BodyText = body
		}
	}

	return candidate, true, nil
}

// generate runs every request of the plan in order. Any failure aborts the
// whole plan: no partially generated content is ever published.
func (o *Orchestrator) generate(ctx context.Context, candidate domain.CandidateItem) (domain.ContentPlan, []string, string, error) {
	plan := o.deps.Selector.Select(candidate)

	if plan.Shape == domain.ShapeThread && len(plan.Requests) < 2 {
		return plan, nil, "", fmt.Errorf("thread plan with %d segments", len(plan.Requests))
	}

	texts := make([]string, 0, len(plan.Requests))
	for i, req := range plan.Requests {
		text, err := o.deps.TextGen.Generate(ctx, req)
		if err != nil {
			return plan, nil, "", fmt.Errorf("segment %d: %w", i+1, err)
		}
		texts = append(texts, text)
	}

	var mediaHandle string
	if plan.WithImage() {
		handle, err := o.deps.ImageGen.GenerateImage(ctx, plan.ImagePrompt)
		if err != nil {
			return plan, nil, "", err
		}
		mediaHandle = handle
	}

	return plan, texts, mediaHandle, nil
}

// publish submits segments strictly in order; each carries the previous
// segment's post id as its reply target. Media attaches to the anchor only.
func (o *Orchestrator) publish(ctx context.Context, texts []string, mediaHandle string) ([]string, error) {
	postIDs := make([]string, 0, len(texts))
	replyTo := ""

	for i, text := range texts {
		req := ports.PublishRequest{
			Text:           text,
			ReplyTo:        replyTo,
			IdempotencyKey: uuid.NewString(),
		}
		if i == 0 {
			req.MediaHandle = mediaHandle
		}

		id, err := o.deps.Publisher.Publish(ctx, req)
		if err != nil {
			return postIDs, fmt.Errorf("segment %d: %w", i+1, err)
		}

		postIDs = append(postIDs, id)
		replyTo = id
	}

	return postIDs, nil
}

func (o *Orchestrator) debug(msg string, args ...any) {
	if o.deps.Logger != nil {
		o.deps.Logger.Debug(msg, args...)
	}
}

func (o *Orchestrator) info(msg string, args ...any) {
	if o.deps.Logger != nil {
		o.deps.Logger.Info(msg, args...)
	}
}

func (o *Orchestrator) warn(msg string, args ...any) {
	if o.deps.Logger != nil {
		o.deps.Logger.Warn(msg, args...)
	}
}
