package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/browserpilot/browserpilot/internal/config"
	"github.com/browserpilot/browserpilot/internal/relay"
)

// completionPollInterval is how often relay-backed tools re-check their
// request while waiting for the client to fulfill it.
const completionPollInterval = 100 * time.Millisecond

// awaitCompletion watches a relay entry until it completes or the wait
// expires. It reports whether completion was observed.
func awaitCompletion(ctx context.Context, q *relay.Queue, id string, wait time.Duration) bool {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(completionPollInterval)
	defer ticker.Stop()

	for {
		if req, ok := q.Get(id); ok && req.Completed() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// OpenNewTab enqueues an open-tab relay request for the sandboxed client.
// Tab creation is fire-and-forget: once enqueued, the tool reports success
// whether or not it sees the completion within the bounded wait.
type OpenNewTab struct {
	queue  *relay.Queue
	cfg    config.RelayConfig
	logger *zap.Logger
}

func NewOpenNewTab(queue *relay.Queue, cfg config.RelayConfig, logger *zap.Logger) *OpenNewTab {
	return &OpenNewTab{queue: queue, cfg: cfg, logger: logger.Named("tool.open_new_tab")}
}

func (t *OpenNewTab) Name() string { return "open_new_tab" }

func (t *OpenNewTab) Description() string {
	return "Opens a URL in a new browser tab. Input: {\"url\": string, \"label\": string (optional)}."
}

type openTabParams struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

func (t *OpenNewTab) Call(ctx context.Context, input map[string]any) (Observation, error) {
	var p openTabParams
	if err := decodeInput(input, &p); err != nil {
		return Observation{}, err
	}
	if p.URL == "" {
		return Observation{}, &ValidationError{Field: "url", Reason: "must not be empty"}
	}

	id := t.queue.Enqueue(relay.KindOpenTab, relay.Payload{URL: p.URL, Label: p.Label})
	observed := awaitCompletion(ctx, t.queue, id, t.cfg.TabWait)
	t.queue.Take(id)

	if !observed {
		t.logger.Debug("Tab request not yet fulfilled, returning anyway", zap.String("id", id))
	}
	return Success("Successfully opened a new tab for %s", p.URL), nil
}

// NavigateBrowser asks the sandboxed client to point a tab at a URL. Same
// fire-and-forget contract as OpenNewTab.
type NavigateBrowser struct {
	queue  *relay.Queue
	cfg    config.RelayConfig
	logger *zap.Logger
}

func NewNavigateBrowser(queue *relay.Queue, cfg config.RelayConfig, logger *zap.Logger) *NavigateBrowser {
	return &NavigateBrowser{queue: queue, cfg: cfg, logger: logger.Named("tool.navigate_browser")}
}

func (t *NavigateBrowser) Name() string { return "navigate_browser" }

func (t *NavigateBrowser) Description() string {
	return "Navigates the browser to a URL. Input: {\"url\": string}."
}

type navigateParams struct {
	URL string `json:"url"`
}

func (t *NavigateBrowser) Call(ctx context.Context, input map[string]any) (Observation, error) {
	var p navigateParams
	if err := decodeInput(input, &p); err != nil {
		return Observation{}, err
	}
	if p.URL == "" {
		return Observation{}, &ValidationError{Field: "url", Reason: "must not be empty"}
	}

	id := t.queue.Enqueue(relay.KindOpenTab, relay.Payload{URL: p.URL, Label: "navigate"})
	awaitCompletion(ctx, t.queue, id, t.cfg.TabWait)
	t.queue.Take(id)

	return Success("Successfully navigated the browser to %s", p.URL), nil
}

// TakeScreenshot enqueues a screenshot relay request and waits for the
// sandboxed client to capture and persist it. Capture is rate limited: a
// request arriving before the minimum inter-capture interval is rejected
// outright rather than queued.
type TakeScreenshot struct {
	queue   *relay.Queue
	cfg     config.RelayConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewTakeScreenshot(queue *relay.Queue, cfg config.RelayConfig, logger *zap.Logger) *TakeScreenshot {
	return &TakeScreenshot{
		queue:   queue,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.MinCaptureInterval), 1),
		logger:  logger.Named("tool.take_screenshot"),
	}
}

func (t *TakeScreenshot) Name() string { return "take_screenshot" }

func (t *TakeScreenshot) Description() string {
	return "Captures the visible browser surface and saves it to a file. Input: {}."
}

func (t *TakeScreenshot) Call(ctx context.Context, input map[string]any) (Observation, error) {
	if !t.limiter.Allow() {
		return Observation{}, &RateLimitedError{MinInterval: t.cfg.MinCaptureInterval}
	}

	id := t.queue.Enqueue(relay.KindScreenshot, relay.Payload{})

	for attempt := 0; attempt < t.cfg.ScreenshotAttempts; attempt++ {
		select {
		case <-ctx.Done():
			t.queue.Take(id)
			return Observation{}, ctx.Err()
		case <-time.After(t.cfg.ScreenshotDelay):
		}

		req, ok := t.queue.Get(id)
		if !ok || !req.Completed() {
			continue
		}
		t.queue.Take(id)

		if req.Error != "" {
			return Observation{}, &AutomationFailure{Op: "screenshot capture", Err: errors.New(req.Error)}
		}
		name := "screenshot"
		if req.Result != nil && req.Result.Filename != "" {
			name = req.Result.Filename
		}
		return Success("Successfully captured a screenshot, saved as %s", name), nil
	}

	// Discard the stale entry so a late completion has nothing to land on.
	t.queue.Take(id)
	wait := time.Duration(t.cfg.ScreenshotAttempts) * t.cfg.ScreenshotDelay
	return Observation{}, &TimeoutError{Op: "screenshot capture", Wait: wait}
}

// WaitTool pauses the agent for a bounded number of seconds so slow pages can
// settle before the next action.
type WaitTool struct {
	maxSeconds float64
}

func NewWaitTool() *WaitTool {
	return &WaitTool{maxSeconds: 10}
}

func (t *WaitTool) Name() string { return "wait" }

func (t *WaitTool) Description() string {
	return "Waits for the page to settle. Input: {\"seconds\": number (optional, default 2, max 10)}."
}

type waitParams struct {
	Seconds float64 `json:"seconds"`
}

func (t *WaitTool) Call(ctx context.Context, input map[string]any) (Observation, error) {
	var p waitParams
	if err := decodeInput(input, &p); err != nil {
		return Observation{}, err
	}
	if p.Seconds < 0 {
		return Observation{}, &ValidationError{Field: "seconds", Reason: "must not be negative"}
	}
	if p.Seconds == 0 {
		p.Seconds = 2
	}
	if p.Seconds > t.maxSeconds {
		p.Seconds = t.maxSeconds
	}

	d := time.Duration(p.Seconds * float64(time.Second))
	select {
	case <-ctx.Done():
		return Observation{}, ctx.Err()
	case <-time.After(d):
	}
	return Success("Successfully waited %s for the page to settle", formatSeconds(d)), nil
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%g seconds", d.Seconds())
}
