// Package poller implements the sandboxed-client side of the relay bridge:
// it drains the service's tab-request table on a fixed interval and fulfills
// the requests only the client's execution context can perform.
package poller

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/browserpilot/browserpilot/internal/relay"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// UpstreamServiceError reports that the automation service is unreachable.
// It is surfaced as a user-visible warning, and polling pauses for a backoff
// interval rather than hammering a dead endpoint.
type UpstreamServiceError struct {
	Err error
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("automation service unreachable: %v", e.Err)
}

func (e *UpstreamServiceError) Unwrap() error { return e.Err }

// Fulfiller performs the client-owned side effects.
type Fulfiller interface {
	OpenTab(ctx context.Context, url string) error
	// CaptureScreen captures and persists the visible surface, returning the
	// saved filename.
	CaptureScreen(ctx context.Context) (string, error)
}

// Poller drains /tab-requests and posts completions back.
type Poller struct {
	baseURL   string
	client    *http.Client
	fulfiller Fulfiller
	interval  time.Duration
	pause     time.Duration
	logger    *zap.Logger
	// onWarning surfaces upstream errors to the user-facing transcript.
	onWarning func(string)
}

func New(baseURL string, fulfiller Fulfiller, interval time.Duration, logger *zap.Logger, onWarning func(string)) *Poller {
	if onWarning == nil {
		onWarning = func(string) {}
	}
	return &Poller{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		fulfiller: fulfiller,
		interval:  interval,
		pause:     5 * interval,
		logger:    logger.Named("poller"),
		onWarning: onWarning,
	}
}

// Run polls until ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := p.DrainOnce(ctx); err != nil {
			p.logger.Warn("Drain failed", zap.Error(err))
			p.onWarning("⚠️ " + err.Error())
			// Back off before resuming the normal cadence.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.pause):
			}
		}
	}
}

// DrainOnce fetches the current request table and fulfills every pending
// entry in it before returning, so one poll's worth of work is always
// processed as a unit.
func (p *Poller) DrainOnce(ctx context.Context) error {
	requests, err := p.fetchRequests(ctx)
	if err != nil {
		return &UpstreamServiceError{Err: err}
	}

	for _, req := range requests {
		if req.Completed() {
			continue
		}
		p.fulfill(ctx, req)
	}
	return nil
}

func (p *Poller) fetchRequests(ctx context.Context) ([]relay.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/tab-requests", nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from /tab-requests", resp.StatusCode)
	}
	var requests []relay.Request
	if err := json.NewDecoder(resp.Body).Decode(&requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (p *Poller) fulfill(ctx context.Context, req relay.Request) {
	var (
		filename string
		err      error
	)
	switch req.Kind {
	case relay.KindOpenTab:
		err = p.fulfiller.OpenTab(ctx, req.Payload.URL)
	case relay.KindScreenshot:
		filename, err = p.fulfiller.CaptureScreen(ctx)
	default:
		err = fmt.Errorf("unknown request kind %q", req.Kind)
	}

	if err != nil {
		p.logger.Warn("Fulfillment failed",
			zap.String("id", req.ID), zap.String("kind", string(req.Kind)), zap.Error(err))
	} else {
		p.logger.Debug("Request fulfilled",
			zap.String("id", req.ID), zap.String("kind", string(req.Kind)))
	}

	if postErr := p.postCompletion(ctx, req.ID, filename, err); postErr != nil {
		p.logger.Warn("Completion post failed", zap.String("id", req.ID), zap.Error(postErr))
	}
}

// postCompletion reports the outcome; the service treats repeats and unknown
// ids as no-ops, so this is safe to retry blindly.
func (p *Poller) postCompletion(ctx context.Context, id, filename string, fulfillErr error) error {
	body := map[string]any{"success": fulfillErr == nil}
	if filename != "" {
		body["filename"] = filename
	}
	if fulfillErr != nil {
		body["error"] = fulfillErr.Error()
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/tab-requests/%s/complete", p.baseURL, id)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from completion post", resp.StatusCode)
	}
	return nil
}
