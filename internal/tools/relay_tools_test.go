package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/browserpilot/browserpilot/internal/relay"
)

// completeFirstPending waits for a pending entry of the given kind and marks
// it completed, standing in for the sandboxed client.
func completeFirstPending(t *testing.T, q *relay.Queue, kind relay.Kind, result relay.Result, errMsg string) {
	t.Helper()
	go func() {
		deadline := time.After(2 * time.Second)
		for {
			for _, req := range q.Poll() {
				if req.Kind == kind && !req.Completed() {
					q.Complete(req.ID, result, errMsg)
					return
				}
			}
			select {
			case <-deadline:
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
	}()
}

func TestOpenNewTab_Success(t *testing.T) {
	logger := zaptest.NewLogger(t)
	q := relay.NewQueue(logger)
	tool := NewOpenNewTab(q, testRelayConfig(), logger)

	completeFirstPending(t, q, relay.KindOpenTab, relay.Result{}, "")

	obs, err := tool.Call(context.Background(), map[string]any{"url": "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, obs.Outcome)
	assert.Contains(t, obs.Text, "Successfully opened a new tab for https://example.com")

	// The tool removes its entry whether or not completion arrived.
	assert.Equal(t, 0, q.Len())
}

// Even with no fulfiller running, the tool returns success after the bounded
// wait: tab creation is fire-and-forget once enqueued.
func TestOpenNewTab_SuccessWithoutFulfiller(t *testing.T) {
	logger := zaptest.NewLogger(t)
	q := relay.NewQueue(logger)
	tool := NewOpenNewTab(q, testRelayConfig(), logger)

	start := time.Now()
	obs, err := tool.Call(context.Background(), map[string]any{"url": "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, obs.Outcome)
	assert.GreaterOrEqual(t, time.Since(start), testRelayConfig().TabWait)
	assert.Equal(t, 0, q.Len())
}

func TestOpenNewTab_RequiresURL(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tool := NewOpenNewTab(relay.NewQueue(logger), testRelayConfig(), logger)

	var verr *ValidationError
	_, err := tool.Call(context.Background(), map[string]any{"label": "no url"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "url", verr.Field)
}

func TestNavigateBrowser_Success(t *testing.T) {
	logger := zaptest.NewLogger(t)
	q := relay.NewQueue(logger)
	tool := NewNavigateBrowser(q, testRelayConfig(), logger)

	completeFirstPending(t, q, relay.KindOpenTab, relay.Result{}, "")

	obs, err := tool.Call(context.Background(), map[string]any{"url": "https://docs.test"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, obs.Outcome)
	assert.Contains(t, obs.Text, "https://docs.test")
	assert.Equal(t, 0, q.Len())
}

func TestTakeScreenshot_Success(t *testing.T) {
	logger := zaptest.NewLogger(t)
	q := relay.NewQueue(logger)
	tool := NewTakeScreenshot(q, testRelayConfig(), logger)

	completeFirstPending(t, q, relay.KindScreenshot, relay.Result{Filename: "shot-1.png"}, "")

	obs, err := tool.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, obs.Outcome)
	assert.Contains(t, obs.Text, "shot-1.png")
	assert.Equal(t, 0, q.Len())
}

func TestTakeScreenshot_RateLimited(t *testing.T) {
	logger := zaptest.NewLogger(t)
	q := relay.NewQueue(logger)
	tool := NewTakeScreenshot(q, testRelayConfig(), logger)

	completeFirstPending(t, q, relay.KindScreenshot, relay.Result{Filename: "shot-1.png"}, "")
	_, err := tool.Call(context.Background(), nil)
	require.NoError(t, err)

	// Second capture inside the minimum interval is rejected, not queued.
	var rlerr *RateLimitedError
	_, err = tool.Call(context.Background(), nil)
	require.ErrorAs(t, err, &rlerr)
	assert.Equal(t, 0, q.Len())
}

func TestTakeScreenshot_Timeout(t *testing.T) {
	logger := zaptest.NewLogger(t)
	q := relay.NewQueue(logger)
	tool := NewTakeScreenshot(q, testRelayConfig(), logger)

	var terr *TimeoutError
	_, err := tool.Call(context.Background(), nil)
	require.ErrorAs(t, err, &terr)

	// The stale entry is discarded on timeout.
	assert.Equal(t, 0, q.Len())
}

func TestTakeScreenshot_FulfillerError(t *testing.T) {
	logger := zaptest.NewLogger(t)
	q := relay.NewQueue(logger)
	tool := NewTakeScreenshot(q, testRelayConfig(), logger)

	completeFirstPending(t, q, relay.KindScreenshot, relay.Result{}, "capture failed: no display")

	var aerr *AutomationFailure
	_, err := tool.Call(context.Background(), nil)
	require.ErrorAs(t, err, &aerr)
	assert.Contains(t, err.Error(), "no display")
	assert.Equal(t, 0, q.Len())
}

func TestWaitTool(t *testing.T) {
	tool := NewWaitTool()

	start := time.Now()
	obs, err := tool.Call(context.Background(), map[string]any{"seconds": 0.05})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, obs.Outcome)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	var verr *ValidationError
	_, err = tool.Call(context.Background(), map[string]any{"seconds": -1})
	require.ErrorAs(t, err, &verr)
}
