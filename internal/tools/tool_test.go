package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/browserpilot/browserpilot/internal/relay"
)

func TestRegistry_OrderAndLookup(t *testing.T) {
	logger := zaptest.NewLogger(t)
	q := relay.NewQueue(logger)

	reg := NewRegistry(
		NewOpenNewTab(q, testRelayConfig(), logger),
		NewTakeScreenshot(q, testRelayConfig(), logger),
		NewWaitTool(),
	)

	assert.Equal(t, []string{"open_new_tab", "take_screenshot", "wait"}, reg.Names())

	tool, ok := reg.Get("take_screenshot")
	require.True(t, ok)
	assert.Equal(t, "take_screenshot", tool.Name())

	_, ok = reg.Get("no_such_tool")
	assert.False(t, ok)
}

func TestRegistry_Catalog(t *testing.T) {
	logger := zaptest.NewLogger(t)
	q := relay.NewQueue(logger)
	reg := NewRegistry(NewOpenNewTab(q, testRelayConfig(), logger), NewWaitTool())

	catalog := reg.Catalog()
	assert.Contains(t, catalog, "- open_new_tab: ")
	assert.Contains(t, catalog, "- wait: ")
}

func TestDecodeInput(t *testing.T) {
	var p openTabParams
	err := decodeInput(map[string]any{"url": "https://a.test", "label": "A"}, &p)
	require.NoError(t, err)
	assert.Equal(t, "https://a.test", p.URL)
	assert.Equal(t, "A", p.Label)

	// Wrong type for a field is a validation error, not a panic.
	var verr *ValidationError
	err = decodeInput(map[string]any{"url": 42}, &p)
	require.ErrorAs(t, err, &verr)
}

func TestObservationHelpers(t *testing.T) {
	obs := Success("Successfully opened %s", "https://a.test")
	assert.Equal(t, OutcomeSuccess, obs.Outcome)
	assert.Equal(t, "Successfully opened https://a.test", obs.Text)

	assert.Equal(t, OutcomePartial, Partial("maybe").Outcome)
}
