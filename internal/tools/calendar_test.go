package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/browserpilot/browserpilot/internal/browser"
	"github.com/browserpilot/browserpilot/internal/temporal"
)

func newCalendarTool(t *testing.T, driver *fakeDriver) *CreateCalendarEvent {
	t.Helper()
	tool := NewCreateCalendarEvent(driver, testBrowserConfig(), zaptest.NewLogger(t))
	tool.now = func() time.Time {
		return time.Date(2025, time.May, 1, 10, 0, 0, 0, time.Local)
	}
	return tool
}

// typedTexts extracts the text of every type step, in order.
func typedTexts(steps []browser.Step) []string {
	var out []string
	for _, s := range steps {
		if s.Kind == browser.StepType {
			out = append(out, s.Text)
		}
	}
	return out
}

// Prompt "Create calendar event 'Lunch' on June 10th at 12", now = May 1:
// the dialog receives "June, 10, 2025", start "12:00 PM", end "1:00 PM".
func TestBuildCalendarScript_TypedStrings(t *testing.T) {
	now := time.Date(2025, time.May, 1, 10, 0, 0, 0, time.Local)
	resolved := temporal.Resolve("on June 10th at 12", now)

	steps := buildCalendarScript("Lunch", resolved)
	assert.Equal(t, []string{"Lunch", "June, 10, 2025", "12:00 PM", "1:00 PM"}, typedTexts(steps))

	// The dialog opener falls back to the "c" keyboard shortcut.
	opener := steps[0]
	assert.Equal(t, browser.StepClick, opener.Kind)
	require.NotNil(t, opener.Fallback)
	assert.Equal(t, "c", opener.Fallback.Key)

	// The sequence ends with a confirm action.
	last := steps[len(steps)-1]
	assert.Equal(t, browser.StepClick, last.Kind)
	require.NotNil(t, last.Fallback)
	assert.Equal(t, "Enter", last.Fallback.Key)
	assert.Equal(t, browser.ModCtrl, last.Fallback.Mods)
}

func TestBuildCalendarScript_NoTime(t *testing.T) {
	now := time.Date(2025, time.May, 1, 10, 0, 0, 0, time.Local)
	resolved := temporal.Resolve("tomorrow", now)
	require.Nil(t, resolved.Time)

	steps := buildCalendarScript("Dentist", resolved)
	assert.Equal(t, []string{"Dentist", "May, 2, 2025"}, typedTexts(steps))
}

func TestCreateCalendarEvent_Success(t *testing.T) {
	driver := &fakeDriver{loggedIn: true}
	tool := newCalendarTool(t, driver)

	obs, err := tool.Call(context.Background(), map[string]any{
		"title": "Lunch",
		"when":  "on June 10th at 12",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, obs.Outcome)
	assert.Contains(t, obs.Text, `Successfully created calendar event "Lunch"`)
	assert.Contains(t, obs.Text, "June, 10, 2025")
	assert.Contains(t, obs.Text, "12:00 PM")

	require.Equal(t, []string{"https://calendar.test/r"}, driver.navigated)
	require.Len(t, driver.scripts, 1)
}

func TestCreateCalendarEvent_RequiresLogin(t *testing.T) {
	driver := &fakeDriver{loggedIn: false}
	tool := newCalendarTool(t, driver)

	var aerr *AuthRequiredError
	_, err := tool.Call(context.Background(), map[string]any{"title": "Lunch"})
	require.ErrorAs(t, err, &aerr)

	// No browser interaction may happen before the auth check.
	assert.Empty(t, driver.navigated)
	assert.Empty(t, driver.scripts)
}

func TestCreateCalendarEvent_RequiresTitle(t *testing.T) {
	tool := newCalendarTool(t, &fakeDriver{loggedIn: true})

	var verr *ValidationError
	_, err := tool.Call(context.Background(), map[string]any{"when": "tomorrow"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
}

func TestCreateCalendarEvent_ScriptFailure(t *testing.T) {
	driver := &fakeDriver{loggedIn: true, runErr: errors.New("step 3 (press \"Tab\"): node not found")}
	tool := newCalendarTool(t, driver)

	var aerr *AutomationFailure
	_, err := tool.Call(context.Background(), map[string]any{"title": "Lunch", "when": "tomorrow"})
	require.ErrorAs(t, err, &aerr)
	assert.Contains(t, err.Error(), "node not found")
}
