package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/browserpilot/browserpilot/internal/browser"
)

func TestBuildEmailScript_Shape(t *testing.T) {
	steps := buildEmailScript("ana@example.com", "Lunch plans", "Hi Ana,\n\nLunch tomorrow?\n\nBest")

	assert.Equal(t, []string{"ana@example.com", "Lunch plans", "Hi Ana,\n\nLunch tomorrow?\n\nBest"},
		typedTexts(steps))

	// Compose opener falls back to the "c" shortcut.
	require.NotNil(t, steps[0].Fallback)
	assert.Equal(t, "c", steps[0].Fallback.Key)

	// The sequence ends with the Ctrl+Enter send chord.
	last := steps[len(steps)-1]
	assert.Equal(t, browser.StepKey, last.Kind)
	assert.Equal(t, "Enter", last.Key)
	assert.Equal(t, browser.ModCtrl, last.Mods)
}

func TestSendEmail_Success(t *testing.T) {
	driver := &fakeDriver{loggedIn: true}
	llm := &fakeLLM{responses: []string{"Lunch plans for Friday", "Hi Ana,\n\nAre you free for lunch?\n\nBest"}}
	tool := NewSendEmail(driver, llm, testBrowserConfig(), zaptest.NewLogger(t))

	obs, err := tool.Call(context.Background(), map[string]any{
		"to":    "ana@example.com",
		"about": "lunch on Friday",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, obs.Outcome)
	assert.Contains(t, obs.Text, "Successfully sent an email to ana@example.com")
	assert.Contains(t, obs.Text, "Lunch plans for Friday")

	// Subject prompt first, body prompt second.
	require.Len(t, llm.requests, 2)
	assert.Contains(t, llm.requests[0].SystemPrompt, "subject")
	assert.Contains(t, llm.requests[1].SystemPrompt, "email body")

	require.Equal(t, []string{"https://mail.test/"}, driver.navigated)
	require.Len(t, driver.scripts, 1)
}

func TestSendEmail_RequiresLogin(t *testing.T) {
	driver := &fakeDriver{loggedIn: false}
	tool := NewSendEmail(driver, &fakeLLM{}, testBrowserConfig(), zaptest.NewLogger(t))

	var aerr *AuthRequiredError
	_, err := tool.Call(context.Background(), map[string]any{"to": "a@b.test", "about": "x"})
	require.ErrorAs(t, err, &aerr)
	assert.Empty(t, driver.navigated)
}

func TestSendEmail_Validation(t *testing.T) {
	tool := NewSendEmail(&fakeDriver{loggedIn: true}, &fakeLLM{}, testBrowserConfig(), zaptest.NewLogger(t))

	var verr *ValidationError
	_, err := tool.Call(context.Background(), map[string]any{"about": "x"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "to", verr.Field)

	_, err = tool.Call(context.Background(), map[string]any{"to": "a@b.test"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "about", verr.Field)
}

// An LLM failure aborts before any browser interaction starts.
func TestSendEmail_LLMFailure(t *testing.T) {
	driver := &fakeDriver{loggedIn: true}
	llm := &fakeLLM{err: errors.New("gemini API error: status 400")}
	tool := NewSendEmail(driver, llm, testBrowserConfig(), zaptest.NewLogger(t))

	_, err := tool.Call(context.Background(), map[string]any{"to": "a@b.test", "about": "x"})
	require.Error(t, err)
	assert.Empty(t, driver.navigated)
	assert.Empty(t, driver.scripts)
}
