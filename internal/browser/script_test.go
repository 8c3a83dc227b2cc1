package browser

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCDPModifiers(t *testing.T) {
	tests := []struct {
		name string
		mods Modifier
		want input.Modifier
	}{
		{"none", 0, 0},
		{"ctrl", ModCtrl, input.ModifierCtrl},
		{"shift", ModShift, input.ModifierShift},
		{"ctrl+shift", ModCtrl | ModShift, input.ModifierCtrl | input.ModifierShift},
		{"all", ModAlt | ModCtrl | ModMeta | ModShift,
			input.ModifierAlt | input.ModifierCtrl | input.ModifierMeta | input.ModifierShift},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cdpModifiers(tt.mods))
		})
	}
}

func TestStepString(t *testing.T) {
	assert.Equal(t, `click "div.save"`, Click("div.save").String())
	assert.Equal(t, `press "Ctrl+Enter"`, Key("Enter", ModCtrl).String())
	assert.Equal(t, `press "Tab"`, Key("Tab", 0).String())
	assert.Equal(t, "wait 2s", Wait(2*time.Second).String())
}

func TestStepAction_Validation(t *testing.T) {
	_, err := Step{Kind: StepClick}.action()
	require.Error(t, err)

	_, err = Step{Kind: StepKey}.action()
	require.Error(t, err)

	_, err = Step{Kind: StepKind("hover")}.action()
	require.Error(t, err)

	act, err := Click("button").action()
	require.NoError(t, err)
	assert.NotNil(t, act)
}

func TestKeyTimes(t *testing.T) {
	steps := KeyTimes("Tab", 3)
	require.Len(t, steps, 3)
	for _, s := range steps {
		assert.Equal(t, StepKey, s.Kind)
		assert.Equal(t, "Tab", s.Key)
		assert.Zero(t, s.Mods)
	}
}

func TestWithFallback(t *testing.T) {
	s := Click("div[jsname=primary]").WithFallback(Key("c", 0))
	require.NotNil(t, s.Fallback)
	assert.Equal(t, StepKey, s.Fallback.Kind)
	assert.Equal(t, "c", s.Fallback.Key)
	assert.Nil(t, s.Fallback.Fallback)
}

func TestSplitArg(t *testing.T) {
	name, value := splitArg("--window-size=1280,800")
	assert.Equal(t, "window-size", name)
	assert.Equal(t, "1280,800", value)

	name, value = splitArg("no-zygote")
	assert.Equal(t, "no-zygote", name)
	assert.Equal(t, true, value)
}
