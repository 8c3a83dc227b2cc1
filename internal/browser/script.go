package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// StepKind names the primitive actions a scripted sequence is built from.
type StepKind string

const (
	StepClick StepKind = "click"
	StepType  StepKind = "type"
	StepKey   StepKind = "key"
	StepWait  StepKind = "wait"
)

// Modifier is a bitmask of held modifier keys for a key chord.
type Modifier int

const (
	ModAlt Modifier = 1 << iota
	ModCtrl
	ModMeta
	ModShift
)

// Step is one action in a scripted UI sequence. A Step may carry a Fallback
// that is attempted only when the primary action fails; a fallback failing too
// aborts the whole sequence.
type Step struct {
	Kind     StepKind
	Selector string
	Text     string
	Key      string
	Mods     Modifier
	Delay    time.Duration
	Fallback *Step
}

// Click builds a step that waits for the selector to become visible and
// clicks it.
func Click(selector string) Step {
	return Step{Kind: StepClick, Selector: selector}
}

// Type builds a step that types text into the currently focused element, or
// into the selector when one is given.
func Type(text string) Step {
	return Step{Kind: StepType, Text: text}
}

// TypeInto builds a step that waits for the selector and types into it.
func TypeInto(selector, text string) Step {
	return Step{Kind: StepType, Selector: selector, Text: text}
}

// Key builds a step that presses a single key or a modifier chord. The key
// name follows the DOM KeyboardEvent.key convention ("Enter", "Tab", "c").
func Key(key string, mods Modifier) Step {
	return Step{Kind: StepKey, Key: key, Mods: mods}
}

// KeyTimes repeats a plain key press count times, returned as separate steps
// so each press gets the normal inter-step pacing.
func KeyTimes(key string, count int) []Step {
	steps := make([]Step, 0, count)
	for i := 0; i < count; i++ {
		steps = append(steps, Key(key, 0))
	}
	return steps
}

// Wait builds a step that pauses the sequence for the given duration.
func Wait(d time.Duration) Step {
	return Step{Kind: StepWait, Delay: d}
}

// WithFallback attaches an alternate step to try when this one fails.
func (s Step) WithFallback(fb Step) Step {
	s.Fallback = &fb
	return s
}

// String renders a short step description for logs and error messages.
func (s Step) String() string {
	switch s.Kind {
	case StepClick:
		return fmt.Sprintf("click %q", s.Selector)
	case StepType:
		if s.Selector != "" {
			return fmt.Sprintf("type %d chars into %q", len(s.Text), s.Selector)
		}
		return fmt.Sprintf("type %d chars", len(s.Text))
	case StepKey:
		return fmt.Sprintf("press %q", chordLabel(s.Key, s.Mods))
	case StepWait:
		return fmt.Sprintf("wait %s", s.Delay)
	}
	return string(s.Kind)
}

// action translates a step into the chromedp action that performs it.
func (s Step) action() (chromedp.Action, error) {
	switch s.Kind {
	case StepClick:
		if s.Selector == "" {
			return nil, fmt.Errorf("click step requires a selector")
		}
		return chromedp.Tasks{
			chromedp.WaitVisible(s.Selector, chromedp.ByQuery),
			chromedp.Click(s.Selector, chromedp.ByQuery),
		}, nil
	case StepType:
		if s.Selector != "" {
			return chromedp.Tasks{
				chromedp.WaitVisible(s.Selector, chromedp.ByQuery),
				chromedp.SendKeys(s.Selector, s.Text, chromedp.ByQuery),
			}, nil
		}
		return chromedp.KeyEvent(s.Text), nil
	case StepKey:
		if s.Key == "" {
			return nil, fmt.Errorf("key step requires a key name")
		}
		return chordAction(s.Key, s.Mods), nil
	case StepWait:
		return chromedp.Sleep(s.Delay), nil
	}
	return nil, fmt.Errorf("unknown step kind %q", s.Kind)
}

// chordAction dispatches a raw keyDown/keyUp pair so modifier chords like
// Ctrl+Enter reach the page the way a physical keyboard would.
func chordAction(key string, mods Modifier) chromedp.Action {
	cdpMods := cdpModifiers(mods)
	return chromedp.Tasks{
		input.DispatchKeyEvent(input.KeyDown).WithModifiers(cdpMods).WithKey(key),
		input.DispatchKeyEvent(input.KeyUp).WithModifiers(cdpMods).WithKey(key),
	}
}

func cdpModifiers(mods Modifier) input.Modifier {
	var out input.Modifier
	if mods&ModAlt != 0 {
		out |= input.ModifierAlt
	}
	if mods&ModCtrl != 0 {
		out |= input.ModifierCtrl
	}
	if mods&ModMeta != 0 {
		out |= input.ModifierMeta
	}
	if mods&ModShift != 0 {
		out |= input.ModifierShift
	}
	return out
}

func chordLabel(key string, mods Modifier) string {
	var parts []string
	if mods&ModCtrl != 0 {
		parts = append(parts, "Ctrl")
	}
	if mods&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if mods&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if mods&ModMeta != 0 {
		parts = append(parts, "Meta")
	}
	parts = append(parts, key)
	return strings.Join(parts, "+")
}
