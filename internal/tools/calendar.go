package tools

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/browserpilot/browserpilot/internal/browser"
	"github.com/browserpilot/browserpilot/internal/config"
	"github.com/browserpilot/browserpilot/internal/temporal"
)

// Driver is the slice of the automation driver the browser-owned tools need.
type Driver interface {
	EnsureOpen(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Run(ctx context.Context, steps []browser.Step) error
	Close()
	LoggedIn() bool
}

// Pacing and field-hop constants for the calendar creation dialog. The tab
// counts match the dialog's fixed field order; changing the target UI means
// retuning these.
const (
	dialogSettle     = 2 * time.Second
	tabsTitleToDate  = 2
	tabsAfterEndTime = 3
)

// CreateCalendarEvent drives the calendar web UI through its keyboard-first
// creation dialog. The target application exposes no structured write API for
// events, so this is a best-effort scripted interaction.
type CreateCalendarEvent struct {
	driver Driver
	cfg    config.BrowserConfig
	now    func() time.Time
	logger *zap.Logger
}

func NewCreateCalendarEvent(driver Driver, cfg config.BrowserConfig, logger *zap.Logger) *CreateCalendarEvent {
	return &CreateCalendarEvent{
		driver: driver,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.Named("tool.create_calendar_event"),
	}
}

func (t *CreateCalendarEvent) Name() string { return "create_calendar_event" }

func (t *CreateCalendarEvent) Description() string {
	return "Creates a calendar event. Input: {\"title\": string, \"when\": string (free-form, e.g. \"tomorrow at 2pm\")}."
}

type calendarParams struct {
	Title string `json:"title"`
	When  string `json:"when"`
}

func (t *CreateCalendarEvent) Call(ctx context.Context, input map[string]any) (Observation, error) {
	var p calendarParams
	if err := decodeInput(input, &p); err != nil {
		return Observation{}, err
	}
	if p.Title == "" {
		return Observation{}, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if !t.driver.LoggedIn() {
		return Observation{}, &AuthRequiredError{Op: "create_calendar_event"}
	}

	resolved := temporal.Resolve(p.When, t.now())
	t.logger.Info("Creating calendar event",
		zap.String("title", p.Title),
		zap.String("date", resolved.DateString()))

	if err := t.driver.Navigate(ctx, t.cfg.CalendarURL); err != nil {
		return Observation{}, &AutomationFailure{Op: "calendar navigation", Err: err}
	}
	if err := t.driver.Run(ctx, buildCalendarScript(p.Title, resolved)); err != nil {
		return Observation{}, &AutomationFailure{Op: "calendar event creation", Err: err}
	}

	if resolved.Time != nil {
		return Success("Successfully created calendar event %q on %s at %s",
			p.Title, resolved.DateString(), resolved.Time.String()), nil
	}
	return Success("Successfully created calendar event %q on %s", p.Title, resolved.DateString()), nil
}

// buildCalendarScript assembles the keystroke sequence that fills the event
// creation dialog: open dialog, title, date, start/end times, confirm. The
// dialog's natural-language date field accepts the "Month, Day, Year" form.
func buildCalendarScript(title string, r temporal.ResolvedDateTime) []browser.Step {
	steps := []browser.Step{
		browser.Click(`button[aria-label="Create"]`).WithFallback(browser.Key("c", 0)),
		browser.Wait(dialogSettle),
		browser.Type(title),
	}
	steps = append(steps, browser.KeyTimes("Tab", tabsTitleToDate)...)
	steps = append(steps, browser.Type(r.DateString()))

	if r.Time != nil {
		end := temporal.EndTime(*r.Time)
		steps = append(steps,
			browser.Key("Tab", 0),
			browser.Type(r.Time.String()),
			browser.Key("Tab", 0),
			browser.Type(end.String()),
		)
	}

	steps = append(steps, browser.KeyTimes("Tab", tabsAfterEndTime)...)
	steps = append(steps,
		browser.Click(`button[aria-label="Save"]`).WithFallback(browser.Key("Enter", browser.ModCtrl)),
	)
	return steps
}
