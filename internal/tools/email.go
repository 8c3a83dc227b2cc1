package tools

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/browserpilot/browserpilot/internal/browser"
	"github.com/browserpilot/browserpilot/internal/config"
	"github.com/browserpilot/browserpilot/internal/llmclient"
)

const composeSettle = 2 * time.Second

// SendEmail drives the mail web UI's compose flow. Subject and body are
// generated by two one-shot model completions before any browser interaction
// starts, so an LLM failure never leaves a half-filled compose window open.
type SendEmail struct {
	driver Driver
	llm    llmclient.Client
	cfg    config.BrowserConfig
	logger *zap.Logger
}

func NewSendEmail(driver Driver, llm llmclient.Client, cfg config.BrowserConfig, logger *zap.Logger) *SendEmail {
	return &SendEmail{driver: driver, llm: llm, cfg: cfg, logger: logger.Named("tool.send_email")}
}

func (t *SendEmail) Name() string { return "send_email" }

func (t *SendEmail) Description() string {
	return "Sends an email. Input: {\"to\": string (recipient address), \"about\": string (what the email should say)}."
}

type emailParams struct {
	To    string `json:"to"`
	About string `json:"about"`
}

func (t *SendEmail) Call(ctx context.Context, input map[string]any) (Observation, error) {
	var p emailParams
	if err := decodeInput(input, &p); err != nil {
		return Observation{}, err
	}
	if p.To == "" {
		return Observation{}, &ValidationError{Field: "to", Reason: "must not be empty"}
	}
	if p.About == "" {
		return Observation{}, &ValidationError{Field: "about", Reason: "must not be empty"}
	}
	if !t.driver.LoggedIn() {
		return Observation{}, &AuthRequiredError{Op: "send_email"}
	}

	subject, err := llmclient.ComposeSubject(ctx, t.llm, p.About)
	if err != nil {
		return Observation{}, err
	}
	body, err := llmclient.ComposeBody(ctx, t.llm, p.About)
	if err != nil {
		return Observation{}, err
	}
	t.logger.Info("Sending email", zap.String("to", p.To), zap.String("subject", subject))

	if err := t.driver.Navigate(ctx, t.cfg.MailURL); err != nil {
		return Observation{}, &AutomationFailure{Op: "mail navigation", Err: err}
	}
	if err := t.driver.Run(ctx, buildEmailScript(p.To, subject, body)); err != nil {
		return Observation{}, &AutomationFailure{Op: "email send", Err: err}
	}

	return Success("Successfully sent an email to %s with subject %q", p.To, subject), nil
}

// buildEmailScript assembles the compose keystroke sequence: open compose
// (button, fallback "c" shortcut), recipient, Enter to confirm the chip, Tab
// to subject, Tab to body, Ctrl+Enter to send.
func buildEmailScript(to, subject, body string) []browser.Step {
	return []browser.Step{
		browser.Click(`div[role="button"][gh="cm"]`).WithFallback(browser.Key("c", 0)),
		browser.Wait(composeSettle),
		browser.Type(to),
		browser.Key("Enter", 0),
		browser.Key("Tab", 0),
		browser.Type(subject),
		browser.Key("Tab", 0),
		browser.Type(body),
		browser.Key("Enter", browser.ModCtrl),
	}
}
