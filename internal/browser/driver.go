// Package browser owns the persistent, user-visible Chrome session that all
// automation runs against. The session reuses a profile directory so login
// state survives restarts; the directory's existence doubles as the
// "logged in" signal.
package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/browserpilot/browserpilot/internal/config"
)

// Driver manages a single headed Chrome instance and the one tab automation
// scripts run in. All methods are safe for concurrent use; the underlying
// session is created lazily on first need and re-created if a liveness probe
// finds it dead (user closed the window, browser crashed).
type Driver struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// NewDriver returns a Driver; no browser is started until EnsureOpen.
func NewDriver(cfg config.BrowserConfig, logger *zap.Logger) *Driver {
	return &Driver{cfg: cfg, logger: logger.Named("browser")}
}

// EnsureOpen guarantees a live browser session, probing an existing one and
// rebuilding it when the probe fails.
func (d *Driver) EnsureOpen(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureOpenLocked(ctx)
}

func (d *Driver) ensureOpenLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.tabCtx != nil {
		if d.probeLocked() {
			return nil
		}
		d.logger.Info("Browser session unresponsive, recreating")
		d.closeLocked()
	}

	if err := os.MkdirAll(d.cfg.ProfileDir, 0o755); err != nil {
		return fmt.Errorf("creating profile dir: %w", err)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), d.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	startCtx, cancel := context.WithTimeout(tabCtx, d.cfg.NavigationTimeout)
	defer cancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		tabCancel()
		allocCancel()
		return fmt.Errorf("browser failed to start: %w", err)
	}

	d.allocCtx, d.allocCancel = allocCtx, allocCancel
	d.tabCtx, d.tabCancel = tabCtx, tabCancel
	d.logger.Info("Browser session started",
		zap.String("profile_dir", d.cfg.ProfileDir),
		zap.Bool("headless", d.cfg.Headless))
	return nil
}

// probeLocked runs a trivial script in the current tab to confirm the session
// still answers.
func (d *Driver) probeLocked() bool {
	probeCtx, cancel := context.WithTimeout(d.tabCtx, d.cfg.ProbeTimeout)
	defer cancel()
	var one int
	return chromedp.Run(probeCtx, chromedp.Evaluate("1", &one)) == nil
}

// allocatorOptions builds the Chrome launch flags. The defaults deliberately
// omit headless mode: the session is meant to be watched by the user.
func (d *Driver) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserDataDir(d.cfg.ProfileDir),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-default-browser-check", true),
	}
	if d.cfg.Headless {
		opts = append(opts, chromedp.Headless, chromedp.DisableGPU)
	}
	for _, arg := range d.cfg.Args {
		name, value := splitArg(arg)
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// splitArg normalizes a config-file flag ("--foo=bar", "foo") into a chromedp
// flag name and value.
func splitArg(arg string) (string, any) {
	arg = strings.TrimPrefix(arg, "--")
	if k, v, ok := strings.Cut(arg, "="); ok {
		return k, v
	}
	return arg, true
}

// Navigate drives the automation tab to url and waits for the document body.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureOpenLocked(ctx); err != nil {
		return err
	}

	navCtx, cancel := context.WithTimeout(d.tabCtx, d.cfg.NavigationTimeout)
	defer cancel()
	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	d.logger.Debug("Navigated", zap.String("url", url))
	return nil
}

// OpenTab opens url in a fresh browser tab, leaving the automation tab where
// it is.
func (d *Driver) OpenTab(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureOpenLocked(ctx); err != nil {
		return err
	}

	newCtx, newCancel := chromedp.NewContext(d.allocCtx)
	navCtx, cancel := context.WithTimeout(newCtx, d.cfg.NavigationTimeout)
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		newCancel()
		return fmt.Errorf("opening tab for %s: %w", url, err)
	}
	// The tab stays open for the user; only the control context is released.
	d.logger.Info("Opened tab", zap.String("url", url))
	return nil
}

// Screenshot captures the automation tab as a PNG.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureOpenLocked(ctx); err != nil {
		return nil, err
	}

	shotCtx, cancel := context.WithTimeout(d.tabCtx, d.cfg.NavigationTimeout)
	defer cancel()
	var buf []byte
	if err := chromedp.Run(shotCtx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

// Run executes a scripted sequence step by step. Each step gets one retry via
// its fallback; if both fail the session is torn down so the next request
// starts from a clean browser, and the error reports which step broke.
func (d *Driver) Run(ctx context.Context, steps []Step) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureOpenLocked(ctx); err != nil {
		return err
	}

	for i, step := range steps {
		err := d.runStepLocked(step)
		if err != nil && step.Fallback != nil {
			d.logger.Debug("Step failed, trying fallback",
				zap.Int("step", i+1), zap.String("action", step.String()), zap.Error(err))
			err = d.runStepLocked(*step.Fallback)
		}
		if err != nil {
			d.logger.Warn("Scripted sequence aborted",
				zap.Int("step", i+1), zap.String("action", step.String()), zap.Error(err))
			d.closeLocked()
			return fmt.Errorf("step %d (%s): %w", i+1, step.String(), err)
		}
		d.pause(d.cfg.StepDelay)
	}
	return nil
}

func (d *Driver) runStepLocked(step Step) error {
	act, err := step.action()
	if err != nil {
		return err
	}
	stepCtx, cancel := context.WithTimeout(d.tabCtx, d.cfg.NavigationTimeout)
	defer cancel()
	return chromedp.Run(stepCtx, act)
}

// pause sleeps between steps so the UI has time to react; Google's web apps
// drop keystrokes that arrive before their handlers attach.
func (d *Driver) pause(delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-d.tabCtx.Done():
	}
}

// LoggedIn reports whether a persisted profile exists. The profile is only
// written after an interactive login, so presence is treated as logged in.
func (d *Driver) LoggedIn() bool {
	info, err := os.Stat(d.cfg.ProfileDir)
	return err == nil && info.IsDir()
}

// ResetProfile closes the session and deletes the persisted profile,
// discarding all cookies and login state.
func (d *Driver) ResetProfile() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
	if err := os.RemoveAll(d.cfg.ProfileDir); err != nil {
		return fmt.Errorf("removing profile dir: %w", err)
	}
	d.logger.Info("Profile reset", zap.String("profile_dir", d.cfg.ProfileDir))
	return nil
}

// Close tears down the browser session. Safe to call repeatedly.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
}

func (d *Driver) closeLocked() {
	if d.tabCancel != nil {
		d.tabCancel()
		d.tabCancel = nil
		d.tabCtx = nil
	}
	if d.allocCancel != nil {
		d.allocCancel()
		d.allocCancel = nil
		d.allocCtx = nil
	}
}
