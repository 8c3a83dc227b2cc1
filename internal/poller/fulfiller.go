package poller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// BrowserDriver is the slice of the automation driver the fulfiller uses.
type BrowserDriver interface {
	OpenTab(ctx context.Context, url string) error
	Screenshot(ctx context.Context) ([]byte, error)
}

// BrowserFulfiller fulfills relay requests against the local browser session
// and persists captures under a screenshots directory.
type BrowserFulfiller struct {
	driver BrowserDriver
	dir    string
	logger *zap.Logger
}

func NewBrowserFulfiller(driver BrowserDriver, dir string, logger *zap.Logger) *BrowserFulfiller {
	return &BrowserFulfiller{driver: driver, dir: dir, logger: logger.Named("fulfiller")}
}

func (f *BrowserFulfiller) OpenTab(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("open-tab request carried no url")
	}
	return f.driver.OpenTab(ctx, url)
}

func (f *BrowserFulfiller) CaptureScreen(ctx context.Context) (string, error) {
	data, err := f.driver.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating screenshot dir: %w", err)
	}

	name := fmt.Sprintf("screenshot-%s.png", time.Now().Format("20060102-150405"))
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing screenshot: %w", err)
	}
	f.logger.Info("Screenshot saved", zap.String("path", path))
	return name, nil
}
