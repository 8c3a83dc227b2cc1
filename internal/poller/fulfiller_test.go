package poller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubBrowser struct {
	opened  []string
	shot    []byte
	shotErr error
}

func (s *stubBrowser) OpenTab(ctx context.Context, url string) error {
	s.opened = append(s.opened, url)
	return nil
}

func (s *stubBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	return s.shot, s.shotErr
}

func TestBrowserFulfiller_OpenTab(t *testing.T) {
	b := &stubBrowser{}
	f := NewBrowserFulfiller(b, t.TempDir(), zaptest.NewLogger(t))

	require.NoError(t, f.OpenTab(context.Background(), "https://example.com"))
	assert.Equal(t, []string{"https://example.com"}, b.opened)

	require.Error(t, f.OpenTab(context.Background(), ""), "empty url must be rejected")
}

func TestBrowserFulfiller_CaptureScreen(t *testing.T) {
	dir := t.TempDir()
	b := &stubBrowser{shot: []byte("png-bytes")}
	f := NewBrowserFulfiller(b, dir, zaptest.NewLogger(t))

	name, err := f.CaptureScreen(context.Background())
	require.NoError(t, err)
	assert.Contains(t, name, "screenshot-")
	assert.Contains(t, name, ".png")

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestBrowserFulfiller_CaptureFailure(t *testing.T) {
	b := &stubBrowser{shotErr: errors.New("tab gone")}
	f := NewBrowserFulfiller(b, t.TempDir(), zaptest.NewLogger(t))

	_, err := f.CaptureScreen(context.Background())
	require.Error(t, err)
}
