// File: internal/browser/capture.go
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Screenshotter captures the current viewport as PNG bytes.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// CaptureSink persists labeled screenshots for later inspection. Captures are
// fire-and-forget: a failed capture is logged and never surfaces to the flow
// that requested it. A sink with no directory configured discards everything.
type CaptureSink struct {
	logger *zap.Logger
	dir    string
	group  *errgroup.Group
}

// NewCaptureSink prepares the capture directory. An empty dir disables the
// sink without error.
func NewCaptureSink(logger *zap.Logger, dir string) *CaptureSink {
	sink := &CaptureSink{
		logger: logger.Named("capture"),
		dir:    dir,
		group:  &errgroup.Group{},
	}
	sink.group.SetLimit(4)

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			sink.logger.Warn("Capture directory unavailable, captures disabled",
				zap.String("dir", dir), zap.Error(err))
			sink.dir = ""
		}
	}
	return sink
}

// Capture grabs a screenshot and writes it asynchronously. The label becomes
// part of the filename after sanitization.
func (s *CaptureSink) Capture(ctx context.Context, shooter Screenshotter, label string) {
	if s.dir == "" {
		return
	}

	buf, err := shooter.Screenshot(ctx)
	if err != nil {
		s.logger.Debug("Screenshot capture failed", zap.String("label", label), zap.Error(err))
		return
	}

	name := fmt.Sprintf("%s_%s.png", time.Now().UTC().Format("20060102T150405.000"), sanitizeLabel(label))
	path := filepath.Join(s.dir, name)

	s.group.Go(func() error {
		if err := os.WriteFile(path, buf, 0o644); err != nil {
			s.logger.Warn("Failed to persist capture", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

// Close drains pending writes.
func (s *CaptureSink) Close() {
	_ = s.group.Wait()
}

func sanitizeLabel(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "capture"
	}
	return b.String()
}
