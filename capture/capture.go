// Package capture acquires screen frames for the monitoring loop.
package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/vova616/screenshot"

	"phonewatch/domain/monitor"
)

// Screen is a monitor.CaptureSource backed by the screenshot library. It is
// stateless; the active monitor is whatever the library reports.
type Screen struct{}

func NewScreen() *Screen { return &Screen{} }

// Capture grabs the requested region. A region with empty bounds captures the
// full screen. Capture is synchronous and may block for the duration of the
// pixel acquisition; the caller decides how failures are handled.
func (s *Screen) Capture(_ context.Context, region monitor.Region) (*image.RGBA, error) {
	if region.FullScreen() {
		img, err := screenshot.CaptureScreen()
		if err != nil {
			return nil, fmt.Errorf("capture screen: %w", err)
		}
		return img, nil
	}
	img, err := screenshot.CaptureRect(region.Bounds)
	if err != nil {
		return nil, fmt.Errorf("capture rect %v: %w", region.Bounds, err)
	}
	return img, nil
}

// ScreenRect returns the bounds of the active screen, for clamping
// user-drawn regions.
func ScreenRect() (image.Rectangle, error) {
	return screenshot.ScreenRect()
}

var _ monitor.CaptureSource = (*Screen)(nil)
