package monitor

import (
	"context"
	"image"
	"time"

	"phonewatch/domain/zone"
)

// State enumerates the controller lifecycle states.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Region describes what to capture: a monitor index and an optional
// sub-rectangle. A zero Bounds means the full screen.
type Region struct {
	Monitor int
	Bounds  image.Rectangle
}

// FullScreen reports whether the region covers the whole screen.
func (r Region) FullScreen() bool { return r.Bounds.Empty() }

// RawDetection is one bounding box reported by the detector for a single
// frame. Detections are not retained across cycles.
type RawDetection struct {
	Label      string
	Confidence float64
	Box        image.Rectangle
}

// ActionableDetection is a raw detection that passed both the confidence
// threshold and zone filtering.
type ActionableDetection struct {
	RawDetection
}

// CaptureSource acquires a frame for a region. Implementations may block;
// the controller treats a per-cycle failure as transient.
type CaptureSource interface {
	Capture(ctx context.Context, region Region) (*image.RGBA, error)
}

// Detector reports smartphone bounding boxes found in a frame.
type Detector interface {
	Detect(ctx context.Context, frame *image.RGBA) ([]RawDetection, error)
}

// ZoneSource provides the exclusion-zone snapshot a cycle filters against.
// *zone.Store satisfies it.
type ZoneSource interface {
	List() []zone.ExclusionZone
}

// EventCallbacks delivers controller events to the foreground. All fields are
// optional; nil callbacks are skipped. Events for a cycle are emitted in the
// order the cycle produced them, with the log summary last.
type EventCallbacks struct {
	OnLog          func(message string, ts time.Time)
	OnNotification func(det ActionableDetection, ts time.Time)
	OnFatal        func(reason error)
	OnStateChange  func(prev, next State)
}

func (cb EventCallbacks) emitLog(msg string, ts time.Time) {
	if cb.OnLog != nil {
		cb.OnLog(msg, ts)
	}
}

func (cb EventCallbacks) emitNotification(det ActionableDetection, ts time.Time) {
	if cb.OnNotification != nil {
		cb.OnNotification(det, ts)
	}
}

func (cb EventCallbacks) emitFatal(reason error) {
	if cb.OnFatal != nil {
		cb.OnFatal(reason)
	}
}

func (cb EventCallbacks) emitStateChange(prev, next State) {
	if cb.OnStateChange != nil {
		cb.OnStateChange(prev, next)
	}
}
