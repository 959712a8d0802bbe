package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Default cycle parameters. The interval is a scheduling hint, not a
// wall-clock guarantee: cycles never overlap, and a cycle that overruns the
// interval is followed immediately by the next one.
const (
	DefaultInterval            = 1500 * time.Millisecond
	DefaultConfidenceThreshold = 0.5
	DefaultFailureCeiling      = 3
)

// StartOptions configures one monitoring session.
type StartOptions struct {
	Region              Region
	Interval            time.Duration
	ConfidenceThreshold float64
	OverlapTolerance    float64
	FailureCeiling      int
}

func (o *StartOptions) normalize() {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.ConfidenceThreshold <= 0 || o.ConfidenceThreshold > 1 {
		o.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if o.OverlapTolerance < 0 || o.OverlapTolerance >= 1 {
		o.OverlapTolerance = 0
	}
	if o.FailureCeiling <= 0 {
		o.FailureCeiling = DefaultFailureCeiling
	}
}

// Controller runs the capture/detect/filter/notify cycle on a schedule and
// exposes start/stop/status to the foreground. One session at a time: Start
// while not Idle is rejected, not queued. All state transitions are
// serialized behind a mutex; callbacks are invoked outside the lock.
type Controller struct {
	src    CaptureSource
	det    Detector
	zones  ZoneSource
	gate   *NotificationGate
	cb     EventCallbacks
	logger *slog.Logger

	mu     sync.Mutex
	state  State
	stopCh chan struct{}
}

// NewController wires a controller. gate may be nil, in which case a gate
// with the default cooldown is used.
func NewController(src CaptureSource, det Detector, zones ZoneSource, gate *NotificationGate, cb EventCallbacks, logger *slog.Logger) *Controller {
	if gate == nil {
		gate = NewNotificationGate(0)
	}
	return &Controller{src: src, det: det, zones: zones, gate: gate, cb: cb, logger: logger}
}

// Status reports the current state. It never blocks beyond the state mutex.
func (c *Controller) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins a monitoring session. It returns ErrAlreadyRunning unless the
// controller is Idle. The cycle loop runs on a background goroutine; Start
// returns once the loop is launched.
func (c *Controller) Start(opts StartOptions) error {
	opts.normalize()
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.state = StateRunning
	stopCh := make(chan struct{})
	c.stopCh = stopCh
	c.mu.Unlock()

	c.gate.Reset()
	c.cb.emitStateChange(StateIdle, StateRunning)
	c.cb.emitLog(fmt.Sprintf("monitoring started: interval=%s threshold=%.2f", opts.Interval, opts.ConfidenceThreshold), time.Now())
	go c.loop(opts, stopCh)
	return nil
}

// Stop requests the session to end. It returns ErrNotRunning unless the
// controller is Running. Stop is cooperative and does not block: an in-flight
// cycle (including a slow capture or detector call) is allowed to finish, no
// new cycle is scheduled, and the controller returns to Idle once the loop
// observes the request. There is no hard timeout forcing a stuck cycle to
// abort, so latency to Idle is bounded by the slowest external call.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.state = StateStopping
	stopCh := c.stopCh
	c.mu.Unlock()

	// Emit before releasing the loop: the loop's Stopping -> Idle change is
	// only possible after stopCh closes, so observers never see idle first.
	c.cb.emitStateChange(StateRunning, StateStopping)
	close(stopCh)
	return nil
}

func (c *Controller) loop(opts StartOptions, stop <-chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			if c.logger != nil {
				c.logger.Error("monitor loop panic", "error", r, "stack", string(debug.Stack()))
			}
			c.abort(&AbortError{Failures: 0, Last: fmt.Errorf("panic: %v", r)})
		}
	}()

	failures := 0
	var lastErr error
	for {
		select {
		case <-stop:
			c.finishStopped()
			return
		default:
		}

		cycleStart := time.Now()
		err := c.runCycle(opts)
		if err != nil {
			failures++
			lastErr = err
			c.cb.emitLog(fmt.Sprintf("cycle error (%d/%d): %v", failures, opts.FailureCeiling, err), time.Now())
			if c.logger != nil {
				c.logger.Warn("cycle failed", "error", err, "consecutive", failures)
			}
			if failures >= opts.FailureCeiling {
				// A stop requested mid-cycle takes precedence over the abort.
				select {
				case <-stop:
					c.finishStopped()
				default:
					c.abort(&AbortError{Failures: failures, Last: lastErr})
				}
				return
			}
		} else {
			failures = 0
		}

		// Next cycle is due one interval after this cycle's start. An
		// overrunning cycle makes wait non-positive and the next cycle
		// starts right away, never concurrently.
		wait := opts.Interval - time.Since(cycleStart)
		if wait <= 0 {
			continue
		}
		select {
		case <-stop:
			c.finishStopped()
			return
		case <-time.After(wait):
		}
	}
}

// runCycle executes one capture -> detect -> filter -> notify pass. The log
// summary is emitted exactly once, after any notification events.
func (c *Controller) runCycle(opts StartOptions) error {
	ctx := context.Background()
	start := time.Now()

	frame, err := c.src.Capture(ctx, opts.Region)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	raw, err := c.det.Detect(ctx, frame)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDetectFailed, err)
	}

	zones := c.zones.List()
	actionable := FilterDetections(raw, zones, opts.ConfidenceThreshold, opts.OverlapTolerance)
	fired := 0
	for _, det := range actionable {
		now := time.Now()
		if c.gate.Consider(now) == Fire {
			fired++
			c.cb.emitNotification(det, now)
		}
	}

	elapsed := time.Since(start)
	c.cb.emitLog(fmt.Sprintf("cycle: raw=%d suppressed=%d actionable=%d fired=%d elapsed=%s",
		len(raw), len(raw)-len(actionable), len(actionable), fired, elapsed.Round(time.Millisecond)), time.Now())
	if c.logger != nil {
		c.logger.Debug("cycle complete",
			"raw", len(raw),
			"actionable", len(actionable),
			"fired", fired,
			"zones", len(zones),
			"elapsed", elapsed,
		)
	}
	return nil
}

// finishStopped completes a user-requested stop: Stopping -> Idle.
func (c *Controller) finishStopped() {
	c.mu.Lock()
	prev := c.state
	c.state = StateIdle
	c.mu.Unlock()

	c.cb.emitStateChange(prev, StateIdle)
	c.cb.emitLog("monitoring stopped", time.Now())
}

// abort forcibly returns to Idle after the failure ceiling is exceeded and
// surfaces the fatal reason so the foreground can distinguish it from a
// normal stop.
func (c *Controller) abort(reason *AbortError) {
	c.mu.Lock()
	prev := c.state
	c.state = StateIdle
	c.mu.Unlock()

	c.cb.emitFatal(reason)
	c.cb.emitStateChange(prev, StateIdle)
	if c.logger != nil {
		c.logger.Error("monitoring aborted", "error", reason)
	}
}
