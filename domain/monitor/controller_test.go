package monitor

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phonewatch/domain/zone"
)

type fakeCapture struct{}

func (fakeCapture) Capture(_ context.Context, _ Region) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 64, 64)), nil
}

// scriptDetector runs a per-call script and counts invocations.
type scriptDetector struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) ([]RawDetection, error)
}

func (d *scriptDetector) Detect(_ context.Context, _ *image.RGBA) ([]RawDetection, error) {
	d.mu.Lock()
	d.calls++
	n := d.calls
	fn := d.fn
	d.mu.Unlock()
	return fn(n)
}

func (d *scriptDetector) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type staticZones struct{ zones []zone.ExclusionZone }

func (s staticZones) List() []zone.ExclusionZone { return s.zones }

// recorder captures the callback event sequence for assertions.
type recorder struct {
	mu     sync.Mutex
	events []string
	fatals []error
}

func (r *recorder) callbacks() EventCallbacks {
	return EventCallbacks{
		OnLog: func(msg string, _ time.Time) {
			r.append("log:" + msg)
		},
		OnNotification: func(_ ActionableDetection, _ time.Time) {
			r.append("notify")
		},
		OnFatal: func(reason error) {
			r.mu.Lock()
			r.fatals = append(r.fatals, reason)
			r.mu.Unlock()
			r.append("fatal")
		},
		OnStateChange: func(_, next State) {
			r.append("state:" + next.String())
		},
	}
}

func (r *recorder) append(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, ev := range r.snapshot() {
		if strings.HasPrefix(ev, prefix) {
			n++
		}
	}
	return n
}

func (r *recorder) lastFatal() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.fatals) == 0 {
		return nil
	}
	return r.fatals[len(r.fatals)-1]
}

func waitForState(t *testing.T, c *Controller, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.Status() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("controller did not reach state %s within %s (state=%s)", want, timeout, c.Status())
}

func phoneAt(box image.Rectangle) []RawDetection {
	return []RawDetection{{Label: "smartphone", Confidence: 0.9, Box: box}}
}

func fastOpts() StartOptions {
	return StartOptions{Interval: time.Millisecond, ConfidenceThreshold: 0.5, FailureCeiling: 3}
}

func TestStartWhileRunningIsRejected(t *testing.T) {
	release := make(chan struct{})
	det := &scriptDetector{fn: func(int) ([]RawDetection, error) {
		<-release
		return nil, nil
	}}
	rec := &recorder{}
	c := NewController(fakeCapture{}, det, staticZones{}, NewNotificationGate(time.Hour), rec.callbacks(), nil)

	require.NoError(t, c.Start(fastOpts()))
	assert.ErrorIs(t, c.Start(fastOpts()), ErrAlreadyRunning)
	assert.Equal(t, StateRunning, c.Status())

	require.NoError(t, c.Stop())
	close(release)
	waitForState(t, c, StateIdle, time.Second)
}

func TestStopWhileIdleIsRejected(t *testing.T) {
	c := NewController(fakeCapture{}, &scriptDetector{fn: func(int) ([]RawDetection, error) { return nil, nil }},
		staticZones{}, nil, EventCallbacks{}, nil)
	assert.ErrorIs(t, c.Stop(), ErrNotRunning)
}

func TestStopDrainsInFlightCycle(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	det := &scriptDetector{fn: func(int) ([]RawDetection, error) {
		entered <- struct{}{}
		<-release
		return nil, nil
	}}
	rec := &recorder{}
	c := NewController(fakeCapture{}, det, staticZones{}, NewNotificationGate(time.Hour), rec.callbacks(), nil)

	require.NoError(t, c.Start(fastOpts()))
	<-entered

	require.NoError(t, c.Stop())
	assert.Equal(t, StateStopping, c.Status())
	assert.ErrorIs(t, c.Stop(), ErrNotRunning)

	close(release)
	waitForState(t, c, StateIdle, time.Second)

	// The in-flight cycle finished and no new one started.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, det.callCount())
	assert.Contains(t, rec.snapshot(), "log:monitoring stopped")
}

func TestFailureCeilingAborts(t *testing.T) {
	boom := errors.New("camera unplugged")
	det := &scriptDetector{fn: func(int) ([]RawDetection, error) { return nil, boom }}
	rec := &recorder{}
	c := NewController(fakeCapture{}, det, staticZones{}, NewNotificationGate(time.Hour), rec.callbacks(), nil)

	require.NoError(t, c.Start(fastOpts()))
	waitForState(t, c, StateIdle, 2*time.Second)

	// Exactly ceiling cycles ran; no fourth attempt after the abort.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, det.callCount())

	var abortErr *AbortError
	require.ErrorAs(t, rec.lastFatal(), &abortErr)
	assert.Equal(t, 3, abortErr.Failures)
	assert.ErrorIs(t, abortErr.Last, ErrDetectFailed)
}

func TestTransientFailureRecovers(t *testing.T) {
	boom := errors.New("transient")
	det := &scriptDetector{fn: func(call int) ([]RawDetection, error) {
		// Two failures, then a success, repeatedly. Never hits ceiling 3.
		if call%3 != 0 {
			return nil, boom
		}
		return nil, nil
	}}
	rec := &recorder{}
	c := NewController(fakeCapture{}, det, staticZones{}, NewNotificationGate(time.Hour), rec.callbacks(), nil)

	require.NoError(t, c.Start(fastOpts()))
	deadline := time.Now().Add(2 * time.Second)
	for det.callCount() < 9 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	require.GreaterOrEqual(t, det.callCount(), 9)

	assert.Equal(t, StateRunning, c.Status())
	assert.Empty(t, rec.fatals)

	require.NoError(t, c.Stop())
	waitForState(t, c, StateIdle, time.Second)
}

func TestNotificationDebounceAcrossCycles(t *testing.T) {
	det := &scriptDetector{fn: func(int) ([]RawDetection, error) {
		return phoneAt(image.Rect(200, 200, 300, 320)), nil
	}}
	rec := &recorder{}
	c := NewController(fakeCapture{}, det, staticZones{}, NewNotificationGate(time.Hour), rec.callbacks(), nil)

	require.NoError(t, c.Start(fastOpts()))
	deadline := time.Now().Add(2 * time.Second)
	for det.callCount() < 5 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, c.Stop())
	waitForState(t, c, StateIdle, time.Second)

	assert.Equal(t, 1, rec.count("notify"))
}

func TestZoneSuppressionEndToEnd(t *testing.T) {
	det := &scriptDetector{fn: func(int) ([]RawDetection, error) {
		return phoneAt(image.Rect(10, 10, 50, 50)), nil
	}}
	rec := &recorder{}
	zones := staticZones{zones: []zone.ExclusionZone{
		{ID: "desk", Rect: zone.Rect{X: 0, Y: 0, Width: 100, Height: 100}, Source: zone.SourceLivePreview},
	}}
	c := NewController(fakeCapture{}, det, zones, NewNotificationGate(time.Hour), rec.callbacks(), nil)

	require.NoError(t, c.Start(fastOpts()))
	deadline := time.Now().Add(2 * time.Second)
	for det.callCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, c.Stop())
	waitForState(t, c, StateIdle, time.Second)

	assert.Zero(t, rec.count("notify"))
}

func TestNotificationPrecedesCycleSummary(t *testing.T) {
	det := &scriptDetector{fn: func(int) ([]RawDetection, error) {
		return phoneAt(image.Rect(200, 200, 300, 320)), nil
	}}
	rec := &recorder{}
	c := NewController(fakeCapture{}, det, staticZones{}, NewNotificationGate(time.Hour), rec.callbacks(), nil)

	require.NoError(t, c.Start(fastOpts()))
	deadline := time.Now().Add(2 * time.Second)
	for det.callCount() < 1 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, c.Stop())
	waitForState(t, c, StateIdle, time.Second)

	events := rec.snapshot()
	notifyIdx, summaryIdx := -1, -1
	for i, ev := range events {
		if ev == "notify" && notifyIdx < 0 {
			notifyIdx = i
		}
		if strings.HasPrefix(ev, "log:cycle:") && summaryIdx < 0 {
			summaryIdx = i
		}
	}
	require.GreaterOrEqual(t, notifyIdx, 0, "events: %v", events)
	require.GreaterOrEqual(t, summaryIdx, 0, "events: %v", events)
	assert.Less(t, notifyIdx, summaryIdx)
}

func TestStateChangeSequenceForNormalSession(t *testing.T) {
	det := &scriptDetector{fn: func(int) ([]RawDetection, error) { return nil, nil }}
	rec := &recorder{}
	c := NewController(fakeCapture{}, det, staticZones{}, NewNotificationGate(time.Hour), rec.callbacks(), nil)

	require.NoError(t, c.Start(fastOpts()))
	require.NoError(t, c.Stop())
	waitForState(t, c, StateIdle, time.Second)

	var states []string
	for _, ev := range rec.snapshot() {
		if strings.HasPrefix(ev, "state:") {
			states = append(states, strings.TrimPrefix(ev, "state:"))
		}
	}
	assert.Equal(t, []string{"running", "stopping", "idle"}, states)
}

func TestCycleSpacingHonorsInterval(t *testing.T) {
	var mu sync.Mutex
	var starts []time.Time
	det := &scriptDetector{fn: func(int) ([]RawDetection, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return nil, nil
	}}
	c := NewController(fakeCapture{}, det, staticZones{}, NewNotificationGate(time.Hour), EventCallbacks{}, nil)

	interval := 50 * time.Millisecond
	require.NoError(t, c.Start(StartOptions{Interval: interval, ConfidenceThreshold: 0.5, FailureCeiling: 3}))
	deadline := time.Now().Add(2 * time.Second)
	for det.callCount() < 5 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, c.Stop())
	waitForState(t, c, StateIdle, time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(starts), 5)
	// Next cycle is due one interval after the previous cycle's start. Small
	// slack for the gap between the cycle start and the detector timestamp.
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond, "gap %d", i)
	}
}

func TestOverrunningCycleRunsBackToBackNeverConcurrently(t *testing.T) {
	const (
		interval  = 50 * time.Millisecond
		cycleCost = 80 * time.Millisecond
	)
	var mu sync.Mutex
	var starts []time.Time
	inFlight, maxInFlight := 0, 0
	det := &scriptDetector{fn: func(int) ([]RawDetection, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(cycleCost)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil, nil
	}}
	c := NewController(fakeCapture{}, det, staticZones{}, NewNotificationGate(time.Hour), EventCallbacks{}, nil)

	require.NoError(t, c.Start(StartOptions{Interval: interval, ConfidenceThreshold: 0.5, FailureCeiling: 3}))
	deadline := time.Now().Add(3 * time.Second)
	for det.callCount() < 4 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, c.Stop())
	waitForState(t, c, StateIdle, 2*time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(starts), 4)
	assert.Equal(t, 1, maxInFlight, "cycles must never overlap")
	// Every cycle overruns the interval, so the next one starts right after
	// the previous completes: paced by the cycle cost, not by the interval.
	var total time.Duration
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, cycleCost-5*time.Millisecond, "gap %d", i)
		total += gap
	}
	mean := total / time.Duration(len(starts)-1)
	// Waiting out the interval after completion would put the mean near
	// cycleCost+interval; back-to-back pacing keeps it near cycleCost.
	assert.Less(t, mean, cycleCost+interval/2)
}

func TestStoppingAlwaysObservedBeforeIdle(t *testing.T) {
	det := &scriptDetector{fn: func(int) ([]RawDetection, error) { return nil, nil }}
	rec := &recorder{}
	c := NewController(fakeCapture{}, det, staticZones{}, NewNotificationGate(time.Hour), rec.callbacks(), nil)

	const sessions = 50
	for i := 0; i < sessions; i++ {
		require.NoError(t, c.Start(fastOpts()))
		require.NoError(t, c.Stop())
		waitForState(t, c, StateIdle, time.Second)
	}

	var states []string
	for _, ev := range rec.snapshot() {
		if strings.HasPrefix(ev, "state:") {
			states = append(states, strings.TrimPrefix(ev, "state:"))
		}
	}
	require.Len(t, states, 3*sessions)
	for i := 0; i < len(states); i += 3 {
		assert.Equal(t, []string{"running", "stopping", "idle"}, states[i:i+3], "session %d", i/3)
	}
}

func TestGateResetOnRestart(t *testing.T) {
	det := &scriptDetector{fn: func(int) ([]RawDetection, error) {
		return phoneAt(image.Rect(200, 200, 300, 320)), nil
	}}
	rec := &recorder{}
	gate := NewNotificationGate(time.Hour)
	c := NewController(fakeCapture{}, det, staticZones{}, gate, rec.callbacks(), nil)

	for session := 0; session < 2; session++ {
		require.NoError(t, c.Start(fastOpts()))
		deadline := time.Now().Add(2 * time.Second)
		start := det.callCount()
		for det.callCount() < start+2 && time.Now().Before(deadline) {
			time.Sleep(2 * time.Millisecond)
		}
		require.NoError(t, c.Stop())
		waitForState(t, c, StateIdle, time.Second)
	}

	// One notification per session: the restart cleared the cooldown memory.
	assert.Equal(t, 2, rec.count("notify"))
}
