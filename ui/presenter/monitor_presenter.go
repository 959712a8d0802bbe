package presenter

import (
	"fmt"
	"sync"
	"time"

	"phonewatch/domain/monitor"
)

// Timestamp format used for log panel lines.
const logTimeLayout = "2006-01-02 15:04:05"

// StateView sets the state label in the view.
type StateView interface{ SetState(string) }

// LogView appends a formatted line to the log panel.
type LogView interface{ AppendLog(string) }

// AlertView raises a visible alert window for a fired notification.
type AlertView interface{ ShowAlert(string) }

// MonitorView is the slice of the view the monitor presenter drives.
type MonitorView interface {
	StateView
	LogView
	AlertView
}

// MonitorPresenter queues controller events and flushes them to the view on
// Tick. Controller callbacks arrive on the monitor goroutine while Tick runs
// on the Tk thread, so the queues are guarded by a mutex; widget updates only
// happen inside Tick.
type MonitorPresenter struct {
	view MonitorView

	mu            sync.Mutex
	pendingState  []monitor.State
	pendingLines  []string
	pendingAlerts []string

	latest monitor.State // last state reflected in the view
}

func NewMonitorPresenter(view MonitorView) *MonitorPresenter {
	return &MonitorPresenter{view: view, latest: monitor.StateIdle}
}

// Callbacks returns the controller callback set feeding this presenter.
func (p *MonitorPresenter) Callbacks() monitor.EventCallbacks {
	return monitor.EventCallbacks{
		OnLog: func(msg string, ts time.Time) {
			p.enqueueLine(fmt.Sprintf("%s  %s", ts.Format(logTimeLayout), msg))
		},
		OnNotification: func(det monitor.ActionableDetection, ts time.Time) {
			p.enqueueLine(fmt.Sprintf("%s  ALERT: %s (%.0f%%) at %s",
				ts.Format(logTimeLayout), det.Label, det.Confidence*100, det.Box.String()))
			p.mu.Lock()
			p.pendingAlerts = append(p.pendingAlerts,
				fmt.Sprintf("Smartphone detected! (%.0f%% confidence)", det.Confidence*100))
			p.mu.Unlock()
		},
		OnFatal: func(reason error) {
			p.enqueueLine(fmt.Sprintf("%s  aborted: %v", time.Now().Format(logTimeLayout), reason))
		},
		OnStateChange: func(prev, next monitor.State) {
			p.mu.Lock()
			p.pendingState = append(p.pendingState, next)
			p.mu.Unlock()
		},
	}
}

func (p *MonitorPresenter) enqueueLine(line string) {
	p.mu.Lock()
	p.pendingLines = append(p.pendingLines, line)
	p.mu.Unlock()
}

// Tick drains queued events and updates the view with the most recent state
// and every pending log line.
func (p *MonitorPresenter) Tick(now time.Time) {
	if p == nil || p.view == nil {
		return
	}
	p.mu.Lock()
	states := p.pendingState
	lines := p.pendingLines
	alerts := p.pendingAlerts
	p.pendingState = nil
	p.pendingLines = nil
	p.pendingAlerts = nil
	p.mu.Unlock()

	if len(states) > 0 {
		last := states[len(states)-1]
		if last != p.latest {
			p.latest = last
			p.view.SetState(last.String())
		}
	}
	for _, line := range lines {
		p.view.AppendLog(line)
	}
	// One alert window at a time; only the most recent pending alert shows.
	if len(alerts) > 0 {
		p.view.ShowAlert(alerts[len(alerts)-1])
	}
}
