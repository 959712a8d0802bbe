package presenter

import "time"

// Loop aggregates feature presenters and drives periodic updates.
//
// It ticks the sub-presenters and invokes a scheduler callback that re-arms
// the next tick. The zero value is usable (methods are nil-safe).
type Loop struct {
	Monitor  *MonitorPresenter
	Schedule func()
}

func NewLoop(mon *MonitorPresenter, schedule func()) *Loop {
	return &Loop{Monitor: mon, Schedule: schedule}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	now := time.Now()
	if l.Monitor != nil {
		l.Monitor.Tick(now)
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}
