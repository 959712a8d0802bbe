// Package eventstream broadcasts monitor events to WebSocket observers.
// It is an optional foreground for headless runs; the monitoring core only
// sees the generic event callbacks.
package eventstream

import (
	"time"

	"phonewatch/domain/monitor"
)

// Type discriminates wire events.
type Type string

const (
	TypeLog          Type = "log"
	TypeNotification Type = "notification"
	TypeFatal        Type = "fatal"
	TypeState        Type = "state"
)

// Detection is the wire form of an actionable detection.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Event is one broadcast message.
type Event struct {
	Type      Type       `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
	Message   string     `json:"message,omitempty"`
	Detection *Detection `json:"detection,omitempty"`
	From      string     `json:"from,omitempty"`
	To        string     `json:"to,omitempty"`
}

func fromDetection(det monitor.ActionableDetection) *Detection {
	box := det.Box.Canon()
	return &Detection{
		Label:      det.Label,
		Confidence: det.Confidence,
		X:          box.Min.X,
		Y:          box.Min.Y,
		Width:      box.Dx(),
		Height:     box.Dy(),
	}
}

// Callbacks returns monitor callbacks that publish each event to the hub.
func (h *Hub) Callbacks() monitor.EventCallbacks {
	return monitor.EventCallbacks{
		OnLog: func(msg string, ts time.Time) {
			h.Publish(Event{Type: TypeLog, Timestamp: ts, Message: msg})
		},
		OnNotification: func(det monitor.ActionableDetection, ts time.Time) {
			h.Publish(Event{Type: TypeNotification, Timestamp: ts, Message: "smartphone detected outside exclusion zones", Detection: fromDetection(det)})
		},
		OnFatal: func(reason error) {
			h.Publish(Event{Type: TypeFatal, Timestamp: time.Now(), Message: reason.Error()})
		},
		OnStateChange: func(prev, next monitor.State) {
			h.Publish(Event{Type: TypeState, Timestamp: time.Now(), From: prev.String(), To: next.String()})
		},
	}
}
