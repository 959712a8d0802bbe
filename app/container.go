// Package app assembles the monitoring components and runs headless sessions.
package app

import (
	"log/slog"
	"time"

	"phonewatch/capture"
	"phonewatch/config"
	"phonewatch/detect"
	"phonewatch/domain/monitor"
	"phonewatch/domain/zone"
	"phonewatch/eventstream"
	"phonewatch/notify"
)

// Container holds the wired components. The controller is a single owned
// instance passed explicitly to whichever foreground drives it, so tests and
// alternate front ends can build their own.
type Container struct {
	Cfg        *config.Config
	Logger     *slog.Logger
	Zones      *zone.Store
	Capture    *capture.Screen
	Detector   *detect.PhoneDetector
	Gate       *monitor.NotificationGate
	Controller *monitor.Controller
	Hub        *eventstream.Hub
}

// Build constructs all components. extra callbacks (for example a GUI's) are
// combined with the base logging/beep/hub callbacks. Side effects are limited
// to loading the zones file.
func Build(cfg *config.Config, logger *slog.Logger, extra monitor.EventCallbacks) (*Container, error) {
	c := &Container{Cfg: cfg, Logger: logger}

	c.Zones = zone.NewStore()
	if err := c.Zones.Load(cfg.ZonesPath); err != nil {
		// A corrupt zones file should not prevent startup; the user can
		// re-save. It is surfaced prominently in the log instead.
		logger.Error("zones file not loaded", "path", cfg.ZonesPath, "error", err)
	} else if n := c.Zones.Count(); n > 0 {
		logger.Info("exclusion zones loaded", "path", cfg.ZonesPath, "count", n)
	}

	c.Capture = capture.NewScreen()
	det, err := detect.New(cfg.OllamaURL, cfg.Model, logger)
	if err != nil {
		return nil, err
	}
	c.Detector = det
	c.Gate = monitor.NewNotificationGate(cfg.Cooldown())

	callbacks := []monitor.EventCallbacks{c.baseCallbacks(), extra}
	if cfg.Listen != "" {
		c.Hub = eventstream.NewHub(logger)
		callbacks = append(callbacks, c.Hub.Callbacks())
	}
	c.Controller = monitor.NewController(c.Capture, c.Detector, c.Zones, c.Gate, combine(callbacks...), logger)
	return c, nil
}

// StartEventStream starts the hub and its WebSocket endpoint when a listen
// address is configured. No-op otherwise. Both foregrounds call it, so GUI
// sessions stream events just like headless ones.
func (c *Container) StartEventStream() {
	if c.Hub == nil {
		return
	}
	go c.Hub.Run()
	go func() {
		if err := eventstream.Serve(c.Cfg.Listen, c.Hub, c.Logger); err != nil {
			c.Logger.Error("event stream server stopped", "error", err)
		}
	}()
}

// StartOptions derives controller options from the configuration.
func (c *Container) StartOptions() monitor.StartOptions {
	return monitor.StartOptions{
		Region:              monitor.Region{Bounds: c.Cfg.CaptureRect()},
		Interval:            c.Cfg.Interval(),
		ConfidenceThreshold: c.Cfg.ConfidenceThreshold,
		OverlapTolerance:    c.Cfg.OverlapTolerance,
		FailureCeiling:      c.Cfg.FailureCeiling,
	}
}

// baseCallbacks routes every event into the structured log and plays the
// alert sound for fired notifications.
func (c *Container) baseCallbacks() monitor.EventCallbacks {
	logger := c.Logger
	return monitor.EventCallbacks{
		OnLog: func(msg string, ts time.Time) {
			logger.Info(msg, "ts", ts.Format(time.RFC3339))
		},
		OnNotification: func(det monitor.ActionableDetection, ts time.Time) {
			notify.Beep()
			logger.Warn("smartphone detected outside exclusion zones",
				"label", det.Label,
				"confidence", det.Confidence,
				"box", det.Box.String(),
			)
		},
		OnFatal: func(reason error) {
			logger.Error("monitoring aborted", "error", reason)
		},
		OnStateChange: func(prev, next monitor.State) {
			logger.Info("monitor state change", "from", prev.String(), "to", next.String())
		},
	}
}

// combine fans one event out to several callback sets in order.
func combine(list ...monitor.EventCallbacks) monitor.EventCallbacks {
	return monitor.EventCallbacks{
		OnLog: func(msg string, ts time.Time) {
			for _, cb := range list {
				if cb.OnLog != nil {
					cb.OnLog(msg, ts)
				}
			}
		},
		OnNotification: func(det monitor.ActionableDetection, ts time.Time) {
			for _, cb := range list {
				if cb.OnNotification != nil {
					cb.OnNotification(det, ts)
				}
			}
		},
		OnFatal: func(reason error) {
			for _, cb := range list {
				if cb.OnFatal != nil {
					cb.OnFatal(reason)
				}
			}
		},
		OnStateChange: func(prev, next monitor.State) {
			for _, cb := range list {
				if cb.OnStateChange != nil {
					cb.OnStateChange(prev, next)
				}
			}
		},
	}
}
