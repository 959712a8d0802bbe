// Package ui is the Tk foreground: it owns the window, bridges controller
// events to widgets through presenters, and drives the periodic update loop.
package ui

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"time"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"phonewatch/app"
	"phonewatch/config"
	"phonewatch/domain/monitor"
	"phonewatch/domain/zone"
	"phonewatch/ui/images"
	"phonewatch/ui/presenter"
	"phonewatch/ui/view"
)

const (
	uiTick = 200 * time.Millisecond

	// Smallest zone a user may enter, matching the selection minimum.
	minZoneSide = 20
)

var zoneOutline = color.RGBA{R: 235, G: 64, B: 52, A: 255}

type gui struct {
	cfg    *config.Config
	logger *slog.Logger
	c      *app.Container

	view    *view.RootView
	monP    *presenter.MonitorPresenter
	zoneP   *presenter.ZonePresenter
	loop    *presenter.Loop
	afterID string
}

// Run builds the window and blocks until it is closed.
func Run(cfg *config.Config, logger *slog.Logger) error {
	g := &gui{cfg: cfg, logger: logger}
	g.view = view.NewRootView(logger)
	g.monP = presenter.NewMonitorPresenter(g.view)

	c, err := app.Build(cfg, logger, g.monP.Callbacks())
	if err != nil {
		return err
	}
	g.c = c
	c.StartEventStream()
	g.zoneP = presenter.NewZonePresenter(c.Zones, g.view)

	g.view.Build(view.Handlers{
		OnStart:    g.onStart,
		OnStop:     g.onStop,
		OnSnapshot: g.onSnapshot,
		OnAddZone:  g.onAddZone,
		OnRemove:   g.onRemoveLastZone,
		OnClear:    g.onClearZones,
		OnSave:     g.onSaveZones,
		OnApply:    g.onApplySettings,
		OnExit:     g.onExit,
	}, cfg.ConfidenceThreshold, cfg.CaptureIntervalSeconds)
	g.zoneP.Refresh()

	g.loop = presenter.NewLoop(g.monP, g.schedule)
	g.schedule()

	App.Wait()
	return nil
}

func (g *gui) schedule() {
	g.afterID = TclAfter(uiTick, g.loop.Tick)
}

func (g *gui) onStart() {
	if err := g.c.Controller.Start(g.c.StartOptions()); err != nil {
		g.view.AppendLog(fmt.Sprintf("start rejected: %v", err))
	}
}

func (g *gui) onStop() {
	if err := g.c.Controller.Stop(); err != nil {
		g.view.AppendLog(fmt.Sprintf("stop rejected: %v", err))
	}
}

// onSnapshot grabs one frame, overlays the exclusion zones and shows it in
// the preview. Runs synchronously; a screen grab is fast enough for a button.
func (g *gui) onSnapshot() {
	frame, err := g.c.Capture.Capture(context.Background(), monitor.Region{Bounds: g.cfg.CaptureRect()})
	if err != nil {
		g.view.AppendLog(fmt.Sprintf("snapshot failed: %v", err))
		return
	}
	for _, z := range g.c.Zones.List() {
		images.DrawOutline(frame, z.Bounds(), zoneOutline, 2)
	}
	g.view.UpdatePreview(frame)
	g.view.AppendLog("snapshot updated")
}

func (g *gui) onAddZone(x, y, w, h int, source string) {
	if w < minZoneSide || h < minZoneSide {
		g.view.AppendLog(fmt.Sprintf("zone too small: need at least %dx%d", minZoneSide, minZoneSide))
		return
	}
	r := zone.Rect{X: x, Y: y, Width: w, Height: h}
	if _, err := g.c.Zones.Add(r, zone.Source(source)); err != nil {
		g.view.AppendLog(fmt.Sprintf("zone rejected: %v", err))
		return
	}
	g.zoneP.Refresh()
}

func (g *gui) onRemoveLastZone() {
	list := g.c.Zones.List()
	if len(list) == 0 {
		return
	}
	g.c.Zones.Remove(list[len(list)-1].ID)
	g.zoneP.Refresh()
}

func (g *gui) onClearZones() {
	g.c.Zones.Clear()
	g.zoneP.Refresh()
	g.view.AppendLog("all exclusion zones cleared")
}

func (g *gui) onSaveZones() {
	if err := g.c.Zones.Save(g.cfg.ZonesPath); err != nil {
		g.view.AppendLog(fmt.Sprintf("zones not saved: %v", err))
		return
	}
	g.view.AppendLog(fmt.Sprintf("zones saved to %s", g.cfg.ZonesPath))
}

// onApplySettings updates config values used by the next Start. A running
// session keeps the options it started with.
func (g *gui) onApplySettings(threshold, interval float64) {
	g.cfg.ConfidenceThreshold = threshold
	g.cfg.CaptureIntervalSeconds = interval
	_ = g.cfg.Validate()
	g.view.AppendLog(fmt.Sprintf("settings applied: threshold=%.2f interval=%.2fs",
		g.cfg.ConfidenceThreshold, g.cfg.CaptureIntervalSeconds))
}

func (g *gui) onExit() {
	// Best effort stop; an in-flight cycle drains in the background while the
	// window tears down.
	_ = g.c.Controller.Stop()
	if g.afterID != "" {
		TclAfterCancel(g.afterID)
	}
	Destroy(App)
}
