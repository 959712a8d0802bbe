package view

import (
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"strings"
	"time"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"phonewatch/ui/images"
)

// Handlers are the user actions the view forwards to the presenter layer.
type Handlers struct {
	OnStart    func()
	OnStop     func()
	OnSnapshot func()
	OnAddZone  func(x, y, w, h int, source string)
	OnRemove   func()
	OnClear    func()
	OnSave     func()
	OnApply    func(threshold, interval float64)
	OnExit     func()
}

// RootView composes the monitor window: state row, settings, zone panel,
// log panel and preview. It owns the widgets; presenters drive updates.
type RootView struct {
	logger *slog.Logger

	StateLabel *LabelWidget
	ZoneStatus *LabelWidget

	startBtn *ButtonWidget
	stopBtn  *ButtonWidget

	thresholdField *TextWidget
	intervalField  *TextWidget

	zoneFields map[string]*TextWidget
	zoneSource *TComboboxWidget
	zoneList   *TextWidget
	logText    *TextWidget

	preview   *LabelWidget
	prevPhoto *Img

	alertWin   *ToplevelWidget
	alertAfter string
}

const (
	maxPreviewW = 420
	maxPreviewH = 240

	alertAutoClose = 6 * time.Second
)

var zoneSources = []string{"live-preview", "loaded-screenshot"}

func NewRootView(logger *slog.Logger) *RootView {
	return &RootView{logger: logger, zoneFields: make(map[string]*TextWidget)}
}

// Build constructs the layout and wires callbacks. Call once, on the Tk
// thread, before App.Wait.
func (rv *RootView) Build(h Handlers, thresholdInit, intervalInit float64) {
	App.WmTitle("phonewatch")
	WmProtocol(App, "WM_DELETE_WINDOW", h.OnExit)
	WmGeometry(App, "720x640+80+80")

	row := 0

	// Row 0: state + session controls.
	rv.StateLabel = Label(Txt("State: idle"), Borderwidth(1), Relief("ridge"))
	Grid(rv.StateLabel, Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	btnFrame := Frame()
	Grid(btnFrame, Row(row), Column(2), Columnspan(2), Sticky("ne"), Padx("0.3m"), Pady("0.3m"))
	rv.startBtn = Button(Txt("Start Monitoring"), Command(h.OnStart))
	Grid(rv.startBtn, In(btnFrame), Row(0), Column(0), Sticky("we"), Padx("0.2m"))
	rv.stopBtn = Button(Txt("Stop Monitoring"), Command(h.OnStop))
	Grid(rv.stopBtn, In(btnFrame), Row(0), Column(1), Sticky("we"), Padx("0.2m"))
	exitBtn := Button(Txt("Exit"), Command(h.OnExit))
	Grid(exitBtn, In(btnFrame), Row(0), Column(2), Sticky("we"), Padx("0.2m"))
	row++

	// Settings row: threshold + interval.
	makeField := func(label, value string, width int) *TextWidget {
		lbl := Label(Txt(label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := Text(Height(1), Width(width))
		Grid(w, Row(row), Column(1), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w.Delete("1.0", END)
		w.Insert("1.0", value)
		row++
		return w
	}
	rv.thresholdField = makeField("Confidence threshold", fmt.Sprintf("%.2f", thresholdInit), 8)
	rv.intervalField = makeField("Capture interval (s)", fmt.Sprintf("%.2f", intervalInit), 8)
	applyBtn := Button(Txt("Apply Settings"), Command(func() {
		t, okT := parseFloatField(rv.text(rv.thresholdField))
		iv, okI := parseFloatField(rv.text(rv.intervalField))
		if okT && okI && h.OnApply != nil {
			h.OnApply(t, iv)
		} else if rv.logger != nil {
			rv.logger.Error("settings not applied: unparsable field")
		}
	}))
	Grid(applyBtn, Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++

	// Zone panel: numeric entry + source tag + actions.
	rv.ZoneStatus = Label(Txt("No exclusion areas defined"), Anchor("w"))
	Grid(rv.ZoneStatus, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"))
	row++
	zoneFrame := Frame()
	Grid(zoneFrame, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.3m"))
	col := 0
	for _, id := range []string{"x", "y", "w", "h"} {
		lbl := Label(Txt(strings.ToUpper(id)))
		Grid(lbl, In(zoneFrame), Row(0), Column(col), Sticky("e"), Padx("0.2m"))
		col++
		f := Text(Height(1), Width(6))
		Grid(f, In(zoneFrame), Row(0), Column(col), Sticky("w"), Padx("0.2m"))
		rv.zoneFields[id] = f
		col++
	}
	rv.zoneSource = TCombobox(Values(zoneSources), Width(18))
	Grid(rv.zoneSource, In(zoneFrame), Row(0), Column(col), Sticky("w"), Padx("0.2m"))
	rv.zoneSource.Current(0)
	col++
	addBtn := Button(Txt("Add Zone"), Command(func() {
		x, y, w, hh, ok := rv.zoneEntry()
		if !ok {
			if rv.logger != nil {
				rv.logger.Error("zone not added: unparsable field")
			}
			return
		}
		if h.OnAddZone != nil {
			h.OnAddZone(x, y, w, hh, rv.selectedSource())
		}
	}))
	Grid(addBtn, In(zoneFrame), Row(0), Column(col), Sticky("w"), Padx("0.2m"))
	row++

	zoneBtns := Frame()
	Grid(zoneBtns, Row(row), Column(0), Columnspan(4), Sticky("w"), Padx("0.3m"))
	saveBtn := Button(Txt("Save Zones"), Command(h.OnSave))
	Grid(saveBtn, In(zoneBtns), Row(0), Column(0), Sticky("w"), Padx("0.2m"))
	removeBtn := Button(Txt("Remove Last"), Command(h.OnRemove))
	Grid(removeBtn, In(zoneBtns), Row(0), Column(1), Sticky("w"), Padx("0.2m"))
	clearBtn := Button(Txt("Clear Zones"), Command(h.OnClear))
	Grid(clearBtn, In(zoneBtns), Row(0), Column(2), Sticky("w"), Padx("0.2m"))
	snapBtn := Button(Txt("Snapshot"), Command(h.OnSnapshot))
	Grid(snapBtn, In(zoneBtns), Row(0), Column(3), Sticky("w"), Padx("0.2m"))
	row++

	rv.zoneList = Text(Height(4), Width(80))
	Grid(rv.zoneList, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.2m"))
	row++

	// Log panel.
	rv.logText = Text(Height(8), Width(80))
	Grid(rv.logText, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.2m"))
	row++

	// Preview.
	placeholder := image.NewRGBA(image.Rect(0, 0, 200, 120))
	rv.prevPhoto = NewPhoto(Data(images.EncodePNG(placeholder)))
	rv.preview = Label(Image(rv.prevPhoto), Borderwidth(1), Relief("sunken"))
	Grid(rv.preview, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
}

// AppendLog adds one line to the log panel.
func (rv *RootView) AppendLog(line string) {
	if rv == nil || rv.logText == nil {
		return
	}
	rv.logText.Insert("end", line+"\n")
}

// SetState updates the state label.
func (rv *RootView) SetState(text string) {
	if rv != nil && rv.StateLabel != nil {
		rv.StateLabel.Configure(Txt("State: " + text))
	}
}

// SetZoneStatus updates the zone count line.
func (rv *RootView) SetZoneStatus(text string) {
	if rv != nil && rv.ZoneStatus != nil {
		rv.ZoneStatus.Configure(Txt(text))
	}
}

// SetZones replaces the zone list contents.
func (rv *RootView) SetZones(lines []string) {
	if rv == nil || rv.zoneList == nil {
		return
	}
	rv.zoneList.Delete("1.0", END)
	rv.zoneList.Insert("1.0", strings.Join(lines, "\n"))
}

// UpdatePreview replaces the preview image, disposing the previous photo so
// obsolete pixel buffers are not retained.
func (rv *RootView) UpdatePreview(img image.Image) {
	if rv == nil || rv.preview == nil || img == nil {
		return
	}
	scaled := images.ScaleToFit(img, maxPreviewW, maxPreviewH)
	pngBytes := images.EncodePNG(scaled)
	if rv.prevPhoto != nil {
		rv.prevPhoto.Delete()
	}
	rv.prevPhoto = NewPhoto(Data(pngBytes))
	rv.preview.Configure(Image(rv.prevPhoto))
}

// ShowAlert opens a topmost alert window for a fired notification, replacing
// any alert still on screen. It dismisses itself after a few seconds.
func (rv *RootView) ShowAlert(message string) {
	if rv == nil {
		return
	}
	rv.closeAlert()
	win := App.Toplevel(Borderwidth(2), Relief("raised"))
	win.WmTitle("Smartphone detected")
	WmGeometry(win.Window, "+200+200")
	WmAttributes(win.Window, "-topmost", 1)
	rv.alertWin = win

	lbl := win.Label(Txt(message))
	Grid(lbl, Row(0), Column(0), Sticky("we"), Padx("3m"), Pady("2m"))
	btn := win.Button(Txt("Dismiss"), Command(rv.closeAlert))
	Grid(btn, Row(1), Column(0), Pady("1m"))

	rv.alertAfter = TclAfter(alertAutoClose, rv.closeAlert)
}

func (rv *RootView) closeAlert() {
	if rv.alertAfter != "" {
		TclAfterCancel(rv.alertAfter)
		rv.alertAfter = ""
	}
	if rv.alertWin != nil {
		Destroy(rv.alertWin)
		rv.alertWin = nil
	}
}

func (rv *RootView) text(w *TextWidget) string {
	if w == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(w.Get("1.0", END), ""))
}

func (rv *RootView) selectedSource() string {
	if rv.zoneSource == nil {
		return zoneSources[0]
	}
	idxStr := rv.zoneSource.Current(nil)
	if idx, err := strconv.Atoi(idxStr); err == nil && idx >= 0 && idx < len(zoneSources) {
		return zoneSources[idx]
	}
	return zoneSources[0]
}

func (rv *RootView) zoneEntry() (x, y, w, h int, ok bool) {
	get := func(id string) (int, bool) {
		return parseIntField(rv.text(rv.zoneFields[id]))
	}
	var okX, okY, okW, okH bool
	x, okX = get("x")
	y, okY = get("y")
	w, okW = get("w")
	h, okH = get("h")
	return x, y, w, h, okX && okY && okW && okH
}

func parseFloatField(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

func parseIntField(s string) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	return i, err == nil
}
