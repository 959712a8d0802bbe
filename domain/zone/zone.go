package zone

import (
	"fmt"
	"image"
)

// Source tags where a zone's rectangle was drawn.
type Source string

const (
	SourceLivePreview      Source = "live-preview"
	SourceLoadedScreenshot Source = "loaded-screenshot"
)

// Rect is a screen rectangle in pixel coordinates. Width and Height must be
// positive for the rectangle to be valid.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromBounds converts an image.Rectangle into a Rect.
func FromBounds(r image.Rectangle) Rect {
	r = r.Canon()
	return Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Bounds returns the rectangle as an image.Rectangle.
func (r Rect) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Valid reports whether the rectangle has positive area and non-negative origin.
func (r Rect) Valid() bool {
	return r.X >= 0 && r.Y >= 0 && r.Width > 0 && r.Height > 0
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d) %dx%d", r.X, r.Y, r.Width, r.Height)
}

// ExclusionZone is a user-declared screen rectangle inside which detections
// are ignored. Zones are immutable once created; removal goes through the store.
// The embedded Rect flattens into the JSON record, matching the on-disk format
// {id, x, y, width, height, source}.
type ExclusionZone struct {
	ID string `json:"id"`
	Rect
	Source Source `json:"source"`
}
