package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
)

// EncodePNG encodes an image to PNG bytes. Errors are ignored and may return an empty slice.
func EncodePNG(img image.Image) []byte {
	if img == nil {
		return nil
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// ScaleToFit scales the image down so it fits within maxW x maxH preserving
// aspect ratio. If the source already fits, the original is returned.
func ScaleToFit(src image.Image, maxW, maxH int) image.Image {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	if b.Dx() <= maxW && b.Dy() <= maxH {
		return src
	}
	if maxW < 1 {
		maxW = 1
	}
	if maxH < 1 {
		maxH = 1
	}
	return imaging.Fit(src, maxW, maxH, imaging.Linear)
}

// DrawOutline draws a rectangle outline of the given thickness onto img,
// clipped to the image bounds. Used to overlay zones and detection boxes on
// preview snapshots.
func DrawOutline(img *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	if img == nil || thickness < 1 {
		return
	}
	r = r.Canon()
	for t := 0; t < thickness; t++ {
		top := r.Min.Y + t
		bottom := r.Max.Y - 1 - t
		for x := r.Min.X; x < r.Max.X; x++ {
			setIfInside(img, x, top, c)
			setIfInside(img, x, bottom, c)
		}
		left := r.Min.X + t
		right := r.Max.X - 1 - t
		for y := r.Min.Y; y < r.Max.Y; y++ {
			setIfInside(img, left, y, c)
			setIfInside(img, right, y, c)
		}
	}
}

func setIfInside(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}
