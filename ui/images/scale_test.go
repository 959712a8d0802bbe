package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleToFitShrinksPreservingAspect(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 800, 400))

	out := ScaleToFit(src, 400, 300)
	b := out.Bounds()
	assert.Equal(t, 400, b.Dx())
	assert.Equal(t, 200, b.Dy())
}

func TestScaleToFitLeavesSmallImagesAlone(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	assert.Equal(t, image.Image(src), ScaleToFit(src, 400, 300))
}

func TestEncodePNGRoundTrips(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	src.SetRGBA(3, 4, color.RGBA{R: 255, A: 255})

	data := EncodePNG(src)
	require.NotEmpty(t, data)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), decoded.Bounds())
}

func TestDrawOutlineStaysInsideBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	red := color.RGBA{R: 255, A: 255}

	// Rectangle partially off-screen must not panic and must paint the
	// visible portion only.
	DrawOutline(img, image.Rect(40, 40, 80, 80), red, 2)

	assert.Equal(t, red, img.RGBAAt(45, 40))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(30, 30))
}

func TestDrawOutlineLeavesInteriorUntouched(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	red := color.RGBA{R: 255, A: 255}

	DrawOutline(img, image.Rect(10, 10, 40, 40), red, 1)

	assert.Equal(t, red, img.RGBAAt(10, 10))
	assert.Equal(t, red, img.RGBAAt(39, 25))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(25, 25))
}
