package imaging_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashibhat/safehaven-core/internal/config"
	"github.com/shashibhat/safehaven-core/internal/imaging"
)

func solidFrame(w, h int, c color.Color) imaging.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return imaging.Frame{Img: img}
}

func TestCropROI_Normalized(t *testing.T) {
	frame := solidFrame(200, 100, color.White)
	cropped, err := imaging.CropROI(frame, config.ROI{X: 0.1, Y: 0.2, W: 0.5, H: 0.5})
	require.NoError(t, err)

	w, h := cropped.Dims()
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
}

func TestCropROI_Absolute(t *testing.T) {
	frame := solidFrame(640, 480, color.White)
	cropped, err := imaging.CropROI(frame, config.ROI{X: 10, Y: 10, W: 50, H: 40})
	require.NoError(t, err)

	w, h := cropped.Dims()
	assert.Equal(t, 50, w)
	assert.Equal(t, 40, h)
}

func TestCropROI_AlwaysNonEmpty(t *testing.T) {
	frame := solidFrame(640, 480, color.White)
	cropped, err := imaging.CropROI(frame, config.ROI{X: 1.0, Y: 1.0, W: 0, H: 0})
	require.NoError(t, err)

	w, h := cropped.Dims()
	assert.GreaterOrEqual(t, w, 1)
	assert.GreaterOrEqual(t, h, 1)
}

func TestCropROI_ClampsOutOfBounds(t *testing.T) {
	frame := solidFrame(100, 100, color.White)
	cropped, err := imaging.CropROI(frame, config.ROI{X: 0.95, Y: 0.95, W: 0.5, H: 0.5})
	require.NoError(t, err)

	w, h := cropped.Dims()
	assert.LessOrEqual(t, w, 100)
	assert.LessOrEqual(t, h, 100)
}

func TestEncodeJPEG_ProducesValidHeader(t *testing.T) {
	frame := solidFrame(32, 32, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	data, err := imaging.EncodeJPEG(frame, 85)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(data), 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2]) // JPEG SOI marker
}

func TestDrawROIOverlay_PreservesDimensions(t *testing.T) {
	frame := solidFrame(320, 240, color.Black)
	out, err := imaging.DrawROIOverlay(frame, config.ROI{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}, "garage", 0.87)
	require.NoError(t, err)

	w, h := out.Dims()
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
}
