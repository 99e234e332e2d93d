// Package imaging implements the ROI cropping, JPEG encoding, and evidence
// overlay drawing the core depends on. Frame wraps an opaque image.Image;
// nothing above this package names a concrete codec.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/shashibhat/safehaven-core/internal/config"
)

// Frame wraps a decoded image. Its size is read from Img.Bounds() on
// each Dims call; nothing is cached.
type Frame struct {
	Img image.Image
}

// Dims returns the pixel width and height of the frame.
func (f Frame) Dims() (w, h int) {
	b := f.Img.Bounds()
	return b.Dx(), b.Dy()
}

// CropROI resolves a normalized-or-absolute ROI to pixel coordinates,
// clamps them to the frame bounds, and always returns a sub-image of
// at least 1x1 pixels.
func CropROI(frame Frame, roi config.ROI) (Frame, error) {
	w, h := frame.Dims()
	if w <= 0 || h <= 0 {
		return Frame{}, fmt.Errorf("imaging: empty frame")
	}

	x1 := clampInt(roundCoord(roi.X, roi.X <= 1, float64(w)), 0, w-1)
	y1 := clampInt(roundCoord(roi.Y, roi.Y <= 1, float64(h)), 0, h-1)
	rw := roundCoord(roi.W, roi.W <= 1, float64(w))
	rh := roundCoord(roi.H, roi.H <= 1, float64(h))

	x2 := minInt(w, maxInt(x1+1, x1+rw))
	y2 := minInt(h, maxInt(y1+1, y1+rh))

	base := frame.Img.Bounds()
	rect := image.Rect(base.Min.X+x1, base.Min.Y+y1, base.Min.X+x2, base.Min.Y+y2)

	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(cropped, cropped.Bounds(), frame.Img, rect.Min, draw.Src)
	return Frame{Img: cropped}, nil
}

func roundCoord(v float64, normalized bool, dim float64) int {
	if normalized {
		return int(math.Round(v * dim))
	}
	return int(math.Round(v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// EncodeJPEG encodes a frame to JPEG bytes. image/jpeg is the standard
// codec every higher-level Go image library (including the ones this
// module otherwise pulls from the example pack) ultimately delegates to
// for JPEG output, so there is no third-party encoder to wire here.
func EncodeJPEG(frame Frame, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("imaging: jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

// green is the overlay color used for both the ROI rectangle outline and
// its caption text, matching the original's cv2 (0, 255, 0) BGR green.
var green = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// DrawROIOverlay returns a copy of full with the ROI outlined in a 2px
// green rectangle and "{label} {score:.2f}" captioned top-left, matching
// the full-frame evidence artifact the emitter writes alongside the crop.
func DrawROIOverlay(full Frame, roi config.ROI, label string, score float64) (Frame, error) {
	w, h := full.Dims()
	if w <= 0 || h <= 0 {
		return Frame{}, fmt.Errorf("imaging: empty frame")
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), full.Img, full.Img.Bounds().Min, draw.Src)

	x1 := clampInt(roundCoord(roi.X, roi.X <= 1, float64(w)), 0, w-1)
	y1 := clampInt(roundCoord(roi.Y, roi.Y <= 1, float64(h)), 0, h-1)
	rw := roundCoord(roi.W, roi.W <= 1, float64(w))
	rh := roundCoord(roi.H, roi.H <= 1, float64(h))
	x2 := minInt(w-1, maxInt(x1, x1+rw))
	y2 := minInt(h-1, maxInt(y1, y1+rh))

	strokeRect(out, x1, y1, x2, y2, 2, green)

	caption := fmt.Sprintf("%s %.2f", label, score)
	drawText(out, caption, 20, 30, green)

	return Frame{Img: out}, nil
}

func strokeRect(img *image.RGBA, x1, y1, x2, y2, thickness int, c color.Color) {
	for t := 0; t < thickness; t++ {
		horizontalLine(img, x1, x2, y1+t, c)
		horizontalLine(img, x1, x2, y2-t, c)
		verticalLine(img, y1, y2, x1+t, c)
		verticalLine(img, y1, y2, x2-t, c)
	}
}

func horizontalLine(img *image.RGBA, x1, x2, y int, c color.Color) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	for x := x1; x <= x2; x++ {
		if x < b.Min.X || x >= b.Max.X {
			continue
		}
		img.Set(x, y, c)
	}
}

func verticalLine(img *image.RGBA, y1, y2, x int, c color.Color) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	for y := y1; y <= y2; y++ {
		if y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		img.Set(x, y, c)
	}
}

func drawText(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
