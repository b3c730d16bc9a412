// Package imaging holds the raster helpers the recognition pipeline needs
// around its backends: decoding uploaded frames, cropping face regions and
// the optional quality enhancement applied before embedding extraction.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/okian/facegate/internal/domain/model"
)

// ErrEmptyRegion is returned when a crop does not intersect the frame.
var ErrEmptyRegion = errors.New("region outside frame")

// Decode decodes an uploaded frame in any registered format.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// EncodePNG encodes img losslessly; used for stored pose references.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Crop copies the box out of frame into a new RGBA image whose origin is
// (0,0). The box is clamped to the frame first.
func Crop(frame image.Image, box model.Box) (*image.RGBA, error) {
	region := box.Clamp(frame.Bounds())
	if region.Empty() {
		return nil, ErrEmptyRegion
	}
	r := region.Rect()
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), frame, r.Min, draw.Src)
	return dst, nil
}

// Resize scales img to fit within maxSize on both axes, keeping the aspect
// ratio. Images already small enough are returned unchanged.
func Resize(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxSize <= 0 || (width <= maxSize && height <= maxSize) {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = max(1, int(float64(height)*float64(maxSize)/float64(width)))
	} else {
		newHeight = maxSize
		newWidth = max(1, int(float64(width)*float64(maxSize)/float64(height)))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}

// Enhance applies a luminance contrast stretch followed by a 3x3 sharpen.
// The result is a new image; img is not modified.
func Enhance(img image.Image) *image.RGBA {
	src := toRGBA(img)
	stretchContrast(src)
	return sharpen(src)
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// stretchContrast remaps luminance linearly so the darkest pixel becomes 0
// and the brightest 255. Flat images are left as they are.
func stretchContrast(img *image.RGBA) {
	lo, hi := 255.0, 0.0
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		l := luminance(pix[i], pix[i+1], pix[i+2])
		lo = min(lo, l)
		hi = max(hi, l)
	}
	if hi-lo < 1 {
		return
	}
	scale := 255 / (hi - lo)
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i] = clamp8((float64(pix[i]) - lo) * scale)
		pix[i+1] = clamp8((float64(pix[i+1]) - lo) * scale)
		pix[i+2] = clamp8((float64(pix[i+2]) - lo) * scale)
	}
}

var sharpenKernel = [3][3]float64{
	{0, -1, 0},
	{-1, 5, -1},
	{0, -1, 0},
}

func sharpen(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var r, g, bl float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					sx := min(max(x+kx, b.Min.X), b.Max.X-1)
					sy := min(max(y+ky, b.Min.Y), b.Max.Y-1)
					c := src.RGBAAt(sx, sy)
					w := sharpenKernel[ky+1][kx+1]
					r += w * float64(c.R)
					g += w * float64(c.G)
					bl += w * float64(c.B)
				}
			}
			dst.SetRGBA(x, y, color.RGBA{R: clamp8(r), G: clamp8(g), B: clamp8(bl), A: src.RGBAAt(x, y).A})
		}
	}
	return dst
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
