// Package render converts decoded sample buffers into 8-bit
// grayscale thumbnails.
package render

import (
	"image"
	"image/png"
	"math"
	"os"
)

// LogGray maps uint16 counts to grayscale with log scaling: each
// count becomes ln(1+count) before min-max normalization. Electron
// event histograms are sparse with a few very hot pixels; linear
// scaling would render everything else black.
func LogGray(counts []uint16, width, height int) *image.Gray {
	vals := make([]float32, len(counts))
	for i, c := range counts {
		vals[i] = float32(math.Log1p(float64(c)))
	}
	return Gray(vals, width, height)
}

// Gray min-max normalizes vals into an 8-bit grayscale image. A
// constant buffer renders as black.
func Gray(vals []float32, width, height int) *image.Gray {
	minV := float32(math.Inf(1))
	maxV := float32(math.Inf(-1))
	for _, v := range vals {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	span := maxV - minV

	img := image.NewGray(image.Rect(0, 0, width, height))
	if span <= 0 {
		return img
	}
	for i, v := range vals {
		img.Pix[i] = uint8((v - minV) / span * 255)
	}
	return img
}

// WritePNG encodes img to path as PNG.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
