package eer

import (
	"math"

	hwyimage "github.com/ajroetker/go-highway/hwy/contrib/image"
)

// maxCount is the saturation limit of a pixel counter.
const maxCount = math.MaxUint16

// CountImage is a dense 2D histogram of electron-arrival counts, one
// uint16 per pixel. Counts saturate at 65535 rather than wrapping:
// wrapping would turn the densest pixels into the darkest ones.
//
// The backing store is a SIMD-aligned image whose rows may carry
// padding, so access pixels through Row, At, or Pix rather than
// assuming a packed layout.
type CountImage struct {
	width, height int
	img           *hwyimage.Image[uint16]
}

func newCountImage(width, height int) *CountImage {
	return &CountImage{
		width:  width,
		height: height,
		img:    hwyimage.NewImage[uint16](width, height),
	}
}

// Width returns the image width in pixels.
func (m *CountImage) Width() int { return m.width }

// Height returns the image height in pixels.
func (m *CountImage) Height() int { return m.height }

// At returns the count at (x, y).
func (m *CountImage) At(x, y int) uint16 {
	return m.img.Row(y)[x]
}

// Row returns row y of the histogram. The slice aliases the image.
func (m *CountImage) Row(y int) []uint16 {
	return m.img.Row(y)[:m.width]
}

// Pix returns the counts as a packed row-major copy.
func (m *CountImage) Pix() []uint16 {
	out := make([]uint16, m.width*m.height)
	for y := 0; y < m.height; y++ {
		copy(out[y*m.width:(y+1)*m.width], m.img.Row(y)[:m.width])
	}
	return out
}

// increment records one event at flat pixel index idx, saturating.
func (m *CountImage) increment(idx int) {
	row := m.img.Row(idx / m.width)
	col := idx % m.width
	if row[col] != maxCount {
		row[col]++
	}
}

// add accumulates other into m element-wise, saturating.
func (m *CountImage) add(other *CountImage) {
	for y := 0; y < m.height; y++ {
		dst := m.img.Row(y)[:m.width]
		src := other.img.Row(y)[:m.width]
		for x := range dst {
			sum := uint32(dst[x]) + uint32(src[x])
			if sum > maxCount {
				sum = maxCount
			}
			dst[x] = uint16(sum)
		}
	}
}
