package mrc

import (
	"encoding/binary"
	"image"
	"math"

	"github.com/hexbee-net/errors"

	"github.com/BioImage-Archive/emfir/internal/render"
)

// sampleSize returns bytes per voxel for thumbnailable modes.
func sampleSize(mode int32) (int, error) {
	switch mode {
	case ModeInt8:
		return 1, nil
	case ModeInt16, ModeUint16:
		return 2, nil
	case ModeFloat32:
		return 4, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedMode, "mode %d", mode)
}

// Thumbnail renders the first section of the map as 8-bit grayscale,
// sampling every factorth voxel along both axes (nearest neighbor)
// and min-max normalizing. Complex modes are not thumbnailable.
func (f *File) Thumbnail(factor int) (*image.Gray, error) {
	if factor < 1 {
		factor = 1
	}
	h := f.header
	elem, err := sampleSize(h.Mode)
	if err != nil {
		return nil, err
	}

	thumbW := (int(h.NX) + factor - 1) / factor
	thumbH := (int(h.NY) + factor - 1) / factor
	vals := make([]float32, thumbW*thumbH)

	rowBuf := make([]byte, int(h.NX)*elem)
	base := int64(headerSize) + int64(h.ExtSize)
	for y := 0; y < thumbH; y++ {
		srcY := y * factor
		off := base + int64(srcY)*int64(len(rowBuf))
		if _, err := f.r.ReadAt(rowBuf, off); err != nil {
			return nil, errors.Wrapf(err, "mrc: read row %d", srcY)
		}
		for x := 0; x < thumbW; x++ {
			vals[y*thumbW+x] = sampleAt(rowBuf, x*factor, h.Mode)
		}
	}
	return render.Gray(vals, thumbW, thumbH), nil
}

// WriteThumbnail renders a thumbnail and writes it to path as PNG.
func (f *File) WriteThumbnail(path string, factor int) error {
	img, err := f.Thumbnail(factor)
	if err != nil {
		return err
	}
	return render.WritePNG(path, img)
}

func sampleAt(row []byte, i int, mode int32) float32 {
	switch mode {
	case ModeInt8:
		return float32(int8(row[i]))
	case ModeInt16:
		return float32(int16(binary.LittleEndian.Uint16(row[2*i:])))
	case ModeUint16:
		return float32(binary.LittleEndian.Uint16(row[2*i:]))
	case ModeFloat32:
		return math.Float32frombits(binary.LittleEndian.Uint32(row[4*i:]))
	}
	return 0
}
