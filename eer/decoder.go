package eer

import (
	"log/slog"
	"os"

	"github.com/hexbee-net/errors"

	"github.com/BioImage-Archive/emfir/internal/render"
	"github.com/BioImage-Archive/emfir/internal/tiffio"
)

// maxStripSize bounds a single strip's byte count so a corrupt strip
// table cannot force an unbounded allocation.
const maxStripSize = 1 << 30

// maxFrameDim bounds each frame dimension. Each dimension is checked
// on its own; bounding the product instead would let two huge BigTIFF
// dimensions overflow uint64 and slip past the check.
const maxFrameDim = 1 << 16

// Options controls decoding behavior.
type Options struct {
	// Logger receives per-frame progress at debug level.
	// Nil leaves the decoder silent.
	Logger *slog.Logger
}

// Decoder reads an EER movie: one container page per detector frame,
// each page holding a bit-packed electron-event stream in strips.
//
// A Decoder is not safe for concurrent use; it owns a single strip
// buffer reused across reads.
type Decoder struct {
	f             *os.File
	tf            *tiffio.File
	width, height int
	log           *slog.Logger

	stripBuf      []byte
	framesDecoded int
}

// Open opens an EER file and parses its container structure. Pixel
// data is not read until a frame is decoded.
func Open(path string) (*Decoder, error) {
	return OpenOptions(path, Options{})
}

// OpenOptions is Open with explicit Options.
func OpenOptions(path string, opts Options) (*Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	tf, err := tiffio.Open(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	page := tf.Page(0)
	w, err := page.Uint(tiffio.TagImageWidth)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "eer: frame width")
	}
	h, err := page.Uint(tiffio.TagImageLength)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "eer: frame height")
	}
	if w == 0 || h == 0 || w > maxFrameDim || h > maxFrameDim {
		f.Close()
		return nil, errors.Wrapf(ErrCorruptStream, "frame dimensions %dx%d", w, h)
	}

	return &Decoder{
		f:      f,
		tf:     tf,
		width:  int(w),
		height: int(h),
		log:    opts.Logger,
	}, nil
}

// Close releases the underlying file.
func (d *Decoder) Close() error { return d.f.Close() }

// Width returns the frame width in pixels.
func (d *Decoder) Width() int { return d.width }

// Height returns the frame height in pixels.
func (d *Decoder) Height() int { return d.height }

// FrameCount returns the number of detector frames in the movie.
func (d *Decoder) FrameCount() int { return d.tf.PageCount() }

// Frame decodes frame i into a fresh count image.
func (d *Decoder) Frame(i int) (*CountImage, error) {
	if i < 0 || i >= d.tf.PageCount() {
		return nil, errors.Wrapf(ErrFrameRange, "frame %d of %d", i, d.tf.PageCount())
	}
	img := newCountImage(d.width, d.height)
	if err := d.decodeFrame(i, img); err != nil {
		return nil, err
	}
	return img, nil
}

// Sum decodes every strideth frame (0, stride, 2*stride, ...) and
// accumulates them into one count image with saturating addition.
// For N frames and stride S, ceil(N/S) frames are decoded.
func (d *Decoder) Sum(stride int) (*CountImage, error) {
	if stride < 1 {
		stride = 1
	}
	total := d.tf.PageCount()
	selected := (total + stride - 1) / stride

	sum := newCountImage(d.width, d.height)
	for idx := 0; idx < total; idx += stride {
		if d.log != nil {
			d.log.Debug("decoding frame", "frame", idx, "frames", total, "selected", selected)
		}
		frame := newCountImage(d.width, d.height)
		if err := d.decodeFrame(idx, frame); err != nil {
			return nil, err
		}
		sum.add(frame)
	}
	return sum, nil
}

// decodeFrame rasterizes the events of one frame into img.
// Compression parameters are resolved from this frame's own page:
// the compression code may legitimately differ between frames.
func (d *Decoder) decodeFrame(idx int, img *CountImage) error {
	page := d.tf.Page(idx)

	w, err := page.Uint(tiffio.TagImageWidth)
	if err != nil {
		return errors.Wrapf(err, "eer: frame %d width", idx)
	}
	h, err := page.Uint(tiffio.TagImageLength)
	if err != nil {
		return errors.Wrapf(err, "eer: frame %d height", idx)
	}
	if int(w) != d.width || int(h) != d.height {
		return errors.Wrapf(ErrFrameMismatch, "frame %d is %dx%d, movie is %dx%d",
			idx, w, h, d.width, d.height)
	}

	params, err := resolveParams(page)
	if err != nil {
		return errors.Wrapf(err, "frame %d", idx)
	}

	offsets, err := page.UintSlice(tiffio.TagStripOffsets)
	if err != nil {
		return errors.Wrapf(err, "eer: frame %d strip offsets", idx)
	}
	sizes, err := page.UintSlice(tiffio.TagStripByteCounts)
	if err != nil {
		return errors.Wrapf(err, "eer: frame %d strip byte counts", idx)
	}
	if len(offsets) != len(sizes) {
		return errors.Wrapf(ErrCorruptStream, "frame %d has %d strip offsets but %d sizes",
			idx, len(offsets), len(sizes))
	}

	rowsPerStrip := uint64(d.height) // TIFF default: one strip covers the frame
	if page.Has(tiffio.TagRowsPerStrip) {
		rowsPerStrip, err = page.Uint(tiffio.TagRowsPerStrip)
		if err != nil {
			return errors.Wrapf(err, "eer: frame %d rows per strip", idx)
		}
		if rowsPerStrip == 0 {
			return errors.Wrapf(ErrCorruptStream, "frame %d has zero rows per strip", idx)
		}
	}

	for i := range offsets {
		if err := d.decodeStrip(img, params, offsets[i], sizes[i], i, int(rowsPerStrip)); err != nil {
			return errors.Wrapf(err, "frame %d strip %d", idx, i)
		}
	}

	d.framesDecoded++
	return nil
}

// decodeStrip fetches one strip's bytes and rasterizes its events
// into the rows the strip covers.
func (d *Decoder) decodeStrip(img *CountImage, params CompressionParams, off, size uint64, stripIdx, rowsPerStrip int) error {
	startRow := stripIdx * rowsPerStrip
	if startRow >= d.height {
		return errors.Wrapf(ErrCorruptStream, "strip starts at row %d of %d", startRow, d.height)
	}
	endRow := min(startRow+rowsPerStrip, d.height)

	if size == 0 {
		return nil // empty strip: no events in this row range
	}
	if size > maxStripSize {
		return errors.Wrapf(ErrCorruptStream, "strip size %d", size)
	}

	if uint64(cap(d.stripBuf)) < size {
		d.stripBuf = make([]byte, size)
	}
	buf := d.stripBuf[:size]
	if _, err := d.f.ReadAt(buf, int64(off)); err != nil {
		return errors.Wrap(err, "read strip")
	}

	return decodeStripBits(img, params, buf, startRow*d.width, endRow*d.width)
}

// decodeStripBits decodes one strip's event stream into the flat
// pixel range [stripStart, stripEnd) of img.
//
// The stream is a run of fixed-width skip codes. Each code advances
// the pixel cursor by its value; unless the code equals the sentinel
// (all ones for the code width) it is then followed by vertical and
// horizontal sub-pixel bits and marks one event at the new position,
// which consumes one further pixel slot. The sentinel is skip-only:
// no event, no sub-pixel bits. A skip that reaches or passes the end
// of the range ends the strip; the partial trailing skip is
// discarded. Sub-pixel bits are consumed but not used: events are
// placed at integer pixel resolution only.
func decodeStripBits(img *CountImage, params CompressionParams, data []byte, stripStart, stripEnd int) error {
	br := newBitReader(data)
	sentinel := params.sentinel()

	pos := 0
	for stripStart+pos < stripEnd {
		skip, err := br.readBits(params.CodeLen)
		if err != nil {
			return err
		}
		pos += int(skip)
		if stripStart+pos >= stripEnd {
			break
		}
		if skip == sentinel {
			continue
		}
		if _, err := br.readBits(params.VertSubBits); err != nil {
			return err
		}
		if _, err := br.readBits(params.HorzSubBits); err != nil {
			return err
		}
		img.increment(stripStart + pos)
		pos++
	}
	return nil
}

// Thumbnail decodes every strideth frame of the movie at path, sums
// them, and writes a log-scaled grayscale PNG to outPath.
func Thumbnail(path, outPath string, stride int) error {
	d, err := Open(path)
	if err != nil {
		return err
	}
	defer d.Close()

	img, err := d.Sum(stride)
	if err != nil {
		return err
	}
	return render.WritePNG(outPath, render.LogGray(img.Pix(), img.Width(), img.Height()))
}
