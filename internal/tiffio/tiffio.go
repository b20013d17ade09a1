// Package tiffio provides the minimal TIFF container access the EER
// reader needs: byte-order detection, IFD enumeration for classic
// TIFF and BigTIFF, and raw tag access including vendor tags.
//
// It is deliberately not a general TIFF decoder. EER movies store one
// detector frame per IFD page and put everything the event decoder
// needs into a handful of tags; pixel data is read separately, strip
// by strip, through the offsets this package exposes.
package tiffio

import (
	"encoding/binary"
	"io"

	"github.com/hexbee-net/errors"
)

const (
	ErrNotTIFF     = errors.Error("tiffio: not a TIFF file")
	ErrCorrupt     = errors.Error("tiffio: corrupt container")
	ErrTagNotFound = errors.Error("tiffio: tag not present")
	ErrBadTagType  = errors.Error("tiffio: unexpected tag type")
)

// Baseline tag IDs used by the EER reader.
const (
	TagImageWidth      = 256
	TagImageLength     = 257
	TagCompression     = 259
	TagStripOffsets    = 273
	TagRowsPerStrip    = 278
	TagStripByteCounts = 279
)

// TIFF field types (the subset EER files use).
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeUndefined = 7
	typeLong8     = 16
)

// fieldSize maps a field type to its per-element byte size. Zero
// means the type is unknown and the entry is skipped.
func fieldSize(typ uint16) int {
	switch typ {
	case typeByte, typeASCII, typeUndefined:
		return 1
	case typeShort:
		return 2
	case typeLong:
		return 4
	case typeRational, typeLong8:
		return 8
	}
	return 0
}

// Sanity bounds so a corrupt file cannot force unbounded allocation.
const (
	maxIFDEntries = 4096
	maxValueBytes = 16 << 20
	maxPages      = 1 << 20
)

type entry struct {
	typ   uint16
	count uint64
	raw   []byte // value bytes, already loaded (inline or from offset)
}

// Page is one IFD: the tag set of a single detector frame.
type Page struct {
	f    *File
	tags map[uint16]entry
}

// File is an open TIFF or BigTIFF container.
type File struct {
	r     io.ReaderAt
	bo    binary.ByteOrder
	big   bool
	pages []*Page
}

// Open parses the container header and walks the whole IFD chain.
// Tag values are loaded eagerly (they are small); strip pixel data is
// not touched, so advancing across pages never decodes anything.
func Open(r io.ReaderAt) (*File, error) {
	var hdr [16]byte
	if _, err := r.ReadAt(hdr[:8], 0); err != nil {
		return nil, errors.Wrap(err, "tiffio: read header")
	}

	f := &File{r: r}
	switch {
	case hdr[0] == 'I' && hdr[1] == 'I':
		f.bo = binary.LittleEndian
	case hdr[0] == 'M' && hdr[1] == 'M':
		f.bo = binary.BigEndian
	default:
		return nil, ErrNotTIFF
	}

	var next uint64
	switch f.bo.Uint16(hdr[2:4]) {
	case 42: // classic
		next = uint64(f.bo.Uint32(hdr[4:8]))
	case 43: // BigTIFF
		if _, err := r.ReadAt(hdr[:16], 0); err != nil {
			return nil, errors.Wrap(err, "tiffio: read BigTIFF header")
		}
		if f.bo.Uint16(hdr[4:6]) != 8 || f.bo.Uint16(hdr[6:8]) != 0 {
			return nil, errors.Wrap(ErrCorrupt, "BigTIFF offset size")
		}
		f.big = true
		next = f.bo.Uint64(hdr[8:16])
	default:
		return nil, ErrNotTIFF
	}

	for next != 0 {
		page, n, err := f.readIFD(next)
		if err != nil {
			return nil, errors.Wrapf(err, "page %d", len(f.pages))
		}
		f.pages = append(f.pages, page)
		if len(f.pages) > maxPages {
			return nil, errors.Wrap(ErrCorrupt, "too many pages")
		}
		next = n
	}
	if len(f.pages) == 0 {
		return nil, errors.Wrap(ErrCorrupt, "no pages")
	}
	return f, nil
}

// PageCount returns the number of IFD pages in the container.
func (f *File) PageCount() int { return len(f.pages) }

// Page returns page i. It panics on out-of-range indices; callers
// bound i by PageCount.
func (f *File) Page(i int) *Page { return f.pages[i] }

// readIFD parses one IFD at off and returns it with the offset of
// the next IFD (zero at the end of the chain).
func (f *File) readIFD(off uint64) (*Page, uint64, error) {
	var (
		countBuf  [8]byte
		countLen  = 2
		entryLen  = 12
		offsetLen = 4
	)
	if f.big {
		countLen, entryLen, offsetLen = 8, 20, 8
	}

	if _, err := f.r.ReadAt(countBuf[:countLen], int64(off)); err != nil {
		return nil, 0, errors.Wrap(err, "read entry count")
	}
	var n uint64
	if f.big {
		n = f.bo.Uint64(countBuf[:8])
	} else {
		n = uint64(f.bo.Uint16(countBuf[:2]))
	}
	if n > maxIFDEntries {
		return nil, 0, errors.Wrapf(ErrCorrupt, "%d IFD entries", n)
	}

	raw := make([]byte, int(n)*entryLen+offsetLen)
	if _, err := f.r.ReadAt(raw, int64(off)+int64(countLen)); err != nil {
		return nil, 0, errors.Wrap(err, "read entries")
	}

	page := &Page{f: f, tags: make(map[uint16]entry, n)}
	for i := 0; i < int(n); i++ {
		e := raw[i*entryLen : (i+1)*entryLen]
		tag := f.bo.Uint16(e[0:2])
		typ := f.bo.Uint16(e[2:4])

		size := fieldSize(typ)
		if size == 0 {
			continue // unknown field type, skip the entry
		}

		var count uint64
		var value []byte
		if f.big {
			count = f.bo.Uint64(e[4:12])
			value = e[12:20]
		} else {
			count = uint64(f.bo.Uint32(e[4:8]))
			value = e[8:12]
		}

		total := count * uint64(size)
		if total > maxValueBytes {
			return nil, 0, errors.Wrapf(ErrCorrupt, "tag %d value is %d bytes", tag, total)
		}

		var val []byte
		if total <= uint64(len(value)) {
			val = append([]byte(nil), value[:total]...)
		} else {
			var valOff uint64
			if f.big {
				valOff = f.bo.Uint64(value)
			} else {
				valOff = uint64(f.bo.Uint32(value))
			}
			val = make([]byte, total)
			if _, err := f.r.ReadAt(val, int64(valOff)); err != nil {
				return nil, 0, errors.Wrapf(err, "read tag %d value", tag)
			}
		}
		page.tags[tag] = entry{typ: typ, count: count, raw: val}
	}

	var next uint64
	tail := raw[int(n)*entryLen:]
	if f.big {
		next = f.bo.Uint64(tail)
	} else {
		next = uint64(f.bo.Uint32(tail))
	}
	return page, next, nil
}

// Has reports whether the page carries the tag.
func (p *Page) Has(tag uint16) bool {
	_, ok := p.tags[tag]
	return ok
}

// Uint returns the first element of an unsigned integer tag
// (SHORT, LONG, or LONG8).
func (p *Page) Uint(tag uint16) (uint64, error) {
	e, ok := p.tags[tag]
	if !ok {
		return 0, errors.Wrapf(ErrTagNotFound, "tag %d", tag)
	}
	if e.count == 0 {
		return 0, errors.Wrapf(ErrCorrupt, "tag %d has no values", tag)
	}
	return p.uintAt(e, 0, tag)
}

// UintSlice returns all elements of an unsigned integer tag.
func (p *Page) UintSlice(tag uint16) ([]uint64, error) {
	e, ok := p.tags[tag]
	if !ok {
		return nil, errors.Wrapf(ErrTagNotFound, "tag %d", tag)
	}
	out := make([]uint64, e.count)
	for i := range out {
		v, err := p.uintAt(e, i, tag)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Bytes returns the raw value of a BYTE, ASCII, or UNDEFINED tag.
func (p *Page) Bytes(tag uint16) ([]byte, error) {
	e, ok := p.tags[tag]
	if !ok {
		return nil, errors.Wrapf(ErrTagNotFound, "tag %d", tag)
	}
	switch e.typ {
	case typeByte, typeASCII, typeUndefined:
		return e.raw, nil
	}
	return nil, errors.Wrapf(ErrBadTagType, "tag %d type %d", tag, e.typ)
}

func (p *Page) uintAt(e entry, i int, tag uint16) (uint64, error) {
	bo := p.f.bo
	switch e.typ {
	case typeShort:
		return uint64(bo.Uint16(e.raw[2*i:])), nil
	case typeLong:
		return uint64(bo.Uint32(e.raw[4*i:])), nil
	case typeLong8:
		return bo.Uint64(e.raw[8*i:]), nil
	}
	return 0, errors.Wrapf(ErrBadTagType, "tag %d type %d", tag, e.typ)
}
