package tiffio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// classicIFD appends an IFD with the given 12-byte entries to buf and
// patches the pointer at ptrPos to it. Returns buf and the position
// of the new next-IFD pointer.
func classicIFD(buf []byte, ptrPos int, entries [][]byte) ([]byte, int) {
	le := binary.LittleEndian
	le.PutUint32(buf[ptrPos:], uint32(len(buf)))
	buf = le.AppendUint16(buf, uint16(len(entries)))
	for _, e := range entries {
		buf = append(buf, e...)
	}
	next := len(buf)
	buf = le.AppendUint32(buf, 0)
	return buf, next
}

func classicEntry(tag, typ uint16, count uint32, val [4]byte) []byte {
	le := binary.LittleEndian
	e := make([]byte, 12)
	le.PutUint16(e[0:], tag)
	le.PutUint16(e[2:], typ)
	le.PutUint32(e[4:], count)
	copy(e[8:], val[:])
	return e
}

func inline32(v uint32) [4]byte {
	var val [4]byte
	binary.LittleEndian.PutUint32(val[:], v)
	return val
}

func TestOpenClassic(t *testing.T) {
	le := binary.LittleEndian
	buf := []byte{'I', 'I', 42, 0, 0, 0, 0, 0}

	// Out-of-line LONG array for strip offsets.
	arrOff := uint32(len(buf))
	for _, v := range []uint32{100, 200, 300} {
		buf = le.AppendUint32(buf, v)
	}

	var short [4]byte
	le.PutUint16(short[:], 4096)

	buf, next := classicIFD(buf, 4, [][]byte{
		classicEntry(TagImageWidth, typeLong, 1, inline32(4096)),
		classicEntry(TagImageLength, typeShort, 1, short),
		classicEntry(TagCompression, typeLong, 1, inline32(65000)),
		classicEntry(TagStripOffsets, typeLong, 3, inline32(arrOff)),
	})
	buf, _ = classicIFD(buf, next, [][]byte{
		classicEntry(TagImageWidth, typeLong, 1, inline32(4096)),
	})

	f, err := Open(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.PageCount() != 2 {
		t.Fatalf("PageCount = %d, want 2", f.PageCount())
	}

	page := f.Page(0)
	if v, err := page.Uint(TagImageWidth); err != nil || v != 4096 {
		t.Errorf("width = %d, %v; want 4096", v, err)
	}
	if v, err := page.Uint(TagImageLength); err != nil || v != 4096 {
		t.Errorf("height (SHORT) = %d, %v; want 4096", v, err)
	}
	if v, err := page.Uint(TagCompression); err != nil || v != 65000 {
		t.Errorf("compression = %d, %v; want 65000", v, err)
	}

	offs, err := page.UintSlice(TagStripOffsets)
	if err != nil {
		t.Fatalf("UintSlice: %v", err)
	}
	want := []uint64{100, 200, 300}
	for i, v := range want {
		if offs[i] != v {
			t.Errorf("strip offset %d = %d, want %d", i, offs[i], v)
		}
	}

	if _, err := page.Uint(TagRowsPerStrip); !errors.Is(err, ErrTagNotFound) {
		t.Errorf("missing tag err = %v, want ErrTagNotFound", err)
	}
	if _, err := page.Bytes(TagImageWidth); !errors.Is(err, ErrBadTagType) {
		t.Errorf("Bytes on LONG err = %v, want ErrBadTagType", err)
	}
	if page.Has(TagRowsPerStrip) {
		t.Error("Has(RowsPerStrip) = true on page without it")
	}
}

func TestOpenBigEndian(t *testing.T) {
	be := binary.BigEndian
	buf := []byte{'M', 'M', 0, 42, 0, 0, 0, 8}
	buf = be.AppendUint16(buf, 1) // entry count
	e := make([]byte, 12)
	be.PutUint16(e[0:], TagImageWidth)
	be.PutUint16(e[2:], typeLong)
	be.PutUint32(e[4:], 1)
	be.PutUint32(e[8:], 512)
	buf = append(buf, e...)
	buf = be.AppendUint32(buf, 0)

	f, err := Open(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if v, err := f.Page(0).Uint(TagImageWidth); err != nil || v != 512 {
		t.Errorf("width = %d, %v; want 512", v, err)
	}
}

func TestOpenBigTIFF(t *testing.T) {
	le := binary.LittleEndian
	buf := []byte{'I', 'I', 43, 0, 8, 0, 0, 0}
	buf = le.AppendUint64(buf, 16) // first IFD right after the header

	buf = le.AppendUint64(buf, 2) // entry count
	e := make([]byte, 20)
	le.PutUint16(e[0:], TagImageWidth)
	le.PutUint16(e[2:], typeLong8)
	le.PutUint64(e[4:], 1)
	le.PutUint64(e[12:], 16384)
	buf = append(buf, e...)

	e = make([]byte, 20)
	le.PutUint16(e[0:], TagCompression)
	le.PutUint16(e[2:], typeShort)
	le.PutUint64(e[4:], 1)
	le.PutUint16(e[12:], 65001)
	buf = append(buf, e...)

	buf = le.AppendUint64(buf, 0) // no next IFD

	f, err := Open(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.PageCount() != 1 {
		t.Fatalf("PageCount = %d, want 1", f.PageCount())
	}
	if v, err := f.Page(0).Uint(TagImageWidth); err != nil || v != 16384 {
		t.Errorf("width (LONG8) = %d, %v; want 16384", v, err)
	}
	if v, err := f.Page(0).Uint(TagCompression); err != nil || v != 65001 {
		t.Errorf("compression = %d, %v; want 65001", v, err)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"wrong byte order mark", []byte{'X', 'X', 42, 0, 8, 0, 0, 0}, ErrNotTIFF},
		{"wrong magic", []byte{'I', 'I', 41, 0, 8, 0, 0, 0}, ErrNotTIFF},
		{"no pages", []byte{'I', 'I', 42, 0, 0, 0, 0, 0}, ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(bytes.NewReader(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("Open err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenRejectsHugeEntryCount(t *testing.T) {
	le := binary.LittleEndian
	buf := []byte{'I', 'I', 42, 0, 8, 0, 0, 0}
	buf = le.AppendUint16(buf, 65535) // claims 65535 entries, has none
	if _, err := Open(bytes.NewReader(buf)); err == nil {
		t.Error("Open accepted an IFD with a bogus entry count")
	}
}

func TestBytesTag(t *testing.T) {
	buf := []byte{'I', 'I', 42, 0, 0, 0, 0, 0}

	blob := []byte("<metadata><item name=\"a\">1</item></metadata>")
	blobOff := uint32(len(buf))
	buf = append(buf, blob...)

	buf, _ = classicIFD(buf, 4, [][]byte{
		classicEntry(65001, typeUndefined, uint32(len(blob)), inline32(blobOff)),
	})

	f, err := Open(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := f.Page(0).Bytes(65001)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Errorf("Bytes = %q, want %q", got, blob)
	}
}
