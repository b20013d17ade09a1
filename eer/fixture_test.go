package eer

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// fixtureFrame describes one page of a synthetic EER movie.
type fixtureFrame struct {
	width, height uint32
	rowsPerStrip  uint32 // 0 omits the tag
	compression   uint32
	extra         map[uint16]uint32 // additional scalar LONG tags
	xml           []byte            // vendor XML metadata, tag 65001
	strips        [][]byte

	// stripByteCounts overrides the byte-count array, for building
	// deliberately inconsistent strip tables.
	stripByteCounts []uint32
}

const (
	fixTypeLong      = 4
	fixTypeUndefined = 7
)

type fixtureEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	val   [4]byte
}

// buildEER serializes frames as a classic little-endian TIFF, one
// IFD per frame, strip data and out-of-line values interleaved
// before each IFD.
func buildEER(frames []fixtureFrame) []byte {
	le := binary.LittleEndian
	buf := []byte{'I', 'I', 42, 0, 0, 0, 0, 0}
	prevPtr := 4 // position of the pointer to patch with the next IFD offset

	for _, fr := range frames {
		var entries []fixtureEntry

		long1 := func(tag uint16, v uint32) {
			var val [4]byte
			le.PutUint32(val[:], v)
			entries = append(entries, fixtureEntry{tag, fixTypeLong, 1, val})
		}
		longArr := func(tag uint16, vs []uint32) {
			if len(vs) == 1 {
				long1(tag, vs[0])
				return
			}
			var val [4]byte
			le.PutUint32(val[:], uint32(len(buf)))
			for _, v := range vs {
				buf = le.AppendUint32(buf, v)
			}
			entries = append(entries, fixtureEntry{tag, fixTypeLong, uint32(len(vs)), val})
		}

		offs := make([]uint32, len(fr.strips))
		sizes := make([]uint32, len(fr.strips))
		for i, s := range fr.strips {
			offs[i] = uint32(len(buf))
			sizes[i] = uint32(len(s))
			buf = append(buf, s...)
		}
		if fr.stripByteCounts != nil {
			sizes = fr.stripByteCounts
		}

		long1(256, fr.width)
		long1(257, fr.height)
		long1(259, fr.compression)
		longArr(273, offs)
		if fr.rowsPerStrip != 0 {
			long1(278, fr.rowsPerStrip)
		}
		longArr(279, sizes)
		for tag, v := range fr.extra {
			long1(tag, v)
		}
		if fr.xml != nil {
			var val [4]byte
			if len(fr.xml) <= 4 {
				copy(val[:], fr.xml)
			} else {
				le.PutUint32(val[:], uint32(len(buf)))
				buf = append(buf, fr.xml...)
			}
			entries = append(entries, fixtureEntry{tagXMLMetadata, fixTypeUndefined, uint32(len(fr.xml)), val})
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

		le.PutUint32(buf[prevPtr:], uint32(len(buf)))
		buf = le.AppendUint16(buf, uint16(len(entries)))
		for _, e := range entries {
			buf = le.AppendUint16(buf, e.tag)
			buf = le.AppendUint16(buf, e.typ)
			buf = le.AppendUint32(buf, e.count)
			buf = append(buf, e.val[:]...)
		}
		prevPtr = len(buf)
		buf = le.AppendUint32(buf, 0)
	}
	return buf
}

// writeFixture writes a fixture movie to a temp file and returns its path.
func writeFixture(t *testing.T, frames []fixtureFrame) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "movie.eer")
	if err := os.WriteFile(path, buildEER(frames), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// openFixture builds, writes, and opens a fixture movie.
func openFixture(t *testing.T, frames []fixtureFrame) *Decoder {
	t.Helper()
	d, err := Open(writeFixture(t, frames))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}
