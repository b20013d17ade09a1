// Package mrc reads MRC volumetric maps: a fixed 1024-byte
// little-endian header, an optional extended header, and raw voxel
// data. gzip-compressed maps (.map.gz, the form EMDB distributes)
// are decompressed transparently on open.
package mrc

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/hexbee-net/errors"
	"github.com/klauspost/compress/gzip"

	"github.com/BioImage-Archive/emfir/meta"
)

const (
	ErrFormat          = errors.Error("mrc: invalid header")
	ErrUnsupportedMode = errors.Error("mrc: unsupported mode")
)

// Voxel storage modes defined by the MRC2014 format.
const (
	ModeInt8           = 0
	ModeInt16          = 1
	ModeFloat32        = 2
	ModeComplexInt16   = 3
	ModeComplexFloat32 = 4
	ModeUint16         = 6
)

const headerSize = 1024

// headerRaw mirrors the leading fixed-offset words of the header.
// Field order is the on-disk layout; do not reorder.
type headerRaw struct {
	NX, NY, NZ                int32
	Mode                      int32
	NXStart, NYStart, NZStart int32
	MX, MY, MZ                int32
	CellA                     [3]float32 // cell dimensions, bytes 40-51
	CellB                     [3]float32 // cell angles
	MapC, MapR, MapS          int32      // axis correspondence
	DMin, DMax, DMean         float32
	ISpg                      int32
	NSymBt                    int32 // extended header size in bytes
}

// Header is the parsed subset of the MRC header this reader uses.
type Header struct {
	NX, NY, NZ int32
	Mode       int32
	CellDims   [3]float32 // Angstroms
	CellAngles [3]float32 // degrees
	MapAxes    [3]int32
	PixelSize  [3]float32 // cell dimension / grid size per axis
	ExtSize    int32      // extended header bytes before voxel data
}

func readHeader(r io.Reader) (*Header, error) {
	var raw headerRaw
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, errors.Wrap(err, "mrc: read header")
	}
	if raw.Mode < 0 || raw.Mode > 6 {
		return nil, errors.Wrapf(ErrFormat, "mode %d", raw.Mode)
	}
	if raw.NX <= 0 || raw.NY <= 0 || raw.NZ <= 0 {
		return nil, errors.Wrapf(ErrFormat, "dimensions %dx%dx%d", raw.NX, raw.NY, raw.NZ)
	}
	if raw.NSymBt < 0 {
		return nil, errors.Wrapf(ErrFormat, "extended header size %d", raw.NSymBt)
	}

	h := &Header{
		NX:         raw.NX,
		NY:         raw.NY,
		NZ:         raw.NZ,
		Mode:       raw.Mode,
		CellDims:   raw.CellA,
		CellAngles: raw.CellB,
		MapAxes:    [3]int32{raw.MapC, raw.MapR, raw.MapS},
		ExtSize:    raw.NSymBt,
	}
	// Spacing divides the cell by the voxel grid. Dividing by nx/ny/nz
	// rather than mx/my/mz keeps output parity with existing tooling.
	h.PixelSize[0] = raw.CellA[0] / float32(raw.NX)
	h.PixelSize[1] = raw.CellA[1] / float32(raw.NY)
	h.PixelSize[2] = raw.CellA[2] / float32(raw.NZ)
	return h, nil
}

// File is an open MRC map.
type File struct {
	header *Header
	r      io.ReaderAt
	closer io.Closer
}

// Open opens an MRC map, decompressing gzip input into memory (the
// voxel sampler needs random access, which a gzip stream cannot
// provide).
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var magic [2]byte
	if _, err := f.ReadAt(magic[:], 0); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "mrc: read magic")
	}

	var (
		r      io.ReaderAt = f
		closer io.Closer   = f
	)
	if magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "mrc: open gzip stream")
		}
		data, err := io.ReadAll(gz)
		f.Close()
		if err != nil {
			return nil, errors.Wrap(err, "mrc: decompress")
		}
		r, closer = bytes.NewReader(data), nil
	}

	h, err := readHeader(io.NewSectionReader(r, 0, headerSize))
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	return &File{header: h, r: r, closer: closer}, nil
}

// Close releases the underlying file, if any.
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// Header returns the parsed map header.
func (f *File) Header() *Header { return f.header }

// ImageData returns the fixed-schema metadata record for the map.
func (f *File) ImageData() meta.ImageData {
	h := f.header

	voxelType := meta.Float32 // unknown-but-valid modes report Float32
	switch h.Mode {
	case ModeInt8:
		voxelType = meta.Int8
	case ModeInt16:
		voxelType = meta.Int16
	case ModeFloat32:
		voxelType = meta.Float32
	case ModeUint16:
		voxelType = meta.UInt16
	}

	return meta.ImageData{
		SizeX:         h.NX,
		SizeY:         h.NY,
		SizeZ:         h.NZ,
		SizeT:         1,
		SizeC:         1,
		VoxelType:     voxelType,
		VoxelSpacingX: h.PixelSize[0],
		VoxelSpacingY: h.PixelSize[1],
		VoxelSpacingZ: h.PixelSize[2],
	}
}
