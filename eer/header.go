package eer

import (
	"strconv"

	"github.com/BioImage-Archive/emfir/meta"
)

// Header returns the fixed-schema metadata record for the movie.
// Pixel spacing comes from the vendor XML side metadata of the first
// frame and is left at zero when that metadata is absent or does not
// parse.
func (d *Decoder) Header() meta.ImageData {
	info := meta.ImageData{
		SizeX:     int32(d.width),
		SizeY:     int32(d.height),
		SizeZ:     1,
		SizeT:     1,
		SizeC:     1,
		VoxelType: meta.UInt16,
	}

	raw, err := d.tf.Page(0).Bytes(tagXMLMetadata)
	if err != nil {
		return info
	}
	items := parseXMLMetadata(raw)
	if v, ok := items["sensorPixelSize.width"]; ok {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			info.VoxelSpacingX = float32(f)
		}
	}
	if v, ok := items["sensorPixelSize.height"]; ok {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			info.VoxelSpacingY = float32(f)
		}
	}
	return info
}
