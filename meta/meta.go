// Package meta defines the fixed-schema image-metadata record shared
// by the EER and MRC readers. The JSON field names are part of the
// output contract of the header command and must not change.
package meta

// VoxelType enumerates the sample types a reader can report.
type VoxelType string

const (
	Int8    VoxelType = "Int8"
	UInt8   VoxelType = "UnsignedInt8"
	Int16   VoxelType = "Int16"
	UInt16  VoxelType = "UnsignedInt16"
	Float32 VoxelType = "Float32"
	Float64 VoxelType = "Float64"
)

// ImageData describes one image stack: dimensions, sample type, and
// physical voxel spacing. Spacing fields are zero when the source
// file carries no calibration metadata.
type ImageData struct {
	SizeX int32 `json:"size_x"`
	SizeY int32 `json:"size_y"`
	SizeZ int32 `json:"size_z"`
	SizeT int32 `json:"size_t"`
	SizeC int32 `json:"size_c"`

	VoxelType VoxelType `json:"voxel_type"`

	VoxelSpacingX float32 `json:"voxel_spacing_x"`
	VoxelSpacingY float32 `json:"voxel_spacing_y"`
	VoxelSpacingZ float32 `json:"voxel_spacing_z"`
}
