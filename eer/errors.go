package eer

import "github.com/hexbee-net/errors"

const (
	ErrUnsupportedCompression = errors.Error("eer: unsupported compression type")
	ErrTruncatedStrip         = errors.Error("eer: truncated strip data")
	ErrCorruptStream          = errors.Error("eer: corrupt event stream")
	ErrFrameMismatch          = errors.Error("eer: frame dimensions changed mid-file")
	ErrFrameRange             = errors.Error("eer: frame index out of range")
)
