package eer

import (
	"github.com/hexbee-net/errors"

	"github.com/BioImage-Archive/emfir/internal/tiffio"
)

// EER container compression codes and vendor tag IDs.
const (
	compressionEER8   = 65000 // 8-bit skip codes, 2+2 sub-pixel bits
	compressionEER7   = 65001 // 7-bit skip codes, 2+2 sub-pixel bits
	compressionEERVar = 65002 // bit widths carried in vendor tags

	tagXMLMetadata = 65001 // acquisition metadata, XML
	tagSkipBits    = 65007 // skip-code width for compressionEERVar
	tagHorzSubBits = 65008 // horizontal sub-pixel bits
	tagVertSubBits = 65009 // vertical sub-pixel bits
)

// CompressionParams are the per-frame bit widths of the event stream.
// They are resolved again for every decoded frame: the container may
// legitimately switch compression codes between frames.
type CompressionParams struct {
	CodeLen     uint // skip-code width in bits
	HorzSubBits uint // horizontal sub-pixel bits per event
	VertSubBits uint // vertical sub-pixel bits per event
}

// sentinel returns the skip value reserved to mean "keep skipping,
// no event here": all ones for the code width.
func (p CompressionParams) sentinel() uint32 {
	return mask32(p.CodeLen)
}

// resolveParams maps the page's compression tag to its bit widths.
// Codes outside the closed table are a fatal error, never defaulted.
func resolveParams(page *tiffio.Page) (CompressionParams, error) {
	compression, err := page.Uint(tiffio.TagCompression)
	if err != nil {
		return CompressionParams{}, errors.Wrap(err, "eer: read compression tag")
	}

	switch compression {
	case compressionEER8:
		return CompressionParams{CodeLen: 8, HorzSubBits: 2, VertSubBits: 2}, nil
	case compressionEER7:
		return CompressionParams{CodeLen: 7, HorzSubBits: 2, VertSubBits: 2}, nil
	case compressionEERVar:
		codeLen, err := page.Uint(tagSkipBits)
		if err != nil {
			return CompressionParams{}, errors.Wrap(err, "eer: read skip-bits tag")
		}
		horz, err := page.Uint(tagHorzSubBits)
		if err != nil {
			return CompressionParams{}, errors.Wrap(err, "eer: read horizontal sub-bits tag")
		}
		vert, err := page.Uint(tagVertSubBits)
		if err != nil {
			return CompressionParams{}, errors.Wrap(err, "eer: read vertical sub-bits tag")
		}
		if codeLen < 1 || codeLen > 32 || horz > 32 || vert > 32 {
			return CompressionParams{}, errors.Wrapf(ErrCorruptStream,
				"bit widths %d/%d/%d", codeLen, horz, vert)
		}
		return CompressionParams{
			CodeLen:     uint(codeLen),
			HorzSubBits: uint(horz),
			VertSubBits: uint(vert),
		}, nil
	default:
		return CompressionParams{}, errors.Wrapf(ErrUnsupportedCompression, "code %d", compression)
	}
}
