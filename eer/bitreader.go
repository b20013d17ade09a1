package eer

// bitReader provides bit-level reading from a strip buffer.
// Bits are read LSB-first within each byte, bytes in ascending order:
// bit 0 of a returned value is the first unread bit of the stream.
type bitReader struct {
	data   []byte
	bitPos uint // bits consumed from the start of data
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

// readBits reads n bits (1 <= n <= 32) and returns them packed into a
// uint32. A read may touch up to five consecutive bytes (a 32-bit
// read starting at bit offset 7). Bits past the end of the buffer
// read as zero, matching the padding the detector writes; a read that
// starts past the last byte reports truncation instead of indexing
// out of bounds.
func (r *bitReader) readBits(n uint) (uint32, error) {
	byteIndex := int(r.bitPos / 8)
	bitOffset := r.bitPos % 8
	if byteIndex >= len(r.data) {
		return 0, ErrTruncatedStrip
	}

	var chunk uint64
	for i := 0; i < 5 && byteIndex+i < len(r.data); i++ {
		chunk |= uint64(r.data[byteIndex+i]) << (8 * uint(i))
	}

	r.bitPos += n
	return uint32(chunk>>bitOffset) & mask32(n), nil
}

// noBitsLeft reports whether the cursor has reached or passed the end
// of the buffer.
func (r *bitReader) noBitsLeft() bool {
	return r.bitPos >= uint(len(r.data))*8
}

func mask32(n uint) uint32 {
	if n >= 32 {
		return ^uint32(0)
	}
	return 1<<n - 1
}
