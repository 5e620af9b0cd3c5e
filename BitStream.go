package gifdecoder

import "fmt"

// BitStream presents a GIF data-sub-block chain as a flat, LSB-first bit
// stream. The chain is a sequence of length-prefixed blocks of at most 255
// bytes, terminated by a zero-length block. Code reads straddle sub-block
// boundaries at bit granularity, so refills happen one byte at a time: bit
// positions within a byte and byte positions within a sub-block advance on
// unrelated schedules.
type BitStream struct {
	cursor       *ByteCursor
	bytesInBlock int
	buf          byte
	bitsLeft     int
}

// NewBitStream opens a bit stream on the cursor, consuming the first
// sub-block's length byte
func NewBitStream(c *ByteCursor) (*BitStream, error) {
	size, err := c.ReadByte()
	if err != nil {
		return nil, err
	}
	return &BitStream{cursor: c, bytesInBlock: int(size)}, nil
}

// ReadBits returns the next count bits, LSB first: bit i of the result is the
// i-th bit consumed from the stream. count must be in [1, 12].
func (bs *BitStream) ReadBits(count int) (int, error) {
	result := 0
	for i := 0; i < count; i++ {
		bit, err := bs.readBit()
		if err != nil {
			return 0, err
		}
		result |= bit << i
	}
	return result, nil
}

func (bs *BitStream) readBit() (int, error) {
	if bs.bitsLeft == 0 {
		if bs.bytesInBlock == 0 {
			size, err := bs.cursor.ReadByte()
			if err != nil {
				return 0, err
			}
			if size == 0 {
				return 0, fmt.Errorf("gifdecoder: sub-block terminator inside code stream: %w", ErrMalformed)
			}
			bs.bytesInBlock = int(size)
		}
		b, err := bs.cursor.ReadByte()
		if err != nil {
			return 0, err
		}
		bs.buf = b
		bs.bitsLeft = 8
		bs.bytesInBlock--
	}

	bs.bitsLeft--
	bit := int(bs.buf & 0x01)
	bs.buf >>= 1
	return bit, nil
}

// ReadDataTerminator skips any remaining bytes of the current sub-block,
// consumes the zero-length terminator block and returns the cursor position
// just past it. A partially consumed byte in the code stream is discarded.
func (bs *BitStream) ReadDataTerminator() (int, error) {
	if err := bs.cursor.Advance(bs.bytesInBlock); err != nil {
		return 0, err
	}
	bs.bytesInBlock = 0
	bs.bitsLeft = 0

	term, err := bs.cursor.ReadByte()
	if err != nil {
		return 0, err
	}
	if term != 0 {
		return 0, fmt.Errorf("gifdecoder: data terminator 0x%02x: %w", term, ErrMalformed)
	}
	return bs.cursor.Pos(), nil
}
