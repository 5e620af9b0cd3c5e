package gifdecoder

import (
	"fmt"
	"image"
)

const (
	maxDictEntries = 4096
	maxCodeLength  = 12
)

// LZWDictionary is the prefix-coded LZW string table. Entries are stored as
// three parallel fixed-capacity arrays: each entry holds the index of its
// prefix entry (-1 for atomic entries), its trailing byte, and the full
// decoded string length. Entry clearCode and entry eoiCode are reserved and
// never dereferenced.
type LZWDictionary struct {
	prefix    [maxDictEntries]int16
	byteValue [maxDictEntries]byte
	strLen    [maxDictEntries]int

	minCodeSize  int
	codeLength   int
	clearCode    int
	eoiCode      int
	currentIndex int
	maxCode      int
}

// Init populates the atomic entries 0 .. (1<<minCodeSize)-1 and resets the
// scalar state. minCodeSize must be in [2, 8].
func (d *LZWDictionary) Init(minCodeSize int) {
	for i := 0; i < 1<<minCodeSize; i++ {
		d.prefix[i] = -1
		d.byteValue[i] = byte(i)
		d.strLen[i] = 1
	}
	d.minCodeSize = minCodeSize
	d.Reset()
}

// Reset restores the post-clear state. The atomic entries are left untouched.
func (d *LZWDictionary) Reset() {
	d.codeLength = d.minCodeSize + 1
	d.clearCode = 1 << d.minCodeSize
	d.eoiCode = d.clearCode + 1
	d.currentIndex = d.eoiCode + 1
	d.maxCode = 1<<d.codeLength - 1
}

// Add appends an entry whose string is the prefix entry's string plus one
// trailing byte, returning the index used, or -1 once the table is full.
//
// The code width grows when currentIndex reaches maxCode, i.e. one code
// earlier than the table actually overflows the width. This matches the
// encoder's convention; moving the growth off by one garbles every code that
// follows.
func (d *LZWDictionary) Add(prefix int, b byte) int {
	if d.currentIndex == d.maxCode && d.codeLength < maxCodeLength {
		d.codeLength++
		d.maxCode = 1<<d.codeLength - 1
	}
	if d.currentIndex == maxDictEntries {
		return -1
	}

	d.prefix[d.currentIndex] = int16(prefix)
	d.byteValue[d.currentIndex] = b
	if prefix < 0 {
		d.strLen[d.currentIndex] = 1
	} else {
		d.strLen[d.currentIndex] = d.strLen[prefix] + 1
	}

	index := d.currentIndex
	d.currentIndex++
	return index
}

// FirstByte walks the prefix chain of an entry and returns the first byte of
// its decoded string
func (d *LZWDictionary) FirstByte(code int) byte {
	i := code
	for d.prefix[i] >= 0 {
		i = int(d.prefix[i])
	}
	return d.byteValue[i]
}

// CodeLength returns the current code width in bits
func (d *LZWDictionary) CodeLength() int {
	return d.codeLength
}

// rasterizer paints decoded pixel-index runs through the active color table
// into the canvas, clipped to the image sub-rectangle and to the canvas
type rasterizer struct {
	canvas *image.RGBA
	table  ColorTable
	gce    *GraphicControlExtension

	px, py                   int
	left, top, right, bottom int
}

func newRasterizer(canvas *image.RGBA, desc ImageDescriptor, table ColorTable, gce *GraphicControlExtension) *rasterizer {
	left := int(desc.Left)
	top := int(desc.Top)
	return &rasterizer{
		canvas: canvas,
		table:  table,
		gce:    gce,
		px:     left,
		py:     top,
		left:   left,
		top:    top,
		right:  left + int(desc.Width),
		bottom: top + int(desc.Height),
	}
}

// paintEntry materializes a dictionary entry's byte string into buf by a
// right-to-left prefix walk, then paints it in order
func (r *rasterizer) paintEntry(d *LZWDictionary, code int, buf []byte) error {
	n := d.strLen[code]
	i := code
	for j := n - 1; j >= 0; j-- {
		buf[j] = d.byteValue[i]
		i = int(d.prefix[i])
	}
	for _, b := range buf[:n] {
		if err := r.paintPixel(b); err != nil {
			return err
		}
	}
	return nil
}

// paintPixel draws one pixel index at the pen and advances the pen. Pixels
// past the bottom edge are dropped without error: an over-long final string
// is well formed, the decoder clips it.
func (r *rasterizer) paintPixel(b byte) error {
	if r.py < r.bottom {
		transparent := r.gce != nil && r.gce.TransparentColorFlag && b == r.gce.TransparentColorIndex
		if !transparent {
			if int(b) >= len(r.table) {
				return fmt.Errorf("gifdecoder: pixel index %d outside color table of %d entries: %w", b, len(r.table), ErrMalformed)
			}
			bounds := r.canvas.Bounds()
			if r.px < bounds.Max.X && r.py < bounds.Max.Y {
				c := r.table[b]
				offset := r.canvas.PixOffset(r.px, r.py)
				pix := r.canvas.Pix
				pix[offset] = c.R
				pix[offset+1] = c.G
				pix[offset+2] = c.B
				pix[offset+3] = 0xFF
			}
		}
	}

	r.px++
	if r.px >= r.right {
		r.px = r.left
		r.py++
	}
	return nil
}

// decodeImageData decompresses one image's LZW data area and paints it into
// the canvas. The cursor must be positioned at the minimum-code-size byte; on
// success it is left just past the sub-block terminator.
func decodeImageData(c *ByteCursor, desc ImageDescriptor, table ColorTable, gce *GraphicControlExtension, canvas *image.RGBA) error {
	minCodeSize, err := c.ReadByte()
	if err != nil {
		return err
	}
	if minCodeSize < 2 || minCodeSize > 8 {
		return fmt.Errorf("gifdecoder: minimum code size %d: %w", minCodeSize, ErrMalformed)
	}

	dict := new(LZWDictionary)
	dict.Init(int(minCodeSize))

	bits, err := NewBitStream(c)
	if err != nil {
		return err
	}

	r := newRasterizer(canvas, desc, table, gce)
	var buf [maxDictEntries]byte

	code, err := bits.ReadBits(dict.codeLength)
	if err != nil {
		return err
	}
	if code != dict.clearCode {
		return fmt.Errorf("gifdecoder: initial code %d is not the clear code: %w", code, ErrMalformed)
	}

	// readStart reads the code that restarts the stream after a clear: it
	// must be atomic, and it is painted immediately
	readStart := func() (int, error) {
		index, err := bits.ReadBits(dict.codeLength)
		if err != nil {
			return 0, err
		}
		if index >= dict.clearCode {
			return 0, fmt.Errorf("gifdecoder: start code %d is not atomic: %w", index, ErrMalformed)
		}
		if err := r.paintEntry(dict, index, buf[:]); err != nil {
			return 0, err
		}
		return index, nil
	}

	old, err := readStart()
	if err != nil {
		return err
	}

	for {
		index, err := bits.ReadBits(dict.codeLength)
		if err != nil {
			return err
		}

		switch {
		case index < dict.currentIndex:
			if index == dict.eoiCode {
				_, err := bits.ReadDataTerminator()
				return err
			}
			if index == dict.clearCode {
				dict.Reset()
				if old, err = readStart(); err != nil {
					return err
				}
				continue
			}
			if err := r.paintEntry(dict, index, buf[:]); err != nil {
				return err
			}
			dict.Add(old, dict.FirstByte(index))

		case index == dict.currentIndex:
			// KwKwK: the code decodes as the previous entry's string
			// plus that string's first byte
			b := dict.FirstByte(old)
			added := dict.Add(old, b)
			if added < 0 {
				return fmt.Errorf("gifdecoder: self-referencing code %d with full dictionary: %w", index, ErrMalformed)
			}
			if err := r.paintEntry(dict, added, buf[:]); err != nil {
				return err
			}

		default:
			return fmt.Errorf("gifdecoder: code %d beyond dictionary size %d: %w", index, dict.currentIndex, ErrMalformed)
		}

		old = index
	}
}
