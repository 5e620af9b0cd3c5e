package gifdecoder

import (
	"fmt"
	"strings"
)

const (
	extensionIntroducer = 0x21
	imageSeparator      = 0x2C
	trailerByte         = 0x3B

	graphicControlLabel = 0xF9
	commentLabel        = 0xFE
	applicationLabel    = 0xFF

	graphicControlBlockSize = 0x04
	applicationBlockSize    = 0x0B
)

// LogicalScreenDescriptor describes the GIF canvas and the optional global
// color table that follows it
type LogicalScreenDescriptor struct {
	Width                uint16
	Height               uint16
	BackgroundColorIndex byte
	PixelAspectRatio     byte
	HasGlobalColorTable  bool
	ColorResolution      byte
	SortFlag             bool
	GlobalColorTableSize byte // true table length is 1 << (size + 1)
}

// Color is a single RGB color table entry
type Color struct {
	R byte
	G byte
	B byte
}

// ColorTable is an ordered sequence of 2..256 colors
type ColorTable []Color

// ImageDescriptor describes one image's sub-rectangle within the canvas and
// the optional local color table that follows it
type ImageDescriptor struct {
	Left                uint16
	Top                 uint16
	Width               uint16
	Height              uint16
	HasLocalColorTable  bool
	Interlaced          bool
	SortFlag            bool
	LocalColorTableSize byte // true table length is 1 << (size + 1)
}

// GraphicControlExtension carries the timing, disposal and transparency
// settings for the next image in the stream
type GraphicControlExtension struct {
	DelayTime             uint16 // in 1/100 s units
	TransparentColorIndex byte
	DisposalMethod        byte
	UserInputFlag         bool
	TransparentColorFlag  bool
}

// ApplicationExtension identifies an application-specific extension block.
// The sub-block payload is skipped.
type ApplicationExtension struct {
	Identifier string
	AuthCode   [3]byte
}

// ParseHeader reads the 6-byte GIF header and returns the version,
// either "87a" or "89a"
func ParseHeader(c *ByteCursor) (string, error) {
	signature, err := c.ReadString(3)
	if err != nil {
		return "", err
	}
	if signature != "GIF" {
		return "", fmt.Errorf("gifdecoder: signature %q: %w", signature, ErrInvalidSignature)
	}
	version, err := c.ReadString(3)
	if err != nil {
		return "", err
	}
	if version != "87a" && version != "89a" {
		return "", fmt.Errorf("gifdecoder: version %q: %w", version, ErrInvalidSignature)
	}
	return version, nil
}

// ParseLogicalScreenDescriptor reads the 7-byte logical screen descriptor
func ParseLogicalScreenDescriptor(c *ByteCursor) (LogicalScreenDescriptor, error) {
	var lsd LogicalScreenDescriptor
	var err error

	if lsd.Width, err = c.ReadShort(); err != nil {
		return lsd, err
	}
	if lsd.Height, err = c.ReadShort(); err != nil {
		return lsd, err
	}
	packed, err := c.ReadByte()
	if err != nil {
		return lsd, err
	}
	lsd.HasGlobalColorTable = packed&0x80 != 0
	lsd.ColorResolution = (packed >> 4) & 0x07
	lsd.SortFlag = packed&0x08 != 0
	lsd.GlobalColorTableSize = packed & 0x07

	if lsd.BackgroundColorIndex, err = c.ReadByte(); err != nil {
		return lsd, err
	}
	if lsd.PixelAspectRatio, err = c.ReadByte(); err != nil {
		return lsd, err
	}
	return lsd, nil
}

// ParseColorTable reads a color table of exactly tableSize entries
func ParseColorTable(c *ByteCursor, tableSize int) (ColorTable, error) {
	table := make(ColorTable, tableSize)
	for i := 0; i < tableSize; i++ {
		r, err := c.ReadByte()
		if err != nil {
			return nil, err
		}
		g, err := c.ReadByte()
		if err != nil {
			return nil, err
		}
		b, err := c.ReadByte()
		if err != nil {
			return nil, err
		}
		table[i] = Color{R: r, G: g, B: b}
	}
	return table, nil
}

// ParseImageDescriptor consumes the 0x2C image separator and the 9 descriptor
// bytes that follow it
func ParseImageDescriptor(c *ByteCursor) (ImageDescriptor, error) {
	var desc ImageDescriptor

	sep, err := c.ReadByte()
	if err != nil {
		return desc, err
	}
	if sep != imageSeparator {
		return desc, fmt.Errorf("gifdecoder: image separator 0x%02x: %w", sep, ErrMalformed)
	}

	if desc.Left, err = c.ReadShort(); err != nil {
		return desc, err
	}
	if desc.Top, err = c.ReadShort(); err != nil {
		return desc, err
	}
	if desc.Width, err = c.ReadShort(); err != nil {
		return desc, err
	}
	if desc.Height, err = c.ReadShort(); err != nil {
		return desc, err
	}
	packed, err := c.ReadByte()
	if err != nil {
		return desc, err
	}
	desc.HasLocalColorTable = packed&0x80 != 0
	desc.Interlaced = packed&0x40 != 0
	desc.SortFlag = packed&0x20 != 0
	desc.LocalColorTableSize = packed & 0x07

	return desc, nil
}

// ParseGraphicControlExtension reads a graphic control extension starting at
// its 0xF9 label. The extension introducer has already been consumed.
func ParseGraphicControlExtension(c *ByteCursor) (GraphicControlExtension, error) {
	var gce GraphicControlExtension

	label, err := c.ReadByte()
	if err != nil {
		return gce, err
	}
	if label != graphicControlLabel {
		return gce, fmt.Errorf("gifdecoder: graphic control label 0x%02x: %w", label, ErrMalformed)
	}
	size, err := c.ReadByte()
	if err != nil {
		return gce, err
	}
	if size != graphicControlBlockSize {
		return gce, fmt.Errorf("gifdecoder: graphic control block size %d: %w", size, ErrMalformed)
	}

	packed, err := c.ReadByte()
	if err != nil {
		return gce, err
	}
	gce.DisposalMethod = (packed >> 2) & 0x07
	gce.UserInputFlag = packed&0x02 != 0
	gce.TransparentColorFlag = packed&0x01 != 0

	if gce.DelayTime, err = c.ReadShort(); err != nil {
		return gce, err
	}
	if gce.TransparentColorIndex, err = c.ReadByte(); err != nil {
		return gce, err
	}

	term, err := c.ReadByte()
	if err != nil {
		return gce, err
	}
	if term != 0 {
		return gce, fmt.Errorf("gifdecoder: graphic control terminator 0x%02x: %w", term, ErrMalformed)
	}
	return gce, nil
}

// ParseApplicationExtension reads an application extension starting at its
// 0xFF label and skips the sub-block payload
func ParseApplicationExtension(c *ByteCursor) (ApplicationExtension, error) {
	var ae ApplicationExtension

	label, err := c.ReadByte()
	if err != nil {
		return ae, err
	}
	if label != applicationLabel {
		return ae, fmt.Errorf("gifdecoder: application label 0x%02x: %w", label, ErrMalformed)
	}
	size, err := c.ReadByte()
	if err != nil {
		return ae, err
	}
	if size != applicationBlockSize {
		return ae, fmt.Errorf("gifdecoder: application block size %d: %w", size, ErrMalformed)
	}

	if ae.Identifier, err = c.ReadString(8); err != nil {
		return ae, err
	}
	for i := range ae.AuthCode {
		if ae.AuthCode[i], err = c.ReadByte(); err != nil {
			return ae, err
		}
	}

	if err = skipSubBlocks(c); err != nil {
		return ae, err
	}
	return ae, nil
}

// ParseCommentExtension reads a comment extension starting at its 0xFE label
// and returns the comment text
func ParseCommentExtension(c *ByteCursor) (string, error) {
	label, err := c.ReadByte()
	if err != nil {
		return "", err
	}
	if label != commentLabel {
		return "", fmt.Errorf("gifdecoder: comment label 0x%02x: %w", label, ErrMalformed)
	}

	var sb strings.Builder
	for {
		size, err := c.ReadByte()
		if err != nil {
			return "", err
		}
		if size == 0 {
			return sb.String(), nil
		}
		chunk, err := c.ReadString(int(size))
		if err != nil {
			return "", err
		}
		sb.WriteString(chunk)
	}
}

// skipSubBlocks discards a data-sub-block chain up to and including the
// zero-length terminator block
func skipSubBlocks(c *ByteCursor) error {
	for {
		size, err := c.ReadByte()
		if err != nil {
			return err
		}
		if size == 0 {
			return nil
		}
		if err = c.Advance(int(size)); err != nil {
			return err
		}
	}
}
