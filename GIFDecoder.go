package gifdecoder

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrUnexpectedEOF is returned when the input buffer ends in the middle
	// of a structure
	ErrUnexpectedEOF = errors.New("gifdecoder: unexpected end of data")
	// ErrInvalidSignature is returned when the header is not GIF87a or GIF89a
	ErrInvalidSignature = errors.New("gifdecoder: invalid GIF signature")
	// ErrMalformed is returned when a structural constraint of the stream is
	// violated
	ErrMalformed = errors.New("gifdecoder: malformed GIF stream")
	// ErrUnsupported is returned for valid GIF features this decoder does
	// not handle
	ErrUnsupported = errors.New("gifdecoder: unsupported GIF feature")
)

// Frame disposal methods, from the graphic control extension
const (
	DisposalNone       = 0 // no disposal specified
	DisposalKeep       = 1 // leave the frame in place
	DisposalBackground = 2 // clear the frame rectangle to the background color
	DisposalPrevious   = 3 // restore the canvas to its pre-frame state
)

// Frame is one decoded animation frame: a canvas-sized RGBA snapshot plus the
// timing and disposal metadata needed to composite frames over time
type Frame struct {
	Image *image.RGBA

	// Source sub-rectangle of this frame within the canvas
	Left   int
	Top    int
	Width  int
	Height int

	Delay            int // in 1/100 s units
	DisposalMethod   byte
	HasTransparency  bool
	TransparentIndex byte
}

// GIFDecoder decodes a complete in-memory GIF stream into rasterized frames.
// Frames accumulate on a persistent canvas: each snapshot includes everything
// earlier frames painted, unless a disposal method cleared it.
type GIFDecoder struct {
	width            int
	height           int
	version          string
	backgroundIndex  byte
	pixelAspectRatio byte
	hasGlobalTable   bool
	globalTable      ColorTable

	frames   []*Frame
	comments []string

	// decode limits, set through DecodeGIFWithOptions
	firstFrameOnly bool
	maxFrames      int

	canvas *image.RGBA
}

// NewGIFDecoder creates a new GIF decoder
func NewGIFDecoder() *GIFDecoder {
	return &GIFDecoder{}
}

// Width returns the canvas width in pixels
func (gd *GIFDecoder) Width() int {
	return gd.width
}

// Height returns the canvas height in pixels
func (gd *GIFDecoder) Height() int {
	return gd.height
}

// Version returns the GIF version, either "87a" or "89a"
func (gd *GIFDecoder) Version() string {
	return gd.version
}

// BackgroundColorIndex returns the background color index from the logical
// screen descriptor
func (gd *GIFDecoder) BackgroundColorIndex() byte {
	return gd.backgroundIndex
}

// PixelAspectRatio returns the raw pixel aspect ratio byte
func (gd *GIFDecoder) PixelAspectRatio() byte {
	return gd.pixelAspectRatio
}

// GlobalColorTable returns the global color table, or nil if the stream has
// none
func (gd *GIFDecoder) GlobalColorTable() ColorTable {
	return gd.globalTable
}

// Frames returns the decoded frames in stream order
func (gd *GIFDecoder) Frames() []*Frame {
	return gd.frames
}

// Comments returns the text of every comment extension in the stream
func (gd *GIFDecoder) Comments() []string {
	return gd.comments
}

// Decode consumes a complete GIF byte stream and rasterizes every frame.
// The caller keeps ownership of data; the decoder only reads from it.
func (gd *GIFDecoder) Decode(data []byte) error {
	c := NewByteCursor(data)

	version, err := ParseHeader(c)
	if err != nil {
		return err
	}
	gd.version = version

	lsd, err := ParseLogicalScreenDescriptor(c)
	if err != nil {
		return err
	}
	gd.width = int(lsd.Width)
	gd.height = int(lsd.Height)
	gd.backgroundIndex = lsd.BackgroundColorIndex
	gd.pixelAspectRatio = lsd.PixelAspectRatio
	gd.hasGlobalTable = lsd.HasGlobalColorTable
	gd.globalTable = nil

	if lsd.HasGlobalColorTable {
		gd.globalTable, err = ParseColorTable(c, 1<<(lsd.GlobalColorTableSize+1))
		if err != nil {
			return err
		}
	}

	gd.canvas = image.NewRGBA(image.Rect(0, 0, gd.width, gd.height))
	gd.frames = nil
	gd.comments = nil

	var pending *GraphicControlExtension

	for {
		label, err := c.Peek()
		if err != nil {
			return err
		}

		switch label {
		case extensionIntroducer:
			if err := c.Advance(1); err != nil {
				return err
			}
			ext, err := c.Peek()
			if err != nil {
				return err
			}
			switch ext {
			case graphicControlLabel:
				gce, err := ParseGraphicControlExtension(c)
				if err != nil {
					return err
				}
				pending = &gce
			case applicationLabel:
				if _, err := ParseApplicationExtension(c); err != nil {
					return err
				}
			case commentLabel:
				text, err := ParseCommentExtension(c)
				if err != nil {
					return err
				}
				gd.comments = append(gd.comments, text)
			default:
				return fmt.Errorf("gifdecoder: extension label 0x%02x: %w", ext, ErrMalformed)
			}

		case imageSeparator:
			done, err := gd.decodeFrame(c, pending)
			if err != nil {
				return err
			}
			pending = nil
			if done {
				return nil
			}

		case trailerByte:
			return nil

		default:
			return fmt.Errorf("gifdecoder: block label 0x%02x: %w", label, ErrMalformed)
		}
	}
}

// decodeFrame parses one image descriptor plus data area, snapshots the
// canvas as a new frame and applies the pending disposal. It reports whether
// the configured frame limit has been reached.
func (gd *GIFDecoder) decodeFrame(c *ByteCursor, pending *GraphicControlExtension) (bool, error) {
	desc, err := ParseImageDescriptor(c)
	if err != nil {
		return false, err
	}

	table := gd.globalTable
	if desc.HasLocalColorTable {
		table, err = ParseColorTable(c, 1<<(desc.LocalColorTableSize+1))
		if err != nil {
			return false, err
		}
	}
	if desc.Interlaced {
		return false, fmt.Errorf("gifdecoder: interlaced image: %w", ErrUnsupported)
	}
	if len(table) == 0 {
		return false, fmt.Errorf("gifdecoder: image without an active color table: %w", ErrMalformed)
	}

	var previous []byte
	if pending != nil && pending.DisposalMethod == DisposalPrevious {
		previous = append([]byte(nil), gd.canvas.Pix...)
	}

	if err := decodeImageData(c, desc, table, pending, gd.canvas); err != nil {
		return false, err
	}

	frame := &Frame{
		Image:  snapshotRGBA(gd.canvas),
		Left:   int(desc.Left),
		Top:    int(desc.Top),
		Width:  int(desc.Width),
		Height: int(desc.Height),
	}
	if pending != nil {
		frame.Delay = int(pending.DelayTime)
		frame.DisposalMethod = pending.DisposalMethod
		frame.HasTransparency = pending.TransparentColorFlag
		frame.TransparentIndex = pending.TransparentColorIndex
	}
	gd.frames = append(gd.frames, frame)

	// Disposal transitions the persistent canvas toward the next frame
	if pending != nil {
		switch pending.DisposalMethod {
		case DisposalBackground:
			gd.clearToBackground(desc)
		case DisposalPrevious:
			copy(gd.canvas.Pix, previous)
		}
	}

	if gd.firstFrameOnly && len(gd.frames) >= 1 {
		return true, nil
	}
	if gd.maxFrames > 0 && len(gd.frames) >= gd.maxFrames {
		return true, nil
	}
	return false, nil
}

// clearToBackground fills the frame rectangle with the global background
// color, or with transparent black when the stream has no global color table
func (gd *GIFDecoder) clearToBackground(desc ImageDescriptor) {
	var bg Color
	var alpha byte
	if gd.hasGlobalTable && int(gd.backgroundIndex) < len(gd.globalTable) {
		bg = gd.globalTable[gd.backgroundIndex]
		alpha = 0xFF
	}

	left, top := int(desc.Left), int(desc.Top)
	right := min(left+int(desc.Width), gd.width)
	bottom := min(top+int(desc.Height), gd.height)

	for y := top; y < bottom; y++ {
		offset := gd.canvas.PixOffset(left, y)
		for x := left; x < right; x++ {
			gd.canvas.Pix[offset] = bg.R
			gd.canvas.Pix[offset+1] = bg.G
			gd.canvas.Pix[offset+2] = bg.B
			gd.canvas.Pix[offset+3] = alpha
			offset += 4
		}
	}
}

func snapshotRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}
