package gifdecoder

import "fmt"

// DecodeGIF is a convenience function to quickly decode a complete GIF byte
// stream into its frames
func DecodeGIF(data []byte) ([]*Frame, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("gifdecoder: no data provided: %w", ErrUnexpectedEOF)
	}

	gd := NewGIFDecoder()
	if err := gd.Decode(data); err != nil {
		return nil, err
	}
	return gd.Frames(), nil
}

// DecodeOptions provides more control over decoding
type DecodeOptions struct {
	FirstFrameOnly bool // stop after the first frame
	MaxFrames      int  // 0 = no limit
}

// DecodeGIFWithOptions decodes a GIF with custom options and returns the
// decoder for access to frames and stream metadata
func DecodeGIFWithOptions(data []byte, opts DecodeOptions) (*GIFDecoder, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("gifdecoder: no data provided: %w", ErrUnexpectedEOF)
	}

	gd := NewGIFDecoder()
	gd.firstFrameOnly = opts.FirstFrameOnly
	gd.maxFrames = opts.MaxFrames

	if err := gd.Decode(data); err != nil {
		return nil, err
	}
	return gd, nil
}
