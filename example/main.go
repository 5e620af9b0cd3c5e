package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/tidwall/gjson"

	gifdecoder "github.com/ManInM00N/nicoGIFDecoder"
)

func main() {
	gifPath := flag.String("gif", "", "Path to the GIF file to decode.")
	configPath := flag.String("config", "", "Optional JSON config file (keys: outdir, max_frames, first_frame_only).")
	flag.Parse()

	if *gifPath == "" {
		fmt.Println("You must provide a GIF with -gif.")
		os.Exit(1)
	}

	outDir := "frames"
	var opts gifdecoder.DecodeOptions

	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			color.Red("Error reading config: %v", err)
			os.Exit(1)
		}
		cfg := gjson.ParseBytes(raw)
		if v := cfg.Get("outdir"); v.Exists() {
			outDir = v.String()
		}
		if v := cfg.Get("max_frames"); v.Exists() {
			opts.MaxFrames = int(v.Int())
		}
		opts.FirstFrameOnly = cfg.Get("first_frame_only").Bool()
	}

	data, err := os.ReadFile(*gifPath)
	if err != nil {
		color.Red("Error reading %s: %v", *gifPath, err)
		os.Exit(1)
	}

	dec, err := gifdecoder.DecodeGIFWithOptions(data, opts)
	if err != nil {
		color.Red("Decode failed: %v", err)
		os.Exit(1)
	}

	color.Cyan("GIF%s  %dx%d", dec.Version(), dec.Width(), dec.Height())
	fmt.Printf("Background color index: %d\n", dec.BackgroundColorIndex())
	fmt.Printf("Pixel aspect ratio: %d\n", dec.PixelAspectRatio())
	fmt.Printf("Global color table: %d entries\n", len(dec.GlobalColorTable()))
	for _, comment := range dec.Comments() {
		fmt.Printf("Comment: %q\n", comment)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		color.Red("Error creating %s: %v", outDir, err)
		os.Exit(1)
	}

	for i, frame := range dec.Frames() {
		name := filepath.Join(outDir, fmt.Sprintf("frame-%03d.png", i+1))
		if err := writePNG(name, frame); err != nil {
			color.Red("Error writing %s: %v", name, err)
			os.Exit(1)
		}
		color.Green("✅ %s  rect=(%d,%d %dx%d) delay=%dms disposal=%d",
			name, frame.Left, frame.Top, frame.Width, frame.Height,
			frame.Delay*10, frame.DisposalMethod)
	}

	fmt.Printf("\nExtracted %d frames.\n", len(dec.Frames()))
}

func writePNG(name string, frame *gifdecoder.Frame) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, frame.Image); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
