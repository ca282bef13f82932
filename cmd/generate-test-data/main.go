package main

import (
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/datpeek/internal/palette"
	"github.com/MeKo-Tech/datpeek/internal/testutil"
)

func main() {
	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir  = flag.String("out", "testdata/extracted", "Directory to write the sample entries into")
		verbose = flag.Bool("v", false, "Verbose output")
		help    = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate a directory of synthetic extracted archive entries for datpeek.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                     # Write to testdata/extracted\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -out /tmp/sample    # Write elsewhere\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nThen try:\n")
		fmt.Fprintf(os.Stderr, "  datpeek --container sprite-pak --palette <out>/game.pal scan <out>\n")
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	slog.Info("Starting test data generation...", "out", *outDir)

	written, err := generate(*outDir)
	if err != nil {
		slog.Error("Failed to generate test data", "error", err)
		os.Exit(1)
	}
	if *verbose {
		for _, p := range written {
			slog.Info("Wrote entry", "path", p)
		}
	}

	slog.Info("Test data generation completed successfully!", "entries", len(written))
}

// sample is one synthetic entry.
type sample struct {
	name string
	data []byte
}

func samples() []sample {
	ramp := make([]byte, 32*16)
	for i := range ramp {
		ramp[i] = byte(i % 256)
	}
	return []sample{
		{"game.pal", grayscaleRGB()},
		{"sprites/ramp.spr", testutil.Sprite(32, 16, ramp)},
		{"sprites/tiny.spr", testutil.Sprite(2, 2, []byte{0, 64, 128, 255})},
		{"text/intro.scr", testutil.LengthText([]byte("SET hero 1;WAIT 30;GOTO town\x00"), -1)},
		{"text/readme.txt", []byte("Sample extraction generated for datpeek.\r\n")},
		{"sound/step.wav", testutil.WAV(22050, 1, 16, 2205)},
		{"sound/theme.mid", testutil.MIDI(2)},
		{"video/intro.avi", testutil.AVI()},
		{"ui/button.png", testutil.Image(64, 24, color.NRGBA{R: 200, G: 40, B: 40, A: 255}, imaging.PNG)},
		{"docs/manual.pdf", testutil.PDF("Controls", "Credits")},
		{"misc/unknown.bin", []byte{0x01, 0x00, 0x02, 0x00, 0x03}},
	}
}

// grayscaleRGB renders the grayscale palette as a raw 768-byte RGB table.
func grayscaleRGB() []byte {
	out := make([]byte, 0, palette.Size*3)
	for i := range palette.Size {
		out = append(out, byte(i), byte(i), byte(i))
	}
	return out
}

// generate writes every sample below dir and returns the written paths.
func generate(dir string) ([]string, error) {
	var written []string
	for _, s := range samples() {
		path := filepath.Join(dir, filepath.FromSlash(s.name))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return written, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		if err := os.WriteFile(path, s.data, 0o600); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
