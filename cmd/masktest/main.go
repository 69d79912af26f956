// Command masktest runs color detection on a single image and writes the
// annotated frame and per-color masks.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"color-counter/internal/config"
	"color-counter/internal/counter"
	"color-counter/internal/detect"
	cimage "color-counter/internal/image"
	"color-counter/internal/monitoring"
	"color-counter/internal/pipeline"
	"color-counter/internal/signature"

	"gocv.io/x/gocv"
)

func main() {
	imagePath := flag.String("image", "", "Path to a frame (PNG, JPEG, TIFF, BMP or WebP)")
	configPath := flag.String("config", "", "Config file with color ranges")
	line := flag.Float64("line", -1, "Line fraction (overrides config)")
	width := flag.Int("width", 0, "Scale the image to this width first")
	outDir := flag.String("out", ".", "Directory for annotated.png and <color>_mask.png")
	probes := flag.String("probe", "", "Pixels to inspect, as x,y pairs separated by ';'")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: masktest -image <path> [-config cfg.yaml] [-line 0.5] [-out dir] [-probe \"x,y;x,y\"]")
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *line >= 0 {
		l := *line
		cfg.Line = &l
	}
	settings, err := cfg.Settings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	frame, err := cimage.LoadMat(*imagePath, *width)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	defer frame.Close()
	fmt.Printf("Loaded image: %dx%d pixels\n", frame.Cols(), frame.Rows())

	fmt.Printf("\nColor ranges (HSV, H 0-180):\n")
	for _, sig := range settings.Signatures {
		fmt.Printf("  %-8s %v - %v\n", sig.Name, sig.Lower, sig.Upper)
	}
	fmt.Printf("Line: %.2f (row %d)\n", settings.LineFraction, detect.LineRow(settings.LineFraction, frame.Rows()))

	monitoring.SetLogger(nil)
	p := pipeline.New(counter.New(signature.Names(settings.Signatures)...), pipeline.DefaultOptions())
	res, err := p.Process(frame, settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Detection failed: %v\n", err)
		os.Exit(1)
	}
	defer res.Close()

	fmt.Printf("\n%-8s %6s %6s %6s %6s %8s %8s %8s %9s\n", "Color", "X", "Y", "W", "H", "Area", "CX", "CY", "Past line")
	for _, d := range res.Detections {
		for _, r := range d.Regions {
			past := r.Centroid.Y > res.LineRow
			fmt.Printf("%-8s %6d %6d %6d %6d %8d %8d %8d %9v\n",
				d.Name, r.Box.X, r.Box.Y, r.Box.Width, r.Box.Height, r.Box.Area(), r.Centroid.X, r.Centroid.Y, past)
		}
	}

	fmt.Printf("\nSummary:\n")
	for _, d := range res.Detections {
		fmt.Printf("  %-8s regions=%d qualifying=%d coverage=%.2f%% crossed=%v\n",
			d.Name, len(d.Regions), len(d.Qualifying), d.Coverage*100, d.Crossed)
	}

	if *probes != "" {
		fmt.Printf("\nProbes:\n")
		for _, pt := range strings.Split(*probes, ";") {
			x, y, err := parsePoint(pt)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  %v\n", err)
				continue
			}
			if x < 0 || y < 0 || x >= frame.Cols() || y >= frame.Rows() {
				fmt.Fprintf(os.Stderr, "  (%d,%d) outside the image\n", x, y)
				continue
			}
			var matches []string
			var hsv [3]uint8
			for _, sig := range settings.Signatures {
				var ok bool
				hsv, ok = detect.ProbePixel(frame, x, y, sig)
				if ok {
					matches = append(matches, sig.Name)
				}
			}
			fmt.Printf("  (%d,%d) HSV=%v matches=%v\n", x, y, hsv, matches)
		}
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output dir: %v\n", err)
		os.Exit(1)
	}
	annotated := filepath.Join(*outDir, "annotated.png")
	if !gocv.IMWrite(annotated, res.Annotated) {
		fmt.Fprintf(os.Stderr, "Failed to write %s\n", annotated)
		os.Exit(1)
	}
	fmt.Printf("\nWrote %s\n", annotated)
	for _, m := range res.Masks {
		path := filepath.Join(*outDir, m.Name+"_mask.png")
		if !gocv.IMWrite(path, m.Mask) {
			fmt.Fprintf(os.Stderr, "Failed to write %s\n", path)
			continue
		}
		fmt.Printf("Wrote %s\n", path)
	}
}

func parsePoint(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad probe %q, want x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("bad probe %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("bad probe %q: %w", s, err)
	}
	return x, y, nil
}
