// Package main provides the entry point for the color counter.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"color-counter/internal/api"
	"color-counter/internal/app"
	"color-counter/internal/config"
	"color-counter/internal/counter"
	"color-counter/internal/display"
	"color-counter/internal/pipeline"
	"color-counter/internal/signature"
	"color-counter/internal/stats"
	"color-counter/internal/version"
)

func init() {
	// OpenCV windows must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "", "Config file (.json, .yaml, .yml or .toml)")
	device := flag.Int("device", 0, "Camera index")
	file := flag.String("file", "", "Video file to read instead of a camera")
	dir := flag.String("dir", "", "Directory of still frames to replay")
	ffmpegInput := flag.String("ffmpeg", "", "Input decoded through ffmpeg (file or stream URL)")
	loop := flag.Bool("loop", false, "Restart finite sources at the end")
	width := flag.Int("width", 0, "Scale frames to this width (0 keeps the source size)")
	line := flag.Float64("line", config.DefaultLine, "Counting line as a fraction of frame height")
	interval := flag.Int("interval", config.DefaultIntervalMS, "Frame interval in milliseconds")
	showDisplay := flag.Bool("display", false, "Show frame and mask windows")
	controls := flag.Bool("controls", false, "Show trackbars for the line and color ranges (needs -display)")
	listen := flag.String("listen", "", "Serve the HTTP control API on this address")
	autostart := flag.Bool("autostart", true, "Start counting immediately")
	swatch := flag.Bool("swatch", false, "Draw each label in its own color")
	save := flag.Bool("save", false, "Write the final line and ranges back to -config on exit")
	printConfig := flag.String("print-config", "", "Print the effective config as json, yaml or toml and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// Flags given explicitly override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Source.Device = *device
		case "file":
			cfg.Source.File = *file
		case "dir":
			cfg.Source.Dir = *dir
		case "ffmpeg":
			cfg.Source.FFmpeg = *ffmpegInput
		case "loop":
			cfg.Source.Loop = *loop
		case "width":
			cfg.Source.Width = *width
		case "line":
			l := *line
			cfg.Line = &l
		case "interval":
			cfg.IntervalMS = *interval
		case "display":
			cfg.Display = *showDisplay
		case "listen":
			cfg.Listen = *listen
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *printConfig != "" {
		data, err := cfg.Marshal(config.Format(*printConfig))
		if err != nil {
			log.Fatalf("Failed to encode config: %v", err)
		}
		os.Stdout.Write(data)
		return
	}

	log.Printf("Starting %s", version.String())

	initial, err := cfg.Settings()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	settings, err := app.NewSettings(initial)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	settings.On(app.EventLineChanged, func(data interface{}) {
		log.Printf("Line moved to %.2f", data.(float64))
	})
	settings.On(app.EventColorChanged, func(data interface{}) {
		sig := data.(signature.Signature)
		log.Printf("Range for %s set to %v-%v", sig.Name, sig.Lower, sig.Upper)
	})

	names := signature.Names(initial.Signatures)
	popts := pipeline.DefaultOptions()
	popts.Annotate.SwatchLabels = *swatch
	popts.KeepMasks = cfg.Display
	pipe := pipeline.New(counter.New(names...), popts)

	opts := app.DefaultRunnerOptions().
		WithInterval(cfg.Interval()).
		WithSource(cfg.Source.String())
	runner := app.NewRunner(settings, pipe, cfg.Source.Opener(), opts)

	collector := stats.NewCollector(nil, 0)
	runner.AddSink(collector)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	interactive := cfg.Listen != "" || cfg.Display
	runner.On(app.EventStopped, func(interface{}) {
		// Without a way to restart, a finished source ends the program.
		if !interactive {
			cancel()
		}
	})

	if *configPath != "" {
		w := config.NewWatcher(*configPath, settings)
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Printf("Config watcher stopped: %v", err)
			}
		}()
	}

	serverDone := make(chan struct{})
	if cfg.Listen != "" {
		frames := api.NewLatestFrame()
		defer frames.Close()
		runner.AddSink(frames)
		server := api.NewServer(runner, frames)
		go func() {
			defer close(serverDone)
			if err := server.ListenAndServe(ctx, cfg.Listen); err != nil {
				log.Printf("HTTP API failed: %v", err)
				cancel()
			}
		}()
	} else {
		close(serverDone)
	}

	var windows *display.Windows
	if cfg.Display {
		windows = display.NewWindows(true)
		defer windows.Close()
		runner.AddSink(windows)
	}

	if *autostart {
		if err := runner.Start(); err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
	}

	if windows != nil {
		windows.Run(ctx, runner, *controls, cfg.Interval())
		cancel()
	} else {
		<-ctx.Done()
	}

	log.Println("Shutting down...")
	<-serverDone
	runner.Stop()

	fmt.Printf("\nCounts: %s\n", runner.Counter().Counts())
	fmt.Print(collector.Summary())

	if *save && *configPath != "" {
		out := config.FromSettings(cfg, settings.Snapshot())
		if err := out.Save(*configPath); err != nil {
			log.Printf("Failed to save config: %v", err)
		} else {
			log.Printf("Saved settings to %s", *configPath)
		}
	}
}
