// ABOUTME: Entry point for the abloop practice player
// ABOUTME: Parses CLI flags, loads a track, and starts the TUI
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/abloop-audio/abloop-go/internal/ui"
	"github.com/abloop-audio/abloop-go/internal/version"
	"github.com/abloop-audio/abloop-go/pkg/abloop"
)

var (
	backend    = flag.String("backend", "auto", "Loop engine: auto, sample, buffer, native")
	loopA      = flag.Float64("a", 0, "Loop start in seconds")
	loopB      = flag.Float64("b", 0, "Loop end in seconds (0 disables the loop)")
	rate       = flag.Float64("rate", 1.0, "Playback rate")
	volume     = flag.Float64("volume", 1.0, "Output volume 0..1")
	pitch      = flag.Float64("pitch", 0, "Pitch shift in semitones (native engine only)")
	logFile    = flag.String("log-file", "abloop.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs = flag.Bool("stream-logs", false, "Alias for -no-tui")
)

func main() {
	flag.Parse()

	useTUI := !(*noTUI || *streamLogs)

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <audio file>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	log.Printf("Starting %s %s", version.Product, version.Version)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("reading %s: %v", path, err)
	}

	ended := make(chan struct{}, 1)
	relay := ui.NewRelay()
	cfg := relay.Config()
	cfg.Backend = abloop.Backend(*backend)
	if !useTUI {
		cfg.OnStateChange = func(s abloop.State) { log.Printf("state: %s", s) }
		cfg.OnTimeUpdate = nil
		cfg.OnEnded = func() {
			log.Printf("playback ended")
			select {
			case ended <- struct{}{}:
			default:
			}
		}
		cfg.OnError = func(err error) { log.Printf("engine error: %v", err) }
	}

	player := abloop.New(cfg)
	defer func() { _ = player.Close() }()

	duration, err := player.Load(data)
	if err != nil {
		log.Fatalf("loading %s: %v", path, err)
	}
	log.Printf("Loaded %s: %.2fs on %s engine", path, duration, player.Backend())

	player.SetRate(*rate)
	player.SetVolume(*volume)
	if *pitch != 0 {
		player.SetPitch(*pitch)
	}
	if *loopB > *loopA {
		player.SetLoopPoints(*loopA, *loopB)
		player.SetLooping(true)
	}

	if err := player.Play(); err != nil {
		log.Fatalf("starting playback: %v", err)
	}

	if useTUI {
		if err := ui.RunWith(relay, player, filepath.Base(path), duration, player.Backend()); err != nil {
			log.Fatalf("TUI error: %v", err)
		}
		return
	}

	// Headless: run until the track ends or we get a signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ended:
	case s := <-sig:
		log.Printf("received %v, shutting down", s)
	}
}
