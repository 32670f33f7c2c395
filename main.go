// ABOUTME: Entry point for the Hapticore player
// ABOUTME: Parses CLI flags and starts the player application
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hapticore/hapticore-go/internal/app"
	"github.com/hapticore/hapticore-go/internal/ui"
)

var (
	serverAddr = flag.String("server", "", "Manual feeder address (skip mDNS)")
	port       = flag.Int("port", 9137, "Port for mDNS advertisement")
	name       = flag.String("name", "", "Player friendly name (default: hostname-hapticore)")
	backend    = flag.String("backend", "sim", "Device backend: sim or audio")
	lowLatency = flag.Bool("low-latency", false, "Enable low-latency buffering")
	standalone = flag.Bool("standalone", false, "Run without a feeder")
	frameMs    = flag.Int("frame-ms", 16, "Scheduler frame interval in milliseconds")
	logFile    = flag.String("log-file", "hapticore.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

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

	playerName := *name
	if playerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		playerName = fmt.Sprintf("%s-hapticore", hostname)
	}

	if !useTUI {
		log.Printf("Starting Hapticore Player: %s", playerName)
	}

	player, err := app.New(app.Config{
		ServerAddr:    *serverAddr,
		Port:          *port,
		Name:          playerName,
		Backend:       *backend,
		LowLatency:    *lowLatency,
		FrameInterval: time.Duration(*frameMs) * time.Millisecond,
		Standalone:    *standalone,
	})
	if err != nil {
		log.Fatalf("Failed to create player: %v", err)
	}

	// TUI setup
	var tuiProg *tea.Program
	var control *ui.Control

	if useTUI {
		control = ui.NewControl()
		tuiProg, err = ui.Run(control)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go tuiProg.Run()

		player.OnStatus = func(status app.Status) {
			connected := status.Connected
			tuiProg.Send(ui.StatusMsg{
				Connected:    &connected,
				ServerName:   status.ServerName,
				Backend:      *backend,
				SampleRate:   player.Engine().SampleRate(),
				Left:         &status.Stats.Left,
				Right:        &status.Stats.Right,
				LeftPending:  status.LeftPending,
				RightPending: status.RightPending,
			})
		}
		go handleControl(player, control)
	}

	go func() {
		if err := player.Start(); err != nil {
			log.Printf("Player error: %v", err)
		}
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if control != nil {
		select {
		case <-control.Quit:
			log.Printf("Received quit signal from TUI")
		case <-sigChan:
			log.Printf("Shutdown signal received")
		}
	} else {
		<-sigChan
		log.Printf("Shutdown signal received")
	}

	player.Stop()
	log.Printf("Player stopped")
}

// handleControl processes monitor keybinds
func handleControl(player *app.Player, control *ui.Control) {
	for {
		select {
		case enabled := <-control.LowLatency:
			log.Printf("Low-latency mode: %v", enabled)
			player.SetLowLatency(enabled)
		case <-control.Clear:
			log.Printf("Clearing pending playback")
			player.ClearAll()
		case <-control.Quit:
			return
		}
	}
}
