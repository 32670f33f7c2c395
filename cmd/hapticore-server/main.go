// ABOUTME: Entry point for the Hapticore feeder server
// ABOUTME: Parses CLI flags and starts the pulse broadcast server
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

	"github.com/hapticore/hapticore-go/internal/server"
)

var (
	port        = flag.Int("port", 9137, "WebSocket server port")
	name        = flag.String("name", "", "Server friendly name (default: hostname-hapticore-server)")
	logFile     = flag.String("log-file", "hapticore-server.log", "Log file path")
	noMDNS      = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	patternFile = flag.String("pattern", "", "MP3 file to convert into haptic pulses. If not specified, plays synthesized patterns")
	rate        = flag.Int("rate", 1000, "Haptic sample rate in Hz")
	intervalMs  = flag.Int("interval-ms", 500, "Time between emitted pulses in milliseconds")
)

func main() {
	flag.Parse()

	// Set up logging (both file and console)
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	// Log to both file and stdout
	multiWriter := io.MultiWriter(os.Stdout, f)
	log.SetOutput(multiWriter)

	// Determine server name
	serverName := *name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-hapticore-server", hostname)
	}

	log.Printf("Starting Hapticore Server: %s on port %d", serverName, *port)
	log.Printf("Logging to: %s", *logFile)
	log.Printf("Press Ctrl-C to stop")

	// Create server
	config := server.Config{
		Port:         *port,
		Name:         serverName,
		EnableMDNS:   !*noMDNS,
		SampleRateHz: *rate,
		Interval:     time.Duration(*intervalMs) * time.Millisecond,
		PatternFile:  *patternFile,
	}

	srv, err := server.New(config)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("\nReceived %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	// Start server
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Printf("Server stopped")
}
