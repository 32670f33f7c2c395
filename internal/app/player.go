// ABOUTME: Main player application orchestration
// ABOUTME: Coordinates the feed connection, the engine tick loop, and the UI
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hapticore/hapticore-go/internal/client"
	"github.com/hapticore/hapticore-go/internal/discovery"
	"github.com/hapticore/hapticore-go/internal/driver"
	"github.com/hapticore/hapticore-go/internal/engine"
	"github.com/hapticore/hapticore-go/internal/haptic"
	"github.com/hapticore/hapticore-go/internal/protocol"
	"github.com/hapticore/hapticore-go/internal/version"
)

// Config holds player configuration
type Config struct {
	ServerAddr    string // manual feeder address; empty = discover via mDNS
	Port          int
	Name          string
	Backend       string // "sim" or "audio"
	LowLatency    bool
	FrameInterval time.Duration
	Standalone    bool // run without a feeder
}

// Player coordinates the feed client and the haptic engine.
type Player struct {
	config    Config
	drv       driver.Driver
	engine    *engine.Engine
	client    *client.Client
	discovery *discovery.Manager

	// OnStatus is called once per stats interval with a fresh snapshot.
	OnStatus func(Status)

	ctx    context.Context
	cancel context.CancelFunc
}

// Status is a per-interval snapshot for observers.
type Status struct {
	Connected    bool
	ServerName   string
	Stats        engine.Stats
	LeftPending  int
	RightPending int
}

// New creates a player with its driver backend and engine.
func New(config Config) (*Player, error) {
	if config.FrameInterval <= 0 {
		config.FrameInterval = 16 * time.Millisecond
	}

	var drv driver.Driver
	switch config.Backend {
	case "", "sim":
		drv = driver.NewSim(driver.DefaultCapabilities())
	case "audio":
		audio, err := driver.NewAudio()
		if err != nil {
			return nil, fmt.Errorf("audio backend: %w", err)
		}
		drv = audio
	default:
		return nil, fmt.Errorf("unknown backend %q", config.Backend)
	}

	eng, err := engine.New(drv)
	if err != nil {
		return nil, err
	}
	eng.SetLowLatency(config.LowLatency)

	ctx, cancel := context.WithCancel(context.Background())

	return &Player{
		config: config,
		drv:    drv,
		engine: eng,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Engine returns the underlying engine, for direct channel access.
func (p *Player) Engine() *engine.Engine {
	return p.engine
}

// Start runs the player until Stop is called.
func (p *Player) Start() error {
	if !p.config.Standalone {
		if p.config.ServerAddr != "" {
			if err := p.connect(p.config.ServerAddr); err != nil {
				return fmt.Errorf("connection failed: %w", err)
			}
		} else {
			p.discovery = discovery.NewManager(discovery.Config{
				ServiceName: p.config.Name,
				Port:        p.config.Port,
			})
			if err := p.discovery.Advertise(); err != nil {
				log.Printf("mDNS advertisement failed: %v", err)
			}
			if err := p.discovery.Browse(); err != nil {
				log.Printf("mDNS browse failed: %v", err)
			}
			go p.handleDiscovery()
		}
	}

	go p.tickLoop()

	<-p.ctx.Done()
	return nil
}

// Stop shuts the player down and releases the engine.
func (p *Player) Stop() {
	p.cancel()
	if p.client != nil {
		p.client.Close()
	}
	if p.discovery != nil {
		p.discovery.Stop()
	}
	p.engine.Close()
}

// SetLowLatency toggles the buffering policy at runtime.
func (p *Player) SetLowLatency(enabled bool) {
	p.engine.SetLowLatency(enabled)
}

// ClearAll drops pending playback on both hands.
func (p *Player) ClearAll() {
	p.engine.Left().Clear()
	p.engine.Right().Clear()
}

// handleDiscovery waits for a feeder to appear.
func (p *Player) handleDiscovery() {
	for {
		select {
		case server := <-p.discovery.Servers():
			addr := fmt.Sprintf("%s:%d", server.Host, server.Port)
			log.Printf("Attempting connection to %s", addr)

			if err := p.connect(addr); err != nil {
				log.Printf("Connection failed: %v", err)
				continue
			}
			return

		case <-p.ctx.Done():
			return
		}
	}
}

// connect establishes the feed connection and starts pulse handling.
func (p *Player) connect(serverAddr string) error {
	c := client.NewClient(client.Config{
		ServerAddr: serverAddr,
		ClientID:   uuid.New().String(),
		Name:       p.config.Name,
		Version:    1,
		DeviceInfo: protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
	})

	if err := c.Connect(); err != nil {
		return err
	}

	p.client = c
	go p.handleFeed()
	go p.reportStats()

	return nil
}

// handleFeed applies incoming pulses and clear commands to the engine.
func (p *Player) handleFeed() {
	for {
		select {
		case pulse := <-p.client.Pulses:
			if err := p.applyPulse(pulse); err != nil {
				log.Printf("Dropping pulse: %v", err)
			}

		case clear := <-p.client.Clears:
			for _, ch := range p.targets(clear.Channel) {
				ch.Clear()
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// applyPulse routes one pulse to the matching channels and mode.
func (p *Player) applyPulse(pulse protocol.Pulse) error {
	samples, err := protocol.DecodeSamples(pulse.Samples)
	if err != nil {
		return err
	}

	for _, ch := range p.targets(pulse.Channel) {
		// Each channel gets its own clip; clips are transferred on
		// submission and must not be shared between schedulers.
		clip := haptic.FromSamples(append([]byte(nil), samples...))

		switch pulse.Mode {
		case protocol.ModePreempt:
			ch.Preempt(clip)
		case protocol.ModeMix:
			ch.Mix(clip)
		default:
			ch.Queue(clip)
		}
	}

	return nil
}

// targets resolves a protocol channel name to engine channels.
func (p *Player) targets(channel string) []*engine.Channel {
	switch channel {
	case protocol.ChannelLeft:
		return []*engine.Channel{p.engine.Left()}
	case protocol.ChannelRight:
		return []*engine.Channel{p.engine.Right()}
	case protocol.ChannelBoth:
		return []*engine.Channel{p.engine.Left(), p.engine.Right()}
	}
	return nil
}

// tickLoop drives the engine once per frame and publishes status.
func (p *Player) tickLoop() {
	ticker := time.NewTicker(p.config.FrameInterval)
	defer ticker.Stop()

	statusTicker := time.NewTicker(500 * time.Millisecond)
	defer statusTicker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return

		case <-ticker.C:
			if err := p.engine.Tick(); err != nil {
				// An invalid capability report skips the frame; the
				// descriptor is reloaded on the next tick.
				log.Printf("Tick skipped: %v", err)
			}

		case <-statusTicker.C:
			if p.OnStatus == nil {
				continue
			}
			left, right := p.engine.Pending()
			p.OnStatus(Status{
				Connected:    p.client != nil && p.client.IsConnected(),
				ServerName:   p.config.ServerAddr,
				Stats:        p.engine.Stats(),
				LeftPending:  left,
				RightPending: right,
			})
		}
	}
}

// reportStats periodically sends scheduler counters to the feeder.
func (p *Player) reportStats() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			stats := p.engine.Stats()
			report := protocol.StatsReport{
				PredictionHits:   stats.Left.PredictionHits + stats.Right.PredictionHits,
				PredictionMisses: stats.Left.PredictionMisses + stats.Right.PredictionMisses,
				Underruns:        stats.Left.Underruns + stats.Right.Underruns,
				SkippedTicks:     stats.Left.SkippedTicks + stats.Right.SkippedTicks,
			}
			if err := p.client.SendStats(report); err != nil {
				log.Printf("Stats report failed: %v", err)
			}
		}
	}
}
