// ABOUTME: Pulse feeder server implementation
// ABOUTME: Manages WebSocket connections and broadcasts haptic pulses to players
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hapticore/hapticore-go/internal/discovery"
	"github.com/hapticore/hapticore-go/internal/protocol"
)

// ProtocolVersion is the feed protocol version.
const ProtocolVersion = 1

// Config holds server configuration
type Config struct {
	Port         int
	Name         string
	EnableMDNS   bool
	SampleRateHz int           // haptic sample rate of emitted pulses
	Interval     time.Duration // time between emitted pulses
	PatternFile  string        // MP3 to convert into pulses; empty = synthesized patterns
	Source       Source        // custom pulse source; overrides PatternFile
}

// Server broadcasts pulses from a Source to all connected players.
type Server struct {
	config   Config
	serverID string

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	clients   map[string]*Client
	clientsMu sync.RWMutex

	source Source

	mdnsManager *discovery.Manager

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Client represents a connected player
type Client struct {
	ID   string
	Name string
	Conn *websocket.Conn

	sendChan chan protocol.Message
	mu       sync.Mutex
}

// New creates a new feeder server
func New(config Config) (*Server, error) {
	if config.SampleRateHz <= 0 {
		config.SampleRateHz = 1000
	}
	if config.Interval <= 0 {
		config.Interval = 500 * time.Millisecond
	}

	source := config.Source
	if source == nil {
		if config.PatternFile != "" {
			fs, err := NewFileSource(config.PatternFile, config.SampleRateHz, config.Interval)
			if err != nil {
				return nil, fmt.Errorf("failed to open pattern file: %w", err)
			}
			source = fs
		} else {
			source = NewPatternSource(config.SampleRateHz, config.Interval)
		}
	}

	return &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Trusted local networks only; non-browser clients send no origin.
				return true
			},
		},
		clients:  make(map[string]*Client),
		source:   source,
		stopChan: make(chan struct{}),
	}, nil
}

// Start runs the HTTP server and the pulse feed loop.
func (s *Server) Start() error {
	s.mux.HandleFunc("/hapticore", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.mux,
	}

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			ServerMode:  true,
		})
		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("mDNS advertisement failed: %v", err)
		}
	}

	s.wg.Add(1)
	go s.feedLoop()

	log.Printf("Feeder %s listening on :%d", s.config.Name, s.config.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.mdnsManager != nil {
			s.mdnsManager.Stop()
		}
		if s.httpServer != nil {
			s.httpServer.Close()
		}

		// Closing the HTTP server does not touch hijacked websocket
		// connections; each readLoop stays parked in ReadMessage until
		// its connection is closed here.
		s.clientsMu.Lock()
		for _, client := range s.clients {
			client.Conn.Close()
		}
		s.clientsMu.Unlock()

		s.source.Close()
		s.wg.Wait()
	})
}

// handleWebSocket upgrades a connection and performs the handshake.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Upgrade failed: %v", err)
		return
	}

	client, err := s.handshake(conn)
	if err != nil {
		log.Printf("Handshake failed: %v", err)
		conn.Close()
		return
	}

	s.clientsMu.Lock()
	s.clients[client.ID] = client
	count := len(s.clients)
	s.clientsMu.Unlock()

	log.Printf("Player connected: %s (%s), %d total", client.Name, client.ID, count)

	s.wg.Add(2)
	go s.writeLoop(client)
	go s.readLoop(client)
}

// handshake reads client/hello and answers with server/hello.
func (s *Server) handshake(conn *websocket.Conn) (*Client, error) {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read client/hello: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse client/hello: %w", err)
	}
	if msg.Type != "client/hello" {
		return nil, fmt.Errorf("expected client/hello, got %s", msg.Type)
	}

	payloadBytes, _ := json.Marshal(msg.Payload)
	var hello protocol.ClientHello
	if err := json.Unmarshal(payloadBytes, &hello); err != nil {
		return nil, fmt.Errorf("failed to parse client/hello payload: %w", err)
	}

	reply := protocol.Message{
		Type: "server/hello",
		Payload: protocol.ServerHello{
			ServerID:     s.serverID,
			Name:         s.config.Name,
			Version:      ProtocolVersion,
			SampleRateHz: s.config.SampleRateHz,
		},
	}
	if err := conn.WriteJSON(reply); err != nil {
		return nil, fmt.Errorf("failed to send server/hello: %w", err)
	}

	id := hello.ClientID
	if id == "" {
		id = uuid.New().String()
	}

	return &Client{
		ID:       id,
		Name:     hello.Name,
		Conn:     conn,
		sendChan: make(chan protocol.Message, 32),
	}, nil
}

// feedLoop pulls pulses from the source and broadcasts them.
func (s *Server) feedLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			pulse, err := s.source.Next()
			if err != nil {
				log.Printf("Pulse source exhausted: %v", err)
				return
			}
			s.broadcast(protocol.Message{Type: "pulse", Payload: pulse})
		}
	}
}

// broadcast queues a message to every connected player.
func (s *Server) broadcast(msg protocol.Message) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		select {
		case client.sendChan <- msg:
		default:
			log.Printf("Dropping message for slow player %s", client.ID)
		}
	}
}

// writeLoop drains a client's send channel onto its connection.
func (s *Server) writeLoop(client *Client) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}
			client.mu.Lock()
			err := client.Conn.WriteJSON(msg)
			client.mu.Unlock()
			if err != nil {
				log.Printf("Write to %s failed: %v", client.ID, err)
				s.removeClient(client)
				return
			}
		}
	}
}

// readLoop consumes stats reports until the player disconnects.
func (s *Server) readLoop(client *Client) {
	defer s.wg.Done()

	for {
		_, data, err := client.Conn.ReadMessage()
		if err != nil {
			s.removeClient(client)
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.Type == "client/stats" {
			payloadBytes, _ := json.Marshal(msg.Payload)
			var stats protocol.StatsReport
			if err := json.Unmarshal(payloadBytes, &stats); err == nil {
				log.Printf("Player %s: hits=%d misses=%d underruns=%d skipped=%d",
					client.Name, stats.PredictionHits, stats.PredictionMisses,
					stats.Underruns, stats.SkippedTicks)
			}
		}
	}
}

func (s *Server) removeClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if _, ok := s.clients[client.ID]; ok {
		delete(s.clients, client.ID)
		client.Conn.Close()
		log.Printf("Player disconnected: %s, %d remaining", client.ID, len(s.clients))
	}
}

// ClientCount returns the number of connected players.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
