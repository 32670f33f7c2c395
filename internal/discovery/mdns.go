// ABOUTME: mDNS service discovery for the pulse feed
// ABOUTME: Advertises endpoints and browses for feeders on the local network
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	playerService = "_hapticore._tcp"
	feederService = "_hapticore-server._tcp"

	// queryTimeout bounds one browse round; failed rounds also wait this
	// long before retrying.
	queryTimeout = 3 * time.Second
)

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	ServerMode  bool // advertise as a feeder instead of a player
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
}

// ServerInfo describes a discovered feeder
type ServerInfo struct {
	Name string
	Host string
	Port int
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
	}
}

// Advertise advertises this endpoint via mDNS
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	serviceType := playerService
	if m.config.ServerMode {
		serviceType = feederService
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		serviceType,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"path=/hapticore"},
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, serviceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for pulse feeders. The first query runs synchronously so
// callers see a broken network immediately; later rounds repeat in the
// background until Stop.
func (m *Manager) Browse() error {
	if err := m.query(); err != nil {
		return fmt.Errorf("mdns query failed: %w", err)
	}

	go m.browseLoop()
	return nil
}

// browseLoop repeats bounded queries until the manager stops.
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if err := m.query(); err != nil {
			log.Printf("mDNS query failed: %v", err)
			select {
			case <-m.ctx.Done():
				return
			case <-time.After(queryTimeout):
			}
		}
	}
}

// query runs one bounded feeder lookup and forwards hits to the servers
// channel. Hits arriving after Stop are dropped, not delivered.
func (m *Manager) query() error {
	entries := make(chan *mdns.ServiceEntry, 10)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			addr := entryAddr(entry)
			if addr == nil {
				continue
			}

			server := &ServerInfo{
				Name: entry.Name,
				Host: addr.String(),
				Port: entry.Port,
			}

			select {
			case m.servers <- server:
				log.Printf("Discovered feeder: %s at %s:%d", server.Name, server.Host, server.Port)
			case <-m.ctx.Done():
			}
		}
	}()

	err := mdns.Query(&mdns.QueryParam{
		Service: feederService,
		Domain:  "local",
		Timeout: queryTimeout,
		Entries: entries,
	})
	close(entries)
	<-done

	return err
}

// entryAddr picks a dialable address from a discovery hit, preferring IPv4.
func entryAddr(entry *mdns.ServiceEntry) net.IP {
	if entry.AddrV4 != nil {
		return entry.AddrV4
	}
	return entry.AddrV6
}

// Servers returns the channel of discovered feeders
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
