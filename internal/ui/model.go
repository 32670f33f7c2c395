// ABOUTME: Bubbletea model for the haptic monitor TUI
// ABOUTME: Defines application state and update logic
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hapticore/hapticore-go/internal/scheduler"
)

// Model represents the TUI state
type Model struct {
	// Connection
	connected  bool
	serverName string

	// Device
	sampleRate int
	backend    string
	lowLatency bool

	// Per-hand scheduler state
	left         scheduler.Stats
	right        scheduler.Stats
	leftPending  int
	rightPending int

	// Debug
	showDebug bool

	control *Control

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderHand("Left ", m.left, m.leftPending)
	s += m.renderHand("Right", m.right, m.rightPending)

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders connection and device status
func (m Model) renderHeader() string {
	connStatus := "Standalone (no feeder)"
	if m.connected {
		connStatus = fmt.Sprintf("Connected to %s", m.serverName)
	}

	latency := "comfort"
	if m.lowLatency {
		latency = "low-latency"
	}

	return fmt.Sprintf(`┌─ Hapticore Monitor ──────────────────────────────────┐
│ Feed:    %-43s │
│ Device:  %s @ %dHz, %s buffering%-10s │
├──────────────────────────────────────────────────────┤
`, connStatus, m.backend, m.sampleRate, latency, "")
}

// renderHand renders one scheduler's counters
func (m Model) renderHand(name string, stats scheduler.Stats, pending int) string {
	return fmt.Sprintf("│ %s  pending:%-6d hit:%-7d miss:%-7d under:%-4d │\n",
		name, pending, stats.PredictionHits, stats.PredictionMisses, stats.Underruns)
}

// renderDebug renders extended counters
func (m Model) renderDebug() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ DEBUG  L: sub=%-8d pad=%-8d skip=%-12d │
│        R: sub=%-8d pad=%-8d skip=%-12d │
`, m.left.Submitted, m.left.Padded, m.left.SkippedTicks,
		m.right.Submitted, m.right.Padded, m.right.SkippedTicks)
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ l:Latency mode  c:Clear  d:Debug  q:Quit             │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.control != nil {
			select {
			case m.control.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "l":
		m.lowLatency = !m.lowLatency
		if m.control != nil {
			select {
			case m.control.LowLatency <- m.lowLatency:
			default:
			}
		}
	case "c":
		if m.control != nil {
			select {
			case m.control.Clear <- struct{}{}:
			default:
			}
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from a status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.ServerName != "" {
		m.serverName = msg.ServerName
	}
	if msg.Backend != "" {
		m.backend = msg.Backend
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
	}
	if msg.Left != nil {
		m.left = *msg.Left
	}
	if msg.Right != nil {
		m.right = *msg.Right
	}
	m.leftPending = msg.LeftPending
	m.rightPending = msg.RightPending
}

// StatusMsg updates TUI state
type StatusMsg struct {
	Connected    *bool
	ServerName   string
	Backend      string
	SampleRate   int
	Left         *scheduler.Stats
	Right        *scheduler.Stats
	LeftPending  int
	RightPending int
}
