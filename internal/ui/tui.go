// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the haptic monitor
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// QuitMsg signals the application to shut down.
type QuitMsg struct{}

// Control holds channels for monitor-to-application communication
type Control struct {
	LowLatency chan bool
	Clear      chan struct{}
	Quit       chan QuitMsg
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		LowLatency: make(chan bool, 10),
		Clear:      make(chan struct{}, 10),
		Quit:       make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(control *Control) Model {
	return Model{
		backend: "sim",
		control: control,
	}
}

// Run starts the TUI
func Run(control *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(control), tea.WithAltScreen())
	return p, nil
}
