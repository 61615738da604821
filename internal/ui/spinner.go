package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Spinner frames for animation
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows progress of a long operation such as a dossier export.
// When disabled every method only prints the final line.
type Spinner struct {
	out      io.Writer
	enabled  bool
	colored  bool
	message  string
	running  bool
	stopCh   chan struct{}
	done     chan struct{}
	mu       sync.Mutex
	style    lipgloss.Style
	msgStyle lipgloss.Style
	interval time.Duration
}

// NewSpinner creates a spinner writing to out. Pass enabled=false when out
// is not a terminal.
func NewSpinner(out io.Writer, enabled, colored bool) *Spinner {
	return &Spinner{
		out:      out,
		enabled:  enabled,
		colored:  colored,
		style:    lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		msgStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		interval: 80 * time.Millisecond,
	}
}

// Start begins the spinner animation with a message
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	if s.running || !s.enabled {
		return
	}

	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	go s.animate()
}

// Stop stops the spinner and clears the line
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.done
	fmt.Fprint(s.out, "\r\033[K")
}

// StopWithMessage stops and displays a final message
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	mark := "✓"
	if s.colored {
		mark = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render(mark)
	}
	fmt.Fprintln(s.out, mark+" "+message)
}

// StopWithError stops and displays an error message
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	mark := "✗"
	if s.colored {
		mark = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(mark)
	}
	fmt.Fprintln(s.out, mark+" "+message)
}

func (s *Spinner) animate() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()

			s.render(frame, msg)
			frame = (frame + 1) % len(spinnerFrames)
		}
	}
}

func (s *Spinner) render(frame int, message string) {
	spinChar := spinnerFrames[frame]
	if s.colored {
		fmt.Fprintf(s.out, "\r\033[K%s %s", s.style.Render(spinChar), s.msgStyle.Render(message))
		return
	}
	fmt.Fprintf(s.out, "\r\033[K%s %s", spinChar, message)
}
