// Package spinner draws a progress indicator on a terminal while a
// long-running call is in flight.
package spinner

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	// DefaultInterval is the frame duration.
	DefaultInterval = 120 * time.Millisecond

	hideCursor = "\033[?25l"
	showCursor = "\033[?25h"
	clearLine  = "\r\033[K"
)

// braille arrow
var frames = []string{
	"⣀⣀", "⣄⣀", "⣤⣀", "⣦⣄", "⣶⣤", "⣿⣦", "⣿⣷", "⣿⣿",
	"⣿⣿", "⣷⣿", "⣦⣿", "⣤⣷", "⣄⣦", "⣀⣤", "⣀⣄", "⣀⣀",
}

// Spinner animates frames on w until stopped. A nil *Spinner is valid and
// does nothing, so callers need not check whether output is a terminal.
type Spinner struct {
	w        io.Writer
	message  string
	interval time.Duration

	mu      sync.Mutex
	index   int
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New creates a spinner that prints message after each frame.
func New(w io.Writer, message string) *Spinner {
	return &Spinner{w: w, message: message, interval: DefaultInterval}
}

// ForTerminal returns a spinner when w is a terminal and nil otherwise, so
// that redirected output stays free of control sequences.
func ForTerminal(w io.Writer, message string) *Spinner {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return New(w, message)
}

// Start draws the first frame and animates in the background.
func (s *Spinner) Start() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	fmt.Fprint(s.w, hideCursor)
	s.drawLocked()

	go s.loop(s.stop, s.done)
}

func (s *Spinner) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.drawLocked()
			s.mu.Unlock()
		}
	}
}

func (s *Spinner) drawLocked() {
	fmt.Fprintf(s.w, "\r%s %s", frames[s.index], s.message)
	s.index = (s.index + 1) % len(frames)
}

// Stop clears the line and restores the cursor. It waits for the animation
// goroutine to exit.
func (s *Spinner) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	fmt.Fprint(s.w, clearLine+showCursor)
	s.mu.Unlock()
}
