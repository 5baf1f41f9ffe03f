package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// Spinner animates a message while a request with no measurable progress
// runs. On anything but a terminal it prints the message once.
type Spinner struct {
	output io.Writer
	tty    bool

	mu      sync.Mutex
	message string
	done    chan struct{}
	stopped chan struct{}
}

// NewSpinner returns a spinner drawing on output.
func NewSpinner(output io.Writer) *Spinner {
	return &Spinner{output: output, tty: IsTerminal(output)}
}

// Start shows message. Calling Start on a running spinner only changes
// the message.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	if s.done != nil {
		return
	}
	if !s.tty {
		fmt.Fprintln(s.output, message)
		return
	}
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.animate(s.done, s.stopped)
}

// Stop halts the animation and prints final, if not empty.
func (s *Spinner) Stop(final string) {
	s.mu.Lock()
	done, stopped := s.done, s.stopped
	s.done, s.stopped = nil, nil
	s.mu.Unlock()

	if done != nil {
		close(done)
		<-stopped
		fmt.Fprintf(s.output, "\r%s\r", strings.Repeat(" ", lineWidth))
	}
	if final != "" {
		fmt.Fprintln(s.output, final)
	}
}

func (s *Spinner) animate(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(redrawInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		s.mu.Lock()
		msg := s.message
		s.mu.Unlock()
		fmt.Fprint(s.output, pad(fmt.Sprintf("\r%s %s", spinnerFrames[frame%len(spinnerFrames)], msg)))

		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
