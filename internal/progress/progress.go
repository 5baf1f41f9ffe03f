// Package progress draws transient status lines on a terminal while the
// CLI seeds the store.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// IsTerminalFunc reports whether a file descriptor is a terminal. Tests
// override it.
var IsTerminalFunc = term.IsTerminal

// IsTerminal reports whether w is a terminal. Anything that is not an
// *os.File is not.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && IsTerminalFunc(int(f.Fd()))
}

const (
	lineWidth      = 80
	redrawInterval = 100 * time.Millisecond
)

// Reader counts bytes read from an underlying reader and redraws a
// progress line on output.
type Reader struct {
	r      io.Reader
	output io.Writer
	label  string
	total  int64

	mu       sync.Mutex
	read     int64
	interval time.Duration
	last     time.Time
}

// NewReader wraps r. A total of zero or less draws a byte count without a
// bar.
func NewReader(r io.Reader, total int64, label string, output io.Writer) *Reader {
	return &Reader{r: r, output: output, label: label, total: total, interval: redrawInterval}
}

func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.mu.Lock()
		pr.read += int64(n)
		if now := time.Now(); now.Sub(pr.last) >= pr.interval {
			pr.last = now
			pr.draw()
		}
		pr.mu.Unlock()
	}
	return n, err
}

// Finish clears the progress line.
func (pr *Reader) Finish() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	fmt.Fprintf(pr.output, "\r%s\r", strings.Repeat(" ", lineWidth))
}

func (pr *Reader) draw() {
	var line string
	if pr.total > 0 {
		percent := min(float64(pr.read)/float64(pr.total)*100, 100)
		line = fmt.Sprintf("\r%s %s %3.0f%% (%s/%s)", pr.label, bar(percent, 30), percent,
			formatBytes(pr.read), formatBytes(pr.total))
	} else {
		line = fmt.Sprintf("\r%s %s", pr.label, formatBytes(pr.read))
	}
	fmt.Fprint(pr.output, pad(line))
}

func bar(percent float64, width int) string {
	filled := min(int(percent/100*float64(width)), width)
	if filled == width {
		return "[" + strings.Repeat("=", width) + "]"
	}
	return "[" + strings.Repeat("=", filled) + ">" + strings.Repeat(" ", width-filled-1) + "]"
}

func pad(line string) string {
	if len(line) < lineWidth {
		line += strings.Repeat(" ", lineWidth-len(line))
	}
	return line
}

func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case b >= GB:
		return fmt.Sprintf("%.1fGB", float64(b)/GB)
	case b >= MB:
		return fmt.Sprintf("%.1fMB", float64(b)/MB)
	case b >= KB:
		return fmt.Sprintf("%.1fKB", float64(b)/KB)
	default:
		return fmt.Sprintf("%dB", b)
	}
}
