package progress

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{1024, "1.0KB"},
		{1536, "1.5KB"},
		{5 * 1024 * 1024, "5.0MB"},
		{3 * 1024 * 1024 * 1024, "3.0GB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{0, "[>         ]"},
		{50, "[=====>    ]"},
		{100, "[==========]"},
	}
	for _, tt := range tests {
		if got := bar(tt.percent, 10); got != tt.want {
			t.Errorf("bar(%v) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}

func TestReader(t *testing.T) {
	src := strings.Repeat("x", 4096)
	var out bytes.Buffer
	pr := NewReader(strings.NewReader(src), int64(len(src)), "Reading dump", &out)
	pr.interval = 0

	data, err := io.ReadAll(pr)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != src {
		t.Fatal("reader altered the data")
	}
	pr.Finish()

	got := out.String()
	if !strings.Contains(got, "Reading dump") || !strings.Contains(got, "100%") {
		t.Errorf("progress output missing label or completion: %q", got)
	}
	if !strings.Contains(got, "(4.0KB/4.0KB)") {
		t.Errorf("progress output missing byte counts: %q", got)
	}
}

func TestReaderUnknownTotal(t *testing.T) {
	var out bytes.Buffer
	pr := NewReader(strings.NewReader("hello"), 0, "Reading", &out)
	pr.interval = 0
	if _, err := io.ReadAll(pr); err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !strings.Contains(out.String(), "Reading 5B") {
		t.Errorf("output = %q", out.String())
	}
}

func TestIsTerminal(t *testing.T) {
	orig := IsTerminalFunc
	defer func() { IsTerminalFunc = orig }()

	IsTerminalFunc = func(int) bool { return true }
	if !IsTerminal(os.Stderr) {
		t.Error("IsTerminal(os.Stderr) = false with a terminal fd")
	}
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is never a terminal")
	}

	IsTerminalFunc = func(int) bool { return false }
	if IsTerminal(os.Stderr) {
		t.Error("IsTerminal(os.Stderr) = true without a terminal fd")
	}
}
