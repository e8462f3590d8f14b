package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{256 * 1024 * 1024, "256.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
		{1024 * 1024 * 1024 * 1024, "1.00 TB"},
	}

	for _, tt := range tests {
		result := FormatBytes(tt.input)
		if result != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"100", 100},
		{"100B", 100},
		{"1KB", 1024},
		{"1.5KB", 1536},
		{"50MB", 50 * 1024 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"1TB", 1024 * 1024 * 1024 * 1024},
		{" 10 MB ", 10 * 1024 * 1024},
	}

	for _, tt := range tests {
		result, err := ParseBytes(tt.input)
		if err != nil {
			t.Errorf("ParseBytes(%q): %v", tt.input, err)
			continue
		}
		if result != tt.expected {
			t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, result, tt.expected)
		}
	}
}

func TestParseBytesInvalid(t *testing.T) {
	for _, input := range []string{"invalid", "-1MB", "10MBx", "10 MB extra", "MB", "", "NaN", "InfGB", "1e400"} {
		if _, err := ParseBytes(input); err == nil {
			t.Errorf("ParseBytes(%q): expected error", input)
		}
	}
}

func TestTrackerConcurrentAdvance(t *testing.T) {
	const n = 1000

	tracker := NewTracker(Options{Label: "test", Total: n})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Advance()
		}()
	}
	wg.Wait()
	tracker.Close()

	if tracker.Completed() != n {
		t.Errorf("expected %d completed, got %d", n, tracker.Completed())
	}
}

func TestTrackerCounters(t *testing.T) {
	tracker := NewTracker(Options{Total: 4})

	tracker.Add(2)
	tracker.Fail()
	tracker.Advance()
	tracker.AddBytes(512)
	tracker.AddBytes(512)

	if tracker.Completed() != 3 {
		t.Errorf("expected 3 completed, got %d", tracker.Completed())
	}
	if tracker.Failed() != 1 {
		t.Errorf("expected 1 failed, got %d", tracker.Failed())
	}
	if tracker.Bytes() != 1024 {
		t.Errorf("expected 1024 bytes, got %d", tracker.Bytes())
	}
	if tracker.Total() != 4 {
		t.Errorf("expected total 4, got %d", tracker.Total())
	}
}

func TestTrackerStartClose(t *testing.T) {
	var buf syncBuffer

	tracker := NewTracker(Options{
		Label:          "Downloading papers",
		Unit:           "paper",
		Total:          2,
		Output:         &buf,
		UpdateInterval: 5 * time.Millisecond,
	})

	tracker.Start()
	tracker.Advance()
	time.Sleep(20 * time.Millisecond)
	tracker.Advance()
	tracker.Close()
	tracker.Close()

	output := buf.String()
	if !strings.Contains(output, "[harvest] Downloading papers: 2 papers") {
		t.Errorf("missing header in output: %q", output)
	}
	if !strings.Contains(output, "Downloading papers: 2/2") {
		t.Errorf("missing final status in output: %q", output)
	}
}

func TestTrackerWithoutOutput(t *testing.T) {
	tracker := NewTracker(Options{Total: 1})
	tracker.Start()
	tracker.Advance()
	tracker.Close()

	if tracker.Completed() != 1 {
		t.Errorf("expected 1 completed, got %d", tracker.Completed())
	}
}

// syncBuffer guards a bytes.Buffer written by the display goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
