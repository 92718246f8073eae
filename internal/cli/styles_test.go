package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/linuxmatters/blockfeed/internal/stream"
)

func TestFormatDuration(t *testing.T) {
	testCases := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "90.0s"},
	}
	for _, tc := range testCases {
		if got := FormatDuration(tc.in); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatFrames(t *testing.T) {
	if got := FormatFrames(44100, 44100); got != "44100 frames (1.0s)" {
		t.Errorf("FormatFrames = %q", got)
	}
	if got := FormatFrames(10, 0); got != "10 frames" {
		t.Errorf("FormatFrames without rate = %q", got)
	}
}

func TestFormatSummary(t *testing.T) {
	s := stream.Snapshot{
		Renders:         100,
		Frames:          12800,
		Underruns:       2,
		SilentFrames:    128,
		Requests:        20,
		DroppedRequests: 1,
		Quantum:         128,
		LowWater:        5,
		Target:          8,
	}
	out := FormatSummary("Render complete", s, 44100, time.Second)

	for _, want := range []string{"Render complete", "100 × 128 frames", "2 (1.00% silence)", "20 sent, 1 dropped", "low-water 5, target 8"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
