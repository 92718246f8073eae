package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

// Audio settings
const (
	SampleRate = 44100
	Channels   = 2
)

// Flow control settings. MaxBlocks bounds the queue for the command line
// tools; the engine itself defaults to unbounded.
const (
	MaxBlocks = 256
	TapSize   = 4096 // Samples of history kept for the meter and spectrum
)

// Monitor settings
const (
	FFTSize           = 2048
	NumBars           = 32
	Sensitivity       = 1.5
	RefreshRate       = 20 // Monitor redraws per second
	NoteHoldMillis    = 300
	VolumeStep        = 0.05
	DefaultStepMillis = 250
)

// Chart settings
const (
	ChartWidth  = 1280
	ChartHeight = 480

	// Brand yellow #F8B31D for the occupancy trace, red for underruns
	ChartTraceColor    = "#F8B31D"
	ChartUnderrunColor = "#A40000"
)

// EnvPrefix is prepended to every environment variable the tools read
const EnvPrefix = "BLOCKFEED_"

// DefaultEnvFile is loaded when present
const DefaultEnvFile = ".env"

// LoadEnv loads KEY=value pairs from files into the process environment
// without overriding variables that are already set. Missing files are
// skipped; with no arguments DefaultEnvFile is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ParseHexColor parses "RRGGBB" or "#RRGGBB" into its components
func ParseHexColor(s string) (r, g, b uint8, err error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid colour %q: want 6 hex digits", s)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return raw[0], raw[1], raw[2], nil
}
