package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/linuxmatters/blockfeed/internal/audio"
	"github.com/linuxmatters/blockfeed/internal/cli"
	"github.com/linuxmatters/blockfeed/internal/producer"
	"github.com/linuxmatters/blockfeed/internal/stream"
	"github.com/linuxmatters/blockfeed/internal/synth"
)

// StreamFlags are shared by play and render
type StreamFlags struct {
	Input      string        `help:"Audio file to stream (.wav, .mp3, .flac, .ogg); the built-in synth plays when omitted" type:"existingfile" env:"BLOCKFEED_INPUT"`
	Loop       bool          `help:"Restart the input file when it ends" env:"BLOCKFEED_LOOP"`
	Quantum    int           `help:"Frames per render call" default:"128" env:"BLOCKFEED_QUANTUM"`
	LowWater   int           `help:"Queue occupancy that triggers a refill request" default:"5" env:"BLOCKFEED_LOW_WATER"`
	Target     int           `help:"Queue occupancy a refill aims for" default:"8" env:"BLOCKFEED_TARGET"`
	MaxBlocks  int           `help:"Queue capacity in blocks, 0 for unbounded" default:"256" env:"BLOCKFEED_MAX_BLOCKS"`
	Overflow   string        `help:"Block discarded when the queue is full: oldest or newest" default:"oldest" enum:"oldest,newest" env:"BLOCKFEED_OVERFLOW"`
	SampleRate int           `help:"Output sample rate for the synth" default:"44100" env:"BLOCKFEED_SAMPLE_RATE"`
	Channels   int           `help:"Output channels: 1 (mono) or 2 (stereo)" default:"2" env:"BLOCKFEED_CHANNELS"`
	Jitter     time.Duration `help:"Random producer delay per request, up to this long" default:"0s" env:"BLOCKFEED_JITTER"`
	Waveform   string        `help:"Synth waveform: sine, square, saw or triangle" default:"sine" enum:"sine,square,saw,triangle" env:"BLOCKFEED_WAVEFORM"`
	Pattern    string        `help:"Synth sequence such as C4,E4,-,G4; 'default' for the built-in arpeggio, empty for keyboard only" env:"BLOCKFEED_PATTERN"`
	Step       time.Duration `help:"Length of each pattern step" default:"250ms" env:"BLOCKFEED_STEP"`
}

// validate checks the values kong cannot
func (f *StreamFlags) validate() error {
	switch {
	case f.Channels != 1 && f.Channels != 2:
		return fmt.Errorf("invalid channels value: %d (must be 1 or 2)", f.Channels)
	case f.Quantum <= 0:
		return fmt.Errorf("invalid quantum: %d", f.Quantum)
	case f.LowWater <= 0 || f.Target <= 0:
		return fmt.Errorf("low water and target must be positive")
	case f.LowWater > f.Target:
		return fmt.Errorf("low water %d is above target %d", f.LowWater, f.Target)
	case f.MaxBlocks < 0:
		return fmt.Errorf("invalid max blocks: %d", f.MaxBlocks)
	case f.SampleRate <= 0:
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	return nil
}

func (f *StreamFlags) overflow() stream.OverflowPolicy {
	if f.Overflow == "newest" {
		return stream.DropNewest
	}
	return stream.DropOldest
}

func (f *StreamFlags) engineConfig(logger *log.Logger) stream.Config {
	return stream.Config{
		Quantum:   f.Quantum,
		LowWater:  f.LowWater,
		Target:    f.Target,
		MaxBlocks: f.MaxBlocks,
		Overflow:  f.overflow(),
		Logger:    logger,
	}
}

// source is the audio feeding the producer
type source struct {
	producer.Source
	io.Closer

	name       string
	sampleRate int
	bus        *synth.Bus // nil for file input
	voices     func() int // nil for file input
	volume     float64
	waveform   synth.Waveform
}

// openSource opens the input file, or builds a synth. keyboard leaves the
// synth without a sequencer unless a pattern was given.
func (f *StreamFlags) openSource(keyboard bool, logger *log.Logger) (*source, error) {
	if f.Input != "" {
		ds, err := audio.NewDecoderSource(f.Input, f.Loop)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Input, err)
		}
		if sr := ds.SampleRate(); sr != f.SampleRate {
			logger.Info("using input sample rate", "input", sr, "requested", f.SampleRate)
		}
		return &source{Source: ds, Closer: ds, name: f.Input, sampleRate: ds.SampleRate()}, nil
	}

	sr := float64(f.SampleRate)
	waveform := synth.DefaultWaveform(synth.ParseWaveKind(f.Waveform))
	s := synth.New(sr, waveform, synth.FilterSpec{Kind: synth.NoFilter})

	var seq *synth.Sequencer
	switch {
	case f.Pattern == "default" || (f.Pattern == "" && !keyboard):
		seq = synth.NewSequencer(synth.DefaultPattern(), sr)
	case f.Pattern != "":
		steps, err := synth.ParsePattern(f.Pattern, f.Step)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		seq = synth.NewSequencer(steps, sr)
	}

	src := synth.NewSource(s, seq)
	name := "synth (" + waveform.Kind.String() + ")"
	return &source{
		Source:     src,
		Closer:     src,
		name:       name,
		sampleRate: f.SampleRate,
		bus:        s.Bus(),
		voices:     s.ActiveVoices,
		volume:     s.MasterVolume(),
		waveform:   waveform,
	}, nil
}

// drained reports when a finite source has been fully played: the producer
// has sent its last block and the engine has consumed it. It runs on the
// render goroutine.
func drained(eng *stream.Engine, prod *producer.Producer) func() bool {
	return func() bool {
		select {
		case <-prod.Done():
			return eng.Pending() == 0 && eng.Occupancy() == 0
		default:
			return false
		}
	}
}

// newLogger builds the process logger. Without a log file, logs are dropped
// while the monitor owns the terminal.
func newLogger(level, file string, tui bool) (*log.Logger, func() error, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stderr
	closeFn := func() error { return nil }
	switch {
	case file != "":
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w = f
		closeFn = f.Close
	case tui:
		w = io.Discard
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          cli.AppName,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	return logger, closeFn, nil
}
