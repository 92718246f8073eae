package output

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"
)

// ClockConfig describes an offline render
type ClockConfig struct {
	SampleRate int
	Channels   int
	Quantum    int

	// Speed scales the pace relative to real time; <= 0 renders as fast as
	// possible
	Speed float64

	// MaxFrames stops the clock once reached, shortening the last block
	// handed to the sinks; 0 for no limit
	MaxFrames int64

	Sinks []Sink
	Hooks Hooks
}

// Clock stands in for an audio device: it calls Render once per quantum on
// its own goroutine, paced by a ticker, and hands each quantum to the sinks.
type Clock struct {
	cfg    ClockConfig
	buf    [][]float32
	tail   [][]float32 // buf cut short for the final block
	frames atomic.Int64
}

// NewClock preallocates the channel buffers.
func NewClock(cfg ClockConfig) (*Clock, error) {
	switch {
	case cfg.Channels == 0:
		return nil, ErrNoChannels
	case cfg.Channels < 0:
		return nil, fmt.Errorf("invalid channel count %d", cfg.Channels)
	case cfg.SampleRate <= 0:
		return nil, fmt.Errorf("invalid sample rate %d", cfg.SampleRate)
	case cfg.Quantum <= 0:
		return nil, fmt.Errorf("invalid quantum %d", cfg.Quantum)
	}

	buf := make([][]float32, cfg.Channels)
	for ch := range buf {
		buf[ch] = make([]float32, cfg.Quantum)
	}
	return &Clock{cfg: cfg, buf: buf, tail: make([][]float32, cfg.Channels)}, nil
}

// Period returns the wall-clock time between render calls, 0 when unpaced.
func (c *Clock) Period() time.Duration {
	if c.cfg.Speed <= 0 {
		return 0
	}
	seconds := float64(c.cfg.Quantum) / float64(c.cfg.SampleRate) / c.cfg.Speed
	return max(time.Duration(seconds*float64(time.Second)), time.Microsecond)
}

// Frames returns the number of frames rendered so far. Safe from any goroutine.
func (c *Clock) Frames() int64 {
	return c.frames.Load()
}

// Run renders until ctx is cancelled, MaxFrames is reached, the Stop hook
// fires, or a sink fails. Only cancellation and sink errors are returned.
func (c *Clock) Run(ctx context.Context, r Renderer) error {
	var tick <-chan time.Time
	if period := c.Period(); period > 0 {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else {
			if err := ctx.Err(); err != nil {
				return err
			}
			// let the producer run between unpaced renders
			runtime.Gosched()
		}

		r.Render(c.buf)
		out := c.out()
		frames := c.frames.Add(int64(len(out[0])))

		for _, s := range c.cfg.Sinks {
			if err := s.WriteBlock(out); err != nil {
				return fmt.Errorf("sink write at frame %d: %w", frames, err)
			}
		}

		stop := c.cfg.Hooks.after(frames)
		if stop || (c.cfg.MaxFrames > 0 && frames >= c.cfg.MaxFrames) {
			return nil
		}
	}
}

// out returns the rendered quantum, truncated to what remains of MaxFrames.
func (c *Clock) out() [][]float32 {
	if c.cfg.MaxFrames <= 0 {
		return c.buf
	}
	rest := c.cfg.MaxFrames - c.frames.Load()
	if rest >= int64(c.cfg.Quantum) {
		return c.buf
	}
	for ch := range c.tail {
		c.tail[ch] = c.buf[ch][:max(rest, 0)]
	}
	return c.tail
}
