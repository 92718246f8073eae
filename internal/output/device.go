package output

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"

	"github.com/linuxmatters/blockfeed/internal/audio"
)

// ErrNoChannels is returned for a device configured with zero output channels
var ErrNoChannels = errors.New("no output channels")

// DeviceConfig describes the output stream
type DeviceConfig struct {
	SampleRate int
	Channels   int // 1 or 2
	Quantum    int // frames per callback
	Tap        *audio.Tap
	Hooks      Hooks
	Logger     *log.Logger
}

// Device plays a Renderer through the default PortAudio output. PortAudio
// calls Render from its own realtime thread.
type Device struct {
	cfg    DeviceConfig
	r      Renderer
	stream *portaudio.Stream
	log    *log.Logger

	frames   atomic.Int64
	finished chan struct{}
	once     sync.Once
}

// NewDevice validates cfg. Nothing is opened until Play or Open.
func NewDevice(r Renderer, cfg DeviceConfig) (*Device, error) {
	switch {
	case cfg.Channels == 0:
		return nil, ErrNoChannels
	case cfg.Channels < 0 || cfg.Channels > 2:
		return nil, fmt.Errorf("unsupported channel count %d", cfg.Channels)
	case cfg.SampleRate <= 0:
		return nil, fmt.Errorf("invalid sample rate %d", cfg.SampleRate)
	case cfg.Quantum <= 0:
		return nil, fmt.Errorf("invalid quantum %d", cfg.Quantum)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Device{
		cfg:      cfg,
		r:        r,
		log:      cfg.Logger.WithPrefix("device"),
		finished: make(chan struct{}),
	}, nil
}

// Initialize starts the PortAudio library.
func (d *Device) Initialize() error {
	return portaudio.Initialize()
}

// Open opens the default output stream with one callback per quantum.
func (d *Device) Open() error {
	stream, err := portaudio.OpenDefaultStream(
		0,
		d.cfg.Channels,
		float64(d.cfg.SampleRate),
		d.cfg.Quantum,
		d.process,
	)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	d.stream = stream
	return nil
}

// Start begins calling the renderer.
func (d *Device) Start() error {
	if d.stream == nil {
		return errors.New("stream not opened")
	}
	return d.stream.Start()
}

// Stop waits for pending buffers to play and halts the callback.
func (d *Device) Stop() error {
	if d.stream == nil {
		return nil
	}
	return d.stream.Stop()
}

// Close releases the stream.
func (d *Device) Close() error {
	if d.stream == nil {
		return nil
	}
	return d.stream.Close()
}

// Terminate shuts the PortAudio library down.
func (d *Device) Terminate() {
	portaudio.Terminate()
}

// Finished is closed when the Stop hook first returns true.
func (d *Device) Finished() <-chan struct{} {
	return d.finished
}

// Frames returns the number of frames rendered.
func (d *Device) Frames() int64 {
	return d.frames.Load()
}

// Play runs the full lifecycle and blocks until ctx is cancelled or the Stop
// hook fires.
func (d *Device) Play(ctx context.Context) (err error) {
	if err := d.Initialize(); err != nil {
		return fmt.Errorf("failed to initialise PortAudio: %w", err)
	}
	defer d.Terminate()

	if err := d.Open(); err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	d.log.Info("playback started",
		"sample_rate", d.cfg.SampleRate,
		"channels", d.cfg.Channels,
		"quantum", d.cfg.Quantum)

	select {
	case <-ctx.Done():
	case <-d.finished:
	}

	if err := d.Stop(); err != nil {
		return fmt.Errorf("failed to stop output stream: %w", err)
	}
	d.log.Info("playback stopped", "frames", d.frames.Load())
	return nil
}

// process is the PortAudio callback
func (d *Device) process(out [][]float32) {
	d.r.Render(out)
	if d.cfg.Tap != nil {
		d.cfg.Tap.Capture(out)
	}
	if len(out) > 0 {
		d.frames.Add(int64(len(out[0])))
	}
	if d.cfg.Hooks.after(d.frames.Load()) {
		d.once.Do(func() { close(d.finished) })
	}
}
