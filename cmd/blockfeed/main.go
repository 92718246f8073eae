package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/linuxmatters/blockfeed/internal/audio"
	"github.com/linuxmatters/blockfeed/internal/cli"
	"github.com/linuxmatters/blockfeed/internal/config"
	"github.com/linuxmatters/blockfeed/internal/output"
	"github.com/linuxmatters/blockfeed/internal/producer"
	"github.com/linuxmatters/blockfeed/internal/renderer"
	"github.com/linuxmatters/blockfeed/internal/stream"
	"github.com/linuxmatters/blockfeed/internal/ui"
)

// version is set via ldflags at build time
// Local dev builds: "dev"
// Release builds: git tag (e.g. "v0.1.0")
var version = "dev"

// versionFlag prints the version and exits before any command runs
type versionFlag bool

func (v versionFlag) BeforeReset(app *kong.Kong) error {
	cli.PrintVersion(version)
	app.Exit(0)
	return nil
}

var CLI struct {
	LogLevel string      `help:"Log level: debug, info, warn or error" default:"info" enum:"debug,info,warn,error" env:"BLOCKFEED_LOG_LEVEL"`
	LogFile  string      `help:"Append logs to this file; the monitor otherwise hides them" type:"path" env:"BLOCKFEED_LOG_FILE"`
	Version  versionFlag `help:"Show version information"`

	Play   playCmd   `cmd:"" help:"Stream audio to the default output device"`
	Render renderCmd `cmd:"" help:"Render the stream offline to a WAV file"`
}

type playCmd struct {
	StreamFlags `embed:""`

	NoUI bool `help:"Disable the live monitor and print a summary at the end" env:"BLOCKFEED_NO_UI"`
}

type renderCmd struct {
	Output string `arg:"" name:"output" help:"Output WAV file" type:"path"`

	StreamFlags `embed:""`

	Duration time.Duration `help:"Length to render; 0 renders a file input to its end" default:"10s" env:"BLOCKFEED_DURATION"`
	Speed    float64       `help:"Pace relative to real time; 0 renders as fast as possible" default:"1" env:"BLOCKFEED_SPEED"`
	Chart    string        `help:"Write a PNG chart of queue occupancy" type:"path" placeholder:"FILE.png" env:"BLOCKFEED_CHART"`
	NoUI     bool          `help:"Disable the progress monitor" env:"BLOCKFEED_NO_UI"`
}

func main() {
	// .env values become flag defaults through the env tags
	if err := config.LoadEnv(); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}

	ctx := kong.Parse(&CLI,
		kong.Name(cli.AppName),
		kong.Description(cli.Tagline),
		kong.Vars{"version": version},
		kong.UsageOnError(),
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	tui := false
	switch {
	case CLI.Play.NoUI, CLI.Render.NoUI:
	case ctx.Command() == "play", ctx.Command() == "render <output>":
		tui = true
	}

	logger, closeLog, err := newLogger(CLI.LogLevel, CLI.LogFile, tui)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}

	runErr := ctx.Run(logger)
	if err := closeLog(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		cli.PrintError(runErr.Error())
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func (c *playCmd) Run(logger *log.Logger) error {
	if err := c.validate(); err != nil {
		return err
	}

	src, err := c.openSource(!c.NoUI, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	eng := stream.New(c.engineConfig(logger))
	prod := producer.New(src, producer.Config{
		Quantum: c.Quantum,
		Jitter:  c.Jitter,
		Logger:  logger,
	})

	var tap *audio.Tap
	var spectrum *audio.Spectrum
	if !c.NoUI {
		tap = audio.NewTap(config.TapSize)
		if spectrum, err = audio.NewSpectrum(config.FFTSize, config.NumBars); err != nil {
			return err
		}
	}

	dev, err := output.NewDevice(eng, output.DeviceConfig{
		SampleRate: src.sampleRate,
		Channels:   c.Channels,
		Quantum:    c.Quantum,
		Tap:        tap,
		Hooks:      output.Hooks{Stop: drained(eng, prod)},
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if c.NoUI {
		cli.PrintBanner()
		cli.PrintInfo("Source", src.name)
		cli.PrintInfo("Flow", fmt.Sprintf("quantum %d, low %d, target %d", c.Quantum, c.LowWater, c.Target))
	}

	monitor := ui.MonitorConfig{
		Title:      src.name,
		SampleRate: src.sampleRate,
		Engine:     eng,
		Producer:   prod,
		Tap:        tap,
		Spectrum:   spectrum,
		Controls:   src.bus,
		Waveform:   src.waveform,
		Volume:     src.volume,
		Voices:     src.voices,
	}

	start := time.Now()
	err = runPipeline(logger, prod, eng, func(ctx context.Context) error {
		return dev.Play(ctx)
	}, monitor, c.NoUI)
	if err != nil {
		return err
	}

	cli.PrintSummary("Playback complete", eng.Stats(), src.sampleRate, time.Since(start))
	return nil
}

func (c *renderCmd) Run(logger *log.Logger) error {
	if err := c.validate(); err != nil {
		return err
	}
	if c.Duration < 0 {
		return fmt.Errorf("invalid duration: %s", c.Duration)
	}
	if c.Duration == 0 && (c.Input == "" || c.Loop) {
		return errors.New("an endless source needs --duration")
	}

	src, err := c.openSource(false, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	wav, err := audio.NewWAVWriter(c.Output, src.sampleRate, c.Channels)
	if err != nil {
		return err
	}
	defer wav.Close()

	eng := stream.New(c.engineConfig(logger))
	prod := producer.New(src, producer.Config{
		Quantum: c.Quantum,
		Jitter:  c.Jitter,
		Logger:  logger,
	})

	maxFrames := int64(c.Duration.Seconds() * float64(src.sampleRate))
	var timeline *output.Timeline
	hooks := output.Hooks{Stop: drained(eng, prod)}
	if c.Chart != "" {
		timeline = output.NewTimeline(int(maxFrames) / c.Quantum)
		hooks.AfterRender = func(frames int64) {
			timeline.Record(frames, eng.Stats())
		}
	}

	var tap *audio.Tap
	var spectrum *audio.Spectrum
	sinks := []output.Sink{wav}
	if !c.NoUI {
		tap = audio.NewTap(config.TapSize)
		if spectrum, err = audio.NewSpectrum(config.FFTSize, config.NumBars); err != nil {
			return err
		}
		sinks = append(sinks, tap)
	}

	clock, err := output.NewClock(output.ClockConfig{
		SampleRate: src.sampleRate,
		Channels:   c.Channels,
		Quantum:    c.Quantum,
		Speed:      c.Speed,
		MaxFrames:  maxFrames,
		Sinks:      sinks,
		Hooks:      hooks,
	})
	if err != nil {
		return err
	}

	monitor := ui.MonitorConfig{
		Title:      src.name + " → " + c.Output,
		SampleRate: src.sampleRate,
		Engine:     eng,
		Producer:   prod,
		Tap:        tap,
		Spectrum:   spectrum,
		Waveform:   src.waveform,
		Volume:     src.volume,
	}
	if maxFrames > 0 {
		monitor.Progress = func() float64 {
			return float64(clock.Frames()) / float64(maxFrames)
		}
	}

	if c.NoUI {
		cli.PrintBanner()
		cli.PrintInfo("Source", src.name)
		cli.PrintInfo("Output", c.Output)
	}

	start := time.Now()
	err = runPipeline(logger, prod, eng, func(ctx context.Context) error {
		return clock.Run(ctx, eng)
	}, monitor, c.NoUI)
	if err != nil {
		return err
	}

	if err := wav.Close(); err != nil {
		return fmt.Errorf("finalising %s: %w", c.Output, err)
	}
	logger.Info("render complete", "output", c.Output, "frames", wav.Frames())

	if timeline != nil {
		err := renderer.SaveChart(c.Chart, timeline, renderer.ChartOptions{
			Title:      "Queue occupancy: " + src.name,
			SampleRate: src.sampleRate,
		})
		if err != nil {
			return fmt.Errorf("writing chart: %w", err)
		}
		logger.Info("chart written", "path", c.Chart, "underruns", timeline.Underruns())
	}

	cli.PrintSummary("Render complete", eng.Stats(), src.sampleRate, time.Since(start))
	if timeline != nil {
		cli.PrintSuccess("Chart written to " + c.Chart)
	}
	return nil
}

// runPipeline runs the producer and the render driver until the driver
// stops, and the monitor alongside them unless noUI. Quitting the monitor
// stops the pipeline.
func runPipeline(logger *log.Logger, prod *producer.Producer, eng *stream.Engine, drive func(context.Context) error, monitor ui.MonitorConfig, noUI bool) error {
	sigCtx, stopSignals := signalContext()
	defer stopSignals()

	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := prod.Run(gctx, eng.Requests(), eng.Inbox())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	driverDone := make(chan error, 1)
	g.Go(func() error {
		// the producer waits on requests until told the driver is finished
		defer cancel()
		err := drive(gctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		driverDone <- err
		return err
	})

	if !noUI {
		p := tea.NewProgram(ui.NewMonitor(monitor))
		g.Go(func() error {
			// tell the monitor once the pipeline stops on its own
			go func() {
				select {
				case err := <-driverDone:
					p.Send(ui.DoneMsg{Err: err})
				case <-gctx.Done():
					p.Send(ui.DoneMsg{})
				}
			}()
			_, err := p.Run()
			cancel()
			if err != nil {
				return fmt.Errorf("running UI: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if sigCtx.Err() != nil {
		logger.Info("interrupted")
	}
	return err
}
