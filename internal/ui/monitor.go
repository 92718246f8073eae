package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/blockfeed/internal/audio"
	"github.com/linuxmatters/blockfeed/internal/cli"
	"github.com/linuxmatters/blockfeed/internal/config"
	"github.com/linuxmatters/blockfeed/internal/stream"
	"github.com/linuxmatters/blockfeed/internal/synth"
)

// StatsSource is polled for engine counters; *stream.Engine satisfies it
type StatsSource interface {
	Stats() stream.Snapshot
}

// ProducerStats is polled for producer counters; *producer.Producer
// satisfies it
type ProducerStats interface {
	Served() int64
	Frames() int64
}

// MonitorConfig wires the monitor to a running pipeline
type MonitorConfig struct {
	Title      string
	SampleRate int
	Engine     StatsSource
	Producer   ProducerStats   // optional
	Tap        *audio.Tap      // optional level and spectrum source
	Spectrum   *audio.Spectrum // required with Tap
	Controls   *synth.Bus      // nil disables the keyboard
	Waveform   synth.Waveform
	Volume     float64
	Voices     func() int // sounding synth voices; nil for file input

	// Progress reports render completion in 0..1; nil for open-ended playback
	Progress func() float64
}

// DoneMsg tells the monitor the pipeline has stopped
type DoneMsg struct {
	Err error
}

type tickMsg time.Time

type noteOffMsg struct {
	note synth.Note
	seq  int
}

// filter presets cycled by the f key
var filterPresets = []synth.FilterSpec{
	{Kind: synth.NoFilter},
	{Kind: synth.OnePole, Cutoff: 1200},
	{Kind: synth.TwoPole, Cutoff: 1200, Resonance: 2},
}

// monitorModel implements the Bubbletea model for live playback
type monitorModel struct {
	cfg MonitorConfig

	snap   stream.Snapshot
	level  audio.Level
	bars   []float64 // centre-out, lowest band in the middle
	window []float32
	served int64
	fed    int64
	voices int

	occupancyBar progress.Model
	levelBar     progress.Model
	renderBar    progress.Model

	waveform  synth.Waveform
	filterIdx int
	volume    float64
	held      map[synth.Note]int // note -> press sequence, for auto release
	presses   int
	dropped   int // controls lost to a full bus

	startTime time.Time
	width     int
	done      *DoneMsg
}

// NewMonitor creates the monitor model
func NewMonitor(cfg MonitorConfig) tea.Model {
	bar := func(width int) progress.Model {
		return progress.New(
			progress.WithGradient(string(cli.SignalRed), string(cli.SignalGreen)),
			progress.WithWidth(width),
			progress.WithoutPercentage(),
		)
	}

	m := &monitorModel{
		cfg:          cfg,
		occupancyBar: bar(40),
		levelBar:     bar(40),
		renderBar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		waveform:     cfg.Waveform,
		volume:       cfg.Volume,
		held:         make(map[synth.Note]int),
		startTime:    time.Now(),
	}
	if cfg.Tap != nil && cfg.Spectrum != nil {
		m.window = make([]float32, cfg.Spectrum.Size())
	}
	return m
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/config.RefreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the refresh ticker
func (m *monitorModel) Init() tea.Cmd {
	return tick()
}

// Update handles messages
func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		w := max(10, min(msg.Width-30, 50))
		m.occupancyBar.Width = w
		m.levelBar.Width = w
		m.renderBar.Width = w
		return m, nil

	case tickMsg:
		m.refresh()
		if m.done != nil {
			return m, nil
		}
		return m, tick()

	case DoneMsg:
		m.refresh()
		m.done = &msg
		return m, tea.Quit

	case noteOffMsg:
		// only release if the key was not pressed again since
		if seq, ok := m.held[msg.note]; ok && seq == msg.seq {
			delete(m.held, msg.note)
			m.send(synth.NoteOffControl{Note: msg.note})
		}
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

func (m *monitorModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	switch key {
	case "q", "ctrl+c", "esc":
		return tea.Quit
	}
	if m.cfg.Controls == nil {
		return nil
	}

	switch key {
	case "1", "2", "3", "4":
		kinds := []synth.WaveKind{synth.Sine, synth.Square, synth.Sawtooth, synth.Triangle}
		m.waveform = synth.DefaultWaveform(kinds[key[0]-'1'])
		m.send(synth.WaveformControl{Waveform: m.waveform})
	case "f":
		m.filterIdx = (m.filterIdx + 1) % len(filterPresets)
		m.send(synth.FilterControl{Filter: filterPresets[m.filterIdx]})
	case "+", "=":
		m.volume = min(1, m.volume+config.VolumeStep)
		m.send(synth.MasterControl{Volume: m.volume})
	case "-", "_":
		m.volume = max(0, m.volume-config.VolumeStep)
		m.send(synth.MasterControl{Volume: m.volume})
	default:
		runes := []rune(key)
		if len(runes) != 1 {
			return nil
		}
		note := synth.KeyNote(runes[0])
		if note == synth.NoNote {
			return nil
		}
		m.presses++
		seq := m.presses
		m.held[note] = seq
		m.send(synth.NoteOnControl{Note: note})
		return tea.Tick(config.NoteHoldMillis*time.Millisecond, func(time.Time) tea.Msg {
			return noteOffMsg{note: note, seq: seq}
		})
	}
	return nil
}

func (m *monitorModel) send(c synth.Control) {
	if !m.cfg.Controls.Send(c) {
		m.dropped++
	}
}

// refresh polls the engine and the tap
func (m *monitorModel) refresh() {
	m.snap = m.cfg.Engine.Stats()
	if m.cfg.Producer != nil {
		m.served = m.cfg.Producer.Served()
		m.fed = m.cfg.Producer.Frames()
	}
	if m.cfg.Voices != nil {
		m.voices = m.cfg.Voices()
	}
	if m.window == nil {
		return
	}
	m.cfg.Tap.Window(m.window)
	m.level = audio.Measure(m.window[len(m.window)-min(len(m.window), 2048):])
	if bars, err := m.cfg.Spectrum.Compute(m.window, config.Sensitivity); err == nil {
		if len(m.bars) != len(bars) {
			m.bars = make([]float64, len(bars))
		}
		audio.RearrangeFrequenciesCenterOut(bars, m.bars)
	}
}

// View renders the UI
func (m *monitorModel) View() string {
	var s strings.Builder
	label := lipgloss.NewStyle().Faint(true)

	title := lipgloss.NewStyle().Bold(true).Foreground(cli.SignalAmber).Render(cli.AppName)
	s.WriteString(title)
	if m.cfg.Title != "" {
		s.WriteString("  ")
		s.WriteString(label.Render(m.cfg.Title))
	}
	s.WriteString("\n\n")

	// Occupancy against the thresholds; the bar spans twice the target
	snap := m.snap
	scale := max(2*snap.Target, snap.Occupancy, 1)
	s.WriteString(label.Render("Queue   "))
	s.WriteString(m.occupancyBar.ViewAs(float64(snap.Occupancy) / float64(scale)))
	s.WriteString("  ")
	s.WriteString(occupancyStyle(snap).Render(fmt.Sprintf("%3d", snap.Occupancy)))
	s.WriteString(label.Render(fmt.Sprintf(" / low %d, target %d", snap.LowWater, snap.Target)))
	s.WriteString("\n")

	if m.window != nil {
		s.WriteString(label.Render("Level   "))
		s.WriteString(m.levelBar.ViewAs(audio.Normalized(m.level.RMSDB())))
		s.WriteString(fmt.Sprintf("  %6.1f dB rms %6.1f dB peak", m.level.RMSDB(), m.level.PeakDB()))
		s.WriteString("\n")
	}

	if m.cfg.Progress != nil {
		s.WriteString(label.Render("Render  "))
		s.WriteString(m.renderBar.ViewAs(min(1, max(0, m.cfg.Progress()))))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	if len(m.bars) > 0 {
		s.WriteString(label.Render("Spectrum"))
		s.WriteString("\n")
		s.WriteString(renderSpectrum(m.bars, max(8, min(m.width-4, 76))))
		s.WriteString("\n\n")
	}

	s.WriteString(m.renderCounters(label))

	if m.cfg.Controls != nil {
		s.WriteString("\n\n")
		s.WriteString(label.Render(fmt.Sprintf("Wave %-8s Filter %-7s Volume %3.0f%%  Voices %2d",
			m.waveform.Kind, filterName(filterPresets[m.filterIdx].Kind), m.volume*100, m.voices)))
		s.WriteString("\n")
		s.WriteString(label.Render("z-, play  1-4 wave  f filter  +/- volume  q quit"))
	} else {
		s.WriteString("\n\n")
		s.WriteString(label.Render("q quit"))
	}

	border := cli.SignalAmber
	if m.done != nil {
		border = cli.SignalGreen
		if m.done.Err != nil {
			border = cli.SignalRed
		}
	}
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(1, 2).
		Render(s.String()) + "\n"
}

func (m *monitorModel) renderCounters(label lipgloss.Style) string {
	snap := m.snap
	var s strings.Builder

	// fixed widths stop the layout shimmering between ticks
	s.WriteString(label.Render("Played:    "))
	s.WriteString(fmt.Sprintf("%8s", formatDuration(framesToDuration(snap.Frames, m.cfg.SampleRate))))
	s.WriteString("  │  ")
	s.WriteString(label.Render("Underruns: "))
	s.WriteString(fmt.Sprintf("%6d (%5.2f%%)", snap.Underruns, snap.UnderrunRatio()*100))
	s.WriteString("\n")

	s.WriteString(label.Render("Requests:  "))
	s.WriteString(fmt.Sprintf("%8d", snap.Requests))
	s.WriteString("  │  ")
	s.WriteString(label.Render("Dropped:   "))
	s.WriteString(fmt.Sprintf("%6d", snap.DroppedRequests))
	s.WriteString("\n")

	s.WriteString(label.Render("Blocks:    "))
	s.WriteString(fmt.Sprintf("%8d", snap.Enqueued))
	s.WriteString("  │  ")
	s.WriteString(label.Render("Discarded: "))
	s.WriteString(fmt.Sprintf("%6d", snap.Discarded))
	if m.cfg.Producer != nil {
		s.WriteString("\n")
		s.WriteString(label.Render("Served:    "))
		s.WriteString(fmt.Sprintf("%8d", m.served))
		s.WriteString("  │  ")
		s.WriteString(label.Render("Fed:       "))
		s.WriteString(fmt.Sprintf("%8s", formatDuration(framesToDuration(uint64(max(0, m.fed)), m.cfg.SampleRate))))
	}
	if m.dropped > 0 {
		s.WriteString("\n")
		s.WriteString(label.Render(fmt.Sprintf("%d key events lost", m.dropped)))
	}
	return s.String()
}

func occupancyStyle(s stream.Snapshot) lipgloss.Style {
	c := cli.SignalGreen
	switch {
	case s.Occupancy < s.LowWater:
		c = cli.SignalRed
	case s.Occupancy < s.Target:
		c = cli.SignalAmber
	}
	return lipgloss.NewStyle().Bold(true).Foreground(c)
}

func filterName(k synth.FilterKind) string {
	switch k {
	case synth.OnePole:
		return "1-pole"
	case synth.TwoPole:
		return "2-pole"
	default:
		return "off"
	}
}

func framesToDuration(frames uint64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}

// formatDuration formats a duration as m:ss.t
func formatDuration(d time.Duration) string {
	d = d.Round(100 * time.Millisecond)
	minutes := int(d / time.Minute)
	seconds := (d % time.Minute).Seconds()
	return fmt.Sprintf("%d:%04.1f", minutes, seconds)
}

// renderSpectrum creates an ASCII visualization of bar heights in 0..1,
// stretching or sampling bars to fill width
func renderSpectrum(barHeights []float64, width int) string {
	if len(barHeights) == 0 || width <= 0 {
		return ""
	}

	blocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var result strings.Builder
	for col := 0; col < width; col++ {
		h := barHeights[col*len(barHeights)/width]
		idx := int(h * float64(len(blocks)-1))
		idx = max(0, min(idx, len(blocks)-1))
		result.WriteRune(blocks[idx])
	}
	return result.String()
}
