package ui

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/blockfeed/internal/audio"
	"github.com/linuxmatters/blockfeed/internal/stream"
	"github.com/linuxmatters/blockfeed/internal/synth"
)

type fakeStats struct {
	snap stream.Snapshot
}

func (f *fakeStats) Stats() stream.Snapshot { return f.snap }

type fakeProducer struct {
	served, frames int64
}

func (f *fakeProducer) Served() int64 { return f.served }
func (f *fakeProducer) Frames() int64 { return f.frames }

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestMonitor(t *testing.T, s *synth.Synth) (*monitorModel, *fakeStats) {
	t.Helper()
	stats := &fakeStats{snap: stream.Snapshot{Occupancy: 6, LowWater: 5, Target: 8, Quantum: 128}}
	spec, err := audio.NewSpectrum(1024, 16)
	if err != nil {
		t.Fatalf("NewSpectrum: %v", err)
	}
	cfg := MonitorConfig{
		Title:      "synth",
		SampleRate: 44100,
		Engine:     stats,
		Tap:        audio.NewTap(4096),
		Spectrum:   spec,
		Waveform:   synth.DefaultWaveform(synth.Sine),
		Volume:     0.2,
	}
	if s != nil {
		cfg.Controls = s.Bus()
	}
	return NewMonitor(cfg).(*monitorModel), stats
}

func TestMonitor_NoteKeysReachSynth(t *testing.T) {
	s := synth.New(44100, synth.DefaultWaveform(synth.Sine), synth.FilterSpec{})
	m, _ := newTestMonitor(t, s)

	_, cmd := m.Update(keyMsg("z"))
	if cmd == nil {
		t.Fatal("note key returned no release timer")
	}
	s.Render(make([]float32, 32))
	if s.ActiveVoices() != 1 {
		t.Fatalf("ActiveVoices = %d, want 1 after z", s.ActiveVoices())
	}

	// the release timer for the press fires a NoteOff
	m.Update(noteOffMsg{note: synth.C4, seq: 1})
	s.Render(make([]float32, 32))
	if _, held := m.held[synth.C4]; held {
		t.Error("C4 still held after its release timer")
	}
}

func TestMonitor_RepressKeepsNoteHeld(t *testing.T) {
	s := synth.New(44100, synth.DefaultWaveform(synth.Sine), synth.FilterSpec{})
	m, _ := newTestMonitor(t, s)

	m.Update(keyMsg("c"))
	m.Update(keyMsg("c"))

	// the first press's timer is stale and must not release the note
	m.Update(noteOffMsg{note: synth.E4, seq: 1})
	if _, held := m.held[synth.E4]; !held {
		t.Error("stale release timer released a re-pressed note")
	}
}

func TestMonitor_ParameterKeys(t *testing.T) {
	s := synth.New(44100, synth.DefaultWaveform(synth.Sine), synth.FilterSpec{})
	m, _ := newTestMonitor(t, s)

	m.Update(keyMsg("3"))
	m.Update(keyMsg("f"))
	m.Update(keyMsg("+"))
	m.Update(keyMsg("+"))
	s.Render(make([]float32, 8))

	if s.Waveform().Kind != synth.Sawtooth {
		t.Errorf("waveform = %v, want saw", s.Waveform().Kind)
	}
	if s.Filter().Kind != synth.OnePole {
		t.Errorf("filter = %v, want one pole", s.Filter().Kind)
	}
	if got := s.MasterVolume(); got < 0.299 || got > 0.301 {
		t.Errorf("master volume = %v, want 0.3", got)
	}

	for i := 0; i < 20; i++ {
		m.Update(keyMsg("-"))
	}
	s.Render(make([]float32, 8))
	if s.MasterVolume() != 0 {
		t.Errorf("master volume = %v, want floor at 0", s.MasterVolume())
	}
}

func TestMonitor_FileInputIgnoresSynthKeys(t *testing.T) {
	m, _ := newTestMonitor(t, nil)
	if _, cmd := m.Update(keyMsg("z")); cmd != nil {
		t.Error("note key without a synth returned a command")
	}
	if strings.Contains(m.View(), "1-4 wave") {
		t.Error("keyboard help shown without a synth")
	}
}

func TestMonitor_QuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{keyMsg("q"), {Type: tea.KeyCtrlC}} {
		m, _ := newTestMonitor(t, nil)
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Fatalf("%q returned no command", key.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%q did not quit", key.String())
		}
	}
}

func TestMonitor_TickRefreshesStats(t *testing.T) {
	m, stats := newTestMonitor(t, nil)

	stats.snap.Occupancy = 3
	stats.snap.Underruns = 4
	stats.snap.Frames = 44100
	stats.snap.SilentFrames = 441

	block := make([]float32, 1024)
	for i := range block {
		block[i] = 0.5
	}
	m.cfg.Tap.Capture([][]float32{block})

	_, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Error("tick did not schedule the next tick")
	}
	if m.snap.Occupancy != 3 {
		t.Errorf("occupancy = %d, want 3", m.snap.Occupancy)
	}
	if m.level.Peak < 0.49 {
		t.Errorf("level peak = %v, want 0.5 from the tap", m.level.Peak)
	}

	view := m.View()
	for _, want := range []string{"low 5, target 8", "4 ( 1.00%)", "0:01.0"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestMonitor_SpectrumCentredAndCounters(t *testing.T) {
	m, _ := newTestMonitor(t, nil)
	m.cfg.Producer = &fakeProducer{served: 42, frames: 88200}
	voices := 3
	m.cfg.Voices = func() int { return voices }
	m.cfg.Controls = synth.New(44100, synth.DefaultWaveform(synth.Sine), synth.FilterSpec{}).Bus()

	tone := make([]float32, 1024)
	for i := range tone {
		tone[i] = float32(0.8 * math.Sin(2*math.Pi*500*float64(i)/44100))
	}
	m.cfg.Tap.Capture([][]float32{tone})
	m.Update(tickMsg(time.Now()))

	n := len(m.bars)
	if n != 16 {
		t.Fatalf("got %d bars, want 16", n)
	}
	for i := 0; i < n/2; i++ {
		if m.bars[i] != m.bars[n-1-i] {
			t.Errorf("bars not mirrored at %d: %v != %v", i, m.bars[i], m.bars[n-1-i])
		}
	}
	// the tone sits in the lowest bars, which are drawn in the middle
	if m.bars[n/2] <= m.bars[0] {
		t.Errorf("centre bar %v not above edge bar %v", m.bars[n/2], m.bars[0])
	}

	view := m.View()
	for _, want := range []string{"Served:", "42", "0:02.0", "Voices  3"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestMonitor_DoneQuits(t *testing.T) {
	m, _ := newTestMonitor(t, nil)
	_, cmd := m.Update(DoneMsg{Err: errors.New("device lost")})
	if cmd == nil {
		t.Fatal("DoneMsg returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("DoneMsg did not quit")
	}
	if _, cmd := m.Update(tickMsg(time.Now())); cmd != nil {
		t.Error("tick after done rescheduled itself")
	}
}

func TestRenderSpectrum(t *testing.T) {
	if renderSpectrum(nil, 10) != "" {
		t.Error("empty bars rendered output")
	}
	got := renderSpectrum([]float64{0, 1}, 4)
	if got != "  ██" {
		t.Errorf("renderSpectrum = %q, want two blank then two full columns", got)
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(75*time.Second + 250*time.Millisecond); got != "1:15.3" {
		t.Errorf("formatDuration = %q, want 1:15.3", got)
	}
}
