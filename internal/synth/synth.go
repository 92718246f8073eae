package synth

import "sync/atomic"

// MaxVoices is the polyphony limit; a NoteOn with every voice busy is ignored
const MaxVoices = 16

// Default patch
const (
	DefaultMasterVolume = 0.2
	DefaultAttack       = 0.0
	DefaultDecay        = 0.5
	DefaultSustain      = 1.0
	DefaultRelease      = 0.5
)

type voice struct {
	on     bool
	note   Note
	env    ADSR
	osc    Osc
	filter Filter
}

// Synth is a small polyphonic subtractive synthesizer producing mono samples.
type Synth struct {
	sr     float64
	voices [MaxVoices]voice

	master                          float64
	attack, decay, sustain, release float64
	waveform                        Waveform
	filter                          FilterSpec

	bus    *Bus
	active atomic.Int32 // sounding voices, readable from any goroutine
}

// New creates a synth at sample rate sr with the default patch.
func New(sr float64, waveform Waveform, filter FilterSpec) *Synth {
	return &Synth{
		sr:       sr,
		master:   DefaultMasterVolume,
		attack:   DefaultAttack,
		decay:    DefaultDecay,
		sustain:  DefaultSustain,
		release:  DefaultRelease,
		waveform: waveform,
		filter:   filter,
		bus:      NewBus(),
	}
}

// Bus returns the control bus drained at the start of every Render.
func (s *Synth) Bus() *Bus {
	return s.bus
}

// NoteOn starts a note. A voice already playing the same note is retriggered.
func (s *Synth) NoteOn(n Note) {
	if n.Freq() == 0 {
		return
	}
	env := NewADSR(s.attack, s.decay, s.sustain, s.release, s.sr)
	env.NoteOn()

	for i := range s.voices {
		v := &s.voices[i]
		if v.on && v.note == n {
			v.env = env
			if v.filter != nil {
				v.filter.Reset()
			}
			return
		}
	}

	for i := range s.voices {
		v := &s.voices[i]
		if !v.on {
			v.on = true
			v.note = n
			v.env = env
			v.osc = NewOsc(n.Freq(), s.sr, s.waveform)
			v.filter = NewFilter(s.filter, s.sr)
			s.active.Add(1)
			return
		}
	}
}

// NoteOff releases every voice playing n.
func (s *Synth) NoteOff(n Note) {
	for i := range s.voices {
		if s.voices[i].on && s.voices[i].note == n {
			s.voices[i].env.NoteOff()
		}
	}
}

// ActiveVoices returns the number of sounding voices. Safe from any
// goroutine.
func (s *Synth) ActiveVoices() int {
	return int(s.active.Load())
}

// SetMasterVolume sets output gain, clamped to [0, 1].
func (s *Synth) SetMasterVolume(v float64) {
	s.master = clamp(v, 0, 1)
}

// MasterVolume returns the output gain.
func (s *Synth) MasterVolume() float64 {
	return s.master
}

// SetADSR changes the envelope for new notes and retunes sounding voices.
func (s *Synth) SetADSR(a, d, sus, r float64) {
	s.attack = max(a, 0)
	s.decay = max(d, 0)
	s.sustain = clamp(sus, 0, 1)
	s.release = max(r, 0)

	for i := range s.voices {
		v := &s.voices[i]
		if !v.on {
			continue
		}
		v.env.Retune(s.attack, s.decay, s.sustain, s.release)
		if v.env.Active() && v.env.State() != EnvRelease {
			v.env.NoteOn()
		}
	}
}

// SetWaveform changes the oscillator shape of every voice.
func (s *Synth) SetWaveform(w Waveform) {
	s.waveform = w
	for i := range s.voices {
		s.voices[i].osc.SetWaveform(w)
	}
}

// Waveform returns the current oscillator shape.
func (s *Synth) Waveform() Waveform {
	return s.waveform
}

// SetFilter switches the voice filter. Coefficients are updated in place when
// the kind is unchanged so sounding voices keep their state.
func (s *Synth) SetFilter(spec FilterSpec) {
	s.filter = spec
	for i := range s.voices {
		v := &s.voices[i]
		switch f := v.filter.(type) {
		case *OnePoleLPF:
			if spec.Kind == OnePole {
				f.SetCutoff(s.sr, spec.Cutoff)
				continue
			}
		case *TwoPoleLPF:
			if spec.Kind == TwoPole {
				f.SetParams(s.sr, spec.Cutoff, spec.Resonance)
				continue
			}
		}
		v.filter = NewFilter(spec, s.sr)
	}
}

// Filter returns the current filter spec.
func (s *Synth) Filter() FilterSpec {
	return s.filter
}

// NextSample mixes all sounding voices. Voices whose envelope reached zero
// are freed.
func (s *Synth) NextSample() float64 {
	if s.master == 0 {
		return 0
	}

	var sum float64
	for i := range s.voices {
		v := &s.voices[i]
		if !v.on {
			continue
		}
		env := v.env.Next()
		if env <= 0 {
			v.on = false
			s.active.Add(-1)
			continue
		}
		x := v.osc.Next()
		if v.filter != nil {
			x = v.filter.Process(x)
		}
		sum += x * env
	}
	return sum * s.master
}

// Render applies pending bus controls, then fills out with samples clamped
// to [-1, 1].
func (s *Synth) Render(out []float32) {
	s.bus.drain(s)
	for i := range out {
		out[i] = float32(clamp(s.NextSample(), -1, 1))
	}
}
