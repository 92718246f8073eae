package synth

import "math"

const tau = 2 * math.Pi

// WaveKind selects the oscillator shape
type WaveKind int

const (
	Sine WaveKind = iota
	Square
	Sawtooth
	Triangle
)

func (k WaveKind) String() string {
	switch k {
	case Square:
		return "square"
	case Sawtooth:
		return "saw"
	case Triangle:
		return "triangle"
	default:
		return "sine"
	}
}

// ParseWaveKind maps a name to a WaveKind, falling back to Sine.
func ParseWaveKind(name string) WaveKind {
	switch name {
	case "square":
		return Square
	case "saw", "sawtooth":
		return Sawtooth
	case "tri", "triangle":
		return Triangle
	default:
		return Sine
	}
}

// Waveform is an oscillator shape with its shape parameter.
// PulseWidth applies to Square, Curve to Triangle.
type Waveform struct {
	Kind       WaveKind
	PulseWidth float64
	Curve      float64
}

// DefaultWaveform returns the waveform for a kind with usable parameters.
func DefaultWaveform(kind WaveKind) Waveform {
	w := Waveform{Kind: kind}
	if kind == Square {
		w.PulseWidth = 0.5
	}
	return w
}

// Sample evaluates the waveform at phase (radians, [0, 2π)) for an oscillator
// advancing phaseInc radians per sample. Square and saw edges are smoothed
// with polyBLEP to keep aliasing down.
func (w Waveform) Sample(phase, phaseInc float64) float64 {
	t := phase / tau
	dt := phaseInc / tau

	switch w.Kind {
	case Square:
		p := clamp(w.PulseWidth, 0.05, 0.95)
		y := -1.0
		if t < p {
			y = 1.0
		}
		y += polyBLEP(t, dt)
		y -= polyBLEP(math.Mod(t-p+1, 1), dt)
		return y
	case Sawtooth:
		return 2*t - 1 - polyBLEP(t, dt)
	case Triangle:
		tri := 1 - 4*math.Abs(t-0.5)
		shaped := math.Pow(math.Abs(tri), 1+w.Curve*2)
		if tri < 0 {
			return -shaped
		}
		return shaped
	default:
		return math.Sin(phase)
	}
}

// polyBLEP returns the band-limited step correction around a discontinuity at t=0.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// Osc is a phase-accumulating oscillator.
type Osc struct {
	phase    float64
	phaseInc float64
	amp      float64
	waveform Waveform
}

// NewOsc creates an oscillator at freqHz for sample rate sr.
func NewOsc(freqHz, sr float64, waveform Waveform) Osc {
	return Osc{
		phaseInc: freqHz / sr * tau,
		amp:      1,
		waveform: waveform,
	}
}

// Next returns the next sample and advances the phase.
func (o *Osc) Next() float64 {
	s := o.waveform.Sample(o.phase, o.phaseInc)
	o.phase += o.phaseInc
	if o.phase >= tau {
		o.phase -= tau
	}
	return s * o.amp
}

// SetWaveform changes shape without resetting phase.
func (o *Osc) SetWaveform(w Waveform) {
	o.waveform = w
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
