package synth

import "math"

// FilterKind selects a low-pass topology
type FilterKind int

const (
	NoFilter FilterKind = iota
	OnePole
	TwoPole
)

// FilterSpec describes the filter applied to every voice. Resonance is only
// used by TwoPole.
type FilterSpec struct {
	Kind      FilterKind
	Cutoff    float64
	Resonance float64
}

// Filter processes one sample at a time.
type Filter interface {
	Process(x float64) float64
	Reset()
}

// NewFilter builds the filter for spec, or nil for NoFilter.
func NewFilter(spec FilterSpec, sr float64) Filter {
	switch spec.Kind {
	case OnePole:
		return NewOnePoleLPF(sr, spec.Cutoff)
	case TwoPole:
		return NewTwoPoleLPF(sr, spec.Cutoff, spec.Resonance)
	default:
		return nil
	}
}

// OnePoleLPF is an RC low-pass: y += a*(x - y).
type OnePoleLPF struct {
	cutoff float64
	a      float64
	y1     float64
}

func NewOnePoleLPF(sr, cutoff float64) *OnePoleLPF {
	f := &OnePoleLPF{}
	f.SetCutoff(sr, cutoff)
	return f
}

// SetCutoff updates the coefficient, keeping filter state.
func (f *OnePoleLPF) SetCutoff(sr, cutoff float64) {
	f.cutoff = clamp(cutoff, 0, 0.49*sr)
	rc := 1 / (tau * math.Max(f.cutoff, 1e-6))
	dt := 1 / sr
	f.a = dt / (rc + dt)
}

func (f *OnePoleLPF) Process(x float64) float64 {
	f.y1 += f.a * (x - f.y1)
	return f.y1
}

func (f *OnePoleLPF) Reset() { f.y1 = 0 }

// TwoPoleLPF is an RBJ biquad low-pass in transposed direct form II.
type TwoPoleLPF struct {
	cutoff, q          float64
	b0, b1, b2, a1, a2 float64
	z1, z2             float64
}

func NewTwoPoleLPF(sr, cutoff, q float64) *TwoPoleLPF {
	f := &TwoPoleLPF{}
	f.SetParams(sr, cutoff, q)
	return f
}

// SetParams recomputes coefficients, keeping filter state.
func (f *TwoPoleLPF) SetParams(sr, cutoff, q float64) {
	f.cutoff = cutoff
	f.q = q

	f0 := clamp(cutoff, 1, 0.49*sr)
	w0 := tau * f0 / sr
	sw, cw := math.Sincos(w0)
	alpha := sw / (2 * math.Max(q, 1e-6))

	a0 := 1 + alpha
	f.b0 = (1 - cw) / 2 / a0
	f.b1 = (1 - cw) / a0
	f.b2 = (1 - cw) / 2 / a0
	f.a1 = -2 * cw / a0
	f.a2 = (1 - alpha) / a0
}

func (f *TwoPoleLPF) Process(x float64) float64 {
	y := f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

func (f *TwoPoleLPF) Reset() {
	f.z1 = 0
	f.z2 = 0
}
