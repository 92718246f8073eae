package audio

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/argusdusty/gofft"
	"github.com/mjibson/go-dsp/window"
)

// ApplyWindow writes data multiplied by window coefficients (such as
// window.Hann) into dst and returns it. dst is allocated when nil or too
// short; coeffs must be at least len(data).
func ApplyWindow(data, coeffs, dst []float64) []float64 {
	n := len(data)
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	for i, v := range data {
		dst[i] = v * coeffs[i]
	}
	return dst
}

// BinFFT bins FFT coefficients into len(result) bars normalised to 0..1
func BinFFT(coeffs []complex128, sensitivity, baseScale float64, result []float64) {
	numBars := len(result)
	if numBars == 0 {
		return
	}

	// Positive frequencies only, and the lower 3/4 of those (0 to ~16.5 kHz
	// at 44.1 kHz) where most musical content sits
	halfSize := len(coeffs) / 2
	maxFreqBin := (halfSize * 3) / 4
	binsPerBar := max(1, maxFreqBin/numBars)

	for bar := range result {
		start := bar * binsPerBar
		end := min(start+binsPerBar, maxFreqBin)

		var sum float64
		for i := start; i < end; i++ {
			sum += math.Hypot(real(coeffs[i]), imag(coeffs[i]))
		}
		scaled := sum / float64(binsPerBar) * baseScale * sensitivity

		// Noise gate, then log scale so quiet bars stay visible
		if scaled < 0.01 {
			result[bar] = 0
			continue
		}
		result[bar] = min(1, math.Log10(1+scaled*9))
	}
}

// RearrangeFrequenciesCenterOut mirrors the lower half of barHeights around
// the centre of result, lowest frequencies in the middle. With an odd count
// the last column takes the next band up.
func RearrangeFrequenciesCenterOut(barHeights, result []float64) {
	n := len(barHeights)
	center := n / 2
	for i := 0; i < n/2; i++ {
		result[center-1-i] = barHeights[i]
		result[center+i] = barHeights[i]
	}
	if n%2 == 1 {
		result[n-1] = barHeights[n/2]
	}
}

// Spectrum turns a window of samples into bar heights. Buffers are reused
// between calls; a Spectrum is not safe for concurrent use.
type Spectrum struct {
	size      int
	baseScale float64
	hann      []float64
	samples   []float64
	windowed  []float64
	coeffs    []complex128
	bars      []float64
}

// NewSpectrum creates an analyser for size-sample windows (a power of two)
// producing numBars bars.
func NewSpectrum(size, numBars int) (*Spectrum, error) {
	if size < 2 || bits.OnesCount(uint(size)) != 1 {
		return nil, fmt.Errorf("FFT size must be a power of two, got %d", size)
	}
	if numBars < 1 {
		return nil, fmt.Errorf("need at least one bar, got %d", numBars)
	}
	return &Spectrum{
		size: size,
		// A full-scale sine peaks near size/4 after the Hann window
		baseScale: 4 / float64(size),
		hann:      window.Hann(size),
		samples:   make([]float64, size),
		windowed:  make([]float64, size),
		coeffs:    make([]complex128, size),
		bars:      make([]float64, numBars),
	}, nil
}

// Size returns the window length in samples.
func (s *Spectrum) Size() int {
	return s.size
}

// Compute analyses the newest Size() samples (zero padded when shorter) and
// returns the bar heights. The returned slice is reused.
func (s *Spectrum) Compute(samples []float32, sensitivity float64) ([]float64, error) {
	if len(samples) > s.size {
		samples = samples[len(samples)-s.size:]
	}
	clear(s.samples)
	for i, v := range samples {
		s.samples[i] = float64(v)
	}

	s.windowed = ApplyWindow(s.samples, s.hann, s.windowed)
	for i, v := range s.windowed {
		s.coeffs[i] = complex(v, 0)
	}
	if err := gofft.FFT(s.coeffs); err != nil {
		return nil, fmt.Errorf("FFT computation failed: %w", err)
	}

	BinFFT(s.coeffs, sensitivity, s.baseScale, s.bars)
	return s.bars, nil
}
