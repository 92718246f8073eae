package audio

import "math"

// SilenceDB is the floor reported for digital silence
const SilenceDB = -96.0

// Level is the loudness of a window of samples
type Level struct {
	RMS  float64 // linear, 0..1 for in-range input
	Peak float64 // absolute maximum
}

// Measure computes the RMS and peak of samples
func Measure(samples []float32) Level {
	if len(samples) == 0 {
		return Level{}
	}
	var sumSquares, peak float64
	for _, v := range samples {
		x := float64(v)
		sumSquares += x * x
		peak = math.Max(peak, math.Abs(x))
	}
	return Level{
		RMS:  math.Sqrt(sumSquares / float64(len(samples))),
		Peak: peak,
	}
}

// DBFS converts a linear amplitude to decibels relative to full scale,
// clamped at SilenceDB
func DBFS(v float64) float64 {
	if v <= 0 {
		return SilenceDB
	}
	return math.Max(SilenceDB, 20*math.Log10(v))
}

// RMSDB returns the RMS level in dBFS
func (l Level) RMSDB() float64 { return DBFS(l.RMS) }

// PeakDB returns the peak level in dBFS
func (l Level) PeakDB() float64 { return DBFS(l.Peak) }

// Normalized maps a dBFS value onto 0..1 for bar display
func Normalized(db float64) float64 {
	return math.Max(0, math.Min(1, (db-SilenceDB)/-SilenceDB))
}
