package synth

// sourceChunk is the granularity of sequencer events inside one read
const sourceChunk = 64

// Source adapts a Synth, and optionally a Sequencer, to a pull interface
// that fills mono sample buffers. It never reaches end of stream.
type Source struct {
	synth *Synth
	seq   *Sequencer
}

// NewSource wraps s. seq may be nil for a keyboard-only source.
func NewSource(s *Synth, seq *Sequencer) *Source {
	return &Source{synth: s, seq: seq}
}

// Synth returns the wrapped synth.
func (src *Source) Synth() *Synth {
	return src.synth
}

// ReadSamples fills dst completely.
func (src *Source) ReadSamples(dst []float32) (int, error) {
	for off := 0; off < len(dst); off += sourceChunk {
		end := min(off+sourceChunk, len(dst))
		if src.seq != nil {
			src.seq.Advance(src.synth, end-off)
		}
		src.synth.Render(dst[off:end])
	}
	return len(dst), nil
}

// Close is a no-op; a synth holds no external resources.
func (src *Source) Close() error {
	return nil
}
