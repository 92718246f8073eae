package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

// FLACDecoder implements AudioDecoder for FLAC files
type FLACDecoder struct {
	stream      *flac.Stream
	file        *os.File
	sampleRate  int
	numSamples  int64 // 0 when STREAMINFO does not record a length
	numChannels int
	position    int64

	// decoded samples of the current frame not yet returned
	pending []float32
}

// NewFLACDecoder parses the STREAMINFO block of filename
func NewFLACDecoder(filename string) (*FLACDecoder, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create FLAC decoder: %w", err)
	}

	return &FLACDecoder{
		stream:      stream,
		file:        f,
		sampleRate:  int(stream.Info.SampleRate),
		numSamples:  int64(stream.Info.NSamples),
		numChannels: int(stream.Info.NChannels),
	}, nil
}

// ReadChunk reads up to numSamples frames, downmixed to mono
func (d *FLACDecoder) ReadChunk(numSamples int) ([]float32, error) {
	if d.numSamples > 0 && d.position >= d.numSamples {
		return nil, io.EOF
	}

	samples := make([]float32, 0, numSamples)
	for len(samples) < numSamples {
		if len(d.pending) == 0 {
			fr, err := d.stream.ParseNext()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
			}
			d.pending = downmixFrame(fr, d.pending[:0])
		}

		take := min(numSamples-len(samples), len(d.pending))
		samples = append(samples, d.pending[:take]...)
		d.pending = d.pending[take:]
	}

	if len(samples) == 0 {
		return nil, io.EOF
	}
	d.position += int64(len(samples))
	return samples, nil
}

// downmixFrame averages the subframes of fr into dst, normalised by the
// frame's bit depth. FLAC allows 4 to 32 bits per sample.
func downmixFrame(fr *frame.Frame, dst []float32) []float32 {
	if len(fr.Subframes) == 0 {
		return dst
	}
	scale := 1 / (float64(int64(1)<<(fr.BitsPerSample-1)) * float64(len(fr.Subframes)))
	for i := range fr.Subframes[0].Samples {
		var sum int64
		for _, sub := range fr.Subframes {
			sum += int64(sub.Samples[i])
		}
		dst = append(dst, float32(float64(sum)*scale))
	}
	return dst
}

// SampleRate returns the sample rate
func (d *FLACDecoder) SampleRate() int {
	return d.sampleRate
}

// NumSamples returns the total length in frames from STREAMINFO
func (d *FLACDecoder) NumSamples() int64 {
	return d.numSamples
}

// NumChannels returns the number of audio channels
func (d *FLACDecoder) NumChannels() int {
	return d.numChannels
}

// Close closes the decoder and releases resources
func (d *FLACDecoder) Close() error {
	if d.stream != nil {
		d.stream.Close()
	}
	if d.file != nil {
		if err := d.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			return err
		}
	}
	return nil
}
