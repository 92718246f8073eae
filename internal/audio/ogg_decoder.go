package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

// oggReader is the part of *oggvorbis.Reader the decoder uses
type oggReader interface {
	SampleRate() int
	Channels() int
	Read(p []float32) (int, error)
}

// OggDecoder implements AudioDecoder for Ogg Vorbis files
type OggDecoder struct {
	reader oggReader
	file   io.Closer
	buf    []float32
}

// NewOggDecoder creates a new Ogg Vorbis decoder
func NewOggDecoder(filename string) (*OggDecoder, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create Ogg Vorbis decoder: %w", err)
	}
	if reader.Channels() == 0 {
		f.Close()
		return nil, fmt.Errorf("Ogg Vorbis stream has no channels")
	}

	return &OggDecoder{reader: reader, file: f}, nil
}

// ReadChunk reads up to numSamples frames and averages them to mono. The
// reader returns interleaved values, so a short read may end mid-frame; the
// tail is completed before returning.
func (d *OggDecoder) ReadChunk(numSamples int) ([]float32, error) {
	channels := d.reader.Channels()
	want := numSamples * channels
	if cap(d.buf) < want {
		d.buf = make([]float32, want)
	}
	buf := d.buf[:want]

	n := 0
	var err error
	for n < want {
		var m int
		m, err = d.reader.Read(buf[n:])
		n += m
		if err != nil || m == 0 {
			break
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read Ogg Vorbis data: %w", err)
	}

	frames := n / channels
	if frames == 0 {
		return nil, io.EOF
	}

	samples := make([]float32, frames)
	for i := range samples {
		var sum float32
		for ch := range channels {
			sum += buf[i*channels+ch]
		}
		samples[i] = sum / float32(channels)
	}
	return samples, nil
}

// SampleRate returns the sample rate
func (d *OggDecoder) SampleRate() int {
	return d.reader.SampleRate()
}

// NumChannels returns the number of channels
func (d *OggDecoder) NumChannels() int {
	return d.reader.Channels()
}

// Close closes the underlying file
func (d *OggDecoder) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}
