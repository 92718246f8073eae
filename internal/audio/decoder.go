package audio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned by OpenDecoder for unknown file extensions
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// AudioDecoder defines the interface for all audio format decoders
type AudioDecoder interface {
	// ReadChunk reads up to numSamples mono samples, downmixing multi-channel
	// input by averaging. Returns io.EOF when the stream is exhausted.
	ReadChunk(numSamples int) ([]float32, error)

	// SampleRate returns the audio sample rate in Hz
	SampleRate() int

	// NumChannels returns the number of channels in the file (1=mono, 2=stereo)
	NumChannels() int

	// Close closes the decoder and releases resources
	Close() error
}

// OpenDecoder picks a decoder by file extension.
func OpenDecoder(filename string) (AudioDecoder, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav", ".wave":
		return NewWAVDecoder(filename)
	case ".mp3":
		return NewMP3Decoder(filename)
	case ".flac":
		return NewFLACDecoder(filename)
	case ".ogg", ".oga":
		return NewOggDecoder(filename)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// DecoderSource serves decoded samples from a file to the producer. With
// loop set it reopens the file at EOF and keeps going.
type DecoderSource struct {
	path    string
	loop    bool
	dec     AudioDecoder
	pending []float32
	played  int64 // samples read since the last reopen
}

// NewDecoderSource opens path and returns a source over it.
func NewDecoderSource(path string, loop bool) (*DecoderSource, error) {
	dec, err := OpenDecoder(path)
	if err != nil {
		return nil, err
	}
	return &DecoderSource{path: path, loop: loop, dec: dec}, nil
}

// SampleRate returns the file sample rate.
func (s *DecoderSource) SampleRate() int {
	return s.dec.SampleRate()
}

// ReadSamples fills dst with mono samples. It returns a short count together
// with io.EOF once a non-looping file runs out. An empty file ends even when
// looping.
func (s *DecoderSource) ReadSamples(dst []float32) (int, error) {
	n := 0
	for n < len(dst) {
		if len(s.pending) == 0 {
			chunk, err := s.dec.ReadChunk(len(dst) - n)
			if errors.Is(err, io.EOF) || (err == nil && len(chunk) == 0) {
				if !s.loop || s.played == 0 {
					return n, io.EOF
				}
				if err := s.reopen(); err != nil {
					return n, err
				}
				continue
			}
			if err != nil {
				return n, err
			}
			s.pending = chunk
			s.played += int64(len(chunk))
		}
		c := copy(dst[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *DecoderSource) reopen() error {
	if err := s.dec.Close(); err != nil {
		return err
	}
	dec, err := OpenDecoder(s.path)
	if err != nil {
		return fmt.Errorf("reopen %s: %w", s.path, err)
	}
	s.dec = dec
	s.played = 0
	return nil
}

// Close releases the decoder.
func (s *DecoderSource) Close() error {
	return s.dec.Close()
}
