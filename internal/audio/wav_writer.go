package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth  = 16
	wavFormatPCM = 1
)

// WAVWriter streams rendered channel buffers to a 16-bit PCM WAV file
type WAVWriter struct {
	file     *os.File
	encoder  *wav.Encoder
	numChans int
	intBuf   *audio.IntBuffer
	frames   int64
	closed   bool
}

// NewWAVWriter creates filename for numChans channels (1 or 2)
func NewWAVWriter(filename string, sampleRate, numChans int) (*WAVWriter, error) {
	if numChans < 1 || numChans > 2 {
		return nil, fmt.Errorf("WAV output supports 1 or 2 channels, got %d", numChans)
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	return &WAVWriter{
		file:     f,
		encoder:  wav.NewEncoder(f, sampleRate, wavBitDepth, numChans, wavFormatPCM),
		numChans: numChans,
		intBuf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: numChans, SampleRate: sampleRate},
			SourceBitDepth: wavBitDepth,
		},
	}, nil
}

// WriteBlock interleaves the first numChans buffers and appends them.
// Buffers must all have the same length.
func (w *WAVWriter) WriteBlock(buf [][]float32) error {
	if len(buf) < w.numChans {
		return fmt.Errorf("need %d channel buffers, got %d", w.numChans, len(buf))
	}
	frames := len(buf[0])

	size := frames * w.numChans
	if cap(w.intBuf.Data) < size {
		w.intBuf.Data = make([]int, size)
	}
	w.intBuf.Data = w.intBuf.Data[:size]

	maxVal := float32(audio.IntMaxSignedValue(wavBitDepth))
	for i := 0; i < frames; i++ {
		for ch := 0; ch < w.numChans; ch++ {
			v := buf[ch][i]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			w.intBuf.Data[i*w.numChans+ch] = int(v * maxVal)
		}
	}

	if err := w.encoder.Write(w.intBuf); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	w.frames += int64(frames)
	return nil
}

// Frames returns the number of frames written so far
func (w *WAVWriter) Frames() int64 {
	return w.frames
}

// Close finalises the WAV header and closes the file. Later calls are no-ops.
func (w *WAVWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.frames == 0 {
		// the encoder only writes headers on the first Write
		w.intBuf.Data = w.intBuf.Data[:0]
		if err := w.encoder.Write(w.intBuf); err != nil {
			w.file.Close()
			return fmt.Errorf("failed to write WAV header: %w", err)
		}
	}
	if err := w.encoder.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to finalise WAV file: %w", err)
	}
	return w.file.Close()
}
