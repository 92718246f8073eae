package audio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// fakeOggReader hands out interleaved values in reads of at most step values
type fakeOggReader struct {
	channels int
	values   []float32
	step     int
	err      error
}

func (f *fakeOggReader) SampleRate() int { return 22050 }
func (f *fakeOggReader) Channels() int   { return f.channels }

func (f *fakeOggReader) Read(p []float32) (int, error) {
	if len(f.values) == 0 {
		if f.err != nil {
			return 0, f.err
		}
		return 0, io.EOF
	}
	n := copy(p[:min(len(p), f.step)], f.values)
	f.values = f.values[n:]
	return n, nil
}

func TestOggDecoder_DownmixAcrossShortReads(t *testing.T) {
	// step 3 splits stereo frames between reads
	dec := &OggDecoder{reader: &fakeOggReader{
		channels: 2,
		values:   []float32{1, 0, 0.5, 0.5, -1, -0.5},
		step:     3,
	}}

	chunk, err := dec.ReadChunk(8)
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	want := []float32{0.5, 0.5, -0.75}
	if len(chunk) != len(want) {
		t.Fatalf("got %d samples, want %d", len(chunk), len(want))
	}
	for i := range want {
		if chunk[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, chunk[i], want[i])
		}
	}

	if _, err := dec.ReadChunk(8); !errors.Is(err, io.EOF) {
		t.Errorf("second ReadChunk error = %v, want io.EOF", err)
	}
}

func TestOggDecoder_Mono(t *testing.T) {
	dec := &OggDecoder{reader: &fakeOggReader{channels: 1, values: []float32{0.1, 0.2, 0.3}, step: 64}}

	chunk, err := dec.ReadChunk(2)
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if len(chunk) != 2 || chunk[0] != 0.1 || chunk[1] != 0.2 {
		t.Errorf("chunk = %v, want [0.1 0.2]", chunk)
	}
	if dec.SampleRate() != 22050 || dec.NumChannels() != 1 {
		t.Errorf("metadata = %d Hz, %d ch", dec.SampleRate(), dec.NumChannels())
	}
}

func TestOggDecoder_ReadError(t *testing.T) {
	boom := errors.New("corrupt packet")
	dec := &OggDecoder{reader: &fakeOggReader{channels: 2, err: boom}}

	if _, err := dec.ReadChunk(4); !errors.Is(err, boom) {
		t.Errorf("ReadChunk error = %v, want %v", err, boom)
	}
}

func TestNewOggDecoder_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.ogg")
	if err := os.WriteFile(path, []byte("not an ogg stream"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenDecoder(path); err == nil {
		t.Error("OpenDecoder(bogus.ogg) succeeded, want error")
	}
}
