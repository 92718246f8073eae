package audio

import (
	"sync"
	"sync/atomic"
)

// Tap keeps the most recent rendered samples of the first channel for the
// level meter and spectrum.
//
// Design:
//   - The render goroutine writes via Capture and must never block, so it uses
//     TryLock and skips the block when a reader holds the lock
//   - Readers copy the latest window with Window at their own rate
//   - Storage is a fixed ring; nothing is allocated after NewTap
type Tap struct {
	mu      sync.Mutex
	ring    []float32
	pos     int   // next write index
	filled  int   // valid samples in ring
	written int64 // total samples captured

	skipped atomic.Int64
}

// NewTap creates a tap holding size samples. size <= 0 uses 4096.
func NewTap(size int) *Tap {
	if size <= 0 {
		size = 4096
	}
	return &Tap{ring: make([]float32, size)}
}

// Capture records buf[0]. Safe to call from the realtime callback.
func (t *Tap) Capture(buf [][]float32) {
	if len(buf) == 0 {
		return
	}
	if !t.mu.TryLock() {
		t.skipped.Add(1)
		return
	}
	defer t.mu.Unlock()

	src := buf[0]
	if len(src) > len(t.ring) {
		src = src[len(src)-len(t.ring):]
	}
	n := copy(t.ring[t.pos:], src)
	if n < len(src) {
		copy(t.ring, src[n:])
	}
	t.pos = (t.pos + len(src)) % len(t.ring)
	t.filled = min(t.filled+len(src), len(t.ring))
	t.written += int64(len(buf[0]))
}

// WriteBlock is Capture for use as an offline sink.
func (t *Tap) WriteBlock(buf [][]float32) error {
	t.Capture(buf)
	return nil
}

// Window copies the newest len(dst) samples into dst, oldest first. If fewer
// samples have been captured the head of dst is zeroed. Returns dst.
func (t *Tap) Window(dst []float32) []float32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	want := min(len(dst), len(t.ring))
	have := min(want, t.filled)
	clear(dst[:len(dst)-have])

	out := dst[len(dst)-have:]
	start := (t.pos - have + len(t.ring)) % len(t.ring)
	n := copy(out, t.ring[start:])
	if n < have {
		copy(out[n:], t.ring[:have-n])
	}
	return dst
}

// Written returns the total number of samples captured.
func (t *Tap) Written() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written
}

// Skipped returns how many blocks were dropped because a reader held the lock.
func (t *Tap) Skipped() int64 {
	return t.skipped.Load()
}
