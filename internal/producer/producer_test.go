package producer

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/linuxmatters/blockfeed/internal/stream"
)

// counterSource yields 0, 1, 2, ... up to limit (negative for endless)
type counterSource struct {
	next  int
	limit int
	err   error
}

func (s *counterSource) ReadSamples(dst []float32) (int, error) {
	n := 0
	for n < len(dst) {
		if s.limit >= 0 && s.next >= s.limit {
			if s.err != nil {
				return n, s.err
			}
			return n, io.EOF
		}
		dst[n] = float32(s.next)
		s.next++
		n++
	}
	return n, nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestRun_ServesRequestInBlocks(t *testing.T) {
	p := New(&counterSource{limit: -1}, Config{BlockSize: 100, Logger: quietLogger()})
	requests := make(chan stream.Request, 1)
	inbox := make(chan stream.Message, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx, requests, inbox) }()

	requests <- stream.Request{Need: 250}
	msg := <-inbox

	if len(msg.Blocks) != 3 {
		t.Fatalf("got %d blocks, want ceil(250/100) = 3", len(msg.Blocks))
	}
	for i, b := range msg.Blocks {
		if len(b) != 100 {
			t.Errorf("block %d has %d frames, want 100", i, len(b))
		}
		if b[0] != float32(i*100) {
			t.Errorf("block %d starts at %v, want %d", i, b[0], i*100)
		}
	}

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
	if p.Served() != 1 || p.Frames() != 300 {
		t.Errorf("Served = %d Frames = %d, want 1 and 300", p.Served(), p.Frames())
	}
}

func TestRun_AnnouncesQuantum(t *testing.T) {
	p := New(&counterSource{limit: -1}, Config{Quantum: 256, Logger: quietLogger()})
	requests := make(chan stream.Request)
	inbox := make(chan stream.Message, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx, requests, inbox)

	msg := <-inbox
	if msg.Quantum != 256 || len(msg.Blocks) != 0 {
		t.Errorf("first message = %+v, want quantum announcement", msg)
	}

	requests <- stream.Request{Need: 256}
	msg = <-inbox
	if len(msg.Blocks) != 1 || len(msg.Blocks[0]) != 256 {
		t.Errorf("block size did not default to quantum: %d blocks", len(msg.Blocks))
	}
}

func TestRun_CoalescesPendingRequests(t *testing.T) {
	p := New(&counterSource{limit: -1}, Config{BlockSize: 10, Logger: quietLogger()})
	requests := make(chan stream.Request, 4)
	inbox := make(chan stream.Message, 4)

	requests <- stream.Request{Need: 20}
	requests <- stream.Request{Need: 50}
	requests <- stream.Request{Need: 30}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx, requests, inbox)

	msg := <-inbox
	if len(msg.Blocks) != 5 {
		t.Errorf("got %d blocks, want 5 for the largest pending need", len(msg.Blocks))
	}

	select {
	case extra := <-inbox:
		t.Errorf("unexpected second message with %d blocks", len(extra.Blocks))
	case <-time.After(20 * time.Millisecond):
	}
}

func TestRun_EOFDeliversPartialBlockAndCloses(t *testing.T) {
	p := New(&counterSource{limit: 130}, Config{BlockSize: 64, Logger: quietLogger()})
	requests := make(chan stream.Request, 1)
	inbox := make(chan stream.Message, 2)

	requests <- stream.Request{Need: 1000}
	if err := p.Run(context.Background(), requests, inbox); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case <-p.Done():
	default:
		t.Fatal("Done not closed after EOF")
	}

	msg := <-inbox
	sizes := []int{64, 64, 2}
	if len(msg.Blocks) != len(sizes) {
		t.Fatalf("got %d blocks, want %d", len(msg.Blocks), len(sizes))
	}
	for i, want := range sizes {
		if len(msg.Blocks[i]) != want {
			t.Errorf("block %d has %d frames, want %d", i, len(msg.Blocks[i]), want)
		}
	}
}

func TestRun_SourceError(t *testing.T) {
	boom := errors.New("disk on fire")
	p := New(&counterSource{limit: 10, err: boom}, Config{BlockSize: 8, Logger: quietLogger()})
	requests := make(chan stream.Request, 1)
	inbox := make(chan stream.Message, 1)

	requests <- stream.Request{Need: 64}
	err := p.Run(context.Background(), requests, inbox)
	if !errors.Is(err, boom) {
		t.Fatalf("Run returned %v, want wrapped source error", err)
	}

	// samples read before the failure are still delivered
	msg := <-inbox
	if len(msg.Blocks) != 2 || len(msg.Blocks[1]) != 2 {
		t.Errorf("got %d blocks before the error, want 8 + 2 frames", len(msg.Blocks))
	}
}

func TestRun_ClosedRequestsReturnsNil(t *testing.T) {
	p := New(&counterSource{limit: -1}, Config{Logger: quietLogger()})
	requests := make(chan stream.Request)
	close(requests)

	if err := p.Run(context.Background(), requests, make(chan stream.Message)); err != nil {
		t.Errorf("Run returned %v, want nil", err)
	}
}

func TestRun_JitterRespectsCancel(t *testing.T) {
	p := New(&counterSource{limit: -1}, Config{Jitter: time.Hour, Logger: quietLogger()})
	requests := make(chan stream.Request, 1)
	requests <- stream.Request{Need: 128}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Run(ctx, requests, make(chan stream.Message, 1))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run returned %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Run took %v to notice cancellation", elapsed)
	}
}

// TestRun_FeedsEngine wires a producer to a real engine and renders until the
// file-like source is drained, checking the output is the source in order.
func TestRun_FeedsEngine(t *testing.T) {
	const total = 5000
	eng := stream.New(stream.Config{Logger: quietLogger()})
	p := New(&counterSource{limit: total}, Config{Quantum: eng.Quantum(), Logger: quietLogger()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx, eng.Requests(), eng.Inbox()) }()

	out := [][]float32{make([]float32, eng.Quantum())}
	var got []float32
	for len(got) < total {
		if ctx.Err() != nil {
			t.Fatalf("timed out after %d samples", len(got))
		}
		before := eng.Stats().Frames - eng.Stats().SilentFrames
		eng.Render(out)
		after := eng.Stats().Frames - eng.Stats().SilentFrames
		got = append(got, out[0][:after-before]...)
		time.Sleep(time.Millisecond)
	}

	if err := <-errc; err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, v := range got[:total] {
		if v != float32(i) {
			t.Fatalf("sample %d = %v, want %d", i, v, i)
		}
	}
}
