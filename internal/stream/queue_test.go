package stream

import (
	"math"
	"math/rand/v2"
	"testing"
)

func seq(start, n int) []float32 {
	b := make([]float32, n)
	for i := range b {
		b[i] = float32(start + i)
	}
	return b
}

func TestBlockQueue_DrainAcrossBlocks(t *testing.T) {
	q := NewBlockQueue(0, DropOldest)
	q.Push(seq(0, 3))
	q.Push(seq(3, 5))

	dst := make([]float32, 6)
	if n := q.Drain(dst, 6); n != 6 {
		t.Fatalf("Drain = %d, want 6", n)
	}
	for i, v := range dst {
		if v != float32(i) {
			t.Errorf("dst[%d] = %v, want %d", i, v, i)
		}
	}

	// First block popped, second partially consumed
	if got := q.Len(); got != 1 {
		t.Errorf("Len = %d, want 1", got)
	}
	if got := q.Frames(); got != 2 {
		t.Errorf("Frames = %d, want 2", got)
	}

	rest := make([]float32, 10)
	if n := q.Drain(rest, 10); n != 2 {
		t.Fatalf("Drain = %d, want 2 (queue runs empty)", n)
	}
	if rest[0] != 6 || rest[1] != 7 {
		t.Errorf("Drain returned %v, want [6 7 ...]", rest[:2])
	}
	if q.Len() != 0 {
		t.Errorf("Len after full drain = %d, want 0", q.Len())
	}
}

func TestBlockQueue_DrainNeverWritesPastMax(t *testing.T) {
	q := NewBlockQueue(0, DropOldest)
	q.Push(seq(1, 10))

	dst := []float32{-1, -1, -1, -1, -1}
	if n := q.Drain(dst, 3); n != 3 {
		t.Fatalf("Drain = %d, want 3", n)
	}
	if dst[3] != -1 || dst[4] != -1 {
		t.Errorf("Drain wrote past maxFrames: %v", dst)
	}

	// maxFrames larger than dst is capped to len(dst)
	small := make([]float32, 2)
	if n := q.Drain(small, 100); n != 2 {
		t.Errorf("Drain into short dst = %d, want 2", n)
	}
}

func TestBlockQueue_ZeroLengthBlocksIgnored(t *testing.T) {
	q := NewBlockQueue(0, DropOldest)
	q.Push(nil)
	q.Push([]float32{})
	q.Push(seq(0, 4))
	q.Push([]float32{})

	if got := q.Len(); got != 1 {
		t.Errorf("Len = %d, want 1", got)
	}
	if got := q.RemainingEstimate(4); got != 1 {
		t.Errorf("RemainingEstimate = %d, want 1", got)
	}

	dst := make([]float32, 8)
	if n := q.Drain(dst, 8); n != 4 {
		t.Errorf("Drain = %d, want 4", n)
	}
}

func TestBlockQueue_ExhaustedHeadSkipped(t *testing.T) {
	// An exhausted block can only appear if the cursor invariant is broken;
	// Drain must still make progress without consuming output frames.
	q := NewBlockQueue(0, DropOldest)
	q.blocks = append(q.blocks, seq(0, 2), seq(10, 2))
	q.off = 2

	dst := make([]float32, 2)
	if n := q.Drain(dst, 2); n != 2 {
		t.Fatalf("Drain = %d, want 2", n)
	}
	if dst[0] != 10 || dst[1] != 11 {
		t.Errorf("Drain = %v, want [10 11]", dst)
	}
}

func TestBlockQueue_RemainingEstimate(t *testing.T) {
	testCases := []struct {
		name    string
		blocks  []int // block lengths
		drained int
		quantum int
		want    int
	}{
		{name: "empty", blocks: nil, quantum: 128, want: 0},
		{name: "whole blocks count once each", blocks: []int{128, 128, 128}, quantum: 128, want: 3},
		{name: "long untouched block counts once", blocks: []int{512}, quantum: 128, want: 1},
		{name: "partial head rounds up", blocks: []int{128, 128}, drained: 64, quantum: 128, want: 2},
		{name: "partial long head in quanta", blocks: []int{512, 128}, drained: 100, quantum: 128, want: 5},
		{name: "smaller quantum", blocks: []int{128, 128}, drained: 32, quantum: 32, want: 4},
		{name: "non-positive quantum uses default", blocks: []int{128, 128}, drained: 1, quantum: 0, want: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := NewBlockQueue(0, DropOldest)
			for _, n := range tc.blocks {
				q.Push(make([]float32, n))
			}
			if tc.drained > 0 {
				q.Drain(make([]float32, tc.drained), tc.drained)
			}
			if got := q.RemainingEstimate(tc.quantum); got != tc.want {
				t.Errorf("RemainingEstimate(%d) = %d, want %d", tc.quantum, got, tc.want)
			}
		})
	}
}

func TestBlockQueue_FIFOConcatenation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	q := NewBlockQueue(0, DropOldest)

	total := 0
	for total < 128*40 {
		n := rng.IntN(300)
		q.Push(seq(total, n))
		total += n
	}

	const quantum = 128
	out := make([]float32, quantum)
	for call := 0; call < 40; call++ {
		if n := q.Drain(out, quantum); n != quantum {
			t.Fatalf("call %d: Drain = %d, want %d", call, n, quantum)
		}
		for i, v := range out {
			want := float32(call*quantum + i)
			if v != want {
				t.Fatalf("call %d sample %d = %v, want %v", call, i, v, want)
			}
		}
	}
}

func TestBlockQueue_NonFiniteSamplesAreSilence(t *testing.T) {
	q := NewBlockQueue(0, DropOldest)
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	q.Push([]float32{0.5, nan, -inf, -0.5})

	dst := make([]float32, 4)
	q.Drain(dst, 4)

	want := []float32{0.5, 0, 0, -0.5}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestBlockQueue_DropOldest(t *testing.T) {
	q := NewBlockQueue(2, DropOldest)
	q.Push(seq(0, 4))
	q.Drain(make([]float32, 1), 1) // head partially played

	if q.Push(seq(10, 4)) {
		t.Fatal("Push below capacity reported a discard")
	}
	if !q.Push(seq(20, 4)) {
		t.Fatal("Push at capacity did not report a discard")
	}

	if got := q.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}

	dst := make([]float32, 8)
	q.Drain(dst, 8)
	if dst[0] != 10 || dst[4] != 20 {
		t.Errorf("DropOldest kept wrong blocks: %v", dst)
	}
}

func TestBlockQueue_DropNewest(t *testing.T) {
	q := NewBlockQueue(1, DropNewest)
	q.Push(seq(0, 2))
	if !q.Push(seq(10, 2)) {
		t.Fatal("Push at capacity did not report a discard")
	}

	dst := make([]float32, 2)
	q.Drain(dst, 2)
	if dst[0] != 0 || dst[1] != 1 {
		t.Errorf("DropNewest replaced the queued block: %v", dst)
	}
}

func TestBlockQueue_SteadyStateDoesNotGrow(t *testing.T) {
	q := NewBlockQueue(0, DropOldest)
	block := make([]float32, 128)
	out := make([]float32, 128)

	for i := 0; i < 8; i++ {
		q.Push(block)
	}
	startCap := cap(q.blocks)

	for i := 0; i < 10000; i++ {
		q.Push(block)
		q.Drain(out, 128)
	}

	if cap(q.blocks) != startCap {
		t.Errorf("backing store grew from %d to %d in steady state", startCap, cap(q.blocks))
	}
	if q.Len() != 8 {
		t.Errorf("Len = %d, want 8", q.Len())
	}
}

func TestNewBlockQueue_InitialCapacity(t *testing.T) {
	tests := []struct {
		maxBlocks int
		want      int
	}{
		{0, defaultQueueCapacity},
		{8, 8},
		{100000, defaultQueueCapacity},
	}
	for _, tt := range tests {
		q := NewBlockQueue(tt.maxBlocks, DropOldest)
		if got := cap(q.blocks); got != tt.want {
			t.Errorf("NewBlockQueue(%d) capacity = %d, want %d", tt.maxBlocks, got, tt.want)
		}
	}
}

func TestBlockQueue_LargeBoundGrowsOnDemand(t *testing.T) {
	q := NewBlockQueue(200, DropNewest)
	for i := range 200 {
		if q.Push(seq(i, 1)) {
			t.Fatalf("Push %d dropped a block below the bound", i)
		}
	}
	if !q.Push(seq(200, 1)) {
		t.Error("Push past the bound did not drop")
	}
	if q.Len() != 200 {
		t.Errorf("Len = %d, want 200", q.Len())
	}
}
