package stream

import "math"

// OverflowPolicy decides which block is discarded when a bounded queue is full
type OverflowPolicy int

const (
	// DropOldest discards the block at the head (including a partially played one)
	DropOldest OverflowPolicy = iota
	// DropNewest discards the incoming block
	DropNewest
)

// defaultQueueCapacity caps the initial backing store size. Growth past it
// allocates, which only happens when the producer over-delivers.
const defaultQueueCapacity = 64

// BlockQueue holds sample blocks awaiting playback in FIFO order, plus a read
// cursor into the head block.
//
// Design:
// - blocks[head:] are the live blocks, blocks[head] is the cursor block
// - off is the number of frames already played from blocks[head]
// - off < len(blocks[head]) whenever the queue is non-empty
// - consumed slots are compacted in place so steady state never allocates
//
// A BlockQueue is not safe for concurrent use. The Engine owns it on the
// render goroutine.
type BlockQueue struct {
	blocks    [][]float32
	head      int
	off       int
	maxBlocks int
	policy    OverflowPolicy
}

// NewBlockQueue creates a queue. maxBlocks <= 0 means unbounded.
func NewBlockQueue(maxBlocks int, policy OverflowPolicy) *BlockQueue {
	capacity := defaultQueueCapacity
	if maxBlocks > 0 {
		capacity = min(maxBlocks, defaultQueueCapacity)
	}
	return &BlockQueue{
		blocks:    make([][]float32, 0, capacity),
		maxBlocks: maxBlocks,
		policy:    policy,
	}
}

// Push appends a block to the tail. Zero-length blocks are ignored.
// Returns true if a block was discarded by the overflow policy.
func (q *BlockQueue) Push(block []float32) bool {
	if len(block) == 0 {
		return false
	}

	if q.maxBlocks > 0 && q.Len() >= q.maxBlocks {
		if q.policy == DropNewest {
			return true
		}
		q.pop()
		q.compact()
		q.blocks = append(q.blocks, block)
		return true
	}

	q.compact()
	q.blocks = append(q.blocks, block)
	return false
}

// Drain copies up to maxFrames samples into dst, popping exhausted blocks.
// It returns the number of frames written, which is short only when the
// queue runs empty. Non-finite samples are written as silence.
func (q *BlockQueue) Drain(dst []float32, maxFrames int) int {
	if maxFrames > len(dst) {
		maxFrames = len(dst)
	}

	n := 0
	for n < maxFrames && q.head < len(q.blocks) {
		blk := q.blocks[q.head]
		rem := len(blk) - q.off
		if rem <= 0 {
			q.pop()
			continue
		}

		toCopy := min(rem, maxFrames-n)
		src := blk[q.off : q.off+toCopy]
		out := dst[n : n+toCopy]
		for i, s := range src {
			if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
				s = 0
			}
			out[i] = s
		}

		q.off += toCopy
		n += toCopy
		if q.off >= len(blk) {
			q.pop()
		}
	}

	if q.head == len(q.blocks) {
		q.clear()
	}
	return n
}

// RemainingEstimate returns the occupancy estimate in quanta: untouched blocks
// count as one each, the partially played head block counts as the number of
// quanta needed to cover what is left of it.
func (q *BlockQueue) RemainingEstimate(quantum int) int {
	if q.head >= len(q.blocks) {
		return 0
	}
	if quantum <= 0 {
		quantum = DefaultQuantum
	}

	queued := len(q.blocks) - q.head
	if q.off > 0 {
		queued--
		rem := len(q.blocks[q.head]) - q.off
		if rem > 0 {
			queued += (rem + quantum - 1) / quantum
		}
	}
	return queued
}

// Len returns the number of blocks held, including a partially played head.
func (q *BlockQueue) Len() int {
	return len(q.blocks) - q.head
}

// Frames returns the number of unplayed frames across all blocks.
func (q *BlockQueue) Frames() int {
	total := 0
	for _, blk := range q.blocks[q.head:] {
		total += len(blk)
	}
	return total - q.off
}

func (q *BlockQueue) pop() {
	q.blocks[q.head] = nil
	q.head++
	q.off = 0
}

func (q *BlockQueue) clear() {
	q.blocks = q.blocks[:0]
	q.head = 0
	q.off = 0
}

// compact slides live blocks to the front once the tail reaches capacity,
// so append reuses the backing array instead of growing it.
func (q *BlockQueue) compact() {
	if q.head == 0 || len(q.blocks) < cap(q.blocks) {
		return
	}
	live := copy(q.blocks, q.blocks[q.head:])
	for i := live; i < len(q.blocks); i++ {
		q.blocks[i] = nil
	}
	q.blocks = q.blocks[:live]
	q.head = 0
}
