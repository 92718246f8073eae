package stream

import (
	"github.com/charmbracelet/log"
)

// Flow-control defaults
const (
	DefaultQuantum       = 128 // Frames per render call
	DefaultLowWater      = 5   // Occupancy below which a refill is requested
	DefaultTarget        = 8   // Occupancy a refill aims for
	DefaultInboxSize     = 64  // Producer messages buffered ahead of the render goroutine
	DefaultRequestBuffer = 16  // Refill requests buffered ahead of the producer
)

// Config holds the engine parameters. Zero values fall back to defaults.
type Config struct {
	Quantum   int
	LowWater  int
	Target    int
	MaxBlocks int // Queue capacity in blocks, 0 for unbounded
	Overflow  OverflowPolicy

	InboxSize     int
	RequestBuffer int

	Logger *log.Logger
}

// Engine drains queued sample blocks into a realtime render callback and asks
// the producer for more audio before the queue runs dry.
//
// Render, Enqueue, SetQuantum, SetLowWater, SetTarget, Apply and Occupancy
// belong to the render goroutine. Other goroutines talk to the engine through
// Inbox and Requests, and may read Stats and Pending at any time.
//
// Render only stays allocation-free with a bounded queue (MaxBlocks > 0): an
// unbounded queue grows its backing array when the producer runs far ahead.
type Engine struct {
	queue    *BlockQueue
	quantum  int
	lowWater int
	target   int

	inbox    chan Message
	requests chan Request

	stats counters
	log   *log.Logger
}

// New creates an engine and immediately requests quantum*target frames so the
// pipeline is primed before the first render call.
func New(cfg Config) *Engine {
	if cfg.Quantum <= 0 {
		cfg.Quantum = DefaultQuantum
	}
	if cfg.LowWater <= 0 {
		cfg.LowWater = DefaultLowWater
	}
	if cfg.Target <= 0 {
		cfg.Target = DefaultTarget
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultInboxSize
	}
	if cfg.RequestBuffer <= 0 {
		cfg.RequestBuffer = DefaultRequestBuffer
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	e := &Engine{
		queue:    NewBlockQueue(cfg.MaxBlocks, cfg.Overflow),
		inbox:    make(chan Message, cfg.InboxSize),
		requests: make(chan Request, cfg.RequestBuffer),
		log:      cfg.Logger.WithPrefix("stream"),
	}
	e.SetQuantum(cfg.Quantum)
	e.SetLowWater(cfg.LowWater)
	e.SetTarget(cfg.Target)

	e.log.Debug("engine created",
		"quantum", e.quantum,
		"low_water", e.lowWater,
		"target", e.target,
		"max_blocks", cfg.MaxBlocks)

	e.request(e.quantum * e.target)
	return e
}

// Inbox is where the producer sends blocks and parameter updates.
func (e *Engine) Inbox() chan<- Message {
	return e.inbox
}

// Requests delivers refill requests to the producer.
func (e *Engine) Requests() <-chan Request {
	return e.requests
}

// Pending returns the number of messages waiting to be applied.
func (e *Engine) Pending() int {
	return len(e.inbox)
}

// Stats returns the current counters. Safe from any goroutine.
func (e *Engine) Stats() Snapshot {
	return e.stats.snapshot()
}

// Quantum returns the expected frames per render call.
func (e *Engine) Quantum() int {
	return e.quantum
}

// Occupancy returns the current occupancy estimate in quanta.
func (e *Engine) Occupancy() int {
	return e.queue.RemainingEstimate(e.quantum)
}

// Enqueue appends a block to the queue. There is no backpressure; a bounded
// queue discards according to its overflow policy.
func (e *Engine) Enqueue(block []float32) {
	if len(block) == 0 {
		return
	}
	if e.queue.Push(block) {
		e.stats.discarded.Add(1)
	}
	e.stats.enqueued.Add(1)
}

// SetQuantum changes the block size used for the occupancy estimate and for
// sizing refill requests. Queued blocks are left as they are.
func (e *Engine) SetQuantum(n int) {
	if n <= 0 {
		return
	}
	e.quantum = n
	e.stats.quantum.Store(int64(n))
}

// SetLowWater changes the refill threshold.
func (e *Engine) SetLowWater(n int) {
	if n <= 0 {
		return
	}
	e.lowWater = n
	e.stats.lowWater.Store(int64(n))
}

// SetTarget changes the occupancy a refill aims for.
func (e *Engine) SetTarget(n int) {
	if n <= 0 {
		return
	}
	e.target = n
	e.stats.target.Store(int64(n))
}

// Apply applies every present field of a producer message.
func (e *Engine) Apply(msg Message) {
	if len(msg.Mono) > 0 {
		e.Enqueue(msg.Mono)
	}
	for _, b := range msg.Blocks {
		if len(b) > 0 {
			e.Enqueue(b)
		}
	}
	e.SetQuantum(msg.Quantum)
	e.SetLowWater(msg.LowWater)
	e.SetTarget(msg.Target)
}

// Render fills every channel of out with queued audio or silence. Channel 0
// is drained from the queue and copied to every further channel. Afterwards
// a single refill request is sent if occupancy is below the low-water mark.
// It never blocks and always returns true.
func (e *Engine) Render(out [][]float32) bool {
	e.pump()

	if len(out) > 0 {
		left := out[0]
		frames := len(left)

		n := e.queue.Drain(left, frames)
		if n < frames {
			clear(left[n:])
			e.stats.underruns.Add(1)
			e.stats.silentFrames.Add(uint64(frames - n))
		}

		for ch := 1; ch < len(out); ch++ {
			dst := out[ch]
			k := copy(dst, left)
			clear(dst[k:])
		}

		e.stats.frames.Add(uint64(frames))
	}
	e.stats.renders.Add(1)

	e.signal()
	return true
}

// pump applies messages already waiting in the inbox, bounded by the inbox
// capacity so a chatty producer cannot stretch a render call.
func (e *Engine) pump() {
	for range cap(e.inbox) {
		select {
		case msg, ok := <-e.inbox:
			if !ok {
				return
			}
			e.Apply(msg)
		default:
			return
		}
	}
}

func (e *Engine) signal() {
	occupancy := e.Occupancy()
	e.stats.occupancy.Store(int64(occupancy))

	if occupancy >= e.lowWater {
		return
	}
	deficit := max(0, e.target-occupancy)
	if deficit > 0 {
		e.request(e.quantum * deficit)
	}
}

// request is fire-and-forget: when the producer is behind and the channel is
// full the request is dropped and the next render call asks again.
func (e *Engine) request(need int) {
	select {
	case e.requests <- Request{Need: need}:
		e.stats.requests.Add(1)
		e.stats.requestedFrames.Add(uint64(need))
	default:
		e.stats.droppedRequests.Add(1)
	}
}
