package stream

import "sync/atomic"

// counters are written by the render goroutine and read from anywhere
type counters struct {
	renders         atomic.Uint64
	frames          atomic.Uint64
	underruns       atomic.Uint64
	silentFrames    atomic.Uint64
	requests        atomic.Uint64
	requestedFrames atomic.Uint64
	droppedRequests atomic.Uint64
	enqueued        atomic.Uint64
	discarded       atomic.Uint64
	occupancy       atomic.Int64
	quantum         atomic.Int64
	lowWater        atomic.Int64
	target          atomic.Int64
}

// Snapshot is a point-in-time copy of the engine counters.
type Snapshot struct {
	Renders         uint64 // Render calls
	Frames          uint64 // Frames written to channel 0, audio and silence
	Underruns       uint64 // Render calls that ran out of queued audio
	SilentFrames    uint64 // Frames zero-filled by underruns
	Requests        uint64 // Refill requests delivered to the requests channel
	RequestedFrames uint64 // Sum of Need across delivered requests
	DroppedRequests uint64 // Requests lost because the channel was full
	Enqueued        uint64 // Non-empty blocks handed to the queue
	Discarded       uint64 // Blocks discarded by the overflow policy
	Occupancy       int    // Occupancy estimate after the last render
	Quantum         int
	LowWater        int
	Target          int
}

func (c *counters) snapshot() Snapshot {
	return Snapshot{
		Renders:         c.renders.Load(),
		Frames:          c.frames.Load(),
		Underruns:       c.underruns.Load(),
		SilentFrames:    c.silentFrames.Load(),
		Requests:        c.requests.Load(),
		RequestedFrames: c.requestedFrames.Load(),
		DroppedRequests: c.droppedRequests.Load(),
		Enqueued:        c.enqueued.Load(),
		Discarded:       c.discarded.Load(),
		Occupancy:       int(c.occupancy.Load()),
		Quantum:         int(c.quantum.Load()),
		LowWater:        int(c.lowWater.Load()),
		Target:          int(c.target.Load()),
	}
}

// UnderrunRatio returns the fraction of rendered frames that were silence fill.
func (s Snapshot) UnderrunRatio() float64 {
	if s.Frames == 0 {
		return 0
	}
	return float64(s.SilentFrames) / float64(s.Frames)
}
