package stream

// Message carries blocks and parameter updates from the producer to the engine.
// Every non-zero field is applied. Blocks are handed over: the producer must not
// modify a slice after sending it.
type Message struct {
	// Mono is a single block to enqueue
	Mono []float32

	// Blocks are enqueued in order; empty entries are skipped
	Blocks [][]float32

	// Quantum updates the expected frames per render call (ignored if <= 0)
	Quantum int

	// LowWater and Target update the refill thresholds (ignored if <= 0)
	LowWater int
	Target   int
}

// Request asks the producer for Need more frames.
type Request struct {
	Need int
}
