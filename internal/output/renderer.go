package output

// Renderer fills one buffer per output channel. *stream.Engine satisfies it.
type Renderer interface {
	Render(out [][]float32) bool
}

// Sink receives every rendered quantum from an offline driver.
// *audio.WAVWriter and *audio.Tap satisfy it.
type Sink interface {
	WriteBlock(buf [][]float32) error
}

// Hooks run on the render goroutine after every Render call, so they may use
// engine methods reserved for it.
type Hooks struct {
	// AfterRender is called with the total frames rendered so far
	AfterRender func(frames int64)

	// Stop ends playback when it returns true
	Stop func() bool
}

func (h Hooks) after(frames int64) bool {
	if h.AfterRender != nil {
		h.AfterRender(frames)
	}
	return h.Stop != nil && h.Stop()
}
