package synth

// busCapacity bounds the control backlog between UI and synth
const busCapacity = 2048

// Control is a parameter or note change applied to a Synth on its own goroutine.
type Control interface {
	apply(s *Synth)
}

type (
	NoteOnControl   struct{ Note Note }
	NoteOffControl  struct{ Note Note }
	MasterControl   struct{ Volume float64 }
	WaveformControl struct{ Waveform Waveform }
	FilterControl   struct{ Filter FilterSpec }
	ADSRControl     struct{ Attack, Decay, Sustain, Release float64 }
)

func (c NoteOnControl) apply(s *Synth)   { s.NoteOn(c.Note) }
func (c NoteOffControl) apply(s *Synth)  { s.NoteOff(c.Note) }
func (c MasterControl) apply(s *Synth)   { s.SetMasterVolume(c.Volume) }
func (c WaveformControl) apply(s *Synth) { s.SetWaveform(c.Waveform) }
func (c FilterControl) apply(s *Synth)   { s.SetFilter(c.Filter) }
func (c ADSRControl) apply(s *Synth) {
	s.SetADSR(c.Attack, c.Decay, c.Sustain, c.Release)
}

// Bus carries Controls from any goroutine to the synth.
type Bus struct {
	ch chan Control
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{ch: make(chan Control, busCapacity)}
}

// Send queues a control without blocking. It returns false when the bus is
// full and the control was dropped.
func (b *Bus) Send(c Control) bool {
	select {
	case b.ch <- c:
		return true
	default:
		return false
	}
}

// drain applies every queued control
func (b *Bus) drain(s *Synth) {
	for {
		select {
		case c := <-b.ch:
			c.apply(s)
		default:
			return
		}
	}
}
