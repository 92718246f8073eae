package synth

import (
	"fmt"
	"strings"
	"time"
)

// Step is one note of a pattern. Gate is the fraction of Length the note is
// held before release.
type Step struct {
	Note   Note
	Length time.Duration
	Gate   float64
}

// Sequencer plays a looping pattern on a Synth, clocked by samples rendered.
type Sequencer struct {
	steps []Step
	sr    float64

	index    int
	pos      int // samples into the current step
	stepLen  int
	gateLen  int
	released bool
}

// NewSequencer creates a sequencer for steps at sample rate sr. An empty
// pattern is allowed and never triggers notes.
func NewSequencer(steps []Step, sr float64) *Sequencer {
	q := &Sequencer{steps: steps, sr: sr}
	q.load()
	return q
}

// DefaultPattern is a C major arpeggio.
func DefaultPattern() []Step {
	notes := []Note{C4, E4, G4, C5, G4, E4}
	steps := make([]Step, len(notes))
	for i, n := range notes {
		steps[i] = Step{Note: n, Length: 250 * time.Millisecond, Gate: 0.8}
	}
	return steps
}

// ParsePattern parses a comma separated list like "C4,E4,-,G4" where "-" is
// a rest. Every step lasts stepLen.
func ParsePattern(s string, stepLen time.Duration) ([]Step, error) {
	var steps []Step
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n := NoNote
		if field != "-" {
			n = ParseNote(strings.ToUpper(field))
			if n == NoNote {
				return nil, fmt.Errorf("unknown note %q", field)
			}
		}
		steps = append(steps, Step{Note: n, Length: stepLen, Gate: 0.8})
	}
	return steps, nil
}

// Advance moves the clock forward by n samples, firing note events on s at
// step boundaries. Events are quantized to the call granularity.
func (q *Sequencer) Advance(s *Synth, n int) {
	if len(q.steps) == 0 {
		return
	}

	for n > 0 {
		if q.pos == 0 {
			s.NoteOn(q.steps[q.index].Note)
		}

		chunk := min(n, q.stepLen-q.pos)
		q.pos += chunk
		n -= chunk

		if !q.released && q.pos >= q.gateLen {
			s.NoteOff(q.steps[q.index].Note)
			q.released = true
		}
		if q.pos >= q.stepLen {
			q.index = (q.index + 1) % len(q.steps)
			q.load()
		}
	}
}

func (q *Sequencer) load() {
	q.pos = 0
	q.released = false
	if len(q.steps) == 0 {
		return
	}
	step := q.steps[q.index]
	q.stepLen = max(1, int(step.Length.Seconds()*q.sr))
	gate := step.Gate
	if gate <= 0 || gate > 1 {
		gate = 1
	}
	q.gateLen = max(1, int(float64(q.stepLen)*gate))
}
