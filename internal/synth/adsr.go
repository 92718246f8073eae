package synth

import "math"

// EnvState is the current ADSR stage
type EnvState int

const (
	EnvIdle EnvState = iota
	EnvAttack
	EnvDecay
	EnvSustain
	EnvRelease
)

// denormalFloor flushes tiny envelope levels to zero
const denormalFloor = 1e-12

// ADSR is a linear attack/decay/sustain/release envelope.
// Times are in seconds, sustain is a level in [0, 1].
type ADSR struct {
	attack, decay, sustain, release float64
	sr                              float64

	state  EnvState
	level  float64
	gate   bool
	target float64
	step   float64
}

// NewADSR creates an idle envelope.
func NewADSR(a, d, s, r, sr float64) ADSR {
	return ADSR{
		attack:  a,
		decay:   d,
		sustain: clamp(s, 0, 1),
		release: r,
		sr:      sr,
	}
}

// Retune changes the stage parameters. The current stage keeps its slope
// until the next transition.
func (e *ADSR) Retune(a, d, s, r float64) {
	e.attack = a
	e.decay = d
	e.sustain = clamp(s, 0, 1)
	e.release = r
}

// NoteOn opens the gate and restarts the attack from the current level.
func (e *ADSR) NoteOn() {
	e.gate = true
	e.enterAttack()
}

// NoteOff closes the gate and starts the release.
func (e *ADSR) NoteOff() {
	e.gate = false
	e.enterRelease()
}

// State returns the current stage.
func (e *ADSR) State() EnvState {
	return e.state
}

// Active reports whether the envelope is producing a non-zero level.
func (e *ADSR) Active() bool {
	return e.level > 0
}

// Next advances one sample and returns the level.
func (e *ADSR) Next() float64 {
	switch e.state {
	case EnvIdle:
		e.level = 0
	case EnvSustain:
		e.level = e.sustain
		if !e.gate {
			e.enterRelease()
		}
	default:
		e.level += e.step
		hit := e.level >= e.target
		if e.step < 0 {
			hit = e.level <= e.target
		}
		if hit {
			e.level = e.target
			e.advance()
		}
	}

	if math.Abs(e.level) < denormalFloor {
		e.level = 0
	}
	return e.level
}

func (e *ADSR) setStage(seconds, target float64) {
	e.target = target
	if seconds <= 0 || math.Abs(e.level-target) < 1e-7 {
		e.level = target
		e.step = 0
		e.advance()
		return
	}
	e.step = (target - e.level) / (seconds * e.sr)
}

func (e *ADSR) enterAttack() {
	e.state = EnvAttack
	e.setStage(e.attack, 1)
}

func (e *ADSR) enterDecay() {
	e.state = EnvDecay
	e.setStage(e.decay, e.sustain)
}

func (e *ADSR) enterSustain() {
	e.state = EnvSustain
	e.level = e.sustain
	e.target = e.sustain
	e.step = 0
}

func (e *ADSR) enterRelease() {
	e.state = EnvRelease
	e.setStage(e.release, 0)
}

// advance moves to the stage after the current one reached its target
func (e *ADSR) advance() {
	switch e.state {
	case EnvAttack:
		if e.gate {
			e.enterDecay()
		} else {
			e.enterRelease()
		}
	case EnvDecay:
		if e.gate {
			e.enterSustain()
		} else {
			e.enterRelease()
		}
	case EnvRelease:
		e.state = EnvIdle
		e.level = 0
	}
}
