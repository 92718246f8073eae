package synth

// Note is a key on the one-octave keyboard
type Note int

const (
	NoNote Note = iota
	C4
	D4
	E4
	F4
	G4
	A4
	B4
	C5
)

var noteFreqs = [...]float64{
	NoNote: 0,
	C4:     261.626,
	D4:     293.665,
	E4:     329.628,
	F4:     349.228,
	G4:     392.0,
	A4:     440.0,
	B4:     493.883,
	C5:     523.251,
}

var noteNames = [...]string{
	NoNote: "-",
	C4:     "C4",
	D4:     "D4",
	E4:     "E4",
	F4:     "F4",
	G4:     "G4",
	A4:     "A4",
	B4:     "B4",
	C5:     "C5",
}

// Freq returns the pitch in Hz, 0 for NoNote or an unknown value.
func (n Note) Freq() float64 {
	if n < 0 || int(n) >= len(noteFreqs) {
		return 0
	}
	return noteFreqs[n]
}

func (n Note) String() string {
	if n < 0 || int(n) >= len(noteNames) {
		return "-"
	}
	return noteNames[n]
}

// KeyNote maps the bottom keyboard row (z x c v b n m ,) to C4..C5.
func KeyNote(key rune) Note {
	switch key {
	case 'z':
		return C4
	case 'x':
		return D4
	case 'c':
		return E4
	case 'v':
		return F4
	case 'b':
		return G4
	case 'n':
		return A4
	case 'm':
		return B4
	case ',':
		return C5
	default:
		return NoNote
	}
}

// ParseNote maps a name like "A4" to a Note.
func ParseNote(name string) Note {
	for i, n := range noteNames {
		if i > 0 && n == name {
			return Note(i)
		}
	}
	return NoNote
}
