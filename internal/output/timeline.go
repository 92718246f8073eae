package output

import "github.com/linuxmatters/blockfeed/internal/stream"

// Point is the engine state after one render call
type Point struct {
	Frame     int64
	Occupancy int
	Underrun  bool
}

// Timeline records occupancy over an offline render for charting. Record
// must be called from the render goroutine; read the result after the render
// has finished.
type Timeline struct {
	points    []Point
	underruns uint64
	lowWater  int
	target    int
}

// NewTimeline preallocates room for n points.
func NewTimeline(n int) *Timeline {
	return &Timeline{points: make([]Point, 0, max(n, 0))}
}

// Record appends the state in s, marking an underrun when the counter moved
// since the previous call.
func (t *Timeline) Record(frame int64, s stream.Snapshot) {
	t.points = append(t.points, Point{
		Frame:     frame,
		Occupancy: s.Occupancy,
		Underrun:  s.Underruns > t.underruns,
	})
	t.underruns = s.Underruns
	t.lowWater = s.LowWater
	t.target = s.Target
}

// Points returns the recorded points in order.
func (t *Timeline) Points() []Point {
	return t.points
}

// Thresholds returns the low-water mark and target in effect at the last point.
func (t *Timeline) Thresholds() (lowWater, target int) {
	return t.lowWater, t.target
}

// Underruns returns the number of points flagged as underruns.
func (t *Timeline) Underruns() int {
	n := 0
	for _, p := range t.points {
		if p.Underrun {
			n++
		}
	}
	return n
}

// MaxOccupancy returns the highest occupancy recorded.
func (t *Timeline) MaxOccupancy() int {
	m := 0
	for _, p := range t.points {
		m = max(m, p.Occupancy)
	}
	return m
}
