package sweep

import (
	"math"
	"time"
)

// Point is a Cartesian LiDAR return in the sensor frame.
// Coordinate convention: X=right, Y=forward, Z=up (matches existing code).
// Intensity is overloaded by downstream stages: the projected full cloud
// packs the range-image cell index into it, the info cloud stores range,
// and the pure segment cloud stores the cluster id.
type Point struct {
	X, Y, Z   float64
	Intensity float64
}

// Sentinel returns the fill value for empty range-image cells: non-finite
// coordinates and intensity -1. Intensity is the cheap emptiness test used
// throughout the segmenter.
func Sentinel() Point {
	nan := math.NaN()
	return Point{X: nan, Y: nan, Z: nan, Intensity: -1}
}

// IsSentinel reports whether p is the empty-cell fill value.
func (p Point) IsSentinel() bool {
	return p.Intensity == -1
}

// Finite reports whether all three coordinates are finite. Non-finite points
// are stripped during sanitisation and never reach the range image.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

// Sweep is one full rotation of the sensor as delivered by the driver.
// Points is the coordinate view; Rings, when non-nil, is the aligned
// per-point beam index view from the driver's ring channel.
type Sweep struct {
	SensorID  string
	FrameID   string // coordinate frame of the incoming cloud
	Timestamp time.Time
	Points    []Point
	Rings     []uint16 // parallel to Points when present
	RingDense bool     // driver guarantee: no points were removed upstream
}

// Sanitize strips non-finite points from the coordinate view in place,
// compacting s.Points. The ring view is left untouched: it stays
// index-aligned only when the driver delivered a dense cloud, which the
// segmenter verifies before trusting it.
func (s *Sweep) Sanitize() {
	w := 0
	for _, p := range s.Points {
		if !p.Finite() {
			continue
		}
		s.Points[w] = p
		w++
	}
	s.Points = s.Points[:w]
}
