package sweep

import "math"

const (
	// RadToDeg converts radians to degrees.
	RadToDeg = 180.0 / math.Pi
	// DegToRad converts degrees to radians.
	DegToRad = math.Pi / 180.0
)

// Azimuth returns the counter-clockwise sweep azimuth of p in radians,
// measured from the +X axis. The sensor spins clockwise viewed from +Z, so
// the atan2 result is negated to make azimuth non-decreasing within a sweep
// (modulo wrap). Result is in [-pi, pi]; a point on the -X axis yields -pi
// or pi depending on the sign of its zero Y.
func Azimuth(p Point) float64 {
	return -math.Atan2(p.Y, p.X)
}

// HorizontalAngleDeg returns the angle of p from the +Y axis in degrees,
// positive clockwise (the x/y swap in atan2 does the reflection). This is
// the angle the column mapping of the range image is keyed on.
func HorizontalAngleDeg(p Point) float64 {
	return math.Atan2(p.X, p.Y) * RadToDeg
}

// VerticalAngleDeg returns the elevation of p above the sensor's horizontal
// plane in degrees.
func VerticalAngleDeg(p Point) float64 {
	return math.Atan2(p.Z, math.Hypot(p.X, p.Y)) * RadToDeg
}

// Range returns the Euclidean distance of p from the sensor origin.
func Range(p Point) float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// FromSpherical converts distance (meters), horizontal angle from +Y
// (degrees, clockwise positive) and elevation (degrees) into a Cartesian
// point. Inverse of HorizontalAngleDeg/VerticalAngleDeg/Range for finite
// returns; used by the synthetic scene builders.
func FromSpherical(distance, horizontalDeg, elevationDeg float64) Point {
	h := horizontalDeg * DegToRad
	e := elevationDeg * DegToRad

	cosE := math.Cos(e)
	return Point{
		X: distance * cosE * math.Sin(h),
		Y: distance * cosE * math.Cos(h),
		Z: distance * math.Sin(e),
	}
}
