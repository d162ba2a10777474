package segmenter

import (
	"math"

	"github.com/banshee-data/sweepseg/internal/sweep"
)

// findSweepBounds computes the start and end azimuth of the sweep from its
// first and last retained points, then normalises the span into (pi, 3pi).
// The sensor does not always cover exactly one revolution; the
// normalisation keeps the span unambiguous for downstream interpolation.
// An empty sweep leaves the bounds at zero.
func (s *Segmenter) findSweepBounds(points []sweep.Point) {
	if len(points) == 0 {
		return
	}

	s.info.StartAzimuth = sweep.Azimuth(points[0])
	s.info.EndAzimuth = sweep.Azimuth(points[len(points)-1]) + 2*math.Pi

	if s.info.EndAzimuth-s.info.StartAzimuth > 3*math.Pi {
		s.info.EndAzimuth -= 2 * math.Pi
	} else if s.info.EndAzimuth-s.info.StartAzimuth < math.Pi {
		s.info.EndAzimuth += 2 * math.Pi
	}
	s.info.AzimuthDiff = s.info.EndAzimuth - s.info.StartAzimuth
}

// projectionCounts reports what the projection loop dropped and committed.
type projectionCounts struct {
	committed     int
	droppedRow    int
	droppedColumn int
	droppedRange  int
}

// projectSweep places each retained point in the range image. Row comes
// from the driver's ring channel when configured, otherwise from the beam
// elevation; column from the horizontal angle, with the point at azimuth
// -90 degrees from +Y (along -X) landing in column 0 and columns
// increasing counter-clockwise. When two points map to the same cell the
// last one wins; within-cell points are near-identical in practice.
func (s *Segmenter) projectSweep(sw *sweep.Sweep) projectionCounts {
	var counts projectionCounts
	bins := s.params.HorizonBins

	for i, p := range sw.Points {
		var row int
		if s.params.UseRing {
			row = int(sw.Rings[i])
		} else {
			verticalAngle := sweep.VerticalAngleDeg(p)
			row = int(math.Floor((verticalAngle + s.params.AngBottom) / s.params.AngResY))
		}
		if row < 0 || row >= s.params.NumBeams {
			counts.droppedRow++
			continue
		}

		horizonAngle := sweep.HorizontalAngleDeg(p)
		col := -int(math.Round((horizonAngle-90.0)/s.params.AngResX)) + bins/2
		if col >= bins {
			col -= bins
		}
		if col < 0 || col >= bins {
			counts.droppedColumn++
			continue
		}

		dist := sweep.Range(p)
		if dist < s.params.MinRange {
			counts.droppedRange++
			continue
		}

		idx := s.cell(row, col)
		s.rangeMat[idx] = dist

		// Pack the cell index into intensity: row in the integer part,
		// column scaled into the fraction. Reversible downstream.
		p.Intensity = float64(row) + float64(col)/10000.0
		s.fullCloud[idx] = p

		p.Intensity = dist
		s.fullInfoCloud[idx] = p

		counts.committed++
	}
	return counts
}
