package segmenter

import (
	"math"

	"github.com/banshee-data/sweepseg/internal/sweep"
)

// markGround classifies range-image cells as ground by the slope between
// vertically adjacent beams, then excludes ground and invalid cells from
// segmentation. Returns the number of ground cells.
//
// Only the lower GroundBeamIndex beam pairs are tested: higher beams point
// at or above the horizon and cannot see ground at mounting height. Using
// adjacent beams rather than a global plane fit tolerates curved and
// rolling terrain.
func (s *Segmenter) markGround() int {
	bins := s.params.HorizonBins

	for j := 0; j < bins; j++ {
		for i := 0; i < s.params.GroundBeamIndex; i++ {
			lower := s.cell(i, j)
			upper := s.cell(i+1, j)

			a := s.fullCloud[lower]
			b := s.fullCloud[upper]
			if a.IsSentinel() || b.IsSentinel() {
				// No measurement on one side; nothing to test.
				s.groundMat[lower] = groundUnknown
				continue
			}

			diffX := b.X - a.X
			diffY := b.Y - a.Y
			diffZ := b.Z - a.Z
			angle := math.Atan2(diffZ, math.Sqrt(diffX*diffX+diffY*diffY)) * sweep.RadToDeg

			if math.Abs(angle-s.params.MountAngleDeg) <= GroundAngleToleranceDeg {
				s.groundMat[lower] = groundTrue
				s.groundMat[upper] = groundTrue
			}
		}
	}

	// Ground and empty cells are not candidates for segmentation.
	ground := 0
	for idx := range s.labelMat {
		if s.groundMat[idx] == groundTrue {
			ground++
		}
		if s.groundMat[idx] == groundTrue || math.IsInf(s.rangeMat[idx], 1) {
			s.labelMat[idx] = labelExcluded
		}
	}

	// Ground cloud spans rows 0..GroundBeamIndex inclusive: the classifier
	// marks both beams of a qualifying pair.
	for i := 0; i <= s.params.GroundBeamIndex; i++ {
		for j := 0; j < bins; j++ {
			if s.groundMat[s.cell(i, j)] == groundTrue {
				s.groundCloud = append(s.groundCloud, s.fullCloud[s.cell(i, j)])
			}
		}
	}

	return ground
}
