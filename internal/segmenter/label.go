package segmenter

import "math"

// neighborOffsets is the four-neighbourhood used by the flood fill: up,
// right, left, down in (row, col) steps. Columns wrap around the azimuth
// seam; rows do not.
var neighborOffsets = [4][2]int{{-1, 0}, {0, 1}, {0, -1}, {1, 0}}

// segmentCloud flood-fills every unvisited, non-excluded cell into a
// labelled component.
func (s *Segmenter) segmentCloud() {
	for i := 0; i < s.params.NumBeams; i++ {
		for j := 0; j < s.params.HorizonBins; j++ {
			if s.labelMat[s.cell(i, j)] == labelUnvisited {
				s.labelComponents(i, j)
			}
		}
	}
}

// labelComponents grows a component from (row, col) by breadth-first
// search, admitting a neighbour only when the angular-consistency
// predicate holds: with d1 the farther and d2 the nearer of the two
// ranges and alpha the angular step between the cells,
//
//	beta = atan2(d2*sin(alpha), d1 - d2*cos(alpha))
//
// is the angle at the far point of the triangle spanned with the sensor
// origin. A large beta means the two sight lines land on a nearly
// continuous surface; a small beta means a depth discontinuity. The
// neighbour joins when beta exceeds the configured threshold.
//
// An accepted component keeps the running label; a component that is too
// small (fewer than 30 cells, and not 5+ cells across 3+ beams) is
// re-marked as rejected so output assembly can route it to the outlier
// cloud.
func (s *Segmenter) labelComponents(row, col int) {
	numBeams := s.params.NumBeams
	bins := s.params.HorizonBins
	alphaX := s.params.alphaX()
	alphaY := s.params.alphaY()
	theta := s.params.segmentTheta()

	for i := range s.lineCount {
		s.lineCount[i] = false
	}

	s.queueIndX[0] = uint16(row)
	s.queueIndY[0] = uint16(col)
	queueSize := 1
	queueStart := 0
	queueEnd := 1

	s.pushedIndX[0] = uint16(row)
	s.pushedIndY[0] = uint16(col)
	pushedSize := 1

	for queueSize > 0 {
		fromX := int(s.queueIndX[queueStart])
		fromY := int(s.queueIndY[queueStart])
		queueSize--
		queueStart++

		s.labelMat[s.cell(fromX, fromY)] = s.labelCount

		for _, off := range neighborOffsets {
			thisX := fromX + off[0]
			thisY := fromY + off[1]

			if thisX < 0 || thisX >= numBeams {
				continue
			}
			// The range image is cylindrical: the column seam connects.
			if thisY < 0 {
				thisY = bins - 1
			}
			if thisY >= bins {
				thisY = 0
			}

			if s.labelMat[s.cell(thisX, thisY)] != labelUnvisited {
				continue
			}

			d1 := math.Max(s.rangeMat[s.cell(fromX, fromY)], s.rangeMat[s.cell(thisX, thisY)])
			d2 := math.Min(s.rangeMat[s.cell(fromX, fromY)], s.rangeMat[s.cell(thisX, thisY)])

			alpha := alphaX
			if off[0] != 0 {
				alpha = alphaY
			}

			angle := math.Atan2(d2*math.Sin(alpha), d1-d2*math.Cos(alpha))
			if angle > theta {
				s.queueIndX[queueEnd] = uint16(thisX)
				s.queueIndY[queueEnd] = uint16(thisY)
				queueSize++
				queueEnd++

				s.labelMat[s.cell(thisX, thisY)] = s.labelCount
				s.lineCount[thisX] = true

				s.pushedIndX[pushedSize] = uint16(thisX)
				s.pushedIndY[pushedSize] = uint16(thisY)
				pushedSize++
			}
		}
	}

	feasible := false
	if pushedSize >= DefaultSegmentGoodPointNum {
		feasible = true
	} else if pushedSize >= s.params.SegmentValidPointNum {
		lines := 0
		for i := 0; i < numBeams; i++ {
			if s.lineCount[i] {
				lines++
			}
		}
		if lines >= s.params.SegmentValidLineNum {
			feasible = true
		}
	}

	if feasible {
		s.acceptedSizes = append(s.acceptedSizes, float64(pushedSize))
		s.labelCount++
	} else {
		s.rejectedCount++
		for i := 0; i < pushedSize; i++ {
			s.labelMat[s.cell(int(s.pushedIndX[i]), int(s.pushedIndY[i]))] = labelRejected
		}
	}
}
