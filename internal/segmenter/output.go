package segmenter

import (
	"time"

	"github.com/banshee-data/sweepseg/internal/sweep"
)

// SegInfo is the per-sweep metadata record published alongside the
// segmented cloud. The per-point arrays are indexed identically to the
// segmented cloud; the ring index arrays bound each beam's contiguous run
// within it, inset so downstream curvature windows never straddle a run
// boundary: the start index is the run's first position plus four, the end
// index its last position minus five.
type SegInfo struct {
	StartAzimuth float64
	EndAzimuth   float64
	AzimuthDiff  float64

	StartRingIndex []int32
	EndRingIndex   []int32

	IsGround    []bool
	ColumnIndex []uint32
	Range       []float64
}

// SweepMetrics is what one ProcessSweep call counted.
type SweepMetrics struct {
	PointsIn         int           `json:"points_in"`
	DroppedNonFinite int           `json:"dropped_non_finite"`
	DroppedRow       int           `json:"dropped_row"`
	DroppedColumn    int           `json:"dropped_column"`
	DroppedRange     int           `json:"dropped_range"`
	Projected        int           `json:"projected"`
	GroundCells      int           `json:"ground_cells"`
	AcceptedSegments int           `json:"accepted_segments"`
	RejectedClusters int           `json:"rejected_clusters"`
	SegmentedPoints  int           `json:"segmented_points"`
	OutlierPoints    int           `json:"outlier_points"`
	Duration         time.Duration `json:"duration_ns"`

	RangeSummary       Summary `json:"range_summary"`
	ClusterSizeSummary Summary `json:"cluster_size_summary"`
}

// Result bundles everything one sweep produced. The cloud slices and the
// SegInfo arrays alias the segmenter's reusable buffers: they are valid
// until the next ProcessSweep call, and callers that retain them longer
// must copy.
type Result struct {
	SensorID  string
	Timestamp time.Time
	FrameID   string

	Info SegInfo

	FullCloud          []sweep.Point
	FullInfoCloud      []sweep.Point
	GroundCloud        []sweep.Point
	SegmentedCloud     []sweep.Point
	SegmentedCloudPure []sweep.Point
	OutlierCloud       []sweep.Point

	Metrics SweepMetrics
}

// assembleOutput walks the labelled range image beam-by-beam and builds the
// segmented cloud, its parallel metadata arrays, the pure segment cloud and
// the outlier cloud.
func (s *Segmenter) assembleOutput(sw *sweep.Sweep) *Result {
	bins := s.params.HorizonBins
	size := 0

	for i := 0; i < s.params.NumBeams; i++ {
		s.info.StartRingIndex[i] = int32(size - 1 + 5)

		for j := 0; j < bins; j++ {
			idx := s.cell(i, j)
			label := s.labelMat[idx]
			isGround := s.groundMat[idx] == groundTrue

			if label <= 0 && !isGround {
				continue
			}

			// Rejected clusters are skipped, but the sparse upper-beam
			// subset still carries positional information worth keeping
			// as weak evidence downstream.
			if label == labelRejected {
				if i > s.params.GroundBeamIndex && j%5 == 0 {
					s.outlierCloud = append(s.outlierCloud, s.fullCloud[idx])
				}
				continue
			}

			// Ground is heavily downsampled: one column in five, clear of
			// the run edges. Enough to constrain roll, pitch and z.
			if isGround {
				if j%5 != 0 || j <= 5 || j >= bins-5 {
					continue
				}
			}

			s.info.IsGround[size] = isGround
			s.info.ColumnIndex[size] = uint32(j)
			s.info.Range[size] = s.rangeMat[idx]
			s.segmentedCloud = append(s.segmentedCloud, s.fullCloud[idx])
			size++
		}

		s.info.EndRingIndex[i] = int32(size - 1 - 5)
	}

	for i := 0; i < s.params.NumBeams; i++ {
		for j := 0; j < bins; j++ {
			idx := s.cell(i, j)
			if label := s.labelMat[idx]; label > 0 && label != labelRejected {
				p := s.fullCloud[idx]
				p.Intensity = float64(label)
				s.segmentedCloudPure = append(s.segmentedCloudPure, p)
			}
		}
	}

	res := &Result{
		SensorID:  sw.SensorID,
		Timestamp: sw.Timestamp,
		FrameID:   OutputFrameID,

		Info: SegInfo{
			StartAzimuth:   s.info.StartAzimuth,
			EndAzimuth:     s.info.EndAzimuth,
			AzimuthDiff:    s.info.AzimuthDiff,
			StartRingIndex: s.info.StartRingIndex,
			EndRingIndex:   s.info.EndRingIndex,
			IsGround:       s.info.IsGround[:size],
			ColumnIndex:    s.info.ColumnIndex[:size],
			Range:          s.info.Range[:size],
		},

		FullCloud:          s.fullCloud,
		FullInfoCloud:      s.fullInfoCloud,
		GroundCloud:        s.groundCloud,
		SegmentedCloud:     s.segmentedCloud,
		SegmentedCloudPure: s.segmentedCloudPure,
		OutlierCloud:       s.outlierCloud,
	}
	res.Metrics.SegmentedPoints = size
	res.Metrics.OutlierPoints = len(s.outlierCloud)
	return res
}
