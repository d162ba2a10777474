package segmenter

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/sweepseg/internal/sweep"
)

// OutputFrameID is the coordinate frame stamped on every emitted cloud.
const OutputFrameID = "base_link"

// labelMat cell markers.
const (
	labelUnvisited int32 = 0
	labelExcluded  int32 = -1     // ground or invalid, not eligible for segmentation
	labelRejected  int32 = 999999 // visited but cluster too small
)

// groundMat cell states.
const (
	groundClear   int8 = 0  // tested, not ground
	groundUnknown int8 = -1 // at least one neighbour missing
	groundTrue    int8 = 1
)

// Segmenter converts one sweep at a time into the range-image view and the
// derived clouds. All buffers are allocated once in New and reused; the
// views handed out in Result stay valid until the next ProcessSweep call.
type Segmenter struct {
	params   SensorParams
	nanPoint sweep.Point

	// Range image: three parallel NumBeams x HorizonBins grids in
	// row-major order.
	rangeMat   []float64
	groundMat  []int8
	labelMat   []int32
	labelCount int32

	// Projected point grids, row-major, sentinel-filled.
	fullCloud     []sweep.Point
	fullInfoCloud []sweep.Point

	// Emitted clouds, rebuilt per sweep.
	groundCloud        []sweep.Point
	segmentedCloud     []sweep.Point
	segmentedCloudPure []sweep.Point
	outlierCloud       []sweep.Point

	info SegInfo

	// BFS scratch. Fixed-capacity index queues; a dynamic container here
	// measurably slows the labelling loop.
	queueIndX  []uint16
	queueIndY  []uint16
	pushedIndX []uint16
	pushedIndY []uint16
	lineCount  []bool

	// Per-sweep cluster sizes, for summary statistics.
	acceptedSizes []float64
	rejectedCount int

	stats *Stats
}

// New constructs a Segmenter for the given sensor geometry. The parameter
// record is validated once and held immutable for the component's lifetime.
func New(params SensorParams) (*Segmenter, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sensor params: %w", err)
	}
	if params.NumBeams > math.MaxUint16 || params.HorizonBins > math.MaxUint16 {
		return nil, fmt.Errorf("grid dimensions exceed index width: %dx%d", params.NumBeams, params.HorizonBins)
	}

	n := params.NumBeams * params.HorizonBins
	s := &Segmenter{
		params:   params,
		nanPoint: sweep.Sentinel(),

		rangeMat:  make([]float64, n),
		groundMat: make([]int8, n),
		labelMat:  make([]int32, n),

		fullCloud:     make([]sweep.Point, n),
		fullInfoCloud: make([]sweep.Point, n),

		groundCloud:        make([]sweep.Point, 0, n),
		segmentedCloud:     make([]sweep.Point, 0, n),
		segmentedCloudPure: make([]sweep.Point, 0, n),
		outlierCloud:       make([]sweep.Point, 0, n/5),

		info: SegInfo{
			StartRingIndex: make([]int32, params.NumBeams),
			EndRingIndex:   make([]int32, params.NumBeams),
			IsGround:       make([]bool, n),
			ColumnIndex:    make([]uint32, n),
			Range:          make([]float64, n),
		},

		queueIndX:  make([]uint16, n),
		queueIndY:  make([]uint16, n),
		pushedIndX: make([]uint16, n),
		pushedIndY: make([]uint16, n),
		lineCount:  make([]bool, params.NumBeams),

		acceptedSizes: make([]float64, 0, 128),
		stats:         NewStats(),
	}
	s.reset()
	return s, nil
}

// Params returns the immutable sensor record the segmenter was built with.
func (s *Segmenter) Params() SensorParams { return s.params }

// Stats returns the cumulative process counters.
func (s *Segmenter) Stats() *Stats { return s.stats }

// cell flattens (row, col) into the row-major grid index.
func (s *Segmenter) cell(row, col int) int {
	return row*s.params.HorizonBins + col
}

// ProcessSweep runs the seven-step pipeline on one sweep and returns the
// derived clouds and metadata. The returned views alias internal buffers
// and are invalidated by the next call.
//
// The only errors are the fatal configuration class: a ring-bearing sweep
// that is not dense, which would desynchronise the ring channel from the
// sanitised coordinate view, or a ring channel shorter than the point list.
// Per-point degeneracy is dropped silently and
// surfaced through the metrics.
func (s *Segmenter) ProcessSweep(sw *sweep.Sweep) (*Result, error) {
	start := time.Now()
	s.reset()

	pointsBefore := len(sw.Points)
	sw.Sanitize()
	droppedNonFinite := pointsBefore - len(sw.Points)

	if s.params.UseRing {
		if !sw.RingDense {
			return nil, fmt.Errorf("sweep %s: ring-bearing cloud is not dense; remove NaN points upstream", sw.SensorID)
		}
		if len(sw.Rings) < len(sw.Points) {
			return nil, fmt.Errorf("sweep %s: ring channel holds %d entries for %d points", sw.SensorID, len(sw.Rings), len(sw.Points))
		}
	}

	s.findSweepBounds(sw.Points)
	proj := s.projectSweep(sw)
	groundCells := s.markGround()
	s.segmentCloud()
	res := s.assembleOutput(sw)

	res.Metrics.PointsIn = pointsBefore
	res.Metrics.DroppedNonFinite = droppedNonFinite
	res.Metrics.DroppedRow = proj.droppedRow
	res.Metrics.DroppedColumn = proj.droppedColumn
	res.Metrics.DroppedRange = proj.droppedRange
	res.Metrics.Projected = proj.committed
	res.Metrics.GroundCells = groundCells
	res.Metrics.AcceptedSegments = len(s.acceptedSizes)
	res.Metrics.RejectedClusters = s.rejectedCount
	res.Metrics.Duration = time.Since(start)
	res.Metrics.RangeSummary = summarize(s.info.Range[:len(s.segmentedCloud)])
	res.Metrics.ClusterSizeSummary = summarize(s.acceptedSizes)

	s.stats.record(res.Metrics)

	debugf("[segmenter] sweep %s: in=%d projected=%d ground=%d segments=%d rejected=%d emitted=%d outliers=%d in %v",
		sw.SensorID, pointsBefore, proj.committed, groundCells,
		len(s.acceptedSizes), s.rejectedCount, len(s.segmentedCloud), len(s.outlierCloud),
		res.Metrics.Duration)

	return res, nil
}

// reset returns every scratch buffer to its initial state. Called before
// each sweep so the previous Result's views stay readable in between.
func (s *Segmenter) reset() {
	for i := range s.rangeMat {
		s.rangeMat[i] = math.Inf(1)
		s.groundMat[i] = groundClear
		s.labelMat[i] = labelUnvisited
		s.fullCloud[i] = s.nanPoint
		s.fullInfoCloud[i] = s.nanPoint
	}
	s.labelCount = 1

	s.groundCloud = s.groundCloud[:0]
	s.segmentedCloud = s.segmentedCloud[:0]
	s.segmentedCloudPure = s.segmentedCloudPure[:0]
	s.outlierCloud = s.outlierCloud[:0]

	s.acceptedSizes = s.acceptedSizes[:0]
	s.rejectedCount = 0

	s.info.StartAzimuth = 0
	s.info.EndAzimuth = 0
	s.info.AzimuthDiff = 0
}
