package segmenter

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Summary condenses a per-sweep sample (emitted ranges, cluster sizes)
// into the figures the monitor's stats endpoint reports.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
}

// summarize computes a Summary over values. The input is not modified.
func summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	s := Summary{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		P50:   stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

// Stats tracks cumulative segmentation counters with thread-safe
// operations. The segmenter itself is single-threaded; the mutex is for
// the monitor reading concurrently.
type Stats struct {
	mu sync.Mutex

	sweeps           int64
	pointsIn         int64
	droppedNonFinite int64
	droppedRow       int64
	droppedColumn    int64
	droppedRange     int64
	projected        int64
	groundCells      int64
	acceptedSegments int64
	rejectedClusters int64
	segmentedPoints  int64
	outlierPoints    int64

	lastSweep SweepMetrics
	started   time.Time
}

// NewStats creates a Stats instance.
func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

// record folds one sweep's metrics into the cumulative counters.
func (st *Stats) record(m SweepMetrics) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.sweeps++
	st.pointsIn += int64(m.PointsIn)
	st.droppedNonFinite += int64(m.DroppedNonFinite)
	st.droppedRow += int64(m.DroppedRow)
	st.droppedColumn += int64(m.DroppedColumn)
	st.droppedRange += int64(m.DroppedRange)
	st.projected += int64(m.Projected)
	st.groundCells += int64(m.GroundCells)
	st.acceptedSegments += int64(m.AcceptedSegments)
	st.rejectedClusters += int64(m.RejectedClusters)
	st.segmentedPoints += int64(m.SegmentedPoints)
	st.outlierPoints += int64(m.OutlierPoints)
	st.lastSweep = m
}

// StatsSnapshot is the JSON view of the cumulative counters.
type StatsSnapshot struct {
	Sweeps           int64         `json:"sweeps"`
	PointsIn         int64         `json:"points_in"`
	DroppedNonFinite int64         `json:"dropped_non_finite"`
	DroppedRow       int64         `json:"dropped_row"`
	DroppedColumn    int64         `json:"dropped_column"`
	DroppedRange     int64         `json:"dropped_range"`
	Projected        int64         `json:"projected"`
	GroundCells      int64         `json:"ground_cells"`
	AcceptedSegments int64         `json:"accepted_segments"`
	RejectedClusters int64         `json:"rejected_clusters"`
	SegmentedPoints  int64         `json:"segmented_points"`
	OutlierPoints    int64         `json:"outlier_points"`
	Uptime           time.Duration `json:"uptime_ns"`
	LastSweep        SweepMetrics  `json:"last_sweep"`
}

// Snapshot returns a consistent copy of the counters.
func (st *Stats) Snapshot() StatsSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	return StatsSnapshot{
		Sweeps:           st.sweeps,
		PointsIn:         st.pointsIn,
		DroppedNonFinite: st.droppedNonFinite,
		DroppedRow:       st.droppedRow,
		DroppedColumn:    st.droppedColumn,
		DroppedRange:     st.droppedRange,
		Projected:        st.projected,
		GroundCells:      st.groundCells,
		AcceptedSegments: st.acceptedSegments,
		RejectedClusters: st.rejectedClusters,
		SegmentedPoints:  st.segmentedPoints,
		OutlierPoints:    st.outlierPoints,
		Uptime:           time.Since(st.started),
		LastSweep:        st.lastSweep,
	}
}
