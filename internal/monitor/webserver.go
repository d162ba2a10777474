// Package monitor serves the segmentation stage's debug and statistics
// endpoints: a JSON counters feed, an interactive scatter of the segmented
// sweep, and a PNG heatmap of the range image. The scatter and the heatmap
// are rebuilt from the published channels, as an ordinary subscriber; the
// counters come from the stats function handed to NewWebServer.
package monitor

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/sweepseg/internal/pubsub"
	"github.com/banshee-data/sweepseg/internal/segmenter"
)

// scatterPoint is one retained segment point for the debug scatter.
type scatterPoint struct {
	X, Y    float64
	Cluster int
}

// WebServer holds the latest published sweep in a form the handlers can
// render without touching the stage's reusable buffers.
type WebServer struct {
	sensorID string
	params   segmenter.SensorParams
	statsFn  func() segmenter.StatsSnapshot

	mu          sync.Mutex
	ranges      []float64 // copy of the range image, NaN for empty cells
	haveRanges  bool
	segments    []scatterPoint
	lastSweepID string
	lastStamp   time.Time

	mux *http.ServeMux
}

// NewWebServer creates a monitor for one sensor. statsFn supplies the
// cumulative counters; pass the segmenter's Stats().Snapshot.
func NewWebServer(sensorID string, params segmenter.SensorParams, statsFn func() segmenter.StatsSnapshot) *WebServer {
	ws := &WebServer{
		sensorID: sensorID,
		params:   params,
		statsFn:  statsFn,
		ranges:   make([]float64, params.NumBeams*params.HorizonBins),
		mux:      http.NewServeMux(),
	}
	ws.mux.HandleFunc("/api/segmentation/stats", ws.handleStats)
	ws.mux.HandleFunc("/debug/segmentation/scatter", ws.handleScatter)
	ws.mux.HandleFunc("/debug/segmentation/range.png", ws.handleRangePNG)
	return ws
}

// Attach subscribes the monitor to the channels it renders. Subscribing
// here is what makes the runner publish these two visualisation clouds at
// all.
func (ws *WebServer) Attach(bus *pubsub.Bus) {
	bus.SubscribeCloud(pubsub.FullCloudInfo, ws.onFullCloudInfo)
	bus.SubscribeCloud(pubsub.SegmentedCloudPure, ws.onSegmentedCloudPure)
}

// Handler returns the monitor's HTTP handler.
func (ws *WebServer) Handler() http.Handler { return ws.mux }

// onFullCloudInfo copies the per-cell ranges out of the info cloud before
// the publish callback returns (the message aliases stage buffers).
func (ws *WebServer) onFullCloudInfo(msg pubsub.CloudMessage) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if len(msg.Points) != len(ws.ranges) {
		return
	}
	for i, p := range msg.Points {
		if p.IsSentinel() {
			ws.ranges[i] = math.NaN()
			continue
		}
		ws.ranges[i] = p.Intensity
	}
	ws.haveRanges = true
	ws.lastSweepID = msg.SweepID
	ws.lastStamp = msg.Timestamp
}

// onSegmentedCloudPure snapshots the clustered points for the scatter.
func (ws *WebServer) onSegmentedCloudPure(msg pubsub.CloudMessage) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.segments = ws.segments[:0]
	for _, p := range msg.Points {
		ws.segments = append(ws.segments, scatterPoint{X: p.X, Y: p.Y, Cluster: int(p.Intensity)})
	}
}

// handleStats serves the cumulative counters plus the last sweep seen on
// the bus.
func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	ws.mu.Lock()
	sweepID := ws.lastSweepID
	stamp := ws.lastStamp
	ws.mu.Unlock()

	payload := struct {
		SensorID    string                  `json:"sensor_id"`
		Model       string                  `json:"model"`
		LastSweepID string                  `json:"last_sweep_id,omitempty"`
		LastStamp   time.Time               `json:"last_sweep_timestamp,omitempty"`
		Stats       segmenter.StatsSnapshot `json:"stats"`
	}{
		SensorID:    ws.sensorID,
		Model:       ws.params.Model,
		LastSweepID: sweepID,
		LastStamp:   stamp,
		Stats:       ws.statsFn(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// maxPointsParam parses the optional max_points query parameter. Values
// outside (100, 50000], or that do not parse, fall back to def, which keeps
// payloads renderable.
func maxPointsParam(r *http.Request, def int) int {
	maxPoints := def
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			maxPoints = v
		}
	}
	return maxPoints
}

// snapshotSegments returns a downsampled copy of the latest scatter data.
func (ws *WebServer) snapshotSegments(maxPoints int) []scatterPoint {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	stride := 1
	if len(ws.segments) > maxPoints {
		stride = int(math.Ceil(float64(len(ws.segments)) / float64(maxPoints)))
	}
	out := make([]scatterPoint, 0, maxPoints)
	for i := 0; i < len(ws.segments); i += stride {
		out = append(out, ws.segments[i])
	}
	return out
}

// snapshotRanges returns the latest range image copy, or nil when no sweep
// has been published yet.
func (ws *WebServer) snapshotRanges() []float64 {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if !ws.haveRanges {
		return nil
	}
	out := make([]float64, len(ws.ranges))
	copy(out, ws.ranges)
	return out
}
