package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/banshee-data/sweepseg/internal/pubsub"
	"github.com/banshee-data/sweepseg/internal/segmenter"
	"github.com/banshee-data/sweepseg/internal/sweep"
	"github.com/banshee-data/sweepseg/internal/testutil"
)

// processAndPublish runs one composite sweep through a segmenter and pushes
// the channels the monitor renders.
func processAndPublish(t *testing.T, bus *pubsub.Bus, params segmenter.SensorParams) {
	t.Helper()

	seg, err := segmenter.New(params)
	testutil.AssertNoError(t, err)

	b := sweep.NewSceneBuilder("test", params.Grid())
	scene := sweep.Merge(b.FlatFloor(-1.7), b.VerticalPole(0, 5.0))
	scene.Timestamp = time.Unix(1700000000, 0)

	res, err := seg.ProcessSweep(scene)
	testutil.AssertNoError(t, err)

	msg := pubsub.CloudMessage{
		SweepID:   "sweep-1",
		SensorID:  "test",
		Timestamp: res.Timestamp,
		FrameID:   res.FrameID,
	}
	msg.Points = res.FullInfoCloud
	bus.PublishCloud(pubsub.FullCloudInfo, msg)
	msg.Points = res.SegmentedCloudPure
	bus.PublishCloud(pubsub.SegmentedCloudPure, msg)
}

func newTestServer(t *testing.T) (*WebServer, *pubsub.Bus, segmenter.SensorParams) {
	t.Helper()
	params, ok := segmenter.SensorParamsFor("vlp-16")
	if !ok {
		t.Fatal("vlp-16 missing from registry")
	}
	bus := pubsub.NewBus()
	ws := NewWebServer("test", params, func() segmenter.StatsSnapshot {
		return segmenter.StatsSnapshot{Sweeps: 1}
	})
	ws.Attach(bus)
	return ws, bus, params
}

func TestHandleStats(t *testing.T) {
	ws, bus, params := newTestServer(t)
	processAndPublish(t, bus, params)

	req := httptest.NewRequest(http.MethodGet, "/api/segmentation/stats", nil)
	rec := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var payload struct {
		SensorID    string                  `json:"sensor_id"`
		Model       string                  `json:"model"`
		LastSweepID string                  `json:"last_sweep_id"`
		Stats       segmenter.StatsSnapshot `json:"stats"`
	}
	testutil.AssertNoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))

	if payload.SensorID != "test" || payload.Model != "vlp-16" {
		t.Errorf("unexpected identity fields: %+v", payload)
	}
	if payload.LastSweepID != "sweep-1" {
		t.Errorf("last sweep id = %q, want sweep-1", payload.LastSweepID)
	}
	if payload.Stats.Sweeps != 1 {
		t.Errorf("stats not passed through: %+v", payload.Stats)
	}
}

func TestHandleScatter(t *testing.T) {
	ws, bus, params := newTestServer(t)

	// Before any sweep: nothing to draw.
	req := httptest.NewRequest(http.MethodGet, "/debug/segmentation/scatter", nil)
	rec := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)

	processAndPublish(t, bus, params)

	rec = httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/segmentation/scatter", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	if rec.Body.Len() == 0 {
		t.Error("scatter page is empty")
	}
}

func TestHandleRangePNG(t *testing.T) {
	ws, bus, params := newTestServer(t)

	rec := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/segmentation/range.png", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)

	processAndPublish(t, bus, params)

	rec = httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/segmentation/range.png", nil))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}
	// PNG signature.
	body := rec.Body.Bytes()
	if len(body) < 8 || body[0] != 0x89 || string(body[1:4]) != "PNG" {
		t.Error("response does not look like a PNG")
	}
}
