package monitor

import (
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleScatter renders a quick top-down scatter (HTML) of the latest pure
// segment cloud using go-echarts. This is a debugging-only endpoint (no
// auth) to eyeball cluster shapes without an external viewer.
// Query params:
//   - max_points (optional; default 8000) to reduce payload size
func (ws *WebServer) handleScatter(w http.ResponseWriter, r *http.Request) {
	pts := ws.snapshotSegments(maxPointsParam(r, 8000))
	if len(pts) == 0 {
		http.Error(w, "no segmented sweep published yet", http.StatusNotFound)
		return
	}

	data := make([]opts.ScatterData, 0, len(pts))
	for _, p := range pts {
		data = append(data, opts.ScatterData{
			Value:      []interface{}{p.X, p.Y, p.Cluster},
			Symbol:     "circle",
			SymbolSize: 3,
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "segmented clusters (top-down)",
			Subtitle: "sensor " + ws.sensorID + ", intensity = cluster id",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x (m)", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y (m)", Type: "value"}),
	)
	scatter.AddSeries("segments", data)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := scatter.Render(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
