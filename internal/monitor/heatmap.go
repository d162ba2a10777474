package monitor

import (
	"math"
	"net/http"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// rangeGrid adapts the copied range image to plotter.GridXYZ. Empty cells
// are drawn as zero range.
type rangeGrid struct {
	rows, cols int
	vals       []float64
}

func (g rangeGrid) Dims() (c, r int) { return g.cols, g.rows }

func (g rangeGrid) Z(c, r int) float64 {
	v := g.vals[r*g.cols+c]
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func (g rangeGrid) X(c int) float64 { return float64(c) }
func (g rangeGrid) Y(r int) float64 { return float64(r) }

// handleRangePNG renders the latest range image as a PNG heatmap: columns
// on the x axis, beams bottom-up on the y axis, colour by range.
func (ws *WebServer) handleRangePNG(w http.ResponseWriter, r *http.Request) {
	vals := ws.snapshotRanges()
	if vals == nil {
		http.Error(w, "no sweep published yet", http.StatusNotFound)
		return
	}

	grid := rangeGrid{
		rows: ws.params.NumBeams,
		cols: ws.params.HorizonBins,
		vals: vals,
	}

	p := plot.New()
	p.Title.Text = "range image, sensor " + ws.sensorID
	p.X.Label.Text = "column"
	p.Y.Label.Text = "beam"
	p.Add(plotter.NewHeatMap(grid, palette.Heat(255, 1)))

	wt, err := p.WriterTo(12*vg.Inch, 2.5*vg.Inch, "png")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := wt.WriteTo(w); err != nil {
		// Headers already sent; nothing useful left to report to the client.
		return
	}
}
