// Command segmenter runs the range-image segmentation stage: it projects
// incoming sweeps, classifies ground, clusters the rest, and publishes the
// derived clouds. A small HTTP monitor exposes counters and debug views.
//
// Sweep ingress in this binary is the synthetic generator; a sensor driver
// integrates by handing sweeps to pipeline.Runner.Submit.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/sweepseg/internal/monitor"
	"github.com/banshee-data/sweepseg/internal/monitoring"
	"github.com/banshee-data/sweepseg/internal/pipeline"
	"github.com/banshee-data/sweepseg/internal/pubsub"
	"github.com/banshee-data/sweepseg/internal/segmenter"
	"github.com/banshee-data/sweepseg/internal/sweep"
	"github.com/banshee-data/sweepseg/internal/sweepdb"
)

var (
	listen    = flag.String("listen", ":8082", "HTTP listen address for the monitor")
	sensorID  = flag.String("sensor-id", "velodyne-01", "sensor identifier stamped on published artifacts")
	model     = flag.String("model", "vlp-16", "sensor model slug (vlp-16, hdl-32e, vls-128, os1-16, os1-64)")
	overrides = flag.String("params", "", "optional JSON params override file")
	dbFile    = flag.String("db", "sweep_stats.db", "path to the sweep stats SQLite file (empty disables recording)")
	useRing   = flag.Bool("use-ring", true, "use the driver ring channel for row lookup")
	synthetic = flag.Bool("synthetic", true, "feed synthetic scenes at 10 Hz (the only ingress wired into this binary)")
	debugLog  = flag.Bool("debug", false, "enable verbose per-sweep debug logging")
)

func main() {
	flag.Parse()

	monitoring.SetLogWriters(monitoring.LogWriters{Ops: os.Stderr, Diag: os.Stderr})
	if *debugLog {
		segmenter.SetDebugLogger(os.Stderr)
	}

	params, ok := segmenter.SensorParamsFor(*model)
	if !ok {
		log.Fatalf("unknown sensor model %q", *model)
	}
	params.UseRing = *useRing
	if *overrides != "" {
		ov, err := segmenter.LoadParamsOverride(*overrides)
		if err != nil {
			log.Fatalf("failed to load params override: %v", err)
		}
		params = ov.Apply(params)
	}

	seg, err := segmenter.New(params)
	if err != nil {
		log.Fatalf("failed to construct segmenter: %v", err)
	}

	bus := pubsub.NewBus()

	ws := monitor.NewWebServer(*sensorID, params, seg.Stats().Snapshot)
	ws.Attach(bus)

	var rec pipeline.Recorder
	if *dbFile != "" {
		db, err := sweepdb.NewSweepDB(*dbFile)
		if err != nil {
			log.Fatalf("failed to open sweep stats db: %v", err)
		}
		defer db.Close()
		rec = db
	}

	runner := pipeline.NewRunner(seg, bus, rec)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{Addr: *listen, Handler: ws.Handler()}
	go func() {
		monitoring.Opsf("monitor listening on %s", *listen)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("monitor server failed: %v", err)
		}
	}()

	if *synthetic {
		go feedSynthetic(ctx, runner, params, *sensorID)
	}

	monitoring.Opsf("segmentation stage started: sensor=%s model=%s grid=%dx%d",
		*sensorID, params.Model, params.NumBeams, params.HorizonBins)

	if err := runner.Run(ctx); err != nil {
		log.Fatalf("segmentation stage failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		monitoring.Opsf("monitor shutdown: %v", err)
	}
}

// feedSynthetic submits a rotating demo scene at sweep rate: a flat floor
// with a pole orbiting the sensor. Keeps every stage and channel exercised
// without hardware.
func feedSynthetic(ctx context.Context, runner *pipeline.Runner, params segmenter.SensorParams, sensorID string) {
	builder := sweep.NewSceneBuilder(sensorID, params.Grid())
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	angle := 0.0
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			angle += 3.0
			if angle >= 180.0 {
				angle -= 360.0
			}
			dist := 5.0 + 2.0*rng.Float64()

			scene := sweep.Merge(builder.FlatFloor(-1.7), builder.VerticalPole(angle, dist))
			scene.Timestamp = t
			runner.Submit(scene)
		}
	}
}
