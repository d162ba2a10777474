// Package pipeline is the composition root for the segmentation stage: it
// connects the sweep ingress, the segmenter, the publication bus and the
// optional recorder. It owns no domain logic.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/banshee-data/sweepseg/internal/monitoring"
	"github.com/banshee-data/sweepseg/internal/pubsub"
	"github.com/banshee-data/sweepseg/internal/segmenter"
	"github.com/banshee-data/sweepseg/internal/sweep"
)

// Recorder persists per-sweep results. Implemented by sweepdb.
type Recorder interface {
	RecordSweep(sweepID string, res *segmenter.Result) error
}

// Runner drives the segmenter from an ingress mailbox and publishes each
// result on the bus. The mailbox holds a single sweep: when processing
// falls behind the arrival rate the stale sweep is dropped and the newest
// kept. The odometry has no use for old data.
type Runner struct {
	seg *segmenter.Segmenter
	bus *pubsub.Bus
	rec Recorder

	mailbox chan *sweep.Sweep
	dropped atomic.Int64
}

// NewRunner wires a Runner. bus may not be nil; rec may be.
func NewRunner(seg *segmenter.Segmenter, bus *pubsub.Bus, rec Recorder) *Runner {
	return &Runner{
		seg:     seg,
		bus:     bus,
		rec:     rec,
		mailbox: make(chan *sweep.Sweep, 1),
	}
}

// Submit hands a sweep to the runner without blocking. If the mailbox is
// occupied the waiting sweep is discarded in favour of this one.
func (r *Runner) Submit(sw *sweep.Sweep) {
	for {
		select {
		case r.mailbox <- sw:
			return
		default:
		}
		select {
		case <-r.mailbox:
			r.dropped.Add(1)
		default:
		}
	}
}

// DroppedSweeps reports how many sweeps the ingress discarded.
func (r *Runner) DroppedSweeps() int64 {
	return r.dropped.Load()
}

// Run processes sweeps until ctx is cancelled. The in-flight sweep always
// completes; cancellation is only observed between sweeps. A processing
// error is the fatal configuration class and terminates the run.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			monitoring.Opsf("runner stopped: %v (dropped %d sweeps)", ctx.Err(), r.dropped.Load())
			return nil
		case sw := <-r.mailbox:
			res, err := r.seg.ProcessSweep(sw)
			if err != nil {
				return fmt.Errorf("sweep processing failed: %w", err)
			}
			r.publish(res)
		}
	}
}

// publish emits the sweep's artifacts on the bus. The metadata record, the
// segmented cloud and the outlier cloud always go out; the four
// visualisation clouds are elided when nobody listens.
func (r *Runner) publish(res *segmenter.Result) {
	sweepID := uuid.NewString()

	r.bus.PublishInfo(pubsub.InfoMessage{
		SweepID:   sweepID,
		SensorID:  res.SensorID,
		Timestamp: res.Timestamp,
		FrameID:   res.FrameID,
		Info:      res.Info,
	})

	cloud := func(points []sweep.Point) pubsub.CloudMessage {
		return pubsub.CloudMessage{
			SweepID:   sweepID,
			SensorID:  res.SensorID,
			Timestamp: res.Timestamp,
			FrameID:   res.FrameID,
			Points:    points,
		}
	}

	r.bus.PublishCloud(pubsub.OutlierCloud, cloud(res.OutlierCloud))
	r.bus.PublishCloud(pubsub.SegmentedCloud, cloud(res.SegmentedCloud))

	if r.bus.SubscriberCount(pubsub.FullCloud) > 0 {
		r.bus.PublishCloud(pubsub.FullCloud, cloud(res.FullCloud))
	}
	if r.bus.SubscriberCount(pubsub.GroundCloud) > 0 {
		r.bus.PublishCloud(pubsub.GroundCloud, cloud(res.GroundCloud))
	}
	if r.bus.SubscriberCount(pubsub.SegmentedCloudPure) > 0 {
		r.bus.PublishCloud(pubsub.SegmentedCloudPure, cloud(res.SegmentedCloudPure))
	}
	if r.bus.SubscriberCount(pubsub.FullCloudInfo) > 0 {
		r.bus.PublishCloud(pubsub.FullCloudInfo, cloud(res.FullInfoCloud))
	}

	if r.rec != nil {
		if err := r.rec.RecordSweep(sweepID, res); err != nil {
			monitoring.Opsf("failed to record sweep %s: %v", sweepID, err)
		}
	}

	monitoring.Tracef("published sweep %s: emitted=%d segments=%d outliers=%d",
		sweepID, res.Metrics.SegmentedPoints, res.Metrics.AcceptedSegments, res.Metrics.OutlierPoints)
}
