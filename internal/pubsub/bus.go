// Package pubsub is the in-process publication boundary between the
// segmentation stage and its consumers (feature extraction, visualisation,
// recording). Channels are named after what they carry; delivery is
// synchronous and ordered, so everything published for one sweep is seen
// before anything from the next.
package pubsub

import (
	"sync"
	"time"

	"github.com/banshee-data/sweepseg/internal/segmenter"
	"github.com/banshee-data/sweepseg/internal/sweep"
)

// Channel names one published artifact.
type Channel string

// The stage's output channels.
const (
	FullCloud          Channel = "full_cloud_projected"
	FullCloudInfo      Channel = "full_cloud_info"
	GroundCloud        Channel = "ground_cloud"
	SegmentedCloud     Channel = "segmented_cloud"
	SegmentedCloudPure Channel = "segmented_cloud_pure"
	SegmentedCloudInfo Channel = "segmented_cloud_info"
	OutlierCloud       Channel = "outlier_cloud"
)

// CloudMessage is one published point cloud. Points aliases the stage's
// reusable buffers and is only valid for the duration of the subscriber
// callback; subscribers that retain it must copy.
type CloudMessage struct {
	SweepID   string
	SensorID  string
	Timestamp time.Time
	FrameID   string
	Points    []sweep.Point
}

// InfoMessage is the published per-sweep metadata record. The same aliasing
// caveat as CloudMessage applies to the SegInfo arrays.
type InfoMessage struct {
	SweepID   string
	SensorID  string
	Timestamp time.Time
	FrameID   string
	Info      segmenter.SegInfo
}

// Bus fans published messages out to the subscribers of each channel.
// Subscription is expected at wiring time; publishing happens on the
// stage's single processing goroutine.
type Bus struct {
	mu        sync.RWMutex
	cloudSubs map[Channel][]func(CloudMessage)
	infoSubs  []func(InfoMessage)
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{cloudSubs: make(map[Channel][]func(CloudMessage))}
}

// SubscribeCloud registers a callback for a point-cloud channel.
func (b *Bus) SubscribeCloud(ch Channel, fn func(CloudMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cloudSubs[ch] = append(b.cloudSubs[ch], fn)
}

// SubscribeInfo registers a callback for the metadata channel.
func (b *Bus) SubscribeInfo(fn func(InfoMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.infoSubs = append(b.infoSubs, fn)
}

// SubscriberCount reports how many callbacks listen on a cloud channel.
// Publishers use it to elide building messages nobody consumes.
func (b *Bus) SubscriberCount(ch Channel) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.cloudSubs[ch])
}

// PublishCloud delivers a cloud message synchronously to every subscriber
// of the channel, in subscription order.
func (b *Bus) PublishCloud(ch Channel, msg CloudMessage) {
	b.mu.RLock()
	subs := b.cloudSubs[ch]
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(msg)
	}
}

// PublishInfo delivers the metadata record to every info subscriber.
func (b *Bus) PublishInfo(msg InfoMessage) {
	b.mu.RLock()
	subs := b.infoSubs
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(msg)
	}
}
