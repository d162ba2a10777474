package pubsub

import (
	"testing"
	"time"

	"github.com/banshee-data/sweepseg/internal/sweep"
)

func TestBus_CloudDelivery(t *testing.T) {
	bus := NewBus()

	var got []CloudMessage
	bus.SubscribeCloud(SegmentedCloud, func(msg CloudMessage) {
		got = append(got, msg)
	})

	msg := CloudMessage{
		SweepID:   "s-1",
		SensorID:  "test",
		Timestamp: time.Unix(100, 0),
		FrameID:   "base_link",
		Points:    []sweep.Point{{X: 1, Y: 2, Z: 3}},
	}
	bus.PublishCloud(SegmentedCloud, msg)
	bus.PublishCloud(GroundCloud, msg) // no subscriber; must not reach got

	if len(got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(got))
	}
	if got[0].SweepID != "s-1" || got[0].FrameID != "base_link" {
		t.Errorf("message fields lost in delivery: %+v", got[0])
	}
}

func TestBus_SubscriberCount(t *testing.T) {
	bus := NewBus()

	if n := bus.SubscriberCount(FullCloud); n != 0 {
		t.Fatalf("fresh bus reports %d subscribers", n)
	}
	bus.SubscribeCloud(FullCloud, func(CloudMessage) {})
	bus.SubscribeCloud(FullCloud, func(CloudMessage) {})
	if n := bus.SubscriberCount(FullCloud); n != 2 {
		t.Errorf("subscriber count = %d, want 2", n)
	}
	if n := bus.SubscriberCount(GroundCloud); n != 0 {
		t.Errorf("unrelated channel count = %d, want 0", n)
	}
}

func TestBus_DeliveryOrder(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.SubscribeCloud(SegmentedCloud, func(CloudMessage) { order = append(order, "first") })
	bus.SubscribeCloud(SegmentedCloud, func(CloudMessage) { order = append(order, "second") })
	bus.SubscribeInfo(func(InfoMessage) { order = append(order, "info") })

	bus.PublishInfo(InfoMessage{SweepID: "s-1"})
	bus.PublishCloud(SegmentedCloud, CloudMessage{SweepID: "s-1"})

	want := []string{"info", "first", "second"}
	if len(order) != len(want) {
		t.Fatalf("deliveries = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("deliveries = %v, want %v", order, want)
		}
	}
}
