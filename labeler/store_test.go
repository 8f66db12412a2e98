package labeler

import (
	"image/color"
	"testing"

	"go.viam.com/test"

	"github.com/strands-project-releases/semantic-segmentation/pointcloud"
)

func observationOfSize(size int) Observation {
	pc := pointcloud.New()
	for i := 0; i < size; i++ {
		pc.Append(
			pointcloud.NewVector(float64(i), 0, 0),
			pointcloud.NewColoredData(color.NRGBA{R: 255, A: 255}),
		)
	}
	return Observation{Cloud: pc, FrameID: "map"}
}

func TestWaypointStore(t *testing.T) {
	store := NewWaypointStore()
	test.That(t, store.Len(), test.ShouldEqual, 0)

	store.Put("wp1", observationOfSize(3))
	store.Put("wp2", observationOfSize(5))
	test.That(t, store.Len(), test.ShouldEqual, 2)

	// replace wholesale
	store.Put("wp1", observationOfSize(7))
	test.That(t, store.Len(), test.ShouldEqual, 2)
	test.That(t, store.Snapshot()["wp1"].Cloud.Size(), test.ShouldEqual, 7)

	// snapshots are copies of the map, not views
	snapshot := store.Snapshot()
	store.Put("wp3", observationOfSize(1))
	test.That(t, len(snapshot), test.ShouldEqual, 2)
	test.That(t, store.Len(), test.ShouldEqual, 3)
}

func TestBroadcastLatch(t *testing.T) {
	b := NewBroadcast()
	_, ok := b.Latest()
	test.That(t, ok, test.ShouldBeFalse)

	early := b.Subscribe()
	select {
	case <-early:
		t.Fatal("no publication yet")
	default:
	}

	first := FusedMap{Cloud: observationOfSize(3).Cloud, FrameID: "map"}
	b.Publish(first)

	got := <-early
	test.That(t, got.Cloud.Size(), test.ShouldEqual, 3)
	test.That(t, got.FrameID, test.ShouldEqual, "map")

	latest, ok := b.Latest()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, latest.Cloud.Size(), test.ShouldEqual, 3)

	// a late subscriber gets the latched value without a new publication
	late := b.Subscribe()
	got = <-late
	test.That(t, got.Cloud.Size(), test.ShouldEqual, 3)
}

func TestBroadcastReplacesUnconsumed(t *testing.T) {
	b := NewBroadcast()
	sub := b.Subscribe()

	b.Publish(FusedMap{Cloud: observationOfSize(1).Cloud, FrameID: "map"})
	b.Publish(FusedMap{Cloud: observationOfSize(2).Cloud, FrameID: "map"})
	b.Publish(FusedMap{Cloud: observationOfSize(3).Cloud, FrameID: "map"})

	// only the newest value is pending for the slow subscriber
	got := <-sub
	test.That(t, got.Cloud.Size(), test.ShouldEqual, 3)
	select {
	case <-sub:
		t.Fatal("stale publications should have been replaced")
	default:
	}
}
