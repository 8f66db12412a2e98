package labeler

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/strands-project-releases/semantic-segmentation/pointcloud"
)

// FusedMap is one emission of the fused cloud: the union of every cached
// waypoint observation, in the frame of the most recently processed
// request.
type FusedMap struct {
	Cloud   pointcloud.PointCloud
	FrameID string
}

// Broadcast is a latched publisher of fused maps. Publications are
// serialized and never partial; late subscribers immediately receive the
// most recent value.
type Broadcast struct {
	mu   sync.Mutex
	last atomic.Pointer[FusedMap]
	subs []chan FusedMap
}

// NewBroadcast returns an empty broadcast.
func NewBroadcast() *Broadcast {
	return &Broadcast{}
}

// Publish latches the map and delivers it to every subscriber, replacing
// any value a slow subscriber has not consumed yet.
func (b *Broadcast) Publish(m FusedMap) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last.Store(&m)
	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- m
	}
}

// Latest returns the most recently published map, if any.
func (b *Broadcast) Latest() (FusedMap, bool) {
	if m := b.last.Load(); m != nil {
		return *m, true
	}
	return FusedMap{}, false
}

// Subscribe registers a subscriber channel of capacity one. If a map has
// already been published, it is delivered immediately.
func (b *Broadcast) Subscribe() <-chan FusedMap {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan FusedMap, 1)
	if m := b.last.Load(); m != nil {
		ch <- *m
	}
	b.subs = append(b.subs, ch)
	return ch
}
