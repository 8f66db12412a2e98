package labeler

import (
	"sync"

	"github.com/strands-project-releases/semantic-segmentation/pointcloud"
)

// Observation is the most recent labeled, colored cloud for one waypoint,
// tagged with the coordinate frame it was observed in. Entries are replaced
// wholesale; a stored observation is never partially updated.
type Observation struct {
	Cloud   pointcloud.PointCloud
	FrameID string
}

// WaypointStore caches the latest Observation per waypoint for the lifetime
// of the process. Writes happen only after a labeling run fully succeeds,
// so a failed request leaves the store untouched.
type WaypointStore struct {
	mu           sync.RWMutex
	observations map[string]Observation
}

// NewWaypointStore returns an empty store.
func NewWaypointStore() *WaypointStore {
	return &WaypointStore{observations: make(map[string]Observation)}
}

// Put unconditionally replaces the entry for the waypoint.
func (s *WaypointStore) Put(waypointID string, obs Observation) {
	s.mu.Lock()
	s.observations[waypointID] = obs
	s.mu.Unlock()
}

// Snapshot returns a copy of the current entries.
func (s *WaypointStore) Snapshot() map[string]Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[string]Observation, len(s.observations))
	for k, v := range s.observations {
		snapshot[k] = v
	}
	return snapshot
}

// Len returns the number of cached waypoints.
func (s *WaypointStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observations)
}
