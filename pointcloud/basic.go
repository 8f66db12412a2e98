// Package pointcloud defines a colored point cloud and the voxel partition
// used to group it into spatially coherent units for labeling.
//
// Unlike a position-keyed cloud, this implementation is index addressed:
// voxels refer to their member points by integer index, and that indexing
// must stay stable from partitioning through label decoding.
package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PointAndData is a position paired with its per-point data.
type PointAndData struct {
	P r3.Vector
	D Data
}

// PointCloud is a container of colored points addressed by a compact
// integer index in [0, Size).
type PointCloud interface {
	// Size returns the number of points in the cloud.
	Size() int

	// At returns the point at the given index. Indices out of range panic,
	// as with a slice.
	At(i int) (r3.Vector, Data)

	// Append adds a point to the end of the cloud.
	Append(p r3.Vector, d Data)

	// Iterate calls the given function for each point, in index order. If
	// the function returns false, iteration stops.
	Iterate(fn func(i int, p r3.Vector, d Data) bool)
}

// basicPointCloud is the basic implementation of the PointCloud interface
// backed by a slice of points in insertion order.
type basicPointCloud struct {
	points []PointAndData
}

// New returns an empty PointCloud backed by a basicPointCloud.
func New() PointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty, preallocated PointCloud backed by a basicPointCloud.
func NewWithPrealloc(size int) PointCloud {
	return &basicPointCloud{points: make([]PointAndData, 0, size)}
}

func (cloud *basicPointCloud) Size() int {
	return len(cloud.points)
}

func (cloud *basicPointCloud) At(i int) (r3.Vector, Data) {
	pd := cloud.points[i]
	return pd.P, pd.D
}

func (cloud *basicPointCloud) Append(p r3.Vector, d Data) {
	cloud.points = append(cloud.points, PointAndData{P: p, D: d})
}

func (cloud *basicPointCloud) Iterate(fn func(i int, p r3.Vector, d Data) bool) {
	for i, pd := range cloud.points {
		if !fn(i, pd.P, pd.D) {
			return
		}
	}
}

// Clone returns a deep copy of the cloud; point data is cloned so the copy
// can be recolored without touching the original.
func Clone(cloud PointCloud) PointCloud {
	out := NewWithPrealloc(cloud.Size())
	cloud.Iterate(func(i int, p r3.Vector, d Data) bool {
		if d == nil {
			out.Append(p, nil)
		} else {
			out.Append(p, d.Clone())
		}
		return true
	})
	return out
}

// MergeClouds concatenates the given clouds into one, preserving the order
// of the input slice and of the points within each cloud.
func MergeClouds(clouds []PointCloud) PointCloud {
	size := 0
	for _, c := range clouds {
		size += c.Size()
	}
	merged := NewWithPrealloc(size)
	for _, c := range clouds {
		c.Iterate(func(i int, p r3.Vector, d Data) bool {
			merged.Append(p, d)
			return true
		})
	}
	return merged
}

// VerifyColored returns an error if any point in the cloud lacks color data.
func VerifyColored(cloud PointCloud) error {
	var err error
	cloud.Iterate(func(i int, p r3.Vector, d Data) bool {
		if d == nil || !d.HasColor() {
			err = errors.Errorf("point %d has no color data", i)
			return false
		}
		return true
	})
	return err
}
