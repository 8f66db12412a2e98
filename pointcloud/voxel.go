package pointcloud

import (
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat"
)

// A Voxel represents a value on a regular grid in three-dimensional space.
// Here it is a spatially coherent cluster of points treated as one
// classification unit: it owns the indices of its member points within the
// voxelized cloud it was built from, in stored order.

// VoxelCoords stores voxel coordinates in VoxelGrid axes.
type VoxelCoords struct {
	I, J, K int64
}

// IsEqual tests if two VoxelCoords are the same.
func (c VoxelCoords) IsEqual(c2 VoxelCoords) bool {
	return c.I == c2.I && c.J == c2.J && c.K == c2.K
}

// less orders coordinates lexicographically; it fixes the voxel iteration
// order everywhere downstream.
func (c VoxelCoords) less(c2 VoxelCoords) bool {
	if c.I != c2.I {
		return c.I < c2.I
	}
	if c.J != c2.J {
		return c.J < c2.J
	}
	return c.K < c2.K
}

// Voxel is a cluster of points from one cell of a voxel grid.
type Voxel struct {
	Key     VoxelCoords
	Indices []int

	features []float64
}

// NewVoxel creates a pointer to a Voxel struct.
func NewVoxel(coords VoxelCoords) *Voxel {
	return &Voxel{Key: coords, Indices: make([]int, 0)}
}

// Size returns the number of member points.
func (v *Voxel) Size() int {
	return len(v.Indices)
}

// Features returns the feature vector computed by ComputeFeatures, or nil if
// it has not been computed yet.
func (v *Voxel) Features() []float64 {
	return v.features
}

// FeatureDim is the length of a voxel feature vector: position mean and
// spread, color mean and spread.
const FeatureDim = 12

// ComputeFeatures computes the voxel's feature vector from its member points
// in the given cloud: centroid (3), positional standard deviation (3), mean
// color (3) and color standard deviation (3). The cloud is expected to carry
// normalized (Lab) colors.
func (v *Voxel) ComputeFeatures(cloud PointCloud) {
	n := len(v.Indices)
	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	ls := make([]float64, n)
	as := make([]float64, n)
	bs := make([]float64, n)
	for i, idx := range v.Indices {
		p, d := cloud.At(idx)
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
		if d != nil && d.HasColor() {
			cl, ca, cb := d.RGB255()
			ls[i], as[i], bs[i] = float64(cl), float64(ca), float64(cb)
		}
	}
	features := make([]float64, 0, FeatureDim)
	for _, component := range [][]float64{xs, ys, zs} {
		features = append(features, stat.Mean(component, nil))
	}
	for _, component := range [][]float64{xs, ys, zs} {
		features = append(features, stat.PopStdDev(component, nil))
	}
	for _, component := range [][]float64{ls, as, bs} {
		features = append(features, stat.Mean(component, nil))
	}
	for _, component := range [][]float64{ls, as, bs} {
		features = append(features, stat.PopStdDev(component, nil))
	}
	v.features = features
}

// VoxelGrid contains the sparse grid of voxels of a point cloud.
type VoxelGrid struct {
	Voxels    map[VoxelCoords]*Voxel
	voxelSize float64
}

// GetVoxelCoordinates computes the voxel coordinates of a point given the
// minimum corner of the cloud and the voxel size.
func GetVoxelCoordinates(pt, ptMin r3.Vector, voxelSize float64) VoxelCoords {
	return VoxelCoords{
		I: int64((pt.X - ptMin.X) / voxelSize),
		J: int64((pt.Y - ptMin.Y) / voxelSize),
		K: int64((pt.Z - ptMin.Z) / voxelSize),
	}
}

// NewVoxelGridFromPointCloud creates and fills a VoxelGrid from a point
// cloud. Each point is assigned to exactly one voxel; voxels store member
// point indices in cloud order.
func NewVoxelGridFromPointCloud(pc PointCloud, voxelSize float64) *VoxelGrid {
	grid := &VoxelGrid{
		Voxels:    make(map[VoxelCoords]*Voxel),
		voxelSize: voxelSize,
	}
	if pc.Size() == 0 {
		return grid
	}
	ptMin := minCorner(pc)
	pc.Iterate(func(i int, p r3.Vector, d Data) bool {
		coords := GetVoxelCoordinates(p, ptMin, voxelSize)
		vox, ok := grid.Voxels[coords]
		if !ok {
			vox = NewVoxel(coords)
			grid.Voxels[coords] = vox
		}
		vox.Indices = append(vox.Indices, i)
		return true
	})
	return grid
}

// SortedVoxels returns the voxels in ascending key order. This is the one
// fixed iteration order shared by energy construction and label decoding.
func (vg *VoxelGrid) SortedVoxels() []*Voxel {
	voxels := make([]*Voxel, 0, len(vg.Voxels))
	for _, vox := range vg.Voxels {
		voxels = append(voxels, vox)
	}
	sort.Slice(voxels, func(i, j int) bool {
		return voxels[i].Key.less(voxels[j].Key)
	})
	return voxels
}

func minCorner(pc PointCloud) r3.Vector {
	first, _ := pc.At(0)
	min := first
	pc.Iterate(func(i int, p r3.Vector, d Data) bool {
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.Z < min.Z {
			min.Z = p.Z
		}
		return true
	})
	return min
}
