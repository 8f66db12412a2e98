package labeler

import (
	"context"

	"github.com/strands-project-releases/semantic-segmentation/pointcloud"
)

// A Partitioner groups a cloud into supervoxels. It returns the voxels in
// the fixed iteration order every later stage reuses, plus the voxelized
// cloud the voxels' member indices point into.
type Partitioner interface {
	Partition(ctx context.Context, cloud pointcloud.PointCloud) ([]*pointcloud.Voxel, pointcloud.PointCloud, error)
}

// GridPartitioner segments a cloud with a regular voxel grid. The voxelized
// cloud is an owned copy of the input, so later recoloring never touches
// the source cloud.
type GridPartitioner struct {
	VoxelSize float64
}

// Partition implements Partitioner.
func (g GridPartitioner) Partition(ctx context.Context, cloud pointcloud.PointCloud) ([]*pointcloud.Voxel, pointcloud.PointCloud, error) {
	voxelized := pointcloud.Clone(cloud)
	grid := pointcloud.NewVoxelGridFromPointCloud(voxelized, g.VoxelSize)
	return grid.SortedVoxels(), voxelized, nil
}
