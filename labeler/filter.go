package labeler

import (
	"github.com/strands-project-releases/semantic-segmentation/pointcloud"
)

// admitVoxels drops voxels below the minimum member count and computes
// features for the survivors only. Points of dropped voxels are excluded
// from this request's output entirely; they are not merged or reassigned.
// The survivors keep their input order and N is the sum of their sizes,
// which may be zero.
func admitVoxels(voxels []*pointcloud.Voxel, cloud pointcloud.PointCloud, minimumPoints int) ([]*pointcloud.Voxel, int) {
	admitted := make([]*pointcloud.Voxel, 0, len(voxels))
	n := 0
	for _, v := range voxels {
		if v.Size() < minimumPoints {
			continue
		}
		v.ComputeFeatures(cloud)
		admitted = append(admitted, v)
		n += v.Size()
	}
	return admitted, n
}
