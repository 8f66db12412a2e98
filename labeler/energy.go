package labeler

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/strands-project-releases/semantic-segmentation/classifier"
	"github.com/strands-project-releases/semantic-segmentation/crf"
	"github.com/strands-project-releases/semantic-segmentation/pointcloud"
)

// buildEnergy classifies every admitted voxel and assembles the energy
// model: a C x N unary cost matrix from the negated class log-posteriors,
// a 6 x N appearance feature matrix (scaled position and color) and a
// 3 x N smoothness feature matrix (scaled position only).
//
// Point indexing discipline: voxels are walked in the given order and each
// voxel's member indices in stored order; the j-th point visited owns
// column j of every matrix. decodeLabels must reproduce this walk exactly,
// otherwise points are silently mislabeled.
func buildEnergy(
	voxels []*pointcloud.Voxel,
	cloud pointcloud.PointCloud,
	clf classifier.Classifier,
	n int,
	conf *Config,
) (*crf.Energy, error) {
	classes := clf.Classes()
	energy, err := crf.NewEnergy(classes, n)
	if err != nil {
		return nil, err
	}
	appearance := mat.NewDense(6, n, nil)
	smoothness := mat.NewDense(3, n, nil)

	pointIndex := 0
	for _, v := range voxels {
		logPosterior, err := clf.ClassLogPosterior(v.Features())
		if err != nil {
			return nil, errors.Wrap(err, "classifying voxel")
		}
		for _, idx := range v.Indices {
			p, d := cloud.At(idx)
			for c := 0; c < classes; c++ {
				energy.Unary.Set(c, pointIndex, -logPosterior[c])
			}
			appearance.Set(0, pointIndex, p.X/conf.AppearanceRangeSigma)
			appearance.Set(1, pointIndex, p.Y/conf.AppearanceRangeSigma)
			appearance.Set(2, pointIndex, p.Z/conf.AppearanceRangeSigma)
			var r, g, b uint8
			if d != nil && d.HasColor() {
				r, g, b = d.RGB255()
			}
			appearance.Set(3, pointIndex, float64(r)/conf.AppearanceColorSigma)
			appearance.Set(4, pointIndex, float64(g)/conf.AppearanceColorSigma)
			appearance.Set(5, pointIndex, float64(b)/conf.AppearanceColorSigma)
			smoothness.Set(0, pointIndex, p.X/conf.SmoothnessRangeSigma)
			smoothness.Set(1, pointIndex, p.Y/conf.SmoothnessRangeSigma)
			smoothness.Set(2, pointIndex, p.Z/conf.SmoothnessRangeSigma)
			pointIndex++
		}
	}
	if pointIndex != n {
		return nil, errors.Errorf("energy builder wrote %d columns for %d admitted points", pointIndex, n)
	}

	if err := energy.AddPairwise(appearance, crf.PottsCompatibility{Weight: conf.AppearanceWeight}); err != nil {
		return nil, err
	}
	if err := energy.AddPairwise(smoothness, crf.PottsCompatibility{Weight: conf.SmoothnessWeight}); err != nil {
		return nil, err
	}
	return energy, nil
}
