package labeler

import (
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/strands-project-releases/semantic-segmentation/pointcloud"
	"github.com/strands-project-releases/semantic-segmentation/semantic"
)

// Result is the outcome of one successful labeling request.
type Result struct {
	// Labels holds the argmax class id per retained point.
	Labels []int

	// Probabilities is the flattened row-major N x C marginal matrix.
	Probabilities []float64

	// Frequencies is the mean marginal probability per class across all N
	// points. It is an expectation under the posterior, not the fraction of
	// points whose argmax equals the class; callers wanting a hard-label
	// histogram must compute it from Labels.
	Frequencies []float64

	// Points are the true 3D positions, index-aligned with Labels.
	Points []r3.Vector

	// ClassNames is ordered by class id.
	ClassNames []string

	// FrameID is the coordinate frame of the source cloud.
	FrameID string
}

// decodeLabels converts the N x C marginal matrix into per-point labels and
// statistics, walking voxels and member indices in exactly the order
// buildEnergy used. It also recolors the voxelized cloud: every point is
// first blacked out, then each retained point gets its class display color
// and the class id as its point value. Returns the result without FrameID,
// which the pipeline fills in.
func decodeLabels(
	marginals *mat.Dense,
	voxels []*pointcloud.Voxel,
	cloud pointcloud.PointCloud,
	classes *semantic.ClassSet,
	n int,
) (*Result, error) {
	c := classes.Count()
	res := &Result{
		Labels:        make([]int, n),
		Probabilities: make([]float64, n*c),
		Frequencies:   make([]float64, c),
		Points:        make([]r3.Vector, n),
		ClassNames:    classes.Names(),
	}

	// Filtered-out points stay black in the cached cloud.
	black := color.NRGBA{A: 255}
	cloud.Iterate(func(i int, p r3.Vector, d pointcloud.Data) bool {
		if d != nil {
			d.SetColor(black)
		}
		return true
	})

	if n == 0 {
		return res, nil
	}
	if rows, cols := marginals.Dims(); rows != n || cols != c {
		return nil, errors.Errorf("marginal matrix is %dx%d, want %dx%d", rows, cols, n, c)
	}

	pointIndex := 0
	for _, v := range voxels {
		for _, idx := range v.Indices {
			// Ties resolve to the lowest class id: strict > while scanning
			// ids upward.
			maxLabel := 0
			maxProb := marginals.At(pointIndex, 0)
			for cl := 1; cl < c; cl++ {
				if p := marginals.At(pointIndex, cl); p > maxProb {
					maxProb = p
					maxLabel = cl
				}
			}
			res.Labels[pointIndex] = maxLabel

			probIdx := c * pointIndex
			for cl := 0; cl < c; cl++ {
				m := marginals.At(pointIndex, cl)
				res.Probabilities[probIdx+cl] = m
				res.Frequencies[cl] += m
			}

			displayColor, err := classes.Color(maxLabel)
			if err != nil {
				return nil, err
			}
			p, d := cloud.At(idx)
			if d != nil {
				d.SetColor(displayColor)
				d.SetValue(maxLabel)
			}
			res.Points[pointIndex] = p
			pointIndex++
		}
	}
	if pointIndex != n {
		return nil, errors.Errorf("label decoder visited %d points, expected %d", pointIndex, n)
	}

	for cl := 0; cl < c; cl++ {
		res.Frequencies[cl] /= float64(n)
	}
	return res, nil
}
