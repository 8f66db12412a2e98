// Package classifier provides per-voxel semantic classification. The
// labeling pipeline only depends on the narrow Classifier contract; the
// default implementation is a pretrained random forest read from a model
// file.
package classifier

import "github.com/pkg/errors"

// A Classifier maps a voxel feature vector to a class log-posterior vector
// of fixed length. Implementations must be safe for concurrent use after
// construction and deterministic for a given input.
type Classifier interface {
	// Classes returns the number of classes C in the posterior.
	Classes() int

	// ClassLogPosterior returns the per-class log posterior for a feature
	// vector. The returned slice has length Classes().
	ClassLogPosterior(feature []float64) ([]float64, error)
}

// ErrModelLoad wraps failures to read a classifier model at startup. The
// process must not begin serving when it is returned.
var ErrModelLoad = errors.New("could not load the classifier model")
