package crf

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// A Solver consumes an energy model and produces, after a fixed iteration
// budget, an N x C marginal probability matrix: one distribution over
// classes per point. The iteration count is a cost/accuracy budget, not a
// convergence check; identical inputs and budget produce identical output.
type Solver interface {
	Infer(e *Energy, iterations int) (*mat.Dense, error)
}

// MeanField runs mean-field inference with dense Gaussian message passing.
// Messages are computed brute force over all point pairs, which is fine at
// supervoxel-filtered cloud sizes.
type MeanField struct{}

// NewMeanField returns a mean-field solver.
func NewMeanField() *MeanField {
	return &MeanField{}
}

// Infer implements Solver.
func (mf *MeanField) Infer(e *Energy, iterations int) (*mat.Dense, error) {
	if iterations < 0 {
		return nil, errors.Errorf("iteration budget must be non-negative, got %d", iterations)
	}
	classes, points := e.Dims()

	// Q starts as the per-point softmax of the negated unary costs.
	q := mat.NewDense(points, classes, nil)
	logits := make([]float64, classes)
	for i := 0; i < points; i++ {
		for c := 0; c < classes; c++ {
			logits[c] = -e.Unary.At(c, i)
		}
		softmax(logits)
		q.SetRow(i, logits)
	}

	kernels := make([]*mat.Dense, len(e.Pairwise))
	penalties := make([]*mat.Dense, len(e.Pairwise))
	for t, term := range e.Pairwise {
		kernels[t] = gaussianKernel(term.Features)
		penalties[t] = penaltyMatrix(term.Compat, classes)
	}

	var neighbor, cost mat.Dense
	next := mat.NewDense(points, classes, nil)
	for it := 0; it < iterations; it++ {
		for i := 0; i < points; i++ {
			for c := 0; c < classes; c++ {
				next.Set(i, c, -e.Unary.At(c, i))
			}
		}
		for t := range e.Pairwise {
			// neighbor[i][l'] aggregates Q over all other points, weighted
			// by the Gaussian kernel; the compatibility turns it into a
			// per-label cost.
			neighbor.Mul(kernels[t], q)
			cost.Mul(&neighbor, penalties[t].T())
			next.Sub(next, &cost)
		}
		for i := 0; i < points; i++ {
			row := next.RawRowView(i)
			copy(logits, row)
			softmax(logits)
			q.SetRow(i, logits)
		}
	}
	return q, nil
}

// gaussianKernel builds the N x N coupling matrix from d x N features:
// k(i,j) = exp(-||f_i - f_j||^2 / 2) with a zero diagonal so points do not
// message themselves.
func gaussianKernel(features *mat.Dense) *mat.Dense {
	d, n := features.Dims()
	k := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist2 := 0.0
			for f := 0; f < d; f++ {
				diff := features.At(f, i) - features.At(f, j)
				dist2 += diff * diff
			}
			v := math.Exp(-0.5 * dist2)
			k.Set(i, j, v)
			k.Set(j, i, v)
		}
	}
	return k
}

func penaltyMatrix(compat Compatibility, classes int) *mat.Dense {
	p := mat.NewDense(classes, classes, nil)
	for a := 0; a < classes; a++ {
		for b := 0; b < classes; b++ {
			p.Set(a, b, compat.Penalty(a, b))
		}
	}
	return p
}

// softmax normalizes logits in place into a probability distribution.
func softmax(logits []float64) {
	max := floats.Max(logits)
	sum := 0.0
	for i, v := range logits {
		logits[i] = math.Exp(v - max)
		sum += logits[i]
	}
	floats.Scale(1/sum, logits)
}
