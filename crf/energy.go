// Package crf holds the energy model for pairwise probabilistic label
// smoothing and a mean-field solver over it.
package crf

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// A Compatibility scores the cost of assigning two coupled points different
// labels. Potts is the only compatibility the pipeline uses, but the term
// keeps it explicit so the solver contract matches what it is given.
type Compatibility interface {
	// Penalty returns the cost incurred when coupled points take labels a
	// and b respectively.
	Penalty(a, b int) float64
}

// PottsCompatibility penalizes any label mismatch by a uniform weight and
// label agreement not at all.
type PottsCompatibility struct {
	Weight float64
}

// Penalty implements Compatibility.
func (p PottsCompatibility) Penalty(a, b int) float64 {
	if a == b {
		return 0
	}
	return p.Weight
}

// PairwiseTerm couples points through a Gaussian kernel in feature space.
// Features is d x N: one column per point, aligned with the unary columns.
type PairwiseTerm struct {
	Features *mat.Dense
	Compat   Compatibility
}

// Energy is the full model handed to a Solver: a C x N unary cost matrix
// plus any number of pairwise terms. Column j of every matrix refers to the
// same point, for all j.
type Energy struct {
	Unary    *mat.Dense
	Pairwise []PairwiseTerm
}

// NewEnergy allocates an energy model for classes x points. points must be
// at least 1; the degenerate empty case is handled before an energy model
// is ever built.
func NewEnergy(classes, points int) (*Energy, error) {
	if classes < 1 || points < 1 {
		return nil, errors.Errorf("energy model needs classes >= 1 and points >= 1, got %d x %d", classes, points)
	}
	return &Energy{Unary: mat.NewDense(classes, points, nil)}, nil
}

// AddPairwise appends a pairwise term. The feature matrix must have one
// column per point.
func (e *Energy) AddPairwise(features *mat.Dense, compat Compatibility) error {
	_, n := e.Unary.Dims()
	_, fn := features.Dims()
	if fn != n {
		return errors.Errorf("pairwise features have %d columns, unary has %d", fn, n)
	}
	e.Pairwise = append(e.Pairwise, PairwiseTerm{Features: features, Compat: compat})
	return nil
}

// Dims returns (classes, points).
func (e *Energy) Dims() (int, int) {
	return e.Unary.Dims()
}
