package crf

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestPottsCompatibility(t *testing.T) {
	potts := PottsCompatibility{Weight: 2.5}
	test.That(t, potts.Penalty(1, 1), test.ShouldEqual, 0)
	test.That(t, potts.Penalty(0, 1), test.ShouldEqual, 2.5)
	test.That(t, potts.Penalty(1, 0), test.ShouldEqual, 2.5)
}

func TestNewEnergy(t *testing.T) {
	_, err := NewEnergy(3, 0)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewEnergy(0, 5)
	test.That(t, err, test.ShouldNotBeNil)

	e, err := NewEnergy(3, 5)
	test.That(t, err, test.ShouldBeNil)
	c, n := e.Dims()
	test.That(t, c, test.ShouldEqual, 3)
	test.That(t, n, test.ShouldEqual, 5)

	err = e.AddPairwise(mat.NewDense(6, 4, nil), PottsCompatibility{Weight: 1})
	test.That(t, err, test.ShouldNotBeNil)
	err = e.AddPairwise(mat.NewDense(6, 5, nil), PottsCompatibility{Weight: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e.Pairwise, test.ShouldHaveLength, 1)
}

func marginalRowSums(q *mat.Dense) []float64 {
	rows, cols := q.Dims()
	sums := make([]float64, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sums[i] += q.At(i, j)
		}
	}
	return sums
}

func TestMeanFieldUnaryOnly(t *testing.T) {
	// one confident point, no pairwise coupling: marginals follow the unary
	e, err := NewEnergy(2, 1)
	test.That(t, err, test.ShouldBeNil)
	e.Unary.Set(0, 0, 0)
	e.Unary.Set(1, 0, 10)

	q, err := NewMeanField().Infer(e, 3)
	test.That(t, err, test.ShouldBeNil)
	rows, cols := q.Dims()
	test.That(t, rows, test.ShouldEqual, 1)
	test.That(t, cols, test.ShouldEqual, 2)
	test.That(t, q.At(0, 0), test.ShouldBeGreaterThan, 0.99)
	test.That(t, marginalRowSums(q)[0], test.ShouldAlmostEqual, 1, 1e-9)
}

func TestMeanFieldSmoothing(t *testing.T) {
	// three points close in feature space; two confidently class 1, one
	// leaning class 0. The Potts coupling should flip the outlier.
	e, err := NewEnergy(2, 3)
	test.That(t, err, test.ShouldBeNil)
	for _, i := range []int{0, 1} {
		e.Unary.Set(0, i, 5)
		e.Unary.Set(1, i, 0)
	}
	e.Unary.Set(0, 2, 0.4)
	e.Unary.Set(1, 2, 0.6)

	features := mat.NewDense(3, 3, []float64{
		0, 0.1, 0.2,
		0, 0, 0,
		0, 0, 0,
	})
	test.That(t, e.AddPairwise(features, PottsCompatibility{Weight: 3}), test.ShouldBeNil)

	q, err := NewMeanField().Infer(e, 10)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, q.At(2, 1), test.ShouldBeGreaterThan, q.At(2, 0))
	for _, sum := range marginalRowSums(q) {
		test.That(t, sum, test.ShouldAlmostEqual, 1, 1e-9)
	}
}

func TestMeanFieldZeroIterationsIsUnarySoftmax(t *testing.T) {
	e, err := NewEnergy(2, 2)
	test.That(t, err, test.ShouldBeNil)
	e.Unary.Set(0, 0, 1)
	e.Unary.Set(1, 0, 2)
	e.Unary.Set(0, 1, 3)
	e.Unary.Set(1, 1, 3)

	q, err := NewMeanField().Infer(e, 0)
	test.That(t, err, test.ShouldBeNil)

	z := math.Exp(-1) + math.Exp(-2)
	test.That(t, q.At(0, 0), test.ShouldAlmostEqual, math.Exp(-1)/z, 1e-9)
	test.That(t, q.At(0, 1), test.ShouldAlmostEqual, math.Exp(-2)/z, 1e-9)
	// equal unary costs stay an even split
	test.That(t, q.At(1, 0), test.ShouldAlmostEqual, 0.5, 1e-9)
	test.That(t, q.At(1, 1), test.ShouldAlmostEqual, 0.5, 1e-9)
}

func TestMeanFieldDeterminism(t *testing.T) {
	e, err := NewEnergy(3, 4)
	test.That(t, err, test.ShouldBeNil)
	for i := 0; i < 4; i++ {
		for c := 0; c < 3; c++ {
			e.Unary.Set(c, i, float64((i*3+c)%5))
		}
	}
	features := mat.NewDense(3, 4, []float64{
		0, 1, 2, 3,
		0, 0, 1, 1,
		1, 0, 1, 0,
	})
	test.That(t, e.AddPairwise(features, PottsCompatibility{Weight: 1.5}), test.ShouldBeNil)

	first, err := NewMeanField().Infer(e, 5)
	test.That(t, err, test.ShouldBeNil)
	second, err := NewMeanField().Infer(e, 5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Equal(first, second), test.ShouldBeTrue)

	_, err = NewMeanField().Infer(e, -1)
	test.That(t, err, test.ShouldNotBeNil)
}
