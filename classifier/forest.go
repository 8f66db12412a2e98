package classifier

import (
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// treeNode is one node of an axis-aligned decision tree. Internal nodes
// carry a split; leaves carry a class histogram. Children reference node
// indices within the same tree, so index 0 is always the root and a left
// index of 0 marks a leaf.
type treeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Histogram []float64 `json:"histogram,omitempty"`
}

type tree struct {
	Nodes []treeNode `json:"nodes"`
}

type forestModel struct {
	NumClasses int    `json:"num_classes"`
	FeatureDim int    `json:"feature_dim"`
	Trees      []tree `json:"trees"`
}

// RandomForest is a Classifier backed by a pretrained random forest. The
// posterior for a feature vector is the mean of the normalized leaf
// histograms the vector reaches, one per tree.
type RandomForest struct {
	model forestModel
}

// LoadRandomForest reads a random forest model from a JSON file. Any
// failure wraps ErrModelLoad and is fatal to startup.
func LoadRandomForest(path string) (*RandomForest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrModelLoad, "open %q: %v", path, err)
	}
	defer f.Close()
	rf, err := ReadRandomForest(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	return rf, nil
}

// ReadRandomForest decodes a random forest model from JSON.
func ReadRandomForest(in io.Reader) (*RandomForest, error) {
	var model forestModel
	if err := json.NewDecoder(in).Decode(&model); err != nil {
		return nil, errors.Wrapf(ErrModelLoad, "decode: %v", err)
	}
	if model.NumClasses < 1 {
		return nil, errors.Wrapf(ErrModelLoad, "model has %d classes", model.NumClasses)
	}
	if len(model.Trees) == 0 {
		return nil, errors.Wrap(ErrModelLoad, "model has no trees")
	}
	for ti, t := range model.Trees {
		if len(t.Nodes) == 0 {
			return nil, errors.Wrapf(ErrModelLoad, "tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.Left == 0 { // leaf
				if len(n.Histogram) != model.NumClasses {
					return nil, errors.Wrapf(ErrModelLoad,
						"tree %d leaf %d histogram has %d classes, want %d", ti, ni, len(n.Histogram), model.NumClasses)
				}
				continue
			}
			if n.Left <= ni || n.Left >= len(t.Nodes) || n.Right <= ni || n.Right >= len(t.Nodes) {
				return nil, errors.Wrapf(ErrModelLoad, "tree %d node %d has bad children", ti, ni)
			}
			if n.Feature < 0 || (model.FeatureDim > 0 && n.Feature >= model.FeatureDim) {
				return nil, errors.Wrapf(ErrModelLoad, "tree %d node %d splits on feature %d", ti, ni, n.Feature)
			}
		}
	}
	return &RandomForest{model: model}, nil
}

// Classes returns the number of classes the forest was trained on.
func (rf *RandomForest) Classes() int {
	return rf.model.NumClasses
}

// logPosteriorEpsilon keeps empty leaf bins from producing -Inf costs.
const logPosteriorEpsilon = 1e-10

// ClassLogPosterior runs the feature vector through every tree and returns
// the log of the mean leaf distribution.
func (rf *RandomForest) ClassLogPosterior(feature []float64) ([]float64, error) {
	if rf.model.FeatureDim > 0 && len(feature) != rf.model.FeatureDim {
		return nil, errors.Errorf("feature vector has dimension %d, model wants %d", len(feature), rf.model.FeatureDim)
	}
	posterior := make([]float64, rf.model.NumClasses)
	leaf := make([]float64, rf.model.NumClasses)
	for _, t := range rf.model.Trees {
		node := t.Nodes[0]
		for node.Left != 0 {
			if feature[node.Feature] < node.Threshold {
				node = t.Nodes[node.Left]
			} else {
				node = t.Nodes[node.Right]
			}
		}
		copy(leaf, node.Histogram)
		if sum := floats.Sum(leaf); sum > 0 {
			floats.Scale(1/sum, leaf)
		}
		floats.Add(posterior, leaf)
	}
	floats.Scale(1/float64(len(rf.model.Trees)), posterior)
	for c := range posterior {
		posterior[c] = math.Log(posterior[c] + logPosteriorEpsilon)
	}
	return posterior, nil
}
