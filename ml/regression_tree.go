package ml

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// RegressionTree is a fitted binary tree stored as a flat node array rooted at index 0.
type RegressionTree struct {
	nodes []TreeNode
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

type treeArtifact struct {
	Type     string     `json:"type"`
	Features []string   `json:"features"`
	Nodes    []TreeNode `json:"nodes"`
}

// NewRegressionTree validates nodes and returns a tree that walks them.
func NewRegressionTree(nodes []TreeNode) (*RegressionTree, error) {
	if len(nodes) == 0 {
		return nil, errors.New("tree has no nodes")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			if err := checkFinite([]float64{node.Value}); err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(FeatureOrder) {
			return nil, fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(nodes) {
				return nil, fmt.Errorf("node %d: invalid child %d", i, child)
			}
		}
	}
	return &RegressionTree{nodes: append([]TreeNode(nil), nodes...)}, nil
}

func decodeTree(payload []byte) (*RegressionTree, error) {
	var a treeArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, err
	}
	if err := checkFeatureNames(a.Features); err != nil {
		return nil, err
	}
	return NewRegressionTree(a.Nodes)
}

// Predict returns an n×1 matrix with the leaf value reached by each row of x.
func (rt *RegressionTree) Predict(x mat.Matrix) (mat.Matrix, error) {
	if len(rt.nodes) == 0 {
		return nil, errors.New("model not loaded")
	}
	rows, cols := x.Dims()
	if cols != len(FeatureOrder) {
		return nil, fmt.Errorf("got %d features, model expects %d", cols, len(FeatureOrder))
	}
	out := mat.NewDense(rows, 1, nil)
	for r := 0; r < rows; r++ {
		v, err := rt.walk(mat.Row(nil, r, x))
		if err != nil {
			return nil, err
		}
		out.Set(r, 0, v)
	}
	return out, nil
}

// Children always sit after their parent, so every walk ends within len(nodes) steps.
func (rt *RegressionTree) walk(features []float64) (float64, error) {
	idx := 0
	for {
		node := rt.nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(rt.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}
