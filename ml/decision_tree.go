package ml

import (
	"errors"
	"fmt"
	"math"
)

type DecisionTree struct {
	nodes     []TreeNode
	threshold float64
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	IsLeaf     bool    `json:"is_leaf"`
	// Proba is the positive-class fraction of the training rows that reached the leaf.
	Proba float64 `json:"proba"`
}

func NewDecisionTree(nodes []TreeNode, threshold float64) (*DecisionTree, error) {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}
	if err := validateNodes(nodes); err != nil {
		return nil, err
	}
	return &DecisionTree{nodes: nodes, threshold: threshold}, nil
}

func (dt *DecisionTree) Predict(features FeatureVector) (int, error) {
	proba, err := dt.PredictProbability(features)
	if err != nil {
		return 0, err
	}
	return decide(proba, dt.threshold), nil
}

func (dt *DecisionTree) PredictProbability(features FeatureVector) (float64, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return 0, err
	}
	return leaf.Proba, nil
}

func (dt *DecisionTree) Threshold() float64 {
	return dt.threshold
}

func (dt *DecisionTree) leaf(features FeatureVector) (TreeNode, error) {
	if len(dt.nodes) == 0 {
		return TreeNode{}, errors.New("model not trained")
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		value := features[node.FeatureIdx]
		if math.IsNaN(value) {
			return TreeNode{}, fmt.Errorf("feature %s is NaN", FeatureColumns[node.FeatureIdx].Key)
		}
		if value <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

// validateNodes rejects trees the walk in leaf could not finish: children must point
// forward, so every path terminates.
func validateNodes(nodes []TreeNode) error {
	if len(nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			if math.IsNaN(node.Proba) || node.Proba < 0 || node.Proba > 1 {
				return fmt.Errorf("node %d: leaf probability %v outside [0,1]", i, node.Proba)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= FeatureCount {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(nodes) {
				return fmt.Errorf("node %d: invalid child index %d", i, child)
			}
		}
	}
	return nil
}

func validateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold <= 0 || threshold >= 1 {
		return fmt.Errorf("threshold %v outside (0,1)", threshold)
	}
	return nil
}
