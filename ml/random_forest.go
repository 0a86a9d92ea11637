package ml

import (
	"errors"
	"fmt"
)

// RandomForest averages the leaf probabilities of its trees (soft voting).
type RandomForest struct {
	trees     []*DecisionTree
	threshold float64
}

func NewRandomForest(trees [][]TreeNode, threshold float64) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}
	forest := &RandomForest{
		trees:     make([]*DecisionTree, 0, len(trees)),
		threshold: threshold,
	}
	for i, nodes := range trees {
		tree, err := NewDecisionTree(nodes, threshold)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		forest.trees = append(forest.trees, tree)
	}
	return forest, nil
}

func (rf *RandomForest) Predict(features FeatureVector) (int, error) {
	proba, err := rf.PredictProbability(features)
	if err != nil {
		return 0, err
	}
	return decide(proba, rf.threshold), nil
}

func (rf *RandomForest) PredictProbability(features FeatureVector) (float64, error) {
	sum := 0.0
	for i, tree := range rf.trees {
		proba, err := tree.PredictProbability(features)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += proba
	}
	return sum / float64(len(rf.trees)), nil
}

func (rf *RandomForest) Threshold() float64 {
	return rf.threshold
}

func (rf *RandomForest) Size() int {
	return len(rf.trees)
}
