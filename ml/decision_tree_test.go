package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionTreePredict(t *testing.T) {
	tree, err := NewDecisionTree([]TreeNode{
		split(0, 0.5, 1, 2),
		leaf(0.15),
		split(8, 0.5, 3, 4),
		leaf(0.55),
		leaf(0.95),
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultThreshold, tree.Threshold())

	tests := []struct {
		name   string
		vector FeatureVector
		proba  float64
		label  int
	}{
		{"no suicidal thoughts", FeatureVector{0, 5, 5, 20, 12, 1, 1, 0, 1, 1}, 0.15, 0},
		{"suicidal thoughts, normal sleep", FeatureVector{1, 2, 2, 30, 4, 0, 4, 0, 0, 0}, 0.55, 1},
		{"suicidal thoughts, short sleep", FeatureVector{1, 2, 2, 30, 4, 0, 4, 0, 1, 0}, 0.95, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proba, err := tree.PredictProbability(tt.vector)
			require.NoError(t, err)
			assert.Equal(t, tt.proba, proba)

			label, err := tree.Predict(tt.vector)
			require.NoError(t, err)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestDecisionTreeTieIsNegative(t *testing.T) {
	tree, err := NewDecisionTree([]TreeNode{leaf(0.5)}, 0)
	require.NoError(t, err)

	label, err := tree.Predict(FeatureVector{})
	require.NoError(t, err)
	assert.Equal(t, 0, label)
}

func TestDecisionTreeCustomThreshold(t *testing.T) {
	tree, err := NewDecisionTree([]TreeNode{leaf(0.4)}, 0.35)
	require.NoError(t, err)

	label, err := tree.Predict(FeatureVector{})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
}

func TestForestLabelMatchesProbability(t *testing.T) {
	forest, err := NewRandomForest([][]TreeNode{
		{split(1, 2.5, 1, 2), leaf(0.0), leaf(1.0)},
		{split(2, 3.5, 1, 2), leaf(0.0), leaf(1.0)},
	}, 0)
	require.NoError(t, err)

	for _, profile := range profileGrid() {
		vector := profile.Vector()
		proba, err := forest.PredictProbability(vector)
		require.NoError(t, err)
		label, err := forest.Predict(vector)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, proba, 0.0)
		assert.LessOrEqual(t, proba, 1.0)
		if proba > forest.Threshold() {
			assert.Equal(t, 1, label, "%v", vector)
		} else {
			assert.Equal(t, 0, label, "%v", vector)
		}
	}

	// One vote each way averages to exactly 0.5, which stays negative.
	label, err := forest.Predict(FeatureVector{0, 3, 1})
	require.NoError(t, err)
	assert.Equal(t, 0, label)
}
