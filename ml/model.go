package ml

import "context"

// Classifier is a loaded, read-only binary model.
type Classifier interface {
	Predict(features FeatureVector) (int, error)
	PredictProbability(features FeatureVector) (float64, error)
}

// ModelProvider is what the HTTP and CLI layers call for one prediction.
type ModelProvider interface {
	Predict(ctx context.Context, profile StudentProfile) (PredictionResult, error)
	PredictValues(ctx context.Context, values map[string]float64) (PredictionResult, error)
	Available() error
}

const DefaultThreshold = 0.5

// decide is the decision rule shared by the tree models: strictly above the threshold is
// the positive class, so an exact tie stays negative.
func decide(probability, threshold float64) int {
	if probability > threshold {
		return 1
	}
	return 0
}
