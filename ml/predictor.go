package ml

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// PredictionResult is the outcome of one inference. It is never stored.
type PredictionResult struct {
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
}

func (r PredictionResult) HighRisk() bool {
	return r.Label == 1
}

func (r PredictionResult) Summary() string {
	if r.HighRisk() {
		return "HIGH RISK OF DEPRESSION"
	}
	return "LOW RISK OF DEPRESSION"
}

// Predictor turns a student profile into a prediction using an injected classifier.
type Predictor struct {
	model       Classifier
	unavailable error
	logger      *zap.Logger
}

func NewPredictor(model Classifier, logger *zap.Logger) *Predictor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Predictor{model: model, logger: logger}
	if model == nil {
		p.unavailable = ErrModelUnavailable
	}
	return p
}

// NewPredictorFromLoader takes the loader's handle, or remembers why there is none.
func NewPredictorFromLoader(loader *Loader, logger *zap.Logger) *Predictor {
	model, err := loader.Load()
	p := NewPredictor(model, logger)
	if err != nil {
		p.model = nil
		p.unavailable = err
	}
	return p
}

// Available returns nil when a classifier is loaded, otherwise an error wrapping
// ErrModelUnavailable.
func (p *Predictor) Available() error {
	return p.unavailable
}

func (p *Predictor) PredictValues(ctx context.Context, values map[string]float64) (PredictionResult, error) {
	if err := p.Available(); err != nil {
		return PredictionResult{}, err
	}
	profile, err := ProfileFromValues(values)
	if err != nil {
		return PredictionResult{}, err
	}
	return p.Predict(ctx, profile)
}

func (p *Predictor) Predict(ctx context.Context, profile StudentProfile) (PredictionResult, error) {
	if err := p.Available(); err != nil {
		return PredictionResult{}, err
	}

	vector := profile.Vector()
	label, err := p.model.Predict(vector)
	if err != nil {
		return PredictionResult{}, p.fail(err, vector)
	}
	proba, err := p.model.PredictProbability(vector)
	if err != nil {
		return PredictionResult{}, p.fail(err, vector)
	}

	if label != 0 && label != 1 {
		return PredictionResult{}, p.fail(fmt.Errorf("classifier returned label %d", label), vector)
	}
	if math.IsNaN(proba) || proba < 0 || proba > 1 {
		return PredictionResult{}, p.fail(fmt.Errorf("classifier returned probability %v", proba), vector)
	}

	result := PredictionResult{Label: label, Probability: proba}
	p.logger.Debug("prediction",
		zap.Float64s("features", vector[:]),
		zap.Int("label", result.Label),
		zap.Float64("probability", result.Probability),
	)
	return result, nil
}

func (p *Predictor) fail(err error, vector FeatureVector) error {
	p.logger.Error("inference failed", zap.Float64s("features", vector[:]), zap.Error(err))
	return inferenceFailure(err)
}

// ErrorKind names the error class for logs and metrics.
func ErrorKind(err error) string {
	var invalid *InvalidInputError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalid), errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrModelUnavailable):
		return "model_unavailable"
	default:
		return "inference_failure"
	}
}
