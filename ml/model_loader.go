package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"
)

const (
	ModelTypeDecisionTree = "decision_tree"
	ModelTypeRandomForest = "random_forest"
)

// Artifact is the on-disk form of a trained model.
type Artifact struct {
	Type      string       `json:"type"`
	Features  []string     `json:"features,omitempty"`
	Threshold float64      `json:"threshold,omitempty"`
	Trees     [][]TreeNode `json:"trees"`
}

// LoadModel reads the artifact at path. An empty modelType accepts whatever type the
// artifact declares.
func LoadModel(modelType, path string) (Classifier, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrModelLoadFailure, err)
	}

	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrModelLoadFailure, path, err)
	}
	if modelType != "" && modelType != artifact.Type {
		return nil, fmt.Errorf("%w: configured type %q, artifact is %q", ErrModelLoadFailure, modelType, artifact.Type)
	}
	if err := checkSchema(artifact.Features); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoadFailure, err)
	}

	model, err := buildModel(artifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoadFailure, err)
	}
	return model, nil
}

func buildModel(artifact Artifact) (Classifier, error) {
	switch artifact.Type {
	case ModelTypeDecisionTree:
		if len(artifact.Trees) != 1 {
			return nil, fmt.Errorf("decision_tree expects 1 tree, got %d", len(artifact.Trees))
		}
		return NewDecisionTree(artifact.Trees[0], artifact.Threshold)
	case ModelTypeRandomForest:
		return NewRandomForest(artifact.Trees, artifact.Threshold)
	default:
		return nil, fmt.Errorf("unsupported model type %q", artifact.Type)
	}
}

// checkSchema compares the column list recorded at training time with FeatureColumns.
// Artifacts without a list are trusted.
func checkSchema(features []string) error {
	if len(features) == 0 {
		return nil
	}
	if len(features) != FeatureCount {
		return fmt.Errorf("artifact has %d features, want %d", len(features), FeatureCount)
	}
	for i, name := range features {
		if name != FeatureColumns[i].Column {
			return fmt.Errorf("feature %d is %q, want %q", i, name, FeatureColumns[i].Column)
		}
	}
	return nil
}

func WriteArtifact(path string, artifact Artifact) error {
	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// Loader owns the process-wide classifier handle. The first Load reads the artifact;
// later calls return the same handle or the same error.
type Loader struct {
	path      string
	modelType string
	logger    *zap.Logger

	once  sync.Once
	model Classifier
	err   error
}

func NewLoader(path, modelType string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{path: path, modelType: modelType, logger: logger}
}

func (l *Loader) Load() (Classifier, error) {
	l.once.Do(func() {
		l.model, l.err = LoadModel(l.modelType, l.path)
		if l.err != nil {
			l.logger.Error("model load failed", zap.String("path", l.path), zap.Error(l.err))
			return
		}
		l.logger.Info("model loaded", zap.String("path", l.path), zap.String("type", describe(l.model)))
	})
	return l.model, l.err
}

func describe(model Classifier) string {
	switch m := model.(type) {
	case *RandomForest:
		return fmt.Sprintf("%s(%d trees)", ModelTypeRandomForest, m.Size())
	case *DecisionTree:
		return ModelTypeDecisionTree
	default:
		return fmt.Sprintf("%T", model)
	}
}
