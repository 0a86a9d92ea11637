package ml

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrModelUnavailable means no classifier handle exists for this process. It is not
	// retried; the artifact has to be fixed and the process restarted.
	ErrModelUnavailable = errors.New("model unavailable")
	ErrModelNotFound    = fmt.Errorf("%w: model artifact not found", ErrModelUnavailable)
	ErrModelLoadFailure = fmt.Errorf("%w: model artifact could not be loaded", ErrModelUnavailable)

	ErrInvalidInput     = errors.New("invalid input")
	ErrInferenceFailure = errors.New("inference failure")
)

// InvalidInputError lists what was wrong with a set of named inputs.
type InvalidInputError struct {
	Missing []string
	Unknown []string
	// Fields maps a feature key to a domain violation message.
	Fields map[string]string
}

func (e *InvalidInputError) Error() string {
	parts := make([]string, 0, 3)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown "+strings.Join(e.Unknown, ", "))
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for key := range e.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		msgs := make([]string, len(keys))
		for i, key := range keys {
			msgs[i] = key + " " + e.Fields[key]
		}
		parts = append(parts, strings.Join(msgs, ", "))
	}
	if len(parts) == 0 {
		return ErrInvalidInput.Error()
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// FieldErrors merges missing keys and domain violations into one message per key.
func (e *InvalidInputError) FieldErrors() map[string]string {
	out := make(map[string]string, len(e.Missing)+len(e.Unknown)+len(e.Fields))
	for _, key := range e.Missing {
		out[key] = "is required"
	}
	for _, key := range e.Unknown {
		out[key] = "is not a known feature"
	}
	for key, msg := range e.Fields {
		out[key] = msg
	}
	return out
}

func (e *InvalidInputError) empty() bool {
	return len(e.Missing) == 0 && len(e.Unknown) == 0 && len(e.Fields) == 0
}

func inferenceFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrInferenceFailure, err)
}
