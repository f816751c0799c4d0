package models

import "fmt"

// DataInsufficientError reports fewer observations than a component's floor.
// Drift and regime checks respond with a benign empty report instead of this
// error; adapters refuse to fit and are excluded from the ensemble.
type DataInsufficientError struct {
	Component string
	Need      int
	Got       int
}

func (e *DataInsufficientError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need %d observations, got %d", e.Component, e.Need, e.Got)
}

// ModelConvergenceError reports an adapter that failed to fit. It is caught
// per adapter, logged, and the adapter is dropped for the cycle.
type ModelConvergenceError struct {
	ModelName string
	Err       error
}

func (e *ModelConvergenceError) Error() string {
	return fmt.Sprintf("model %s failed to converge: %v", e.ModelName, e.Err)
}

func (e *ModelConvergenceError) Unwrap() error { return e.Err }

// EnsembleExhaustedError means zero adapters survived the cycle. It is fatal
// for the cycle: no forecast can be produced.
type EnsembleExhaustedError struct {
	Attempted int
}

func (e *EnsembleExhaustedError) Error() string {
	return fmt.Sprintf("ensemble exhausted: all %d adapters failed, no forecast produced", e.Attempted)
}

// ConfigurationError reports an invalid threshold or window detected at
// construction time.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}
