package errors

import "fmt"

// ParseError is returned when a stage cannot decode model output.
type ParseError struct {
	Stage string
	Raw   string
	Err   error
}

func NewParseError(stage, raw string, err error) *ParseError {
	return &ParseError{Stage: stage, Raw: raw, Err: err}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse structured output: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// InferenceKind classifies inference boundary failures
type InferenceKind string

const (
	InferenceTimeout     InferenceKind = "timeout"
	InferenceRateLimited InferenceKind = "rate_limited"
	InferenceNetwork     InferenceKind = "network"
	InferenceProvider    InferenceKind = "provider"
)

// InferenceError wraps a failed model call with its classification.
type InferenceError struct {
	Kind     InferenceKind
	Provider string
	Model    string
	Err      error
}

func NewInferenceError(kind InferenceKind, provider, model string, err error) *InferenceError {
	return &InferenceError{Kind: kind, Provider: provider, Model: model, Err: err}
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference %s (%s/%s): %v", e.Kind, e.Provider, e.Model, e.Err)
}

func (e *InferenceError) Unwrap() []error {
	if e.Kind == InferenceRateLimited {
		return []error{ErrInference, ErrRateLimitExceeded, e.Err}
	}
	return []error{ErrInference, e.Err}
}

// Retryable reports whether the boundary may retry this failure.
// The pipeline itself never retries.
func (e *InferenceError) Retryable() bool {
	switch e.Kind {
	case InferenceTimeout, InferenceRateLimited, InferenceNetwork:
		return true
	default:
		return false
	}
}

// ConfigurationError marks a missing optional collaborator (e.g. profile store).
type ConfigurationError struct {
	Dependency string
	Err        error
}

func NewConfigurationError(dependency string, err error) *ConfigurationError {
	return &ConfigurationError{Dependency: dependency, Err: err}
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Dependency, ErrConfiguration)
	}
	return fmt.Sprintf("%s: %v: %v", e.Dependency, ErrConfiguration, e.Err)
}

func (e *ConfigurationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Err}
}

// PipelineError is the single terminal failure a pipeline run returns.
// UserMessage is safe to show to the subject; Error carries internal detail.
type PipelineError struct {
	Stage   string
	Message string
	Err     error
}

func NewPipelineError(stage, userMessage string, err error) *PipelineError {
	return &PipelineError{Stage: stage, Message: userMessage, Err: err}
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// UserMessage returns the caller-facing description of the failure
func (e *PipelineError) UserMessage() string {
	return e.Message
}
