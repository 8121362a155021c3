package aiagent

import (
	"errors"
	"fmt"
)

var (
	// ErrPromptRequired is returned when the node has no prompt parameter.
	ErrPromptRequired = errors.New("prompt is required")

	// ErrAPIKeyRequired is returned when the resolved credential carries no API key.
	ErrAPIKeyRequired = errors.New("API key is required for executing LLM")

	// ErrEmptyCompletion is returned when the provider answers with no choices.
	ErrEmptyCompletion = errors.New("completion returned no choices")
)

// CompletionError wraps an upstream LLM provider failure.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("LLM API error: %v", e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}
