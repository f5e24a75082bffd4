package models

import (
	"context"
	"errors"
	"fmt"
)

// RetrievalBackendError reports a failed or malformed search backend call.
// It is terminal for the current turn and ends the conversation.
type RetrievalBackendError struct {
	Query string
	Err   error
}

func (e *RetrievalBackendError) Error() string {
	if e.Query == "" {
		return fmt.Sprintf("retrieval backend error: %v", e.Err)
	}
	return fmt.Sprintf("retrieval backend error for query %q: %v", e.Query, e.Err)
}

func (e *RetrievalBackendError) Unwrap() error { return e.Err }

// BackendTimeoutError reports a model or retrieval call that exceeded its deadline
type BackendTimeoutError struct {
	Backend string
	Err     error
}

func (e *BackendTimeoutError) Error() string {
	return fmt.Sprintf("%s backend timed out: %v", e.Backend, e.Err)
}

func (e *BackendTimeoutError) Unwrap() error { return e.Err }

// ToolCallArgumentError reports tool-call arguments that are not well-formed
// JSON or lack the expected keys. Callers recover locally.
type ToolCallArgumentError struct {
	Arguments string
	Err       error
}

func (e *ToolCallArgumentError) Error() string {
	return fmt.Sprintf("invalid tool call arguments %q: %v", e.Arguments, e.Err)
}

func (e *ToolCallArgumentError) Unwrap() error { return e.Err }

// MalformedToolResultError reports a tool result that cannot be decoded
type MalformedToolResultError struct {
	Err error
}

func (e *MalformedToolResultError) Error() string {
	return fmt.Sprintf("malformed tool result: %v", e.Err)
}

func (e *MalformedToolResultError) Unwrap() error { return e.Err }

// ModelBackendError reports a failed model completion call
type ModelBackendError struct {
	Provider string
	Err      error
}

func (e *ModelBackendError) Error() string {
	return fmt.Sprintf("%s model call failed: %v", e.Provider, e.Err)
}

func (e *ModelBackendError) Unwrap() error { return e.Err }

// WrapBackendError classifies an error from a backend call. Deadline errors
// become BackendTimeoutError; cancellation is returned untouched.
func WrapBackendError(backend string, err error, wrap func(error) error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var timeout *BackendTimeoutError
	if errors.As(err, &timeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &BackendTimeoutError{Backend: backend, Err: err}
	}
	return wrap(err)
}

// IsTerminal reports whether err must end the conversation with a visible failure
func IsTerminal(err error) bool {
	var (
		retrieval *RetrievalBackendError
		timeout   *BackendTimeoutError
		model     *ModelBackendError
		malformed *MalformedToolResultError
	)
	return errors.As(err, &retrieval) ||
		errors.As(err, &timeout) ||
		errors.As(err, &model) ||
		errors.As(err, &malformed)
}
