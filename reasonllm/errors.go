package reasonllm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// BackendError is the base error type for reasoning backend failures.
type BackendError struct {
	Message   string
	Provider  string
	Retryable bool
	Cause     error
}

func (e *BackendError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s", e.Provider, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// Concrete backend error types.

type AuthenticationError struct{ BackendError }
type InvalidRequestError struct{ BackendError }
type RateLimitError struct{ BackendError }
type ServerError struct{ BackendError }
type NetworkError struct{ BackendError }
type GenerationTimeoutError struct{ BackendError }
type ContextLengthError struct{ BackendError }

// IsRetryable returns true if the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch err.(type) {
	case *AuthenticationError:
		return false
	case *InvalidRequestError:
		return false
	case *ContextLengthError:
		return false
	case *RateLimitError:
		return true
	case *ServerError:
		return true
	case *NetworkError:
		return true
	case *GenerationTimeoutError:
		return true
	case *BackendError:
		return err.(*BackendError).Retryable
	default:
		// Unknown errors default to retryable.
		return true
	}
}

// classifyError converts a raw gollm error into the backend error hierarchy.
// gollm surfaces provider failures as opaque strings, so classification is
// based on message content.
func classifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := err.Error()
	base := BackendError{Message: msg, Provider: provider, Cause: err}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") || strings.Contains(lower, "invalid key"):
		return &AuthenticationError{BackendError: base}
	case strings.Contains(lower, "400") || strings.Contains(lower, "invalid request") || strings.Contains(lower, "unprocessable"):
		return &InvalidRequestError{BackendError: base}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		base.Retryable = true
		return &RateLimitError{BackendError: base}
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		return &ContextLengthError{BackendError: base}
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") || strings.Contains(lower, "503") || strings.Contains(lower, "internal server") || strings.Contains(lower, "overloaded"):
		base.Retryable = true
		return &ServerError{BackendError: base}
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		base.Retryable = true
		return &GenerationTimeoutError{BackendError: base}
	case strings.Contains(lower, "connection") || strings.Contains(lower, "no such host") || strings.Contains(lower, "eof"):
		base.Retryable = true
		return &NetworkError{BackendError: base}
	default:
		base.Retryable = true
		return &base
	}
}
