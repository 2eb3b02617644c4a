package helpers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"paper-trader/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type AppError struct {
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ AppError }
type NetworkError struct{ AppError }
type DatabaseError struct{ AppError }
type ValidationError struct{ AppError }
type AuthError struct{ AppError }

func NewNetworkError(msg string, cause error) error {
	return &NetworkError{AppError{Message: msg, Cause: cause}}
}

func NewDatabaseError(msg string, cause error) error {
	return &DatabaseError{AppError{Message: msg, Cause: cause}}
}

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{AppError{Message: fmt.Sprintf(format, args...)}}
}

func NewAuthError(msg string, cause error) error {
	return &AuthError{AppError{Message: msg, Cause: cause}}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
	var a *AuthError
	return errors.As(err, &a)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

var retryLogger = logger.NewLogger("Retry")

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
// It gives up early when ctx is cancelled.
func RetryWithBackoff[T any](ctx context.Context, operation string, maxRetries int, baseDelay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		retryLogger.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler logs and counts swallowed errors for components whose failures
// must never reach the caller.
type ErrorHandler struct {
	Logger *logger.Logger

	mu         sync.Mutex
	errorCount int
}

func NewErrorHandler(name string) *ErrorHandler {
	return &ErrorHandler{
		Logger: logger.NewLogger(name),
	}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ErrorCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errorCount
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.mu.Lock()
	e.errorCount = 0
	e.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Handle logs err (if any) and reports whether the operation succeeded.
func (e *ErrorHandler) Handle(err error, context string) bool {
	if err == nil {
		return true
	}
	e.mu.Lock()
	e.errorCount++
	e.mu.Unlock()
	e.Logger.Error("Error in %s: %v", context, err)
	return false
}
