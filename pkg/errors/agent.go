package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a classified agent error.
type ErrorCode string

const (
	ErrTimeout             ErrorCode = "timeout"
	ErrRateLimit           ErrorCode = "rate_limit"
	ErrReasonerUnavailable ErrorCode = "reasoner_unavailable"
	ErrContextCancelled    ErrorCode = "context_cancelled"
	ErrAuthRevoked         ErrorCode = "auth_revoked"
	ErrSendFailed          ErrorCode = "send_failed"
	ErrParseError          ErrorCode = "parse_error"
	ErrEmptyContent        ErrorCode = "empty_content"
	ErrVaultConflict       ErrorCode = "vault_conflict"
	ErrSyncFailed          ErrorCode = "sync_failed"
	ErrProcessingError     ErrorCode = "processing_error"
)

// AgentError is a structured error for pipeline failures.
type AgentError struct {
	Code     ErrorCode
	Stage    string
	Message  string
	Duration time.Duration
	Timeout  time.Duration
	Cause    error
}

func (e *AgentError) Error() string {
	if e.Timeout > 0 && e.Duration > 0 {
		return fmt.Sprintf("%s: %s timed out after %s (limit: %s)", e.Code, e.Stage, e.Duration.Truncate(time.Second), e.Timeout.Truncate(time.Second))
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AgentError) Unwrap() error {
	return e.Cause
}

// ClassifyError inspects an error and returns an *AgentError with the appropriate code.
// If the error doesn't match any known pattern, it returns an AgentError with ErrProcessingError.
func ClassifyError(err error, stage string) *AgentError {
	if err == nil {
		return nil
	}

	ae := &AgentError{
		Stage: stage,
		Cause: err,
	}

	// Context deadline exceeded (timeout)
	if errors.Is(err, context.DeadlineExceeded) {
		ae.Code = ErrTimeout
		ae.Message = "operation timed out"
		return ae
	}

	// Context cancelled
	if errors.Is(err, context.Canceled) {
		ae.Code = ErrContextCancelled
		ae.Message = "operation cancelled"
		return ae
	}

	// Known sentinel conditions
	if errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrAlreadyClaimed) {
		ae.Code = ErrVaultConflict
		ae.Message = err.Error()
		return ae
	}

	// Check error message patterns
	msg := err.Error()
	lower := strings.ToLower(msg)

	// Timeout patterns
	if strings.Contains(lower, "timed out") || strings.Contains(lower, "timeout") {
		ae.Code = ErrTimeout
		ae.Message = msg
		return ae
	}

	// Auth patterns
	if strings.Contains(lower, "invalid_grant") || strings.Contains(lower, "token expired") ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "401") ||
		strings.Contains(lower, "invalid credentials") {
		ae.Code = ErrAuthRevoked
		ae.Message = msg
		return ae
	}

	// Rate limit patterns
	if strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") ||
		strings.Contains(lower, "too many requests") || strings.Contains(lower, "quota exceeded") ||
		strings.Contains(lower, "resource_exhausted") {
		ae.Code = ErrRateLimit
		ae.Message = msg
		return ae
	}

	// Reasoner unavailable patterns
	if strings.Contains(lower, "executable file not found") || strings.Contains(lower, "no such file") ||
		strings.Contains(lower, "connection refused") || strings.Contains(lower, "unavailable") ||
		strings.Contains(lower, "503") || strings.Contains(lower, "no such host") {
		ae.Code = ErrReasonerUnavailable
		ae.Message = msg
		return ae
	}

	// Send patterns
	if strings.Contains(lower, "send failed") || strings.Contains(lower, "failed to send") ||
		strings.Contains(lower, "smtp") {
		ae.Code = ErrSendFailed
		ae.Message = msg
		return ae
	}

	// Empty content patterns
	if strings.Contains(lower, "empty content") || strings.Contains(lower, "content is empty") ||
		strings.Contains(lower, "no content") {
		ae.Code = ErrEmptyContent
		ae.Message = msg
		return ae
	}

	// Parse patterns
	if strings.Contains(lower, "parse") || strings.Contains(lower, "malformed") ||
		strings.Contains(lower, "unmarshal") || strings.Contains(lower, "invalid frontmatter") {
		ae.Code = ErrParseError
		ae.Message = msg
		return ae
	}

	// Sync patterns
	if strings.Contains(lower, "git") && (strings.Contains(lower, "failed") || strings.Contains(lower, "conflict")) {
		ae.Code = ErrSyncFailed
		ae.Message = msg
		return ae
	}

	// Default to processing error
	ae.Code = ErrProcessingError
	ae.Message = msg
	return ae
}

// IsTimeout returns true if the error is a timeout error.
func IsTimeout(err error) bool {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Code == ErrTimeout
	}
	return false
}

// IsErrorRetryable returns true if the error is likely transient and worth retrying.
// This function checks the error code using the ErrorCodeRegistry.
func IsErrorRetryable(err error) bool {
	var ae *AgentError
	if errors.As(err, &ae) {
		if info, ok := ErrorCodeRegistry[ae.Code]; ok {
			return info.Retryable
		}
		// Default to non-retryable for unknown codes
		return false
	}
	return false
}
