package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode identifies the kind of failure returned by the rewards core.
type ErrorCode string

const (
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Ledger
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	// Mining
	ErrCodeAlreadyMining         ErrorCode = "ALREADY_MINING"
	ErrCodeNotMining             ErrorCode = "NOT_MINING"
	ErrCodeInsufficientPrincipal ErrorCode = "INSUFFICIENT_PRINCIPAL"

	// Requests
	ErrCodeDuplicateTxHash ErrorCode = "DUPLICATE_TX_HASH"
	ErrCodeNotPending      ErrorCode = "NOT_PENDING"
)

// Sentinels usable with errors.Is; matching is done by code.
var (
	ErrValidation            = &AppError{Code: ErrCodeValidation}
	ErrNotFound              = &AppError{Code: ErrCodeNotFound}
	ErrUnauthorized          = &AppError{Code: ErrCodeUnauthorized}
	ErrForbidden             = &AppError{Code: ErrCodeForbidden}
	ErrInsufficientFunds     = &AppError{Code: ErrCodeInsufficientFunds}
	ErrAlreadyMining         = &AppError{Code: ErrCodeAlreadyMining}
	ErrNotMining             = &AppError{Code: ErrCodeNotMining}
	ErrInsufficientPrincipal = &AppError{Code: ErrCodeInsufficientPrincipal}
	ErrDuplicateTxHash       = &AppError{Code: ErrCodeDuplicateTxHash}
	ErrNotPending            = &AppError{Code: ErrCodeNotPending}
	ErrInternal              = &AppError{Code: ErrCodeInternal}
)

// AppError is a typed application error.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Context   map[string]string      `json:"context,omitempty"`
	Stack     []string               `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// IsNotFound reports a missing resource.
func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound
}

// IsValidation reports malformed or out-of-range input.
func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation
}

// IsUnauthorized reports an inactive account or a non-operator caller.
func (e *AppError) IsUnauthorized() bool {
	return e.Code == ErrCodeUnauthorized || e.Code == ErrCodeForbidden
}

// IsConflict reports a state race or a business-rule conflict.
func (e *AppError) IsConflict() bool {
	switch e.Code {
	case ErrCodeDuplicateTxHash, ErrCodeNotPending, ErrCodeAlreadyMining, ErrCodeNotMining:
		return true
	}
	return false
}

// IsInternal reports failures of the service itself rather than of the caller.
func (e *AppError) IsInternal() bool {
	return e.Code == ErrCodeInternal || e.Code == ErrCodeDatabaseError
}

// WithContext adds a string context value.
func (e *AppError) WithContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithDetail adds a structured detail.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRequestID attaches the request id.
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// New creates an application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Stack:     getStackTrace(),
	}
}

// Wrap wraps err with a code and message.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func getStackTrace() []string {
	var stack []string
	for i := 2; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		if strings.Contains(fn.Name(), "internal/common/errors") {
			continue
		}
		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		if len(stack) >= 10 {
			break
		}
	}
	return stack
}

// NewValidationError reports an invalid field.
func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// NewUnauthorizedError reports an inactive account or unknown caller.
func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("Unauthorized: %s", reason)).
		WithDetail("reason", reason)
}

// NewForbiddenError reports a caller without operator rights.
func NewForbiddenError(reason string) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf("Forbidden: %s", reason)).
		WithDetail("reason", reason)
}

// NewInsufficientFundsError reports a debit that would make a balance negative.
func NewInsufficientFundsError(accountID int64, kind string) *AppError {
	return New(ErrCodeInsufficientFunds, fmt.Sprintf("Insufficient %s balance", kind)).
		WithDetail("account_id", accountID).
		WithDetail("kind", kind)
}

// NewNotPendingError reports a transition attempted on a request already in a terminal state.
func NewNotPendingError(resource, id string) *AppError {
	return New(ErrCodeNotPending, fmt.Sprintf("%s %s is not pending", resource, id)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// NewDatabaseError wraps a store failure.
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("Database operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// AsAppError extracts an AppError from the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the error code, or ErrCodeInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
