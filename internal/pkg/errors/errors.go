package errors

import (
	"errors"
	"fmt"
)

// Kind identifies the failure class of an engine error. Only invalid
// configuration is fatal; every other kind is recoverable and handled at
// the call boundary inside the detection manager.
type Kind string

const (
	// KindInvalidConfig is a construction-time misconfiguration, such as a
	// detector's target directory not existing. Fatal for that component.
	KindInvalidConfig Kind = "INVALID_CONFIG"

	// KindDetectorFailure is a recoverable failure isolated to one
	// detector. The detector contributes zero events for the run.
	KindDetectorFailure Kind = "DETECTOR_FAILURE"

	// KindPersistenceFailure is a recoverable storage failure. Computed
	// events are still returned to the caller.
	KindPersistenceFailure Kind = "PERSISTENCE_FAILURE"

	// KindAlertDeliveryFailure is a recoverable per-channel delivery
	// failure. Remaining channels are still attempted.
	KindAlertDeliveryFailure Kind = "ALERT_DELIVERY_FAILURE"

	// KindNotFound indicates a record lookup found no row.
	KindNotFound Kind = "NOT_FOUND"

	// KindConflict indicates an operation refused because of current
	// state, such as starting a run while one is in progress.
	KindConflict Kind = "CONFLICT"
)

// AppError represents an engine error with its failure class.
type AppError struct {
	Kind     Kind
	Message  string
	Internal error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// New creates a new AppError.
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap wraps an error with an AppError.
func Wrap(err error, kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message, Internal: err}
}

// KindOf extracts the failure class of an error, or "" for plain errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether the error carries the given failure class.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Common error constructors

// InvalidConfig creates a construction-time configuration error.
func InvalidConfig(message string) *AppError {
	return New(KindInvalidConfig, message)
}

// DetectorFailure creates a recoverable detector error.
func DetectorFailure(message string, err error) *AppError {
	return Wrap(err, KindDetectorFailure, message)
}

// PersistenceFailure creates a recoverable storage error.
func PersistenceFailure(message string, err error) *AppError {
	return Wrap(err, KindPersistenceFailure, message)
}

// AlertDeliveryFailure creates a recoverable alert delivery error.
func AlertDeliveryFailure(message string, err error) *AppError {
	return Wrap(err, KindAlertDeliveryFailure, message)
}

// NotFound creates a not found error.
func NotFound(resource string) *AppError {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource))
}

// Conflict creates a conflict error.
func Conflict(message string) *AppError {
	return New(KindConflict, message)
}
