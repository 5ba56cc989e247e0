package fault

import (
	"errors"
	"fmt"
)

// Code categorizes core errors. Every failure the core can surface to a
// caller carries exactly one code; callers branch on the code, never on
// message text.
type Code string

const (
	// CodeInvalidAmount indicates a non-positive or malformed quantity.
	CodeInvalidAmount Code = "INVALID_AMOUNT"

	// CodeInsufficientBalance indicates a debit exceeding available funds.
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"

	// CodeOverflow indicates checked addition would exceed the representable range.
	CodeOverflow Code = "OVERFLOW"

	// CodeUnderflow indicates checked subtraction would go below the representable range.
	CodeUnderflow Code = "UNDERFLOW"

	// CodeUnauthorized indicates the caller lacks the required role.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeReentrancyDetected indicates a guarded operation was re-entered mid-execution.
	CodeReentrancyDetected Code = "REENTRANCY_DETECTED"

	// CodeContractPaused indicates the operation is blocked by the paused state.
	CodeContractPaused Code = "CONTRACT_PAUSED"

	// CodeEmergencyStopActive indicates the operation is blocked by an emergency stop.
	CodeEmergencyStopActive Code = "EMERGENCY_STOP_ACTIVE"

	// CodeNotFound indicates a referenced account, role, key, or operation
	// has no entry and no documented default applies.
	CodeNotFound Code = "NOT_FOUND"

	// CodeStorageFull indicates the storage engine refused a write because
	// the entry budget is exhausted.
	CodeStorageFull Code = "STORAGE_FULL"

	// CodeSerialization indicates a value could not be canonically encoded.
	CodeSerialization Code = "SERIALIZATION_ERROR"

	// CodeStepsExceeded indicates an invocation exceeded its step quota.
	CodeStepsExceeded Code = "STEPS_EXCEEDED"
)

// Error is the structured error type for the core.
//
// All core failures are local, recoverable-by-caller conditions. An Error
// never indicates a process-fatal state, and by construction no partial
// mutation is visible when one is returned (validation precedes mutation
// in every operation).
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Op identifies the operation that failed (e.g. "token.transfer").
	Op string

	// Details contains additional structured context.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewOp creates an Error tagged with the failing operation.
func NewOp(code Code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the Code from an error, unwrapping as needed.
// Returns the empty Code for nil or foreign errors.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// Is reports whether err carries the given code. Uses errors.As to handle
// wrapped errors.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool { return Is(err, CodeUnauthorized) }

// IsInsufficientBalance reports whether err is a balance shortfall.
func IsInsufficientBalance(err error) bool { return Is(err, CodeInsufficientBalance) }

// IsReentrancy reports whether err is a reentrancy violation.
func IsReentrancy(err error) bool { return Is(err, CodeReentrancyDetected) }

// IsLifecycleBlocked reports whether err is a pause or emergency-stop rejection.
func IsLifecycleBlocked(err error) bool {
	c := CodeOf(err)
	return c == CodeContractPaused || c == CodeEmergencyStopActive
}
