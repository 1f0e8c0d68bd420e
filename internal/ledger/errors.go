package ledger

import (
	"errors"
	"fmt"
)

// Error is a classified ledger failure. Every operation returns either a
// result or an *Error; nothing is retried.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context (amounts, addresses).
	Details map[string]string

	// Err is the underlying cause for store and oracle failures.
	Err error
}

// ErrorCode categorizes ledger errors.
type ErrorCode string

const (
	// ErrCodeInsufficientFunds: a limit or consumption exceeds the balance or remaining count.
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	// ErrCodeUnauthorized: the caller is not the principal the operation requires.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeInvalidAddress: a supplied address failed validation.
	ErrCodeInvalidAddress ErrorCode = "INVALID_ADDRESS"

	// ErrCodeStore: the limit record could not be read or written.
	ErrCodeStore ErrorCode = "STORE_ERROR"

	// ErrCodeOracle: the balance query failed.
	ErrCodeOracle ErrorCode = "ORACLE_ERROR"

	// ErrCodeOverflow: the count would exceed 2^128-1.
	ErrCodeOverflow ErrorCode = "OVERFLOW"

	// ErrCodeInvalidRequest: the message could not be decoded.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrCodeNotInstantiated: no limit record exists yet.
	ErrCodeNotInstantiated ErrorCode = "NOT_INSTANTIATED"

	// ErrCodeAlreadyInstantiated: instantiate was called twice.
	ErrCodeAlreadyInstantiated ErrorCode = "ALREADY_INSTANTIATED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsInsufficientFunds reports whether err is an insufficient funds error.
func IsInsufficientFunds(err error) bool { return hasCode(err, ErrCodeInsufficientFunds) }

// IsUnauthorized reports whether err is an authorization error.
func IsUnauthorized(err error) bool { return hasCode(err, ErrCodeUnauthorized) }

// IsInvalidAddress reports whether err is an address validation error.
func IsInvalidAddress(err error) bool { return hasCode(err, ErrCodeInvalidAddress) }

// IsStoreError reports whether err is a store I/O error.
func IsStoreError(err error) bool { return hasCode(err, ErrCodeStore) }

// IsOracleError reports whether err is a balance query error.
func IsOracleError(err error) bool { return hasCode(err, ErrCodeOracle) }

// IsOverflow reports whether err is an arithmetic overflow error.
func IsOverflow(err error) bool { return hasCode(err, ErrCodeOverflow) }

// IsInvalidRequest reports whether err is a malformed message error.
func IsInvalidRequest(err error) bool { return hasCode(err, ErrCodeInvalidRequest) }

// IsNotInstantiated reports whether err means the ledger has no record yet.
func IsNotInstantiated(err error) bool { return hasCode(err, ErrCodeNotInstantiated) }

// IsAlreadyInstantiated reports whether err is a repeated instantiation.
func IsAlreadyInstantiated(err error) bool { return hasCode(err, ErrCodeAlreadyInstantiated) }

// NewInsufficientFunds creates an insufficient funds error.
func NewInsufficientFunds(what string, requested, available fmt.Stringer) *Error {
	return &Error{
		Code:    ErrCodeInsufficientFunds,
		Message: fmt.Sprintf("%s: requested %s exceeds available %s", what, requested, available),
		Details: map[string]string{
			"requested": requested.String(),
			"available": available.String(),
		},
	}
}

// NewUnauthorized creates an authorization error.
func NewUnauthorized(caller, required string) *Error {
	return &Error{
		Code:    ErrCodeUnauthorized,
		Message: fmt.Sprintf("caller %s is not %s", caller, required),
		Details: map[string]string{
			"caller":   caller,
			"required": required,
		},
	}
}

// NewInvalidAddress creates an address validation error.
func NewInvalidAddress(field, value string, cause error) *Error {
	return &Error{
		Code:    ErrCodeInvalidAddress,
		Message: fmt.Sprintf("invalid %s address %q", field, value),
		Details: map[string]string{"field": field},
		Err:     cause,
	}
}

// NewStoreError wraps a store failure.
func NewStoreError(op string, cause error) *Error {
	return &Error{Code: ErrCodeStore, Message: op, Err: cause}
}

// NewOracleError wraps a balance query failure.
func NewOracleError(addr string, cause error) *Error {
	return &Error{
		Code:    ErrCodeOracle,
		Message: "balance query failed",
		Details: map[string]string{"address": addr},
		Err:     cause,
	}
}

// NewOverflow creates an arithmetic overflow error.
func NewOverflow(op string, cause error) *Error {
	return &Error{Code: ErrCodeOverflow, Message: op, Err: cause}
}

// NewInvalidRequest wraps a message decoding failure.
func NewInvalidRequest(cause error) *Error {
	return &Error{Code: ErrCodeInvalidRequest, Message: "malformed message", Err: cause}
}

// NewNotInstantiated reports that no limit record exists.
func NewNotInstantiated() *Error {
	return &Error{Code: ErrCodeNotInstantiated, Message: "ledger has not been instantiated"}
}

// NewAlreadyInstantiated reports a second instantiation.
func NewAlreadyInstantiated(owner string) *Error {
	return &Error{
		Code:    ErrCodeAlreadyInstantiated,
		Message: "ledger is already instantiated",
		Details: map[string]string{"owner": owner},
	}
}
