package ledger

import (
	"errors"
	"fmt"
)

// Reason codes surfaced to callers when a call aborts.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrAlreadyInitialized  = errors.New("already initialized")
	ErrZeroAddress         = errors.New("zero address")
	ErrInvalidPeriod       = errors.New("invalid period")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNotContract         = errors.New("target is not a contract")
	ErrUnknownRecord       = errors.New("unknown record")
	ErrPaused              = errors.New("paused")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrReentrantCall       = errors.New("reentrant call")
)

// Execution errors raised by the ledger itself rather than by program logic.
var (
	ErrUnknownMethod  = errors.New("unknown method")
	ErrNotPayable     = errors.New("method does not accept value")
	ErrBadArgument    = errors.New("bad argument")
	ErrCallDepth      = errors.New("max call depth exceeded")
	ErrUnknownProgram = errors.New("unknown program")
	ErrHeaderAccess   = errors.New("header region is not accessible from a delegated frame")
)

// RevertError is returned for every aborted call. Reason is the innermost
// failure; Contract and Method identify the frame where it was raised.
type RevertError struct {
	Contract Address
	Method   string
	Reason   error
}

func (e *RevertError) Error() string {
	method := e.Method
	if method == "" {
		method = "receive()"
	}
	return fmt.Sprintf("reverted in %s %s: %v", e.Contract.Short(), method, e.Reason)
}

func (e *RevertError) Unwrap() error {
	return e.Reason
}

// revert wraps err in a RevertError unless it already is one, so the frame
// that raised the failure stays visible after propagating through callers.
func revert(contract Address, method string, err error) error {
	var re *RevertError
	if errors.As(err, &re) {
		return err
	}
	return &RevertError{Contract: contract, Method: method, Reason: err}
}

// ReasonCode returns the short reason name for a failure, for receipts and logs.
func ReasonCode(err error) string {
	if err == nil {
		return ""
	}
	codes := []struct {
		target error
		code   string
	}{
		{ErrUnauthorized, "Unauthorized"},
		{ErrAlreadyInitialized, "AlreadyInitialized"},
		{ErrZeroAddress, "ZeroAddress"},
		{ErrInvalidPeriod, "InvalidPeriod"},
		{ErrInvalidAmount, "InvalidAmount"},
		{ErrNotContract, "NotContract"},
		{ErrUnknownRecord, "UnknownRecord"},
		{ErrPaused, "Paused"},
		{ErrInsufficientBalance, "InsufficientBalance"},
		{ErrReentrantCall, "ReentrantCall"},
		{ErrUnknownMethod, "UnknownMethod"},
		{ErrNotPayable, "NotPayable"},
		{ErrBadArgument, "BadArgument"},
		{ErrCallDepth, "CallDepth"},
		{ErrUnknownProgram, "UnknownProgram"},
		{ErrHeaderAccess, "HeaderAccess"},
	}
	for _, c := range codes {
		if errors.Is(err, c.target) {
			return c.code
		}
	}
	return "Error"
}
