package dexterm

import (
	"fmt"
)

type ErrorCode string

const (
	InsufficientFunds ErrorCode = "insufficient-funds" // local decision, never retried
	RPCError          ErrorCode = "rpc-error"          // transient, retried up to the attempt bound
	DecodeError       ErrorCode = "decode-error"       // malformed hex / wire data
	InvalidRange      ErrorCode = "invalid-range"      // caller error, never retried
	LogicalInvariant  ErrorCode = "logical-invariant"  // configuration bug, fail loudly
	NotFound          ErrorCode = "not-found"
	UnknownError      ErrorCode = "unknown-error"
)

type ErrorInfo struct {
	Code    ErrorCode // machine-readable ErrorCode enumeration
	Message string    // human-readable debug message
}

func (e *ErrorInfo) Error() string {
	return string(e.Message)
}

func NewErr(code ErrorCode, format string, args ...any) error {
	return &ErrorInfo{Code: code, Message: fmt.Sprintf(format, args...)}
}

func IsError(err error, ofType ErrorCode) bool {
	if e, ok := err.(*ErrorInfo); ok {
		return e.Code == ofType
	}
	if e, ok := err.(*ChainSendError); ok {
		return IsError(e.Cause, ofType)
	}
	return false
}

func IsInsufficientFundsError(err error) bool {
	return IsError(err, InsufficientFunds)
}

func IsInvalidRangeError(err error) bool {
	return IsError(err, InvalidRange)
}

// Retryable reports whether an error is worth another RPC attempt.
// Local decisions (funds, ranges, invariants) are deterministic and
// retrying them only hides bugs.
func Retryable(err error) bool {
	if e, ok := err.(*ErrorInfo); ok {
		switch e.Code {
		case InsufficientFunds, InvalidRange, LogicalInvariant:
			return false
		}
	}
	return true
}

// ChainSendError reports a chain-send that failed part-way: hops before
// Hop have already been broadcast, so value has moved on-chain. Callers
// must treat this as "something happened", never as a no-op failure.
type ChainSendError struct {
	Hop       int      // index of the hop that failed (0-based)
	Completed []string // txids broadcast before the failure, in hop order
	LastUTXO  UTXO     // output of the last successful hop; resume point
	Cause     error
}

func (e *ChainSendError) Error() string {
	return fmt.Sprintf("chain-send failed at hop %d after %d broadcast(s), last utxo %s:%d: %v",
		e.Hop, len(e.Completed), e.LastUTXO.TxID, e.LastUTXO.VOut, e.Cause)
}

func (e *ChainSendError) Unwrap() error {
	return e.Cause
}
