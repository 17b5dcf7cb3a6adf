package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can tell setup errors from
// per-transfer errors without matching on message text.
type ErrorKind int

const (
	KindConfig ErrorKind = iota + 1
	KindRPC
	KindSigning
	KindBroadcast
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindRPC:
		return "RpcError"
	case KindSigning:
		return "SigningError"
	case KindBroadcast:
		return "BroadcastError"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

var (
	// ErrTransactionFailed is wrapped when a receipt comes back with a non-success status.
	ErrTransactionFailed = errors.New("transaction failed")
	// ErrChainIDMismatch is wrapped when the endpoint reports a different chain than configured.
	ErrChainIDMismatch = errors.New("chain id mismatch")
)

// Error carries the kind and the operation that produced the underlying error.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// ConfigError wraps err as a configuration failure.
func ConfigError(op string, err error) error { return newError(KindConfig, op, err) }

// RPCError wraps err as a chain endpoint failure.
func RPCError(op string, err error) error { return newError(KindRPC, op, err) }

// SigningError wraps err as a key or signing failure.
func SigningError(op string, err error) error { return newError(KindSigning, op, err) }

// BroadcastError wraps err as a submission or execution failure.
func BroadcastError(op string, err error) error { return newError(KindBroadcast, op, err) }

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
