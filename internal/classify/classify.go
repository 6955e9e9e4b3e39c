// Package classify implements the three error kinds spec.md §7 requires
// every external call in the pipeline to be sorted into: Transient,
// ContentPolicy and Permanent. Workers switch on the kind with errors.As,
// regardless of how deep the error has been wrapped by pkg/errors along
// the way.
package classify

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the classification a worker needs to decide whether to retry on
// the next poll tick, retry once with a fallback, or give up and mark the
// token failed.
type Kind int

const (
	// KindTransient is retryable by natural re-polling: network timeouts,
	// 429s, 5xx, gas-estimation failures, submission failures, confirmation
	// timeouts.
	KindTransient Kind = iota
	// KindContentPolicy is retryable exactly once, with a fallback prompt
	// (image generation only).
	KindContentPolicy
	// KindPermanent is never retried: auth failures, shape validation,
	// on-chain reverts, ABI mismatches.
	KindPermanent
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindContentPolicy:
		return "content_policy"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a classification kind. It is the
// type workers should errors.As against.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a retryable-by-polling error.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// ContentPolicy wraps err as a fallback-prompt-retryable error.
func ContentPolicy(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindContentPolicy, Op: op, Err: err}
}

// Permanent wraps err as a non-retryable error.
func Permanent(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindPermanent, Op: op, Err: err}
}

// Is reports whether err carries the given classification.
func Is(err error, kind Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf extracts the classification, defaulting to KindTransient for an
// unclassified error — an unclassified failure should never silently become
// a terminal one.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransient
}

// FromHTTPStatus classifies a REST call outcome by status code, the policy
// shared by the image-generation and pinning clients (spec.md §6 Outbound).
func FromHTTPStatus(op string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return Transient(op, fmt.Errorf("rate limited (429): %w", errOrStatus(err, status)))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Permanent(op, fmt.Errorf("auth failure (%d): %w", status, errOrStatus(err, status)))
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return Permanent(op, fmt.Errorf("request rejected (%d): %w", status, errOrStatus(err, status)))
	case status >= 500:
		return Transient(op, fmt.Errorf("server error (%d): %w", status, errOrStatus(err, status)))
	case status == 0:
		return Transient(op, err)
	default:
		return nil
	}
}

func errOrStatus(err error, status int) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("status %d", status)
}

// InsufficientFunds and ExecutionReverted are recognised so the reveal
// keeper can surface actionable operator messages (spec.md §4.7).
var (
	InsufficientFunds = errors.New("insufficient funds for gas * price + value")
	ExecutionReverted = errors.New("execution reverted")
)
