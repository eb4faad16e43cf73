package grantstore

import (
	"context"
	"errors"

	"github.com/storacha/grantlink/pkg/grant"
)

// ErrConsumed is returned by Consume when the grant has already expired or
// been consumed, or is not a one-time grant.
var ErrConsumed = errors.New("grant already consumed")

// UnavailableError wraps a failure to communicate with the backing store. It
// is never used to signal a negative authorization decision.
type UnavailableError struct {
	Op  string
	Err error
}

func (ue *UnavailableError) Error() string {
	return "grant store unavailable: " + ue.Op + ": " + ue.Err.Error()
}

func (ue *UnavailableError) Unwrap() error {
	return ue.Err
}

// NewUnavailableError wraps err as a store communication failure.
func NewUnavailableError(op string, err error) *UnavailableError {
	return &UnavailableError{Op: op, Err: err}
}

// GrantStore answers authorization queries over records keyed by capability
// hash and object key.
type GrantStore interface {
	// Lookup finds the records for (hash, key) that expire after now, reading
	// the latest committed state. The returned decision's Epoch is always now.
	Lookup(ctx context.Context, hash string, key string, now int64) (grant.Decision, error)
	// Consume atomically expires a one-time grant at now. It returns
	// ErrConsumed if the grant is no longer valid at now or is not one-time.
	Consume(ctx context.Context, hash string, key string, now int64) error
}
