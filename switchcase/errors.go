package switchcase

import (
	"errors"
	"fmt"
)

var (
	// ErrResolved is returned when registering on or re-opening an
	// already resolved Switch.
	ErrResolved = errors.New("switch already resolved")
	// ErrNoCaseKeys is returned when a case declares no keys.
	ErrNoCaseKeys = errors.New("case requires at least one key")
	// ErrKeyNotComparable is returned, wrapped in a *KeyError, when a
	// case key's type does not support equality.
	ErrKeyNotComparable = errors.New("case key is not comparable")
)

// DuplicateCaseKeyError reports a key registered twice within one Switch.
type DuplicateCaseKeyError struct {
	Key any
}

func (e *DuplicateCaseKeyError) Error() string {
	return fmt.Sprintf("duplicate case key: %v", e.Key)
}

// NotResolvedError reports that no case matched the subject on a strict
// Switch with no default case.
type NotResolvedError struct {
	Subject any
}

func (e *NotResolvedError) Error() string {
	return fmt.Sprintf("switch case not resolved: %v", e.Subject)
}

// KeyError attaches the offending key to a key validation failure.
type KeyError struct {
	Key any
	err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%v (key %v of type %T)", e.err, e.Key, e.Key)
}

func (e *KeyError) Unwrap() error { return e.err }
