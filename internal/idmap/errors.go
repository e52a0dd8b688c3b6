package idmap

import (
	"errors"
	"fmt"
	"strings"
)

// Caller input errors returned by Query. Match them with errors.Is.
var (
	ErrInvalidScheme  = errors.New("invalid id scheme")
	ErrIdentityScheme = errors.New("source scheme equals target scheme")
	ErrAutoTarget     = errors.New("auto-detection cannot be a target scheme")
)

// ErrReservedScheme is returned by New when the canonical and auto scheme
// names collide with each other or with a scheme in the table.
var ErrReservedScheme = errors.New("reserved scheme name")

// SchemeError describes a rejected source/target scheme pair.
type SchemeError struct {
	Err    error    // ErrInvalidScheme, ErrIdentityScheme or ErrAutoTarget
	Scheme string   // the offending scheme name
	Valid  []string // valid schemes, set for ErrInvalidScheme
}

func (e *SchemeError) Error() string {
	switch e.Err {
	case ErrInvalidScheme:
		return fmt.Sprintf("invalid id scheme %q (available: %s)", e.Scheme, strings.Join(e.Valid, ", "))
	case ErrIdentityScheme:
		return fmt.Sprintf("source and target scheme are both %q", e.Scheme)
	case ErrAutoTarget:
		return fmt.Sprintf("%q is only valid as a source scheme", e.Scheme)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Scheme)
}

func (e *SchemeError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err was caused by an invalid scheme pair
// passed to Query. Retrying such a call with the same arguments cannot succeed.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidScheme) ||
		errors.Is(err, ErrIdentityScheme) ||
		errors.Is(err, ErrAutoTarget)
}
