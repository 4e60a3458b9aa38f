package guard

import (
	"errors"
	"time"
)

// Principal is the authenticated identity as reported by the identity
// provider. It is read-only to the guard.
type Principal struct {
	ID    string
	Email string
	Name  string
}

// UserRecord is the authoritative permission record fetched from the
// oracle at evaluation time. Role is the only field the guard acts on.
type UserRecord struct {
	Role  string
	Name  string
	Email string
}

// State enumerates the possible outcomes of a guard evaluation.
type State int

const (
	StateLoading State = iota
	StateError
	StateUnauthenticated
	StateDenied
	StateAllowed
)

// String implements fmt.Stringer for logs and test output.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateDenied:
		return "denied"
	case StateAllowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// Decision is the transient result of one evaluation. It is recomputed
// on every relevant input change and never persisted.
type Decision struct {
	State State
	// Reason carries the error description when State is StateError.
	Reason string
	// ObservedRole is the authoritative role seen on denial.
	ObservedRole string
	// Warning surfaces a non-fatal cached/authoritative role mismatch.
	Warning string
}

// Error taxonomy. All failures are converted to a Decision at the guard
// boundary; these sentinels classify what happened underneath.
var (
	// ErrRecordNotFound means the principal has no permission record.
	ErrRecordNotFound = errors.New("user record not found")
	// ErrLookupFailed means the authoritative role could not be fetched.
	ErrLookupFailed = errors.New("permission verification failed")
	// ErrSessionLoad means session bootstrap itself failed.
	ErrSessionLoad = errors.New("session could not be loaded")
)

const (
	reasonRecordNotFound = "user record not found"
	reasonLookupFailed   = "permission verification failed"
	reasonSessionLoad    = "session could not be loaded"
)

// MirrorEntry is the advisory local cache of the last known-good admin
// session. It carries no security weight: the guard never grants access
// based on its contents.
type MirrorEntry struct {
	UID        string    `json:"uid"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	VerifiedAt time.Time `json:"verified_at"`
	Restored   bool      `json:"restored,omitempty"`
}
