package vault

import "errors"

var (
	// ErrDuplicateUser is returned by Register for a taken username.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrAuthenticationFailed covers both unknown user and wrong password.
	// The distinction is audited internally but never reported to callers.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrNotAuthenticated is returned when an operation is attempted
	// without a live session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrDomainNotFound is returned when the domain is not in the vault.
	ErrDomainNotFound = errors.New("domain not found")

	// ErrDuplicateDomain is returned by AddPassword for an existing domain.
	ErrDuplicateDomain = errors.New("domain already exists")

	// ErrTampered means an integrity tag did not verify: either the key
	// is wrong or the stored record was modified.
	ErrTampered = errors.New("record tampered or key mismatch")

	// ErrRotationAborted means master password rotation stopped before
	// touching durable state. The old password and key remain valid.
	ErrRotationAborted = errors.New("master password rotation aborted")

	// ErrStorage wraps durable-write failures. Fatal to the triggering
	// operation, never silently ignored.
	ErrStorage = errors.New("storage failure")
)
