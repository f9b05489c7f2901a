package emailchange

import "errors"

var (
	// ErrUserNotFound is returned when no account exists for the principal
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidEmail is returned when the target address is not a valid email
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrSameEmail is returned when the requested address is already the email of record
	ErrSameEmail = errors.New("new email matches current email")

	// ErrNoPendingChange is returned when confirming with no change request on file
	ErrNoPendingChange = errors.New("no pending email change")

	// ErrAlreadyVerified is returned when requesting verification of an already verified address
	ErrAlreadyVerified = errors.New("email already verified")
)
