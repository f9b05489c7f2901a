package pin

import "errors"

var (
	// ErrPinNotFound is returned by stores when no live record exists for a user
	ErrPinNotFound = errors.New("pin record not found")

	// ErrAuthFailed is returned by Issue when reauthentication is rejected
	ErrAuthFailed = errors.New("reauthentication failed")

	// ErrCooldownActive is returned by Issue when the resend policy denies a new issuance
	ErrCooldownActive = errors.New("pin resend cooldown active")

	// ErrDeliveryFailed is returned by Issue when the email could not be sent; the
	// record written for this issuance has been rolled back
	ErrDeliveryFailed = errors.New("pin delivery failed")
)
