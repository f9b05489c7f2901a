// Package reauth supplies reauthentication providers for the PIN issuance
// gate: fresh proof of identity required before a verification PIN may be
// sent. Password (bcrypt) and TOTP providers are included; both surface
// only ErrInvalidCredential and ErrPrincipalNotFound.
package reauth
