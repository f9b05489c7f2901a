// Package emailchange is the consumer of the PIN protocol: it drives the
// change of an account's email of record. A change request records the
// intended address and issues a PIN to it; a confirmed PIN applies the
// change, with the new address marked unverified until ownership of it is
// confirmed through the verification flow in the same package.
package emailchange
