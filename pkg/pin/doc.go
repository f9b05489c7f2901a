// Package pin implements the email-change PIN verification protocol: a
// short one-time code proving that a user controls an email address before
// the account's email of record may be changed.
//
// # Overview
//
// The pin package provides:
//   - Cryptographically random 5-digit PIN generation, hashed at rest (SHA-256)
//   - Per-user single-active-PIN storage with TTL
//   - A verify state machine: success / wrong / expired / exhausted / not found
//   - Failed-attempt accounting with a configurable ceiling
//   - A resend debounce policy for re-issuance
//   - A reauthentication gate ahead of every issuance
//   - Rollback of the stored record when email delivery fails
//   - Store backends for PostgreSQL, Redis, file and in-memory persistence
//
// # Basic Usage
//
//	import "github.com/arguslocks/emailpin/pkg/pin"
//
//	store := pin.NewInMemoryPinStore()
//	service := pin.NewPinService(store, sender, reauthProvider,
//		pin.WithTTL(60*time.Second),
//		pin.WithMaxAttempts(10),
//	)
//
//	// Issue a PIN to the target address (requires fresh credentials)
//	err := service.Issue(ctx, userID, "new@example.com", password)
//
//	// Later, verify what the user typed in
//	result, err := service.Verify(ctx, userID, enteredPin)
//	switch result.Outcome {
//	case pin.VerifySuccess:
//		// proceed with the email change
//	case pin.VerifyWrongPin:
//		// result.AttemptsRemaining tries left
//	case pin.VerifyExpired, pin.VerifyExhausted, pin.VerifyNotFound:
//		// prompt the user to request a new PIN
//	}
//
// # Concurrency
//
// The store is the sole synchronization point. Every backend implements
// per-key atomic Put, CompareAndDelete and IncrementAttempts, which is all
// the protocol needs: two concurrent Verify calls with the correct PIN race
// on a single CompareAndDelete and exactly one of them wins. The loser
// observes VerifyNotFound, which callers should treat as "already consumed",
// not as an error.
//
// # Outcomes vs. Errors
//
// Wrong, expired, exhausted and absent PINs are routine user-facing states
// and are returned as VerifyResult values. The error return of Verify is
// reserved for infrastructure faults (store unreachable). Issue returns the
// sentinel errors ErrAuthFailed, ErrCooldownActive and ErrDeliveryFailed
// for its expected failure modes.
package pin
