package pin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ReauthProvider supplies fresh proof of identity before a PIN may be
// issued. Implementations live in pkg/reauth.
type ReauthProvider interface {
	// Reauthenticate returns nil when the supplied secret proves the
	// principal's identity, and a non-nil error otherwise.
	Reauthenticate(ctx context.Context, userID uuid.UUID, secret string) error
}

// EmailSender delivers the plaintext PIN to an address. A returned error
// means the message was not delivered; silent best-effort sending is not
// acceptable because the issuer rolls back on failure.
type EmailSender interface {
	Send(ctx context.Context, toEmail, plaintextPin string) error
}

// Clock abstracts time.Now so expiry behavior is testable.
type Clock interface {
	Now() time.Time
}

// UTCClock is the production Clock.
type UTCClock struct{}

func (UTCClock) Now() time.Time { return time.Now().UTC() }

// VerifyOutcome is the tagged result of a verification attempt. All values
// are expected control flow, not faults.
type VerifyOutcome string

const (
	// VerifySuccess: the PIN matched and this call consumed the record.
	VerifySuccess VerifyOutcome = "success"
	// VerifyWrongPin: mismatch; the record remains live. Non-terminal.
	VerifyWrongPin VerifyOutcome = "wrong_pin"
	// VerifyExpired: the record's TTL elapsed. Re-issuance required.
	VerifyExpired VerifyOutcome = "expired"
	// VerifyExhausted: the attempt ceiling was reached. Re-issuance required.
	VerifyExhausted VerifyOutcome = "exhausted"
	// VerifyNotFound: no live record, or a concurrent call consumed it first.
	VerifyNotFound VerifyOutcome = "not_found"
)

// Terminal reports whether the outcome ends the current PIN instance.
func (o VerifyOutcome) Terminal() bool {
	return o == VerifySuccess || o == VerifyExpired || o == VerifyExhausted
}

// VerifyResult carries the outcome of one Verify call. AttemptsRemaining is
// meaningful only for VerifyWrongPin.
type VerifyResult struct {
	Outcome           VerifyOutcome
	AttemptsRemaining int
}

// PinService orchestrates issuance and verification of email-change PINs.
type PinService struct {
	store     PinStore
	generator PinGenerator
	reauth    ReauthProvider
	sender    EmailSender
	policy    ResendPolicy
	clock     Clock

	ttl         time.Duration
	maxAttempts int
}

// PinServiceOption configures a PinService.
type PinServiceOption func(*PinService)

// WithTTL sets how long an issued PIN stays consumable.
func WithTTL(ttl time.Duration) PinServiceOption {
	return func(s *PinService) {
		s.ttl = ttl
	}
}

// WithMaxAttempts sets the failed-verification ceiling per record.
func WithMaxAttempts(max int) PinServiceOption {
	return func(s *PinService) {
		s.maxAttempts = max
	}
}

// WithResendPolicy replaces the default debounce policy.
func WithResendPolicy(policy ResendPolicy) PinServiceOption {
	return func(s *PinService) {
		s.policy = policy
	}
}

// WithClock injects a clock for deterministic expiry testing.
func WithClock(clock Clock) PinServiceOption {
	return func(s *PinService) {
		s.clock = clock
	}
}

// WithGenerator replaces the default crypto/rand generator.
func WithGenerator(generator PinGenerator) PinServiceOption {
	return func(s *PinService) {
		s.generator = generator
	}
}

// NewPinService creates a PinService with the given collaborators. Defaults:
// 60 second TTL, 10 attempts, 3 second resend debounce, UTC clock.
func NewPinService(store PinStore, sender EmailSender, reauth ReauthProvider, opts ...PinServiceOption) *PinService {
	service := &PinService{
		store:       store,
		generator:   NewRandomPinGenerator(),
		reauth:      reauth,
		sender:      sender,
		policy:      NewDebounceResendPolicy(DefaultResendDebounce),
		clock:       UTCClock{},
		ttl:         60 * time.Second,
		maxAttempts: 10,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// Issue runs the issuance pipeline: reauthenticate, consult the resend
// policy, generate, store, deliver. On delivery failure the freshly written
// record is rolled back so a transient outage never blocks re-issuance, and
// ErrDeliveryFailed is returned. A rejected reauthentication never touches
// the store.
func (s *PinService) Issue(ctx context.Context, userID uuid.UUID, targetEmail, reauthSecret string) error {
	if err := s.reauth.Reauthenticate(ctx, userID, reauthSecret); err != nil {
		slog.Warn("Pin issuance rejected by reauthentication gate", "user_id", userID, "error", err)
		return fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}

	now := s.clock.Now()

	existing, err := s.getExisting(ctx, userID)
	if err != nil {
		return err
	}
	if !s.policy.MayIssue(existing, now) {
		slog.Info("Pin issuance denied by resend policy", "user_id", userID)
		return ErrCooldownActive
	}

	plaintext, hashed, err := s.generator.Generate()
	if err != nil {
		return err
	}

	record := PinRecord{
		UserID:      userID,
		HashedPin:   hashed,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
		Attempts:    0,
		MaxAttempts: s.maxAttempts,
	}
	if err := s.store.Put(ctx, record); err != nil {
		slog.Error("Failed to store pin record", "user_id", userID, "error", err)
		return fmt.Errorf("failed to store pin record: %w", err)
	}

	if err := s.sender.Send(ctx, targetEmail, plaintext); err != nil {
		slog.Error("Failed to deliver pin, rolling back record", "user_id", userID, "error", err)
		// The rollback must resolve even if the caller canceled mid-send;
		// an undelivered PIN left behind would block re-issuance until
		// natural expiry.
		if delErr := s.store.Delete(context.WithoutCancel(ctx), userID); delErr != nil {
			slog.Error("Failed to roll back undelivered pin record", "user_id", userID, "error", delErr)
			return fmt.Errorf("failed to roll back pin record: %w", delErr)
		}
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	slog.Info("Pin issued", "user_id", userID, "expires_at", record.ExpiresAt)
	return nil
}

// Verify checks an entered PIN against the user's live record and returns a
// tagged outcome. The returned error is non-nil only for infrastructure
// faults (store unreachable); wrong, expired, exhausted and absent PINs are
// routine outcomes, not errors.
//
// A correct entry consumes the record atomically: of any number of
// concurrent Verify calls with the correct PIN, exactly one observes
// VerifySuccess and the rest observe VerifyNotFound.
func (s *PinService) Verify(ctx context.Context, userID uuid.UUID, enteredPin string) (VerifyResult, error) {
	record, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrPinNotFound) {
			return VerifyResult{Outcome: VerifyNotFound}, nil
		}
		return VerifyResult{}, fmt.Errorf("failed to read pin record: %w", err)
	}

	now := s.clock.Now()

	if record.ExpiredAt(now) {
		// Best-effort lazy reap. A concurrent issue replacing the record
		// must survive, so only delete while it is still the expired one.
		if _, err := s.store.CompareAndDelete(ctx, userID, func(r PinRecord) bool {
			return r.ExpiredAt(now)
		}); err != nil {
			slog.Warn("Failed to reap expired pin record", "user_id", userID, "error", err)
		}
		return VerifyResult{Outcome: VerifyExpired}, nil
	}

	if record.Exhausted() {
		return VerifyResult{Outcome: VerifyExhausted}, nil
	}

	if hashEquals(enteredPin, record.HashedPin) {
		hashed := record.HashedPin
		deleted, err := s.store.CompareAndDelete(ctx, userID, func(r PinRecord) bool {
			return r.HashedPin == hashed && !r.ExpiredAt(now)
		})
		if err != nil {
			return VerifyResult{}, fmt.Errorf("failed to consume pin record: %w", err)
		}
		if !deleted {
			// Lost the race: another call already consumed this PIN.
			return VerifyResult{Outcome: VerifyNotFound}, nil
		}
		slog.Info("Pin verified", "user_id", userID)
		return VerifyResult{Outcome: VerifySuccess}, nil
	}

	attempts, err := s.store.IncrementAttempts(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrPinNotFound) {
			// Raced with a consume or reap between Get and the increment.
			return VerifyResult{Outcome: VerifyNotFound}, nil
		}
		return VerifyResult{}, fmt.Errorf("failed to record failed attempt: %w", err)
	}

	remaining := record.MaxAttempts - attempts
	if remaining < 0 {
		remaining = 0
	}
	slog.Info("Pin verification failed", "user_id", userID, "attempts_remaining", remaining)
	return VerifyResult{Outcome: VerifyWrongPin, AttemptsRemaining: remaining}, nil
}

func (s *PinService) getExisting(ctx context.Context, userID uuid.UUID) (*PinRecord, error) {
	record, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrPinNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pin record: %w", err)
	}
	return &record, nil
}
