package emailchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/arguslocks/emailpin/pkg/pin"
)

// Clock abstracts time for deterministic tests.
type Clock = pin.Clock

// EmailChangeService drives the account email-of-record change flow on top
// of the PIN protocol: request records the intended address and issues a PIN
// to it; confirm verifies the PIN and applies the change. It also covers
// verification of the current address without changing it.
type EmailChangeService struct {
	pins  *pin.PinService
	users UserRepository
	clock Clock
}

// EmailChangeServiceOption configures an EmailChangeService.
type EmailChangeServiceOption func(*EmailChangeService)

// WithClock injects a clock for deterministic tests.
func WithClock(clock Clock) EmailChangeServiceOption {
	return func(s *EmailChangeService) {
		s.clock = clock
	}
}

// NewEmailChangeService creates an email change service.
func NewEmailChangeService(pins *pin.PinService, users UserRepository, opts ...EmailChangeServiceOption) *EmailChangeService {
	service := &EmailChangeService{
		pins:  pins,
		users: users,
		clock: pin.UTCClock{},
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// RequestEmailChange validates the target address, issues a PIN to it
// (behind the reauthentication gate) and records the pending change. The
// email of record is untouched until the PIN is confirmed.
func (s *EmailChangeService) RequestEmailChange(ctx context.Context, userID uuid.UUID, newEmail, reauthSecret string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	newEmail = strings.TrimSpace(newEmail)
	if _, err := mail.ParseAddress(newEmail); err != nil {
		return ErrInvalidEmail
	}
	if strings.EqualFold(newEmail, user.Email) {
		return ErrSameEmail
	}

	// Issue first: a rejected reauthentication or an undeliverable PIN
	// must not leave a pending change behind.
	if err := s.pins.Issue(ctx, userID, newEmail, reauthSecret); err != nil {
		return err
	}

	change := PendingEmailChange{
		UserID:      userID,
		NewEmail:    newEmail,
		RequestedAt: s.clock.Now(),
	}
	if err := s.users.PutPendingChange(ctx, change); err != nil {
		slog.Error("Failed to record pending email change", "user_id", userID, "error", err)
		return fmt.Errorf("failed to record pending email change: %w", err)
	}

	slog.Info("Email change requested", "user_id", userID)
	return nil
}

// ConfirmEmailChange verifies the entered PIN against the pending change
// and, on success, swaps the email of record. The new address starts
// unverified pending a separate ownership confirmation.
func (s *EmailChangeService) ConfirmEmailChange(ctx context.Context, userID uuid.UUID, enteredPin string) (pin.VerifyResult, error) {
	change, err := s.users.GetPendingChange(ctx, userID)
	if err != nil {
		return pin.VerifyResult{}, err
	}

	result, err := s.pins.Verify(ctx, userID, enteredPin)
	if err != nil {
		return pin.VerifyResult{}, err
	}
	if result.Outcome != pin.VerifySuccess {
		return result, nil
	}

	if err := s.users.UpdateEmail(ctx, userID, change.NewEmail, false); err != nil {
		slog.Error("Failed to apply email change", "user_id", userID, "error", err)
		return pin.VerifyResult{}, fmt.Errorf("failed to apply email change: %w", err)
	}
	if err := s.users.DeletePendingChange(ctx, userID); err != nil {
		// The change itself is applied; a stale pending record only
		// blocks nothing and is superseded by the next request.
		slog.Warn("Failed to clear pending email change", "user_id", userID, "error", err)
	}

	slog.Info("Email of record changed", "user_id", userID)
	return result, nil
}

// CancelEmailChange abandons a pending change. Any PIN already issued for
// it simply expires; confirming is impossible once the pending record is
// gone.
func (s *EmailChangeService) CancelEmailChange(ctx context.Context, userID uuid.UUID) error {
	return s.users.DeletePendingChange(ctx, userID)
}

// RequestEmailVerification issues a PIN to the *current* email of record,
// to confirm continued control of it. The same reauthentication gate
// applies, so a hijacked session cannot spam PIN requests.
func (s *EmailChangeService) RequestEmailVerification(ctx context.Context, userID uuid.UUID, reauthSecret string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	return s.pins.Issue(ctx, userID, user.Email, reauthSecret)
}

// ConfirmEmailVerification verifies the entered PIN and, on success, marks
// the current address verified.
func (s *EmailChangeService) ConfirmEmailVerification(ctx context.Context, userID uuid.UUID, enteredPin string) (pin.VerifyResult, error) {
	result, err := s.pins.Verify(ctx, userID, enteredPin)
	if err != nil {
		return pin.VerifyResult{}, err
	}
	if result.Outcome != pin.VerifySuccess {
		return result, nil
	}

	if err := s.users.SetEmailVerified(ctx, userID, true); err != nil {
		slog.Error("Failed to mark email verified", "user_id", userID, "error", err)
		return pin.VerifyResult{}, fmt.Errorf("failed to mark email verified: %w", err)
	}

	slog.Info("Email verified", "user_id", userID)
	return result, nil
}

// EmailStatus describes the account's email state, including any pending
// change target.
type EmailStatus struct {
	Email         string
	EmailVerified bool
	PendingEmail  string
}

// GetEmailStatus returns the account's email state.
func (s *EmailChangeService) GetEmailStatus(ctx context.Context, userID uuid.UUID) (EmailStatus, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return EmailStatus{}, err
	}

	status := EmailStatus{
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
	}

	change, err := s.users.GetPendingChange(ctx, userID)
	if err == nil {
		status.PendingEmail = change.NewEmail
	} else if !errors.Is(err, ErrNoPendingChange) {
		return EmailStatus{}, err
	}

	return status, nil
}
