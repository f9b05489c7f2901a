package emailchange

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arguslocks/emailpin/pkg/pin"
)

type captureSender struct {
	mutex    sync.Mutex
	lastTo   string
	lastPin  string
	failNext bool
}

func (s *captureSender) Send(ctx context.Context, toEmail, plaintextPin string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.failNext {
		s.failNext = false
		return errors.New("smtp connection refused")
	}
	s.lastTo = toEmail
	s.lastPin = plaintextPin
	return nil
}

type staticReauth struct{ secret string }

func (p staticReauth) Reauthenticate(ctx context.Context, userID uuid.UUID, secret string) error {
	if secret != p.secret {
		return errors.New("invalid credential")
	}
	return nil
}

type tickClock struct {
	mutex sync.Mutex
	now   time.Time
}

func (c *tickClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *tickClock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = c.now.Add(d)
}

const reauthSecret = "account-password"

func setupEmailChange(t *testing.T) (*EmailChangeService, *InMemoryUserRepository, *captureSender, *tickClock, uuid.UUID) {
	t.Helper()

	clock := &tickClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	sender := &captureSender{}
	pins := pin.NewPinService(
		pin.NewInMemoryPinStore(),
		sender,
		staticReauth{secret: reauthSecret},
		pin.WithClock(clock),
	)

	users := NewInMemoryUserRepository()
	userID := uuid.New()
	users.SeedUser(UserAccount{
		ID:            userID,
		Email:         "old@example.com",
		EmailVerified: true,
	})

	service := NewEmailChangeService(pins, users, WithClock(clock))
	return service, users, sender, clock, userID
}

func TestEmailChangeService_RequestAndConfirm(t *testing.T) {
	service, users, sender, _, userID := setupEmailChange(t)
	ctx := context.Background()

	err := service.RequestEmailChange(ctx, userID, "new@example.com", reauthSecret)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", sender.lastTo, "pin goes to the target address")

	// The email of record is untouched while pending
	user, err := users.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "old@example.com", user.Email)

	result, err := service.ConfirmEmailChange(ctx, userID, sender.lastPin)
	require.NoError(t, err)
	assert.Equal(t, pin.VerifySuccess, result.Outcome)

	user, err = users.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.False(t, user.EmailVerified, "changed address starts unverified")

	// Pending record is consumed with the change
	_, err = users.GetPendingChange(ctx, userID)
	assert.ErrorIs(t, err, ErrNoPendingChange)
}

func TestEmailChangeService_RequestValidation(t *testing.T) {
	service, _, _, _, userID := setupEmailChange(t)
	ctx := context.Background()

	t.Run("InvalidEmail", func(t *testing.T) {
		err := service.RequestEmailChange(ctx, userID, "not-an-email", reauthSecret)
		assert.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("SameEmail", func(t *testing.T) {
		err := service.RequestEmailChange(ctx, userID, "old@example.com", reauthSecret)
		assert.ErrorIs(t, err, ErrSameEmail)

		err = service.RequestEmailChange(ctx, userID, "OLD@example.com", reauthSecret)
		assert.ErrorIs(t, err, ErrSameEmail)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		err := service.RequestEmailChange(ctx, uuid.New(), "new@example.com", reauthSecret)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("WrongReauthSecret", func(t *testing.T) {
		err := service.RequestEmailChange(ctx, userID, "new@example.com", "wrong")
		assert.ErrorIs(t, err, pin.ErrAuthFailed)

		// A failed gate leaves no pending change behind
		_, err = service.ConfirmEmailChange(ctx, userID, "12345")
		assert.ErrorIs(t, err, ErrNoPendingChange)
	})
}

func TestEmailChangeService_DeliveryFailureLeavesNoPending(t *testing.T) {
	service, users, sender, _, userID := setupEmailChange(t)
	ctx := context.Background()

	sender.failNext = true
	err := service.RequestEmailChange(ctx, userID, "new@example.com", reauthSecret)
	assert.ErrorIs(t, err, pin.ErrDeliveryFailed)

	_, err = users.GetPendingChange(ctx, userID)
	assert.ErrorIs(t, err, ErrNoPendingChange)

	// Retry is not blocked by cooldown from the rolled-back issuance
	require.NoError(t, service.RequestEmailChange(ctx, userID, "new@example.com", reauthSecret))
}

func TestEmailChangeService_ConfirmNonSuccessOutcomesDoNotApply(t *testing.T) {
	service, users, sender, clock, userID := setupEmailChange(t)
	ctx := context.Background()

	require.NoError(t, service.RequestEmailChange(ctx, userID, "new@example.com", reauthSecret))

	wrong := "00000"
	if sender.lastPin == wrong {
		wrong = "00001"
	}

	result, err := service.ConfirmEmailChange(ctx, userID, wrong)
	require.NoError(t, err)
	assert.Equal(t, pin.VerifyWrongPin, result.Outcome)

	user, err := users.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "old@example.com", user.Email)

	// After expiry the change still does not apply
	clock.Advance(2 * time.Minute)
	result, err = service.ConfirmEmailChange(ctx, userID, sender.lastPin)
	require.NoError(t, err)
	assert.Equal(t, pin.VerifyExpired, result.Outcome)

	user, err = users.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "old@example.com", user.Email)
}

func TestEmailChangeService_Cancel(t *testing.T) {
	service, _, sender, _, userID := setupEmailChange(t)
	ctx := context.Background()

	require.NoError(t, service.RequestEmailChange(ctx, userID, "new@example.com", reauthSecret))
	require.NoError(t, service.CancelEmailChange(ctx, userID))

	_, err := service.ConfirmEmailChange(ctx, userID, sender.lastPin)
	assert.ErrorIs(t, err, ErrNoPendingChange)
}

func TestEmailChangeService_SupersedingRequest(t *testing.T) {
	service, users, sender, clock, userID := setupEmailChange(t)
	ctx := context.Background()

	require.NoError(t, service.RequestEmailChange(ctx, userID, "first@example.com", reauthSecret))

	clock.Advance(5 * time.Second)
	require.NoError(t, service.RequestEmailChange(ctx, userID, "second@example.com", reauthSecret))
	assert.Equal(t, "second@example.com", sender.lastTo)

	result, err := service.ConfirmEmailChange(ctx, userID, sender.lastPin)
	require.NoError(t, err)
	require.Equal(t, pin.VerifySuccess, result.Outcome)

	user, err := users.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "second@example.com", user.Email)
}

func TestEmailChangeService_EmailVerificationFlow(t *testing.T) {
	service, users, sender, _, userID := setupEmailChange(t)
	ctx := context.Background()

	// The seeded account is verified; requesting verification is rejected
	err := service.RequestEmailVerification(ctx, userID, reauthSecret)
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	require.NoError(t, users.SetEmailVerified(ctx, userID, false))

	require.NoError(t, service.RequestEmailVerification(ctx, userID, reauthSecret))
	assert.Equal(t, "old@example.com", sender.lastTo, "pin goes to the current address")

	result, err := service.ConfirmEmailVerification(ctx, userID, sender.lastPin)
	require.NoError(t, err)
	assert.Equal(t, pin.VerifySuccess, result.Outcome)

	user, err := users.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
}

func TestEmailChangeService_GetEmailStatus(t *testing.T) {
	service, _, _, _, userID := setupEmailChange(t)
	ctx := context.Background()

	status, err := service.GetEmailStatus(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "old@example.com", status.Email)
	assert.True(t, status.EmailVerified)
	assert.Empty(t, status.PendingEmail)

	require.NoError(t, service.RequestEmailChange(ctx, userID, "new@example.com", reauthSecret))

	status, err = service.GetEmailStatus(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", status.PendingEmail)
}
