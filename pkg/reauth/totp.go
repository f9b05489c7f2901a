package reauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	TOTP_ISSUER = "emailpin"
	SKEW        = 1
	PERIOD      = 30
)

// TOTPReauthProvider proves identity with a current authenticator code.
type TOTPReauthProvider struct {
	credentials CredentialStore
}

// NewTOTPReauthProvider creates a TOTP-based reauthentication provider.
func NewTOTPReauthProvider(credentials CredentialStore) *TOTPReauthProvider {
	return &TOTPReauthProvider{credentials: credentials}
}

// Reauthenticate validates the supplied passcode against the user's TOTP secret.
func (p *TOTPReauthProvider) Reauthenticate(ctx context.Context, userID uuid.UUID, secret string) error {
	totpSecret, err := p.credentials.GetTOTPSecret(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return ErrPrincipalNotFound
		}
		return fmt.Errorf("failed to load totp secret: %w", err)
	}

	valid, err := totp.ValidateCustom(secret, totpSecret, time.Now().UTC(), totp.ValidateOpts{
		Period:    PERIOD,
		Skew:      SKEW,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		slog.Error("Failed to validate totp passcode", "user_id", userID, "error", err)
		return fmt.Errorf("failed to validate totp passcode: %w", err)
	}
	if !valid {
		return ErrInvalidCredential
	}
	return nil
}

// GenerateTOTPSecret creates a new TOTP secret for a principal, for
// enrollment ahead of using the TOTP provider.
func GenerateTOTPSecret(userID uuid.UUID) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      TOTP_ISSUER,
		AccountName: userID.String(),
	})
	if err != nil {
		slog.Error("Failed to generate totp secret", "user_id", userID, "error", err)
		return "", err
	}
	return key.Secret(), nil
}
