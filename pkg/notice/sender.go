package notice

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/arguslocks/emailpin/pkg/notification"
)

// PinEmailSender adapts the notification manager to the pin.EmailSender
// collaborator contract: one plaintext PIN to one address, failure reported.
type PinEmailSender struct {
	manager   *notification.NotificationManager
	pinExpiry time.Duration
}

// NewPinEmailSender creates a sender delivering PINs through the manager.
// pinExpiry is only used to render the "expires in" hint in the message.
func NewPinEmailSender(manager *notification.NotificationManager, pinExpiry time.Duration) *PinEmailSender {
	return &PinEmailSender{
		manager:   manager,
		pinExpiry: pinExpiry,
	}
}

// Send implements pin.EmailSender.
func (s *PinEmailSender) Send(ctx context.Context, toEmail, plaintextPin string) error {
	minutes := int(s.pinExpiry.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	err := s.manager.Send(ctx, EmailPinNotice, notification.EmailSystem, notification.NotificationData{
		To: toEmail,
		Data: map[string]string{
			"Pin":           plaintextPin,
			"ExpiryMinutes": strconv.Itoa(minutes),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send pin email: %w", err)
	}
	return nil
}
