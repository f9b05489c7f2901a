package notice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arguslocks/emailpin/pkg/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSender(t *testing.T, notifier notification.Notifier) *PinEmailSender {
	t.Helper()
	manager := notification.NewNotificationManager()
	manager.RegisterNotifier(notification.EmailSystem, notifier)

	err := manager.RegisterNotification(EmailPinNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Your verification PIN",
		Text:    loadTemplate("templates/email/pin_code.txt"),
		Html:    loadTemplate("templates/email/pin_code.html"),
	})
	require.NoError(t, err)

	return NewPinEmailSender(manager, time.Minute)
}

func TestPinEmailSender_Send(t *testing.T) {
	mock := &notification.MockNotifier{}
	sender := setupSender(t, mock)

	err := sender.Send(context.Background(), "user@example.com", "04217")
	require.NoError(t, err)

	last := mock.Last()
	require.NotNil(t, last)
	assert.Equal(t, "user@example.com", last.To)
	assert.Equal(t, "04217", last.Data["Pin"])
	assert.Equal(t, "1", last.Data["ExpiryMinutes"])
}

func TestPinEmailSender_SendFailureSurfaces(t *testing.T) {
	mock := &notification.MockNotifier{Err: errors.New("smtp down")}
	sender := setupSender(t, mock)

	err := sender.Send(context.Background(), "user@example.com", "04217")
	assert.Error(t, err)
}

func TestEmbeddedTemplatesPresent(t *testing.T) {
	assert.NotEmpty(t, loadTemplate("templates/email/pin_code.txt"))
	assert.NotEmpty(t, loadTemplate("templates/email/pin_code.html"))
}
