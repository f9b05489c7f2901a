// Package notice wires concrete notice templates into the notification
// manager and adapts it to the collaborator interfaces the core consumes.
package notice

import (
	"embed"
	"log/slog"

	"github.com/arguslocks/emailpin/pkg/notification"
)

// EmailPinNotice is the notice type carrying a verification PIN.
const EmailPinNotice notification.NoticeType = "email_pin"

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file!", "error", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NewNotificationManager creates a notification manager with an SMTP email
// notifier and the PIN notice template registered.
func NewNotificationManager(smtpConfig notification.SMTPConfig) (*notification.NotificationManager, error) {
	notificationManager := notification.NewNotificationManager()

	emailNotifier, err := notification.NewEmailNotifier(smtpConfig)
	if err != nil {
		return nil, err
	}
	notificationManager.RegisterNotifier(notification.EmailSystem, emailNotifier)

	err = notificationManager.RegisterNotification(EmailPinNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Your verification PIN",
		Text:    loadTemplate("templates/email/pin_code.txt"),
		Html:    loadTemplate("templates/email/pin_code.html"),
	})
	if err != nil {
		slog.Error("failed to register pin notice", "error", err)
		return nil, err
	}

	return notificationManager, nil
}
