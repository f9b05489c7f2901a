package notification

import "context"

// NotificationSystem represents a delivery channel (e.g. email, SMS).
type NotificationSystem string

// NoticeType identifies a kind of notification (e.g. "email_pin").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"
	SMSSystem   NotificationSystem = "sms"
)

// NotificationData carries the recipient and template values for one send.
type NotificationData struct {
	To   string            // Recipient identifier (e.g. email address)
	Data map[string]string // Values substituted into the notice template
}

// NoticeTemplate holds the renderable content registered for a notice type.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// Notifier delivers one rendered notice over its channel. A returned error
// means delivery did not happen; notifiers must not swallow failures.
type Notifier interface {
	Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
