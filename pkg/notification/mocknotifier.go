package notification

import (
	"context"
	"sync"
)

// MockNotifier records sent notifications for tests. It can be told to fail
// to exercise delivery-failure paths.
type MockNotifier struct {
	mutex             sync.Mutex
	SentNotifications []NotificationData
	Err               error
}

func (m *MockNotifier) Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.SentNotifications = append(m.SentNotifications, notification)
	return nil
}

// Last returns the most recently sent notification, or nil.
func (m *MockNotifier) Last() *NotificationData {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if len(m.SentNotifications) == 0 {
		return nil
	}
	last := m.SentNotifications[len(m.SentNotifications)-1]
	return &last
}
