package notification

import "sync"

// SentNotice is one message captured by MockNotifier
type SentNotice struct {
	Type     NoticeType
	Data     NotificationData
	Rendered Rendered
}

// MockNotifier renders and records notices instead of delivering them
type MockNotifier struct {
	mu   sync.Mutex
	sent []SentNotice

	// Err, when set, is returned from Send after the notice is recorded
	Err error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	rendered, err := Render(template, notification.Data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentNotice{Type: noticeType, Data: notification, Rendered: rendered})
	return m.Err
}

// Sent returns a copy of everything recorded so far
func (m *MockNotifier) Sent() []SentNotice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentNotice, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last returns the most recent notice and whether there was one
func (m *MockNotifier) Last() (SentNotice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentNotice{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// Reset clears the recorded notices
func (m *MockNotifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
