package notification

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// NotificationManager manages notifiers and notification templates.
type NotificationManager struct {
	mu                   sync.RWMutex
	notifiers            map[NotificationSystem]Notifier
	notificationRegistry map[NoticeType]map[NotificationSystem]NoticeTemplate
}

// NewNotificationManager creates and returns a new NotificationManager.
func NewNotificationManager() *NotificationManager {
	return &NotificationManager{
		notifiers:            make(map[NotificationSystem]Notifier),
		notificationRegistry: make(map[NoticeType]map[NotificationSystem]NoticeTemplate),
	}
}

// RegisterNotifier registers a notifier for a specific system.
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.notifiers[system] = notifier
}

// RegisterNotification adds or replaces the template for a notice type on a system.
func (nm *NotificationManager) RegisterNotification(noticeType NoticeType, system NotificationSystem, template NoticeTemplate) error {
	if noticeType == "" || system == "" {
		return fmt.Errorf("invalid input: notice type and system cannot be empty")
	}
	if template.Subject == "" {
		return fmt.Errorf("invalid input: template for %s needs a subject", noticeType)
	}
	if template.Text == "" && template.Html == "" {
		return fmt.Errorf("invalid input: template for %s needs a text or html body", noticeType)
	}

	nm.mu.Lock()
	defer nm.mu.Unlock()
	if _, exists := nm.notificationRegistry[noticeType]; !exists {
		nm.notificationRegistry[noticeType] = make(map[NotificationSystem]NoticeTemplate)
	}
	nm.notificationRegistry[noticeType][system] = template
	return nil
}

// Send delivers the notice through every system that has both a template and
// a notifier registered. Per-system failures are joined into one error.
func (nm *NotificationManager) Send(noticeType NoticeType, notification NotificationData) error {
	nm.mu.RLock()
	systemTemplates, exists := nm.notificationRegistry[noticeType]
	if !exists {
		nm.mu.RUnlock()
		return fmt.Errorf("no templates registered for notice type: %s", noticeType)
	}
	type delivery struct {
		system   NotificationSystem
		notifier Notifier
		template NoticeTemplate
	}
	var deliveries []delivery
	for system, template := range systemTemplates {
		if notifier, ok := nm.notifiers[system]; ok {
			deliveries = append(deliveries, delivery{system, notifier, template})
		}
	}
	nm.mu.RUnlock()

	if len(deliveries) == 0 {
		return fmt.Errorf("no notifier registered for notice type: %s", noticeType)
	}

	var errs []error
	for _, d := range deliveries {
		if err := d.notifier.Send(noticeType, notification, d.template); err != nil {
			slog.Error("Failed to send notification", "noticeType", noticeType, "system", d.system, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", d.system, err))
		}
	}
	return errors.Join(errs...)
}
