package notification

import (
	"errors"
	"strings"
	"testing"
)

func TestNewNotificationManager(t *testing.T) {
	nm := NewNotificationManager()
	if nm == nil {
		t.Fatal("NewNotificationManager returned nil")
	}
	if nm.notifiers == nil {
		t.Error("notifiers map not initialized")
	}
	if nm.notificationRegistry == nil {
		t.Error("notificationRegistry map not initialized")
	}
}

func TestRegisterNotifier(t *testing.T) {
	nm := NewNotificationManager()
	mockNotifier := NewMockNotifier()

	nm.RegisterNotifier(EmailSystem, mockNotifier)
	if n, exists := nm.notifiers[EmailSystem]; !exists {
		t.Error("Notifier not registered")
	} else if n != mockNotifier {
		t.Error("Wrong notifier registered")
	}

	// Test overwriting existing notifier
	newMockNotifier := NewMockNotifier()
	nm.RegisterNotifier(EmailSystem, newMockNotifier)
	if n := nm.notifiers[EmailSystem]; n != newMockNotifier {
		t.Error("Notifier not overwritten")
	}
}

func TestRegisterNotification(t *testing.T) {
	nm := NewNotificationManager()

	tests := []struct {
		name        string
		noticeType  NoticeType
		system      NotificationSystem
		template    NoticeTemplate
		shouldError bool
	}{
		{
			name:       "Valid registration with both Text and Html",
			noticeType: MagicLinkNotice,
			system:     EmailSystem,
			template:   NoticeTemplate{Subject: "Login", Text: "Open {{.Link}}", Html: "<a href=\"{{.Link}}\">Sign in</a>"},
		},
		{
			name:       "Valid registration with Text only",
			noticeType: MagicLinkNotice,
			system:     EmailSystem,
			template:   NoticeTemplate{Subject: "Login", Text: "Open {{.Link}}"},
		},
		{
			name:       "Valid registration with Html only",
			noticeType: MagicLinkNotice,
			system:     EmailSystem,
			template:   NoticeTemplate{Subject: "Login", Html: "<p>{{.Link}}</p>"},
		},
		{
			name:        "Empty notice type",
			noticeType:  "",
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Login", Text: "x"},
			shouldError: true,
		},
		{
			name:        "Empty system",
			noticeType:  MagicLinkNotice,
			system:      "",
			template:    NoticeTemplate{Subject: "Login", Text: "x"},
			shouldError: true,
		},
		{
			name:        "Empty subject",
			noticeType:  MagicLinkNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Text: "x"},
			shouldError: true,
		},
		{
			name:        "No content",
			noticeType:  MagicLinkNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Login"},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := nm.RegisterNotification(tt.noticeType, tt.system, tt.template)
			if tt.shouldError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if !tt.shouldError {
				if template, exists := nm.notificationRegistry[tt.noticeType][tt.system]; !exists {
					t.Error("Template not registered")
				} else if template != tt.template {
					t.Errorf("Wrong template registered. Got %+v, want %+v", template, tt.template)
				}
			}
		})
	}
}

func TestSend(t *testing.T) {
	mock := NewMockNotifier()
	nm, err := NewNotificationManagerWithOptions(WithNotifier(EmailSystem, mock), WithDefaultTemplates())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	data := NotificationData{
		To: "user@example.com",
		Data: map[string]string{
			KeyLink:      "https://example.com/verify?token=abc",
			KeyCode:      "012345",
			KeyEmail:     "user@example.com",
			KeyExpiresIn: "24h0m0s",
		},
	}
	if err := nm.Send(EmailVerificationNotice, data); err != nil {
		t.Fatalf("Failed to send notification: %v", err)
	}

	sent, ok := mock.Last()
	if !ok {
		t.Fatal("Notification not sent")
	}
	if sent.Type != EmailVerificationNotice || sent.Data.To != "user@example.com" {
		t.Errorf("Unexpected notice: %+v", sent)
	}
	if sent.Rendered.Subject != "Verify Your Email Address" {
		t.Errorf("Unexpected subject: %s", sent.Rendered.Subject)
	}
	if !strings.Contains(sent.Rendered.Html, "https://example.com/verify?token=abc") || !strings.Contains(sent.Rendered.Html, "012345") {
		t.Error("HTML body missing link or code")
	}
	if !strings.Contains(sent.Rendered.Text, "012345") {
		t.Error("Text body missing code")
	}
}

func TestSendDefaultTemplatesLinkOnly(t *testing.T) {
	mock := NewMockNotifier()
	nm, err := NewNotificationManagerWithOptions(WithNotifier(EmailSystem, mock), WithDefaultTemplates())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	for _, noticeType := range []NoticeType{PasswordResetNotice, EmailChangeNotice, MagicLinkNotice} {
		mock.Reset()
		err := nm.Send(noticeType, NotificationData{
			To:   "user@example.com",
			Data: map[string]string{KeyLink: "https://example.com/t?token=xyz", KeyExpiresIn: "15m0s"},
		})
		if err != nil {
			t.Fatalf("%s: %v", noticeType, err)
		}
		sent, ok := mock.Last()
		if !ok {
			t.Fatalf("%s: not sent", noticeType)
		}
		if !strings.Contains(sent.Rendered.Html, "https://example.com/t?token=xyz") {
			t.Errorf("%s: html missing link", noticeType)
		}
	}
}

func TestSendErrors(t *testing.T) {
	nm := NewNotificationManager()

	// Test sending with unregistered notice type
	if err := nm.Send("unregistered", NotificationData{}); err == nil {
		t.Error("Expected error for unregistered notice type")
	}

	err := nm.RegisterNotification(MagicLinkNotice, EmailSystem, NoticeTemplate{Subject: "Login", Text: "{{.Link}}"})
	if err != nil {
		t.Fatalf("Failed to register notification: %v", err)
	}

	// Test sending with missing notifier
	err = nm.Send(MagicLinkNotice, NotificationData{})
	if err == nil {
		t.Error("Expected error for missing notifier")
	} else if err.Error() != "no notifier registered for notice type: magic_link" {
		t.Errorf("Unexpected error message: %v", err)
	}

	// Notifier failures are returned
	failing := NewMockNotifier()
	failing.Err = errors.New("smtp down")
	nm.RegisterNotifier(EmailSystem, failing)
	err = nm.Send(MagicLinkNotice, NotificationData{To: "a@x.com"})
	if err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Errorf("Expected notifier error, got %v", err)
	}
	if len(failing.Sent()) != 1 {
		t.Error("Failing notifier should still record the attempt")
	}
}
