package notification

import (
	"embed"
	"fmt"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) (string, error) {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", filename, err)
	}
	return string(content), nil
}

// NotificationManagerOption is a function that configures a NotificationManager
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithNotifier registers an arbitrary notifier, typically a MockNotifier in tests
func WithNotifier(system NotificationSystem, notifier Notifier) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		nm.RegisterNotifier(system, notifier)
		return nil
	}
}

func withEmailTemplate(noticeType NoticeType, subject, text, file string) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		html, err := loadTemplate(file)
		if err != nil {
			return err
		}
		return nm.RegisterNotification(noticeType, EmailSystem, NoticeTemplate{
			Subject: subject,
			Text:    text,
			Html:    html,
		})
	}
}

// WithEmailVerificationTemplate registers the email verification template
func WithEmailVerificationTemplate() NotificationManagerOption {
	return withEmailTemplate(EmailVerificationNotice,
		"Verify Your Email Address",
		"Verify your email address by opening this link:\n{{.Link}}\n\nOr enter this code: {{.Code}}\n\nThe link expires in {{.ExpiresIn}}.\n",
		"templates/email/email_verification.html")
}

// WithPasswordResetTemplate registers the password reset template
func WithPasswordResetTemplate() NotificationManagerOption {
	return withEmailTemplate(PasswordResetNotice,
		"Password Reset Request",
		"Reset your password with this link:\n{{.Link}}\n\nThe link expires in {{.ExpiresIn}}. If you did not ask for a reset, ignore this email.\n",
		"templates/email/password_reset.html")
}

// WithEmailChangeTemplate registers the email change confirmation template
func WithEmailChangeTemplate() NotificationManagerOption {
	return withEmailTemplate(EmailChangeNotice,
		"Confirm Your New Email Address",
		"Confirm {{.Email}} as the new address for your account:\n{{.Link}}\n\nThe link expires in {{.ExpiresIn}}.\n",
		"templates/email/email_change.html")
}

// WithMagicLinkTemplate registers the magic link login template
func WithMagicLinkTemplate() NotificationManagerOption {
	return withEmailTemplate(MagicLinkNotice,
		"Your Login Link",
		"Sign in with this link:\n{{.Link}}\n\nThe link expires in {{.ExpiresIn}} and works once.\n",
		"templates/email/magic_link.html")
}

// WithDefaultTemplates registers all default notification templates
func WithDefaultTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		options := []NotificationManagerOption{
			WithEmailVerificationTemplate(),
			WithPasswordResetTemplate(),
			WithEmailChangeTemplate(),
			WithMagicLinkTemplate(),
		}

		for _, opt := range options {
			if err := opt(nm); err != nil {
				return err
			}
		}

		return nil
	}
}

// NewNotificationManagerWithOptions creates a new notification manager with the provided options
func NewNotificationManagerWithOptions(opts ...NotificationManagerOption) (*NotificationManager, error) {
	notificationManager := NewNotificationManager()

	for _, opt := range opts {
		if err := opt(notificationManager); err != nil {
			return nil, err
		}
	}

	return notificationManager, nil
}
