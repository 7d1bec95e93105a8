// Package notification delivers token emails for the verification flows.
//
// # Core Interface
//
//	type Notifier interface {
//	    Send(noticeType NoticeType, data NotificationData, template NoticeTemplate) error
//	}
//
// EmailNotifier sends over SMTP with go-mail. MockNotifier renders and records
// notices for tests.
//
// # Manager
//
// NotificationManager pairs a notice type with a template per delivery system
// and sends through every registered notifier:
//
//	nm, err := notification.NewNotificationManagerWithOptions(
//	    notification.WithSMTP(notification.SMTPConfig{
//	        Host: "localhost",
//	        Port: 1025,
//	        From: "noreply@example.com",
//	    }),
//	    notification.WithDefaultTemplates(),
//	)
//
//	err = nm.Send(notification.MagicLinkNotice, notification.NotificationData{
//	    To: "user@example.com",
//	    Data: map[string]string{
//	        notification.KeyLink:      "https://example.com/magic-link/confirm?token=abc",
//	        notification.KeyExpiresIn: "15 minutes",
//	    },
//	})
//
// # Templates
//
// The default templates are embedded from templates/email. The email
// verification notice carries both Link and Code; the other notices carry a
// Link only. Subjects and text bodies use text/template, HTML bodies use
// html/template.
//
// # Local Development (Mailpit)
//
//	smtpConfig := notification.SMTPConfig{
//	    Host: "localhost",
//	    Port: 1025,
//	    TLS:  false,
//	    From: "dev@localhost",
//	}
//
// Access the Mailpit web UI at http://localhost:8025
package notification
