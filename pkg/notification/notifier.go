package notification

// NoticeType identifies which message is being sent
type NoticeType string

// NotificationSystem is a delivery channel (email, sms, ...)
type NotificationSystem string

const (
	EmailSystem NotificationSystem = "email"

	EmailVerificationNotice NoticeType = "email_verification"
	PasswordResetNotice     NoticeType = "password_reset"
	EmailChangeNotice       NoticeType = "email_change"
	MagicLinkNotice         NoticeType = "magic_link"
)

// Template data keys shared by the default templates
const (
	KeyLink         = "Link"
	KeyCode         = "Code"
	KeyEmail        = "Email"
	KeyCurrentEmail = "CurrentEmail"
	KeyExpiresIn    = "ExpiresIn"
)

type NotificationData struct {
	To   string            // Recipient address
	Data map[string]string // Template values
}

// NoticeTemplate holds the subject and body templates for one notice type
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
