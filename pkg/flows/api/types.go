package api

// SendVerificationRequest represents the request body for sending a verification email
type SendVerificationRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// TokenRequest carries a secret from an emailed link
type TokenRequest struct {
	Token string `json:"token"`
}

// VerifyCodeRequest represents the request body for verifying with the numeric code
type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// EmailRequest represents the request body for password reset and magic link requests
type EmailRequest struct {
	Email string `json:"email"`
}

// CompletePasswordResetRequest represents the request body for setting a new password
type CompletePasswordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// EmailChangeRequest represents the request body for requesting an email change
type EmailChangeRequest struct {
	UserID       string `json:"user_id"`
	CurrentEmail string `json:"current_email"`
	NewEmail     string `json:"new_email"`
}
