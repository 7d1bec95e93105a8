// Package flows implements the four identity flows built on the
// verification token primitive:
//
//	flow                send                    redeem
//	email verification  SendEmailVerification   VerifyEmail, VerifyEmailWithCode
//	password reset      RequestPasswordReset    ValidatePasswordReset (no redeem), CompletePasswordReset
//	email change        RequestEmailChange      ConfirmEmailChange
//	magic link          RequestMagicLink        ConfirmMagicLink
//
// Every send goes through the same rate limit gate, issuance and notification
// step, and every redeem through one atomic redemption followed by a flow
// specific side effect on the user directory.
//
// Operations return a Result rather than an error. Token failures (unknown,
// expired, used) all become TOKEN_INVALID, store and mail failures become
// UNAVAILABLE, and RATE_LIMIT_EXCEEDED is the only internal condition
// reported as is. RequestPasswordReset and RequestMagicLink answer the same
// way for known and unknown addresses.
//
// Usage:
//
//	svc, err := flows.NewService(repo, directory, notificationManager,
//		password.NewBcryptHasher(0), "https://app.example.com")
//	if err != nil {
//		return err
//	}
//	result := svc.RequestPasswordReset(ctx, "a@example.com")
//	render.Status(r, result.HTTPStatus())
//	render.JSON(w, r, result)
package flows
