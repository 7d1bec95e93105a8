// Package verification provides the single-use token primitive shared by the
// email verification, password reset, email change and magic link flows.
//
// # Overview
//
// The verification package provides:
//   - Secret and 6 digit code generation (RandomGenerator)
//   - Token issuance with a per-flow TTL (Issuer)
//   - Atomic redemption by secret or code (Verifier)
//   - Per-identity issuance limits counted from the token store (Limiter)
//   - Periodic deletion of expired tokens (Reaper)
//   - Repository implementations for PostgreSQL, GORM and file storage
//
// # Basic Usage
//
//	repo := verification.NewPostgresRepository(pool)
//	policies := verification.DefaultPolicies()
//
//	limiter := verification.NewLimiter(repo, policies)
//	issuer := verification.NewIssuer(repo, policies)
//	verifier := verification.NewVerifier(repo)
//
//	if !limiter.Allow(ctx, userID, verification.FlowPasswordReset) {
//		return verification.ErrRateLimitExceeded
//	}
//
//	issued, err := issuer.Issue(ctx, verification.IssueRequest{
//		UserID: userID,
//		Email:  email,
//		Flow:   verification.FlowPasswordReset,
//	})
//	if err != nil {
//		return err
//	}
//	// issued.Secret goes into the link; only its hash is stored
//
//	result, err := verifier.RedeemBySecret(ctx, secret, verification.FlowPasswordReset)
//	if err != nil {
//		return err // store failure
//	}
//	if !result.OK() {
//		return result.Err() // ErrTokenNotFound, ErrTokenExpired or ErrTokenAlreadyUsed
//	}
//
// # Policies
//
// TTLs and issuance limits are passed in as a Policies value:
//
//	flow                 ttl   max  window
//	email_verification   24h   3    1h
//	password_reset       1h    5    1h
//	email_change         24h   2    24h
//	magic_link           15m   10   1h
//
// Tests can pass compressed windows without touching global state.
//
// # Rate Limiting
//
// The Limiter counts existing token rows created inside the window instead of
// keeping its own counters. When the count query fails it fails open: the
// issuance is allowed and a warning is logged. Pass WithFailClosed to deny
// instead.
//
// # Redemption
//
// A token is redeemable iff used_at is NULL and now < expires_at. Repository
// implementations redeem with one conditional write (UPDATE ... WHERE used_at
// IS NULL RETURNING for SQL stores, a locked compare-and-swap for the file
// store), so N concurrent redemptions of one secret produce exactly one
// success.
//
// # Cleanup
//
//	reaper := verification.NewReaper(repo, verification.WithSchedule("@hourly"))
//	if err := reaper.Start(); err != nil {
//		return err
//	}
//	defer reaper.Stop()
package verification
