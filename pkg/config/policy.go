package config

import (
	"fmt"

	"github.com/tendant/simple-verify/pkg/verification"
)

// FlowPolicyConfig overrides the TTL and issuance limits of each flow.
// Durations accept ISO 8601 or Go duration syntax.
type FlowPolicyConfig struct {
	EmailVerificationTTL    string `env:"EMAIL_VERIFICATION_TTL" env-default:"PT24H"`
	EmailVerificationMax    int    `env:"EMAIL_VERIFICATION_MAX" env-default:"3"`
	EmailVerificationWindow string `env:"EMAIL_VERIFICATION_WINDOW" env-default:"PT1H"`

	PasswordResetTTL    string `env:"PASSWORD_RESET_TTL" env-default:"PT1H"`
	PasswordResetMax    int    `env:"PASSWORD_RESET_MAX" env-default:"5"`
	PasswordResetWindow string `env:"PASSWORD_RESET_WINDOW" env-default:"PT1H"`

	EmailChangeTTL    string `env:"EMAIL_CHANGE_TTL" env-default:"PT24H"`
	EmailChangeMax    int    `env:"EMAIL_CHANGE_MAX" env-default:"2"`
	EmailChangeWindow string `env:"EMAIL_CHANGE_WINDOW" env-default:"PT24H"`

	MagicLinkTTL    string `env:"MAGIC_LINK_TTL" env-default:"PT15M"`
	MagicLinkMax    int    `env:"MAGIC_LINK_MAX" env-default:"10"`
	MagicLinkWindow string `env:"MAGIC_LINK_WINDOW" env-default:"PT1H"`
}

func toPolicy(flow verification.FlowType, ttl string, maxIssuances int, window string) (verification.Policy, error) {
	ttlDuration, err := ParseDuration(ttl)
	if err != nil {
		return verification.Policy{}, fmt.Errorf("%s ttl: %w", flow, err)
	}
	windowDuration, err := ParseDuration(window)
	if err != nil {
		return verification.Policy{}, fmt.Errorf("%s window: %w", flow, err)
	}
	return verification.Policy{TTL: ttlDuration, MaxIssuances: maxIssuances, Window: windowDuration}, nil
}

// ToPolicies builds and validates the per-flow policy table
func (c FlowPolicyConfig) ToPolicies() (verification.Policies, error) {
	rows := []struct {
		flow   verification.FlowType
		ttl    string
		max    int
		window string
	}{
		{verification.FlowEmailVerification, c.EmailVerificationTTL, c.EmailVerificationMax, c.EmailVerificationWindow},
		{verification.FlowPasswordReset, c.PasswordResetTTL, c.PasswordResetMax, c.PasswordResetWindow},
		{verification.FlowEmailChange, c.EmailChangeTTL, c.EmailChangeMax, c.EmailChangeWindow},
		{verification.FlowMagicLink, c.MagicLinkTTL, c.MagicLinkMax, c.MagicLinkWindow},
	}

	policies := make(verification.Policies, len(rows))
	for _, row := range rows {
		policy, err := toPolicy(row.flow, row.ttl, row.max, row.window)
		if err != nil {
			return nil, err
		}
		policies[row.flow] = policy
	}
	if err := policies.Validate(); err != nil {
		return nil, err
	}
	return policies, nil
}
