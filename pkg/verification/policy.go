package verification

import (
	"fmt"
	"time"
)

// Policy holds the lifetime and issuance limits for one flow type
type Policy struct {
	TTL          time.Duration // token lifetime
	MaxIssuances int           // max tokens per identity within Window
	Window       time.Duration // trailing window for MaxIssuances
}

// Policies maps each flow type to its Policy
type Policies map[FlowType]Policy

// DefaultPolicies returns the production TTL and rate limit table
func DefaultPolicies() Policies {
	return Policies{
		FlowEmailVerification: {TTL: 24 * time.Hour, MaxIssuances: 3, Window: time.Hour},
		FlowPasswordReset:     {TTL: time.Hour, MaxIssuances: 5, Window: time.Hour},
		FlowEmailChange:       {TTL: 24 * time.Hour, MaxIssuances: 2, Window: 24 * time.Hour},
		FlowMagicLink:         {TTL: 15 * time.Minute, MaxIssuances: 10, Window: time.Hour},
	}
}

// For returns the policy for flow
func (p Policies) For(flow FlowType) (Policy, error) {
	policy, ok := p[flow]
	if !ok {
		return Policy{}, fmt.Errorf("%w: no policy for %q", ErrInvalidFlowType, flow)
	}
	return policy, nil
}

// Validate checks that every flow type has a usable policy
func (p Policies) Validate() error {
	for _, flow := range AllFlowTypes {
		policy, err := p.For(flow)
		if err != nil {
			return err
		}
		if policy.TTL <= 0 {
			return fmt.Errorf("policy %s: ttl must be positive", flow)
		}
		if policy.MaxIssuances <= 0 || policy.Window <= 0 {
			return fmt.Errorf("policy %s: max issuances and window must be positive", flow)
		}
	}
	return nil
}
