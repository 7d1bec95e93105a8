// Package config holds the environment-driven configuration of the
// verification service.
//
// Every struct carries cleanenv tags, so a binary loads everything with:
//
//	var cfg struct {
//	    config.ServiceConfig
//	    AppConfig app.AppConfig
//	}
//	if err := cleanenv.ReadEnv(&cfg); err != nil {
//	    return err
//	}
//
// Durations accept ISO 8601 ("PT15M") or Go syntax ("15m") through
// ParseDuration. FlowPolicyConfig.ToPolicies turns the per-flow settings into
// a validated verification.Policies table.
package config
